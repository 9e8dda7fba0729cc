package base

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderStartsEmpty(t *testing.T) {
	r := NewRecorder(3)

	assert.Equal(t, 3, r.ImageCount())
	assert.True(t, r.NeedsRecord())
	for i := 0; i < 3; i++ {
		assert.False(t, r.Recorded(i))
		assert.Error(t, r.checkSubmittable(i))
	}
}

func TestRecorderRecordsEveryEmptyBuffer(t *testing.T) {
	r := NewRecorder(3)

	var recorded []int
	err := r.Record(func(imageIndex int) error {
		recorded = append(recorded, imageIndex)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, recorded)
	assert.False(t, r.NeedsRecord())
	for i := 0; i < 3; i++ {
		assert.True(t, r.Recorded(i))
		assert.NoError(t, r.checkSubmittable(i))
	}
}

func TestRecorderOneRebuildPerInvalidate(t *testing.T) {
	r := NewRecorder(3)
	record := func(int) error { return nil }

	require.NoError(t, r.Record(record))
	assert.Equal(t, 1, r.Rebuilds())

	// Recording with nothing invalidated is a no-op.
	require.NoError(t, r.Record(record))
	assert.Equal(t, 1, r.Rebuilds())

	// One toggle, one rebuild, regardless of how many buffers exist.
	r.Invalidate()
	assert.True(t, r.NeedsRecord())
	require.NoError(t, r.Record(record))
	assert.Equal(t, 2, r.Rebuilds())
}

// Drives the recorder in the order the render loop does: record up front,
// invalidate at the update point mid-frame, then prepare the submission.
// The toggle frame must still submit, with exactly one rebuild.
func TestRecorderToggleFrameStillSubmits(t *testing.T) {
	r := NewRecorder(3)
	record := func() error {
		return r.Record(func(int) error { return nil })
	}

	// Steady state: the loop records once before drawing.
	require.NoError(t, record())
	assert.False(t, r.NeedsRecord())
	assert.Equal(t, 1, r.Rebuilds())

	// A frame whose update toggles an overlay option.
	r.Invalidate()
	require.NoError(t, r.PrepareSubmit(0, record))
	assert.Equal(t, 2, r.Rebuilds())

	// The next frame has nothing left to rebuild.
	assert.False(t, r.NeedsRecord())
	require.NoError(t, r.PrepareSubmit(1, record))
	assert.Equal(t, 2, r.Rebuilds())
}

func TestRecorderPrepareSubmitRecordError(t *testing.T) {
	r := NewRecorder(2)

	failure := errors.New("boom")
	err := r.PrepareSubmit(0, func() error { return failure })
	require.ErrorIs(t, err, failure)
}

func TestRecorderRecordError(t *testing.T) {
	r := NewRecorder(2)

	failure := errors.New("boom")
	err := r.Record(func(imageIndex int) error {
		if imageIndex == 1 {
			return failure
		}
		return nil
	})
	require.ErrorIs(t, err, failure)

	// The buffer that recorded stays recorded, the failed one stays empty.
	assert.True(t, r.Recorded(0))
	assert.False(t, r.Recorded(1))
	assert.True(t, r.NeedsRecord())
}

func TestRecorderSubmitOutOfRange(t *testing.T) {
	r := NewRecorder(2)
	assert.Error(t, r.checkSubmittable(-1))
	assert.Error(t, r.checkSubmittable(2))
}
