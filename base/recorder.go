package base

import (
	"github.com/cockroachdb/errors"
)

type RecordState int

const (
	RecordStateEmpty RecordState = iota
	RecordStateRecorded
)

// Recorder tracks the record state of one command buffer per swapchain
// image. Whenever a toggled option changes which passes or pipelines are
// active, every buffer is invalidated and fully re-recorded; there is no
// partial patching of recorded buffers.
type Recorder struct {
	states   []RecordState
	rebuilds int
}

func NewRecorder(imageCount int) *Recorder {
	return &Recorder{
		states: make([]RecordState, imageCount),
	}
}

func (r *Recorder) ImageCount() int {
	return len(r.states)
}

// Invalidate moves every buffer back to empty.
func (r *Recorder) Invalidate() {
	for i := range r.states {
		r.states[i] = RecordStateEmpty
	}
}

// NeedsRecord reports whether any buffer is waiting to be recorded.
func (r *Recorder) NeedsRecord() bool {
	for _, state := range r.states {
		if state == RecordStateEmpty {
			return true
		}
	}
	return false
}

func (r *Recorder) Recorded(imageIndex int) bool {
	return imageIndex >= 0 && imageIndex < len(r.states) && r.states[imageIndex] == RecordStateRecorded
}

// Record runs record for every empty buffer and marks it recorded. One call
// covering all images counts as a single rebuild regardless of image count.
func (r *Recorder) Record(record func(imageIndex int) error) error {
	if !r.NeedsRecord() {
		return nil
	}

	for i, state := range r.states {
		if state != RecordStateEmpty {
			continue
		}
		err := record(i)
		if err != nil {
			return err
		}
		r.states[i] = RecordStateRecorded
	}

	r.rebuilds++
	return nil
}

// Rebuilds returns how many full re-record passes have run.
func (r *Recorder) Rebuilds() int {
	return r.rebuilds
}

// PrepareSubmit re-records every empty buffer through record, then verifies
// the buffer for imageIndex is ready to submit. The frame driver calls this
// after the per-frame update hook, so an update that invalidates the
// recorder (an overlay toggle) is rebuilt on the same frame instead of
// rejected at submission.
func (r *Recorder) PrepareSubmit(imageIndex int, record func() error) error {
	if r.NeedsRecord() {
		err := record()
		if err != nil {
			return err
		}
	}
	return r.checkSubmittable(imageIndex)
}

func (r *Recorder) checkSubmittable(imageIndex int) error {
	if imageIndex < 0 || imageIndex >= len(r.states) {
		return errors.Newf("image index %d out of range (%d buffers)", imageIndex, len(r.states))
	}
	if r.states[imageIndex] != RecordStateRecorded {
		return errors.Newf("command buffer for image %d submitted while empty", imageIndex)
	}
	return nil
}
