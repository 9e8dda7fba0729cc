package base

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestNeedsSwizzle(t *testing.T) {
	// A blit converts on the device, so no swizzle regardless of format.
	assert.False(t, NeedsSwizzle(core1_0.FormatB8G8R8A8SRGB, true))
	assert.False(t, NeedsSwizzle(core1_0.FormatB8G8R8A8UnsignedNormalized, true))

	assert.True(t, NeedsSwizzle(core1_0.FormatB8G8R8A8SRGB, false))
	assert.True(t, NeedsSwizzle(core1_0.FormatB8G8R8A8UnsignedNormalized, false))
	assert.True(t, NeedsSwizzle(core1_0.FormatB8G8R8A8SignedNormalized, false))

	assert.False(t, NeedsSwizzle(core1_0.FormatR8G8B8A8UnsignedNormalized, false))
	assert.False(t, NeedsSwizzle(core1_0.FormatR8G8B8A8SRGB, false))
}

func TestWritePPMHeaderAndLength(t *testing.T) {
	const width, height = 3, 2
	pixels := make([]byte, width*height*4)

	var out bytes.Buffer
	require.NoError(t, WritePPM(&out, width, height, width*4, pixels, false))

	header := fmt.Sprintf("P6\n%d\n%d\n255\n", width, height)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte(header)))
	assert.Equal(t, len(header)+width*height*3, out.Len())
}

func TestWritePPMDropsAlpha(t *testing.T) {
	pixels := []byte{40, 20, 30, 255}

	var out bytes.Buffer
	require.NoError(t, WritePPM(&out, 1, 1, 4, pixels, false))

	body := out.Bytes()[len(out.Bytes())-3:]
	assert.Equal(t, []byte{40, 20, 30}, body)
}

func TestWritePPMSwizzle(t *testing.T) {
	pixels := []byte{40, 20, 30, 255}

	var out bytes.Buffer
	require.NoError(t, WritePPM(&out, 1, 1, 4, pixels, true))

	body := out.Bytes()[len(out.Bytes())-3:]
	assert.Equal(t, []byte{30, 20, 40}, body)
}

func TestWritePPMRowPitch(t *testing.T) {
	// Two rows of one pixel spaced 16 bytes apart: the padding between
	// rows must not leak into the output.
	pixels := make([]byte, 32)
	copy(pixels[0:], []byte{1, 2, 3, 255})
	copy(pixels[16:], []byte{4, 5, 6, 255})

	var out bytes.Buffer
	require.NoError(t, WritePPM(&out, 1, 2, 16, pixels, false))

	body := out.Bytes()[len(out.Bytes())-6:]
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, body)
}

func TestWritePPMRejectsShortData(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, WritePPM(&out, 2, 2, 4, make([]byte, 16), false))
	assert.Error(t, WritePPM(&out, 2, 2, 8, make([]byte, 8), false))
}
