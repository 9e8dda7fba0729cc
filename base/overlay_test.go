package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func TestOverlayCheckboxToggle(t *testing.T) {
	overlay := NewOverlay(true)

	enabled := true
	overlay.Checkbox("Bloom", &enabled)

	assert.True(t, overlay.HandleKey(sdl.K_SPACE, 0))
	assert.False(t, enabled)
	assert.True(t, overlay.Changed())

	// Changed clears on read.
	assert.False(t, overlay.Changed())

	assert.True(t, overlay.HandleKey(sdl.K_RETURN, 0))
	assert.True(t, enabled)
	assert.True(t, overlay.Changed())
}

func TestOverlaySliderClamps(t *testing.T) {
	overlay := NewOverlay(true)

	value := float32(1.0)
	overlay.SliderFloat("Scale", &value, 0.0, 1.0)

	// Already at max, right does nothing and is not a change.
	assert.True(t, overlay.HandleKey(sdl.K_RIGHT, 0))
	assert.Equal(t, float32(1.0), value)
	assert.False(t, overlay.Changed())

	assert.True(t, overlay.HandleKey(sdl.K_LEFT, 0))
	assert.InDelta(t, 0.95, value, 1e-6)
	assert.True(t, overlay.Changed())
}

func TestOverlayComboWraps(t *testing.T) {
	overlay := NewOverlay(true)

	selection := int32(0)
	overlay.ComboBox("Scene", &selection, []string{"a", "b", "c"})

	assert.True(t, overlay.HandleKey(sdl.K_LEFT, 0))
	assert.Equal(t, int32(2), selection)
	assert.True(t, overlay.Changed())

	assert.True(t, overlay.HandleKey(sdl.K_RIGHT, 0))
	assert.Equal(t, int32(0), selection)
}

func TestOverlayEmptyCombo(t *testing.T) {
	overlay := NewOverlay(true)

	selection := int32(0)
	overlay.ComboBox("Scene", &selection, nil)

	// Arrows on a combo with no options change nothing.
	assert.True(t, overlay.HandleKey(sdl.K_LEFT, 0))
	assert.True(t, overlay.HandleKey(sdl.K_RIGHT, 0))
	assert.Equal(t, int32(0), selection)
	assert.False(t, overlay.Changed())
}

func TestOverlayTabNavigation(t *testing.T) {
	overlay := NewOverlay(true)

	first := false
	second := false
	overlay.Header("Settings")
	overlay.Checkbox("First", &first)
	overlay.Text("static")
	overlay.Checkbox("Second", &second)

	// Tab skips the text item and lands on the second checkbox.
	assert.True(t, overlay.HandleKey(sdl.K_TAB, 0))
	assert.True(t, overlay.HandleKey(sdl.K_SPACE, 0))
	assert.True(t, second)
	assert.False(t, first)

	// Shift-tab moves back.
	assert.True(t, overlay.HandleKey(sdl.K_TAB, sdl.KMOD_LSHIFT))
	assert.True(t, overlay.HandleKey(sdl.K_SPACE, 0))
	assert.True(t, first)
}

func TestOverlayButton(t *testing.T) {
	overlay := NewOverlay(true)

	pressed := 0
	overlay.Button("Take screenshot", func() { pressed++ })

	assert.True(t, overlay.HandleKey(sdl.K_RETURN, 0))
	assert.Equal(t, 1, pressed)

	// A button press runs its action but does not mark widget state
	// changed.
	assert.False(t, overlay.Changed())
}

func TestOverlayHiddenConsumesNothing(t *testing.T) {
	overlay := NewOverlay(false)

	enabled := false
	overlay.Checkbox("Bloom", &enabled)

	assert.False(t, overlay.HandleKey(sdl.K_SPACE, 0))
	assert.False(t, enabled)
}

func TestOverlayWithoutWidgets(t *testing.T) {
	overlay := NewOverlay(true)
	overlay.Header("Settings")
	overlay.Text("nothing selectable")

	assert.False(t, overlay.HandleKey(sdl.K_TAB, 0))
	assert.False(t, overlay.HandleKey(sdl.K_SPACE, 0))
}
