package base

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type overlayItemKind int

const (
	overlayHeader overlayItemKind = iota
	overlayText
	overlayCheckbox
	overlaySlider
	overlayCombo
	overlayButton
)

type overlayItem struct {
	kind  overlayItemKind
	label string

	boolValue  *bool
	floatValue *float32
	minValue   float32
	maxValue   float32
	step       float32

	selection *int32
	options   []string

	onPress func()
}

func (item *overlayItem) selectable() bool {
	switch item.kind {
	case overlayCheckbox, overlaySlider, overlayCombo, overlayButton:
		return true
	}
	return false
}

// Overlay is the widget-state side of the UI: a flat list of bindings the
// example registers once, driven by keyboard input. Any value change marks
// the overlay changed so the example can re-record command buffers or
// refresh uniforms. Rendering is delegated to the optional Draw hook; state
// changes are always logged.
type Overlay struct {
	Visible bool

	// Draw, when set, records the overlay's visual into the current
	// command buffer at the end of the main pass.
	Draw func(cmd core1_0.CommandBuffer)

	items   []*overlayItem
	active  int
	changed bool
}

func NewOverlay(visible bool) *Overlay {
	return &Overlay{Visible: visible, active: -1}
}

func (o *Overlay) Header(label string) {
	o.items = append(o.items, &overlayItem{kind: overlayHeader, label: label})
}

func (o *Overlay) Text(format string, args ...any) {
	o.items = append(o.items, &overlayItem{kind: overlayText, label: fmt.Sprintf(format, args...)})
}

func (o *Overlay) Checkbox(label string, value *bool) {
	o.items = append(o.items, &overlayItem{kind: overlayCheckbox, label: label, boolValue: value})
	o.ensureActive()
}

func (o *Overlay) SliderFloat(label string, value *float32, min, max float32) {
	step := (max - min) / 20
	o.items = append(o.items, &overlayItem{kind: overlaySlider, label: label, floatValue: value, minValue: min, maxValue: max, step: step})
	o.ensureActive()
}

func (o *Overlay) ComboBox(label string, selection *int32, options []string) {
	o.items = append(o.items, &overlayItem{kind: overlayCombo, label: label, selection: selection, options: options})
	o.ensureActive()
}

func (o *Overlay) Button(label string, onPress func()) {
	o.items = append(o.items, &overlayItem{kind: overlayButton, label: label, onPress: onPress})
	o.ensureActive()
}

func (o *Overlay) ensureActive() {
	if o.active >= 0 {
		return
	}
	for i, item := range o.items {
		if item.selectable() {
			o.active = i
			return
		}
	}
}

func (o *Overlay) move(dir int) {
	if o.active < 0 {
		return
	}
	i := o.active
	for {
		i += dir
		if i < 0 || i >= len(o.items) {
			return
		}
		if o.items[i].selectable() {
			o.active = i
			return
		}
	}
}

// Changed reports whether any widget value changed since the last call,
// clearing the flag.
func (o *Overlay) Changed() bool {
	changed := o.changed
	o.changed = false
	return changed
}

// HandleKey processes one key press, returning whether the overlay
// consumed it. Tab and shift-tab move between widgets; space and enter
// activate; left and right adjust sliders and combo boxes.
func (o *Overlay) HandleKey(sym sdl.Keycode, mod uint16) bool {
	if !o.Visible || o.active < 0 {
		return false
	}
	item := o.items[o.active]

	switch sym {
	case sdl.K_TAB:
		if mod&sdl.KMOD_SHIFT != 0 {
			o.move(-1)
		} else {
			o.move(1)
		}
		return true

	case sdl.K_SPACE, sdl.K_RETURN:
		switch item.kind {
		case overlayCheckbox:
			*item.boolValue = !*item.boolValue
			o.changed = true
			LogInfo("overlay", "widget", item.label, "value", *item.boolValue)
		case overlayButton:
			if item.onPress != nil {
				item.onPress()
			}
			LogInfo("overlay", "widget", item.label, "pressed", true)
		}
		return true

	case sdl.K_LEFT, sdl.K_RIGHT:
		dir := float32(1)
		if sym == sdl.K_LEFT {
			dir = -1
		}
		switch item.kind {
		case overlaySlider:
			value := *item.floatValue + dir*item.step
			if value < item.minValue {
				value = item.minValue
			}
			if value > item.maxValue {
				value = item.maxValue
			}
			if value != *item.floatValue {
				*item.floatValue = value
				o.changed = true
				LogInfo("overlay", "widget", item.label, "value", value)
			}
		case overlayCombo:
			count := int32(len(item.options))
			if count == 0 {
				return true
			}
			selection := (*item.selection + int32(dir) + count) % count
			if selection != *item.selection {
				*item.selection = selection
				o.changed = true
				LogInfo("overlay", "widget", item.label, "value", item.options[selection])
			}
		default:
			return false
		}
		return true
	}

	return false
}
