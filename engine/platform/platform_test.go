package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
)

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		name string
		key  glfw.Key
		want core.KeyCode
	}{
		{"a", glfw.KeyA, core.KEY_A},
		{"w", glfw.KeyW, core.KEY_W},
		{"z", glfw.KeyZ, core.KEY_Z},
		{"f1", glfw.KeyF1, core.KEY_F1},
		{"f12", glfw.KeyF12, core.KEY_F12},
		{"escape", glfw.KeyEscape, core.KEY_ESCAPE},
		{"keypad plus", glfw.KeyKPAdd, core.KEY_PLUS},
		{"left shift", glfw.KeyLeftShift, core.KEY_LSHIFT},
		{"unmapped", glfw.KeyPrintScreen, core.KEY_UNKNOWN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateKey(tt.key))
		})
	}
}

func TestTranslateButtonAndModifiers(t *testing.T) {
	b, ok := translateButton(glfw.MouseButtonRight)
	assert.True(t, ok)
	assert.Equal(t, core.BUTTON_RIGHT, b)

	_, ok = translateButton(glfw.MouseButton4)
	assert.False(t, ok)

	m := translateModifiers(glfw.ModShift | glfw.ModAlt)
	assert.Equal(t, core.ModifiersEvent{Shift: true, Alt: true}, m)
}

func TestPumpMessagesDrainsQueuedEvents(t *testing.T) {
	p := New()
	p.scaleX, p.scaleY = 2, 2

	p.cursorPosCallback(nil, 10, 20)
	p.scrollCallback(nil, 0, -1)
	p.closeCallback(nil)
	p.RequestRedraw()

	events := p.PumpMessages()
	require.Len(t, events, 4)

	assert.Equal(t, core.EVENT_CODE_MOUSE_MOVED, events[0].Type)
	move := events[0].Data.(*core.MouseEvent)
	assert.Equal(t, 20.0, move.X)
	assert.Equal(t, 40.0, move.Y)

	assert.Equal(t, core.EVENT_CODE_MOUSE_WHEEL, events[1].Type)
	assert.Equal(t, -1.0, events[1].Data.(*core.MouseEvent).Scroll)
	assert.Equal(t, core.EVENT_CODE_CLOSE_REQUESTED, events[2].Type)
	assert.Equal(t, core.EVENT_CODE_REDRAW_REQUESTED, events[3].Type)

	assert.Empty(t, p.PumpMessages())
}

func TestKeyCallbackSkipsRepeats(t *testing.T) {
	p := New()
	p.keyCallback(nil, glfw.KeyW, 0, glfw.Repeat, 0)
	assert.Empty(t, p.PumpMessages())

	p.keyCallback(nil, glfw.KeyW, 0, glfw.Press, glfw.ModControl)
	events := p.PumpMessages()
	require.Len(t, events, 2)
	assert.Equal(t, core.EVENT_CODE_MODIFIERS_CHANGED, events[0].Type)
	assert.True(t, events[0].Data.(*core.ModifiersEvent).Ctrl)
	assert.Equal(t, core.EVENT_CODE_KEY_PRESSED, events[1].Type)
	assert.Equal(t, core.KEY_W, events[1].Data.(*core.KeyEvent).KeyCode)
}

func TestFramebufferSizeWithoutWindow(t *testing.T) {
	w, h := New().FramebufferSize()
	assert.Zero(t, w)
	assert.Zero(t, h)
}
