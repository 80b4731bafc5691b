package core

// Window event codes consumed by the engine loop.
type SystemEventCode int

const (
	// The user asked the window to close. Checked once per loop iteration.
	EVENT_CODE_CLOSE_REQUESTED SystemEventCode = 0x01

	// Keyboard key pressed.
	/* Context usage:
	 * data := ctx.Data.(*KeyEvent)
	 */
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Mouse button pressed.
	/* Context usage:
	 * data := ctx.Data.(*MouseEvent)
	 */
	EVENT_CODE_BUTTON_PRESSED SystemEventCode = 0x04

	// Mouse button released.
	EVENT_CODE_BUTTON_RELEASED SystemEventCode = 0x05

	// Cursor moved, in framebuffer pixels.
	EVENT_CODE_MOUSE_MOVED SystemEventCode = 0x06

	// Mouse wheel scrolled.
	/* Context usage:
	 * scroll := ctx.Data.(*MouseEvent).Scroll
	 */
	EVENT_CODE_MOUSE_WHEEL SystemEventCode = 0x07

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * data := ctx.Data.(*ResizeEvent)
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// The window system wants a new frame.
	EVENT_CODE_REDRAW_REQUESTED SystemEventCode = 0x09

	// Modifier keys changed.
	/* Context usage:
	 * data := ctx.Data.(*ModifiersEvent)
	 */
	EVENT_CODE_MODIFIERS_CHANGED SystemEventCode = 0x0A

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

type MouseEvent struct {
	X       float64
	Y       float64
	Button  Button
	Pressed bool
	Scroll  float64
}

type KeyEvent struct {
	KeyCode KeyCode
	Pressed bool
}

type ModifiersEvent struct {
	Shift bool
	Ctrl  bool
	Alt   bool
	Super bool
}

func NewCloseRequestedEvent() EventContext {
	return EventContext{Type: EVENT_CODE_CLOSE_REQUESTED}
}

func NewResizedEvent(width, height uint32) EventContext {
	return EventContext{Type: EVENT_CODE_RESIZED, Data: &ResizeEvent{Width: width, Height: height}}
}

func NewCursorMovedEvent(x, y float64) EventContext {
	return EventContext{Type: EVENT_CODE_MOUSE_MOVED, Data: &MouseEvent{X: x, Y: y}}
}

func NewMouseInputEvent(button Button, pressed bool) EventContext {
	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	return EventContext{Type: code, Data: &MouseEvent{Button: button, Pressed: pressed}}
}

func NewMouseWheelEvent(scroll float64) EventContext {
	return EventContext{Type: EVENT_CODE_MOUSE_WHEEL, Data: &MouseEvent{Scroll: scroll}}
}

func NewKeyboardEvent(key KeyCode, pressed bool) EventContext {
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	return EventContext{Type: code, Data: &KeyEvent{KeyCode: key, Pressed: pressed}}
}

func NewModifiersEvent(m ModifiersEvent) EventContext {
	return EventContext{Type: EVENT_CODE_MODIFIERS_CHANGED, Data: &m}
}
