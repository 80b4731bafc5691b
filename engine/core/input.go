package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN   KeyCode = 0x00
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_SHIFT     KeyCode = 0x10
	KEY_CONTROL   KeyCode = 0x11
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_DELETE    KeyCode = 0x2E
	KEY_A         KeyCode = 0x41
	KEY_B         KeyCode = 0x42
	KEY_C         KeyCode = 0x43
	KEY_D         KeyCode = 0x44
	KEY_E         KeyCode = 0x45
	KEY_F         KeyCode = 0x46
	KEY_G         KeyCode = 0x47
	KEY_H         KeyCode = 0x48
	KEY_I         KeyCode = 0x49
	KEY_J         KeyCode = 0x4A
	KEY_K         KeyCode = 0x4B
	KEY_L         KeyCode = 0x4C
	KEY_M         KeyCode = 0x4D
	KEY_N         KeyCode = 0x4E
	KEY_O         KeyCode = 0x4F
	KEY_P         KeyCode = 0x50
	KEY_Q         KeyCode = 0x51
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53
	KEY_T         KeyCode = 0x54
	KEY_U         KeyCode = 0x55
	KEY_V         KeyCode = 0x56
	KEY_W         KeyCode = 0x57
	KEY_X         KeyCode = 0x58
	KEY_Y         KeyCode = 0x59
	KEY_Z         KeyCode = 0x5A
	KEY_F1        KeyCode = 0x70
	KEY_F2        KeyCode = 0x71
	KEY_F3        KeyCode = 0x72
	KEY_F4        KeyCode = 0x73
	KEY_F5        KeyCode = 0x74
	KEY_F6        KeyCode = 0x75
	KEY_F7        KeyCode = 0x76
	KEY_F8        KeyCode = 0x77
	KEY_F9        KeyCode = 0x78
	KEY_F10       KeyCode = 0x79
	KEY_F11       KeyCode = 0x7A
	KEY_F12       KeyCode = 0x7B
	KEY_LSHIFT    KeyCode = 0xA0
	KEY_RSHIFT    KeyCode = 0xA1
	KEY_LCONTROL  KeyCode = 0xA2
	KEY_RCONTROL  KeyCode = 0xA3
	KEY_MINUS     KeyCode = 0xBD
	KEY_PLUS      KeyCode = 0xBB
	KEYS_MAX_KEYS KeyCode = 0x100
)

// Mouse state structure
type MouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool // button states (pressed/released)
}

// Keyboard state structure
type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

// InputState holds current and previous states for keyboard and mouse, plus
// the last reported modifier set.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState
	Modifiers        ModifiersEvent
}

func NewInputState() *InputState {
	return &InputState{}
}

// Update copies current states to previous states. Call once per frame after
// every event of the frame has been processed.
func (s *InputState) Update() {
	s.KeyboardPrevious = s.KeyboardCurrent
	s.MousePrevious = s.MouseCurrent
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && s.KeyboardCurrent.Keys[key]
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && s.KeyboardPrevious.Keys[key]
}

func (s *InputState) IsButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && s.MouseCurrent.Buttons[button]
}

func (s *InputState) WasButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && s.MousePrevious.Buttons[button]
}

func (s *InputState) MousePosition() (float64, float64) {
	return s.MouseCurrent.X, s.MouseCurrent.Y
}

// ProcessKey records a key transition. Returns true if the state changed.
func (s *InputState) ProcessKey(key KeyCode, pressed bool) bool {
	if key >= KEYS_MAX_KEYS || s.KeyboardCurrent.Keys[key] == pressed {
		return false
	}
	s.KeyboardCurrent.Keys[key] = pressed
	return true
}

// ProcessButton records a mouse button transition. Returns true if the state changed.
func (s *InputState) ProcessButton(button Button, pressed bool) bool {
	if button >= BUTTON_MAX_BUTTONS || s.MouseCurrent.Buttons[button] == pressed {
		return false
	}
	s.MouseCurrent.Buttons[button] = pressed
	return true
}

// ProcessMouseMove records the cursor position and returns the delta from
// the previously recorded position.
func (s *InputState) ProcessMouseMove(x, y float64) (float64, float64) {
	dx := x - s.MouseCurrent.X
	dy := y - s.MouseCurrent.Y
	s.MouseCurrent.X = x
	s.MouseCurrent.Y = y
	return dx, dy
}

func (s *InputState) ProcessModifiers(m ModifiersEvent) {
	s.Modifiers = m
}
