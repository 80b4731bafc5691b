package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
)

const eventQueueSize = 1024

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

/**
 * @brief The window collaborator. GLFW callbacks are translated into core
 * events and buffered until the loop pumps them.
 */
type Platform struct {
	Window *glfw.Window

	events *containers.RingQueue[core.EventContext]
	// Framebuffer pixels per window coordinate, for cursor positions.
	scaleX, scaleY float64
}

func New() *Platform {
	return &Platform{
		events: containers.NewRingQueue[core.EventContext](eventQueueSize),
		scaleX: 1,
		scaleY: 1,
	}
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	window.SetKeyCallback(p.keyCallback)
	window.SetMouseButtonCallback(p.mouseButtonCallback)
	window.SetCursorPosCallback(p.cursorPosCallback)
	window.SetScrollCallback(p.scrollCallback)
	window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	window.SetCloseCallback(p.closeCallback)
	window.SetRefreshCallback(p.refreshCallback)
	window.SetPos(int(x), int(y))
	window.Show()
	p.updateScale()

	core.LogInfo("window %q created (%dx%d)", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
		glfw.Terminate()
	}
	return nil
}

/** @brief Polls the window system and returns the events since the last call. */
func (p *Platform) PumpMessages() []core.EventContext {
	if p.Window != nil {
		glfw.PollEvents()
	}
	return p.events.Drain()
}

/** @brief The framebuffer size in pixels. */
func (p *Platform) FramebufferSize() (uint32, uint32) {
	if p.Window == nil {
		return 0, 0
	}
	w, h := p.Window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

func (p *Platform) RequestRedraw() {
	p.post(core.EventContext{Type: core.EVENT_CODE_REDRAW_REQUESTED})
}

func (p *Platform) post(e core.EventContext) {
	p.events.EnqueueOverwrite(e)
}

func (p *Platform) updateScale() {
	ww, wh := p.Window.GetSize()
	fw, fh := p.Window.GetFramebufferSize()
	if ww > 0 && wh > 0 {
		p.scaleX = float64(fw) / float64(ww)
		p.scaleY = float64(fh) / float64(wh)
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	p.post(core.NewModifiersEvent(translateModifiers(mods)))
	code := translateKey(key)
	if code == core.KEY_UNKNOWN {
		return
	}
	p.post(core.NewKeyboardEvent(code, action == glfw.Press))
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	b, ok := translateButton(button)
	if !ok {
		return
	}
	p.post(core.NewModifiersEvent(translateModifiers(mods)))
	p.post(core.NewMouseInputEvent(b, action == glfw.Press))
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.post(core.NewCursorMovedEvent(xpos*p.scaleX, ypos*p.scaleY))
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	p.post(core.NewMouseWheelEvent(yoff))
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.updateScale()
	p.post(core.NewResizedEvent(uint32(max(width, 0)), uint32(max(height, 0))))
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.post(core.NewCloseRequestedEvent())
}

func (p *Platform) refreshCallback(w *glfw.Window) {
	p.RequestRedraw()
}
