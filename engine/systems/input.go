package systems

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/views"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

type InputSystemConfig struct {
	/** @brief Orbit radians per pixel of drag. */
	OrbitSpeed float32
	/** @brief Fraction of the camera distance panned per pixel. */
	PanSpeed float32
	/** @brief Fraction of the camera distance zoomed per wheel step. */
	ZoomSpeed float32
	/** @brief Pixels the pointer may travel between press and release and still count as a click. */
	ClickTolerance float64
}

func DefaultInputSystemConfig() *InputSystemConfig {
	return &InputSystemConfig{
		OrbitSpeed:     0.01,
		PanSpeed:       0.0015,
		ZoomSpeed:      0.1,
		ClickTolerance: 3,
	}
}

/**
 * @brief Turns window events into camera navigation, picks and gizmo drags.
 * Runs on the renderer thread with the scene context locked.
 */
type InputSystem struct {
	Config *InputSystemConfig
	State  *core.InputState

	renderer *RendererSystem
	cameras  *CameraSystem
	picking  *PickingSystem

	pressX, pressY float64
	pressed        bool
	dragged        bool
	drag           *views.GizmoDrag

	closeRequested bool
	redraw         bool
}

func NewInputSystem(config *InputSystemConfig, r *RendererSystem, cameras *CameraSystem, picking *PickingSystem) *InputSystem {
	if config == nil {
		config = DefaultInputSystemConfig()
	}
	return &InputSystem{
		Config:   config,
		State:    core.NewInputState(),
		renderer: r,
		cameras:  cameras,
		picking:  picking,
	}
}

func (is *InputSystem) CloseRequested() bool {
	return is.closeRequested
}

/** @brief Reports and clears whether an event asked for a new frame. */
func (is *InputSystem) TakeRedraw() bool {
	r := is.redraw
	is.redraw = false
	return r
}

/** @brief Handles one window event. Returns true when the event was consumed. */
func (is *InputSystem) OnEvent(ctx *scene.Context, event core.EventContext) bool {
	switch event.Type {
	case core.EVENT_CODE_CLOSE_REQUESTED:
		is.closeRequested = true
		return true
	case core.EVENT_CODE_RESIZED:
		if e, ok := event.Data.(*core.ResizeEvent); ok {
			is.renderer.OnResize(e.Width, e.Height)
			is.redraw = true
			return true
		}
	case core.EVENT_CODE_REDRAW_REQUESTED:
		is.redraw = true
		return true
	case core.EVENT_CODE_MODIFIERS_CHANGED:
		if e, ok := event.Data.(*core.ModifiersEvent); ok {
			is.State.ProcessModifiers(*e)
			return true
		}
	case core.EVENT_CODE_KEY_PRESSED, core.EVENT_CODE_KEY_RELEASED:
		if e, ok := event.Data.(*core.KeyEvent); ok {
			return is.State.ProcessKey(e.KeyCode, e.Pressed)
		}
	case core.EVENT_CODE_BUTTON_PRESSED, core.EVENT_CODE_BUTTON_RELEASED:
		if e, ok := event.Data.(*core.MouseEvent); ok {
			return is.onButton(ctx, e.Button, e.Pressed)
		}
	case core.EVENT_CODE_MOUSE_MOVED:
		if e, ok := event.Data.(*core.MouseEvent); ok {
			is.onMove(ctx, e.X, e.Y)
			return true
		}
	case core.EVENT_CODE_MOUSE_WHEEL:
		if e, ok := event.Data.(*core.MouseEvent); ok {
			is.onWheel(e.Scroll)
			return true
		}
	}
	return false
}

// ray returns the world ray under pixel (x, y) of the active camera.
func (is *InputSystem) ray(x, y float64) views.Ray {
	w, h := is.renderer.FramebufferWidth, is.renderer.FramebufferHeight
	camera := is.cameras.Active()
	aspect := float32(1)
	if h > 0 {
		aspect = float32(w) / float32(h)
	}
	return views.ScreenRay(camera.GetView(), camera.GetProjection(aspect), float32(x), float32(y), w, h)
}

// gizmoSubject is the structure the gizmo is attached to, if it is shown.
func gizmoSubject(ctx *scene.Context) (structures.Structure, bool) {
	if ctx == nil || !ctx.Gizmo.Visible {
		return nil, false
	}
	s, ok := ctx.SelectedStructure()
	if !ok || !ctx.IsVisible(s) {
		return nil, false
	}
	return s, true
}

func (is *InputSystem) onButton(ctx *scene.Context, button core.Button, pressed bool) bool {
	if !is.State.ProcessButton(button, pressed) {
		return false
	}
	is.redraw = true
	x, y := is.State.MousePosition()
	if button != core.BUTTON_LEFT {
		return true
	}
	if pressed {
		is.pressX, is.pressY = x, y
		is.pressed = true
		is.dragged = false
		if sel, ok := gizmoSubject(ctx); ok {
			if drag, ok := views.BeginGizmoDrag(sel, ctx.Gizmo, is.cameras.Active(), is.ray(x, y)); ok {
				is.drag = drag
				is.renderer.SetGizmoHighlight(drag.Axis)
			}
		}
		return true
	}

	is.pressed = false
	if is.drag != nil {
		is.drag = nil
		is.renderer.SetGizmoHighlight(-1)
		return true
	}
	if !is.dragged && x >= 0 && y >= 0 {
		is.picking.Request(uint32(x), uint32(y))
	}
	return true
}

func (is *InputSystem) onMove(ctx *scene.Context, x, y float64) {
	prevX, prevY := is.State.MousePosition()
	dx, dy := is.State.ProcessMouseMove(x, y)
	if is.pressed && !is.dragged {
		ox, oy := x-is.pressX, y-is.pressY
		is.dragged = ox*ox+oy*oy > is.Config.ClickTolerance*is.Config.ClickTolerance
	}

	if is.drag != nil {
		if sel, ok := ctx.SelectedStructure(); ok {
			if m, ok := is.drag.Update(is.ray(x, y)); ok {
				sel.SetTransform(m)
				ctx.MarkExtentsDirty()
				is.redraw = true
			}
		}
		return
	}

	camera := is.cameras.Active()
	left := is.State.IsButtonDown(core.BUTTON_LEFT)
	right := is.State.IsButtonDown(core.BUTTON_RIGHT)
	middle := is.State.IsButtonDown(core.BUTTON_MIDDLE)
	switch {
	case (left && is.State.Modifiers.Shift) || right || middle:
		scale := is.Config.PanSpeed * math32.Max(camera.Distance(), 1e-3)
		camera.Pan(-float32(dx)*scale, float32(dy)*scale)
		is.redraw = true
	case left && is.dragged:
		if camera.Navigation == components.NavigationArcball {
			camera.ArcballDrag(is.ndc(prevX, prevY), is.ndc(x, y))
		} else {
			camera.Orbit(float32(dx)*is.Config.OrbitSpeed, -float32(dy)*is.Config.OrbitSpeed)
		}
		is.redraw = true
	case !left:
		is.hover(ctx, x, y)
	}
}

// hover highlights the gizmo handle under the pointer.
func (is *InputSystem) hover(ctx *scene.Context, x, y float64) {
	sel, ok := gizmoSubject(ctx)
	if !ok {
		is.renderer.SetGizmoHighlight(-1)
		return
	}
	frame := views.NewGizmoFrame(sel, ctx.Gizmo.Space, is.cameras.Active())
	axis := frame.Pick(is.ray(x, y), ctx.Gizmo.Mode)
	if axis != is.renderer.gizmoActive {
		is.renderer.SetGizmoHighlight(axis)
		is.redraw = true
	}
}

// ndc maps a framebuffer pixel to [-1, 1] with y up.
func (is *InputSystem) ndc(x, y float64) math.Vec2 {
	w, h := float32(is.renderer.FramebufferWidth), float32(is.renderer.FramebufferHeight)
	if w == 0 || h == 0 {
		return math.Vec2{}
	}
	return math.Vec2{X: 2*float32(x)/w - 1, Y: 1 - 2*float32(y)/h}
}

func (is *InputSystem) onWheel(scroll float64) {
	camera := is.cameras.Active()
	amount := float32(scroll) * is.Config.ZoomSpeed * math32.Max(camera.Distance(), 1e-3)
	if camera.Projection == components.ProjectionOrthographic {
		amount = float32(scroll) * is.Config.ZoomSpeed * camera.OrthoScale
	}
	camera.Zoom(amount)
	is.redraw = true
}

/**
 * @brief Applies held keys for the frame and rolls the input state over.
 * WASD moves in the view plane and Q/E along up when the camera uses first
 * person navigation.
 */
func (is *InputSystem) Update(deltaTime float64) {
	camera := is.cameras.Active()
	if camera.Navigation == components.NavigationFirstPerson {
		step := camera.MoveSpeed * float32(deltaTime)
		moved := false
		keys := []struct {
			key  core.KeyCode
			move func(float32)
		}{
			{core.KEY_W, camera.MoveForward},
			{core.KEY_S, camera.MoveBackward},
			{core.KEY_A, camera.MoveLeft},
			{core.KEY_D, camera.MoveRight},
			{core.KEY_E, camera.MoveUp},
			{core.KEY_Q, camera.MoveDown},
		}
		for _, k := range keys {
			if is.State.IsKeyDown(k.key) {
				k.move(step)
				moved = true
			}
		}
		if moved {
			is.redraw = true
		}
	}
	is.State.Update()
}
