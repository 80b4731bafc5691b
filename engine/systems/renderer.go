package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/views"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

type RendererSystemConfig struct {
	ApplicationName string
	Width           uint32
	Height          uint32
	// Render into an offscreen target instead of a window surface.
	Headless        bool
	VSync           bool
	Window          interface{}
	PowerPreference metadata.PowerPreference
	/** @brief Direction the light travels in world space. Zero uses the default. */
	LightDirection math.Vec3
}

/**
 * @brief The systems the renderer draws with. All are required.
 */
type RendererSystems struct {
	Shaders     *ShaderSystem
	Materials   *MaterialSystem
	Colormaps   *ColormapSystem
	Targets     *TextureSystem
	RenderViews *RenderViewSystem
	Cameras     *CameraSystem
	Picking     *PickingSystem
}

/**
 * @brief The frame orchestrator. Each frame it refreshes the scene extents,
 * fits the camera once, acquires an output texture, prepares every visible
 * structure and runs the render views in order.
 */
type RendererSystem struct {
	Config  *RendererSystemConfig
	backend renderer.RendererBackend
	systems RendererSystems
	res     frameResources

	// The current framebuffer size.
	FramebufferWidth  uint32
	FramebufferHeight uint32
	// Set by OnResize; the backend is reconfigured at the start of the next frame.
	Resizing bool

	FrameNumber uint64
	generation  uint64

	// Drawn over the tone-mapped image, last.
	UI          views.UIOverlay
	gizmoActive int
	// Pass failures of the last frame keyed by view name.
	LastErrors map[string]error
}

// frameResources serves pipelines, layouts and material groups to the views and structures.
type frameResources struct {
	shaders   *ShaderSystem
	materials *MaterialSystem
}

func (f frameResources) Pipeline(kind metadata.ShaderKind, variant metadata.PassVariant) (metadata.PipelineHandle, error) {
	return f.shaders.Pipeline(kind, variant)
}

func (f frameResources) StructureLayout() metadata.BindGroupLayoutHandle {
	return f.shaders.StructureLayout()
}

func (f frameResources) Layout(kind metadata.LayoutKind) metadata.BindGroupLayoutHandle {
	return f.shaders.Layout(kind)
}

func (f frameResources) MaterialBindGroup(material, colormap string) (metadata.BindGroupHandle, error) {
	return f.materials.MaterialBindGroup(material, colormap)
}

func NewRendererSystem(config *RendererSystemConfig, backend renderer.RendererBackend, systems RendererSystems) (*RendererSystem, error) {
	if config == nil {
		return nil, fmt.Errorf("func NewRendererSystem - config is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("func NewRendererSystem - backend is required")
	}
	if systems.Shaders == nil || systems.Materials == nil || systems.Colormaps == nil || systems.Targets == nil ||
		systems.RenderViews == nil || systems.Cameras == nil || systems.Picking == nil {
		return nil, fmt.Errorf("func NewRendererSystem - every system is required")
	}
	return &RendererSystem{
		Config:            config,
		backend:           backend,
		systems:           systems,
		res:               frameResources{shaders: systems.Shaders, materials: systems.Materials},
		FramebufferWidth:  config.Width,
		FramebufferHeight: config.Height,
		gizmoActive:       -1,
	}, nil
}

/**
 * @brief Creates the device and compiles every shader. Failures here are
 * fatal for the viewer.
 */
func (r *RendererSystem) Initialize() error {
	if err := r.backend.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: r.Config.ApplicationName,
		Width:           r.FramebufferWidth,
		Height:          r.FramebufferHeight,
		Headless:        r.Config.Headless,
		VSync:           r.Config.VSync,
		Window:          r.Config.Window,
		PowerPreference: r.Config.PowerPreference,
	}); err != nil {
		core.LogError("renderer backend failed to initialize: %s", err)
		return err
	}
	if err := r.systems.Shaders.Initialize(); err != nil {
		core.LogError("shader system failed to initialize: %s", err)
		return err
	}
	r.generation = r.backend.Generation()
	core.LogInfo("renderer initialized (%dx%d, headless=%t)", r.FramebufferWidth, r.FramebufferHeight, r.Config.Headless)
	return nil
}

func (r *RendererSystem) Backend() renderer.RendererBackend {
	return r.backend
}

func (r *RendererSystem) Resources() views.Resources {
	return r.res
}

/** @brief Records a new framebuffer size, applied before the next frame. */
func (r *RendererSystem) OnResize(width, height uint32) {
	if width == r.FramebufferWidth && height == r.FramebufferHeight {
		return
	}
	r.Resizing = true
	r.FramebufferWidth = width
	r.FramebufferHeight = height
}

/** @brief Highlights a gizmo axis, -1 for none. */
func (r *RendererSystem) SetGizmoHighlight(axis int) {
	r.gizmoActive = axis
}

func (r *RendererSystem) LightDirection() math.Vec3 {
	if r.Config.LightDirection.LengthSquared() == 0 {
		return views.DefaultLightDirection
	}
	return r.Config.LightDirection
}

/**
 * @brief Renders one frame of ctx to the window, or to the offscreen target
 * when headless. Returns false when the frame was skipped: minimised window,
 * a surface that had to be reconfigured, or a timeout. Only unrecoverable
 * errors are returned.
 */
func (r *RendererSystem) DrawFrame(ctx *scene.Context) (bool, error) {
	defer r.releaseRemoved(ctx)

	if r.Resizing {
		if err := r.backend.Resized(r.FramebufferWidth, r.FramebufferHeight); err != nil {
			return false, err
		}
		r.Resizing = false
	}
	if r.FramebufferWidth == 0 || r.FramebufferHeight == 0 {
		return false, nil
	}

	output, ok, err := r.acquireOutput()
	if err != nil || !ok {
		return false, err
	}
	packet, err := r.BuildPacket(ctx, output, r.FramebufferWidth, r.FramebufferHeight)
	if err != nil {
		return false, err
	}
	packet.Pick = r.systems.Picking.take()
	if err := r.submit(ctx, packet, !r.Config.Headless); err != nil {
		return false, err
	}
	return true, nil
}

/**
 * @brief Renders one frame of ctx into the offscreen target without
 * presenting it. Used for screenshots; a transparent background clears to
 * alpha 0.
 */
func (r *RendererSystem) RenderOffscreen(ctx *scene.Context, transparent bool) (metadata.TextureHandle, uint32, uint32, error) {
	defer r.releaseRemoved(ctx)

	w, h := r.FramebufferWidth, r.FramebufferHeight
	if w == 0 || h == 0 {
		return metadata.InvalidHandle, 0, 0, core.NewRenderError("cannot render a %dx%d frame", w, h)
	}
	output, err := r.offscreenTarget(w, h)
	if err != nil {
		return metadata.InvalidHandle, 0, 0, err
	}
	packet, err := r.BuildPacket(ctx, output, w, h)
	if err != nil {
		return metadata.InvalidHandle, 0, 0, err
	}
	packet.TransparentBackground = transparent
	if err := r.submit(ctx, packet, false); err != nil {
		return metadata.InvalidHandle, 0, 0, err
	}
	return output, w, h, nil
}

func (r *RendererSystem) offscreenTarget(w, h uint32) (metadata.TextureHandle, error) {
	return r.systems.Targets.Target(views.TargetOffscreen, w, h, r.backend.SurfaceFormat(),
		metadata.TextureUsageRenderAttachment|metadata.TextureUsageCopySrc)
}

// acquireOutput returns the texture the frame ends in; ok is false when the frame must be skipped.
func (r *RendererSystem) acquireOutput() (metadata.TextureHandle, bool, error) {
	if r.Config.Headless {
		tex, err := r.offscreenTarget(r.FramebufferWidth, r.FramebufferHeight)
		if err != nil {
			return metadata.InvalidHandle, false, err
		}
		return tex, true, nil
	}
	tex, err := r.backend.AcquireSurfaceTexture()
	switch {
	case err == nil:
		return tex, true, nil
	case errors.Is(err, core.ErrTimeout):
		core.LogDebug("surface acquire timed out, dropping frame")
		return metadata.InvalidHandle, false, nil
	case core.IsSurfaceRecoverable(err):
		core.LogWarn("surface needs reconfiguring, skipping frame: %s", err)
		if rerr := r.backend.Resized(r.FramebufferWidth, r.FramebufferHeight); rerr != nil {
			return metadata.InvalidHandle, false, rerr
		}
		return metadata.InvalidHandle, false, nil
	}
	core.LogError("failed to acquire surface texture: %s", err)
	return metadata.InvalidHandle, false, err
}

// checkGeneration drops every structure's GPU handles once the device has been replaced.
func (r *RendererSystem) checkGeneration(ctx *scene.Context) {
	gen := r.backend.Generation()
	if gen == r.generation {
		return
	}
	core.LogInfo("device generation %d -> %d, clearing structure GPU resources", r.generation, gen)
	for _, s := range ctx.Structures() {
		s.ClearGPUResources()
	}
	r.generation = gen
}

/**
 * @brief Builds the packet for one frame of ctx drawn into output. Every
 * visible structure is prepared here with its pick discriminator; a
 * structure whose Prepare fails is left out of the frame.
 */
func (r *RendererSystem) BuildPacket(ctx *scene.Context, output metadata.TextureHandle, width, height uint32) (*views.Packet, error) {
	ctx.UpdateExtentsIfDirty()
	if ctx.NeedsCameraFit() {
		r.systems.Cameras.Fit(ctx.BoundingBox())
		ctx.MarkCameraFitted()
	}
	r.checkGeneration(ctx)

	opts := ctx.Options
	opts.Normalize()
	factor := uint32(opts.SsaaFactor)
	camera := r.systems.Cameras.Active()

	packet := &views.Packet{
		FrameNumber:       r.FrameNumber,
		Backend:           r.backend,
		Resources:         r.res,
		Targets:           r.systems.Targets,
		Options:           opts,
		Camera:            camera,
		Output:            output,
		Width:             width,
		Height:            height,
		RenderWidth:       width * factor,
		RenderHeight:      height * factor,
		BoundingBox:       ctx.BoundingBox(),
		LengthScale:       ctx.LengthScale(),
		LightDirection:    r.LightDirection(),
		SlicePlanes:       ctx.EnabledSlicePlanes(),
		SlicePlaneVisuals: ctx.SlicePlanes(),
		SampleColormap:    r.systems.Colormaps.Sample,
		UI:                r.UI,
		PickTable:         &views.PickTable{},
	}
	packet.View = camera.GetView()
	packet.Projection = camera.GetProjection(packet.Aspect())

	blend := opts.EffectiveTransparency() != scene.TransparencyNone
	for _, s := range ctx.VisibleStructures() {
		frame := &structures.Frame{
			Backend:           r.backend,
			Variant:           metadata.PassVariantScene,
			Resources:         r.res,
			View:              packet.View,
			Projection:        packet.Projection,
			LengthScale:       packet.LengthScale,
			SlicePlanes:       packet.SlicePlanes,
			PickDiscriminator: packet.PickTable.Add(s),
		}
		if err := s.Prepare(frame); err != nil {
			core.LogWarn("%s %s failed to prepare, skipping it: %s", s.Type(), s.Name(), err)
			continue
		}
		if blend && s.IsTransparent() {
			packet.Transparent = append(packet.Transparent, s)
		} else {
			packet.Opaque = append(packet.Opaque, s)
		}
	}

	if ctx.Gizmo.Visible {
		if sel, ok := ctx.SelectedStructure(); ok && ctx.IsVisible(sel) {
			packet.Gizmo = &views.GizmoTarget{Structure: sel, Config: ctx.Gizmo, Active: r.gizmoActive}
		}
	}
	if f, ok := ctx.FullscreenQuantity(); ok {
		packet.Floating = f
	}
	return packet, nil
}

// submit records the views, submits the frame and runs the readbacks.
func (r *RendererSystem) submit(ctx *scene.Context, packet *views.Packet, present bool) error {
	if err := r.backend.BeginFrame(); err != nil {
		core.LogError("backend BeginFrame failed: %s", err)
		return err
	}
	r.LastErrors = r.systems.RenderViews.OnRender(packet)
	if err := r.backend.EndFrame(); err != nil {
		core.LogError("backend EndFrame failed: %s", err)
		return err
	}
	if present {
		if err := r.backend.Present(); err != nil {
			return err
		}
	}
	r.FrameNumber++

	if err := r.systems.RenderViews.OnResolve(packet); err != nil {
		core.LogWarn("frame readback failed: %s", err)
		return nil
	}
	if packet.Pick != nil {
		if v, ok := r.systems.RenderViews.OfType(metadata.RENDER_VIEW_PICK); ok {
			if pick, ok := v.(*views.RenderViewPick); ok && pick.HasResult {
				r.systems.Picking.complete(ctx, pick.Result)
			}
		}
	}
	return nil
}

// releaseRemoved destroys the GPU objects of structures removed since the last frame.
func (r *RendererSystem) releaseRemoved(ctx *scene.Context) {
	if ctx == nil {
		return
	}
	for _, s := range ctx.TakeRemoved() {
		s.ReleaseGPUResources(r.backend)
	}
}

/**
 * @brief Releases what ctx still holds on the device. Called with the
 * context returned by scene.Shutdown before the backend goes away.
 */
func (r *RendererSystem) ReleaseScene(ctx *scene.Context) {
	r.releaseRemoved(ctx)
}

func (r *RendererSystem) Shutdown() error {
	return r.backend.Shutdown()
}
