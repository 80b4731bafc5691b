package views

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

/** @brief Names of the render targets passes share through Targets. */
const (
	TargetHDR          = "hdr"
	TargetSceneDepth   = "scene_depth"
	TargetShadowMap    = "shadow_map"
	TargetPrepassDepth = "prepass_depth"
	TargetNormals      = "normals"
	TargetSsao         = "ssao"
	TargetSsaoBlur     = "ssao_blur"
	TargetPeelAccum    = "peel_accum"
	TargetPeelDepthA   = "peel_depth_a"
	TargetPeelDepthB   = "peel_depth_b"
	TargetResolved     = "resolved"
	TargetPick         = "pick"
	TargetPickDepth    = "pick_depth"
	TargetOffscreen    = "offscreen"
)

/** @brief Side length of the shadow map. */
const ShadowMapSize = 2048

/**
 * @brief Pipelines, shared layouts and material bind groups. Implemented by
 * the renderer systems.
 */
type Resources interface {
	structures.FrameResources
	Layout(kind metadata.LayoutKind) metadata.BindGroupLayoutHandle
}

/**
 * @brief Named render targets. Target creates or resizes; Lookup only finds.
 */
type Targets interface {
	Target(name string, width, height uint32, format metadata.TextureFormat, usage metadata.TextureUsage) (metadata.TextureHandle, error)
	Lookup(name string) (metadata.TextureHandle, bool)
}

/**
 * @brief Records extra draws at the end of the frame over the tone-mapped
 * image. Implemented by the UI collaborator.
 */
type UIOverlay interface {
	Record(pass renderer.RenderPass, width, height uint32) error
}

/**
 * @brief The gizmo target for this frame: the selected structure and the
 * world transform the widget is drawn at.
 */
type GizmoTarget struct {
	Structure structures.Structure
	Config    scene.GizmoConfig
	// Highlighted axis, -1 for none.
	Active int
}

/**
 * @brief Everything the views need to record one frame. Built by the frame
 * orchestrator; views also use it to hand results to later views.
 */
type Packet struct {
	FrameNumber uint64

	Backend   renderer.RendererBackend
	Resources Resources
	Targets   Targets

	Options scene.Options
	Camera  *components.Camera

	// The swapchain texture or the offscreen target, in the surface format.
	Output metadata.TextureHandle
	// Output size in pixels.
	Width, Height uint32
	// Size of the HDR scene targets: the output size times the SSAA factor.
	RenderWidth, RenderHeight uint32

	View       math.Mat4
	Projection math.Mat4

	BoundingBox    math.Extents3D
	LengthScale    float32
	LightDirection math.Vec3

	SlicePlanes       []structures.SlicePlane
	SlicePlaneVisuals []*scene.SlicePlane

	Opaque      []structures.Structure
	Transparent []structures.Structure

	Floating       *scene.FloatingQuantity
	SampleColormap func(name string, t float32) math.Vec3

	Gizmo *GizmoTarget
	Pick  *PickRequest
	UI    UIOverlay
	// Clear the output with a transparent background (screenshots).
	TransparentBackground bool

	// Results written by the views.
	LightViewProjection math.Mat4
	ShadowValid         bool
	PrepassValid        bool
	SsaoValid           bool
	// The texture tone mapping reads: the HDR target or its SSAA resolve.
	ToneSource metadata.TextureHandle
	PickTable  *PickTable
}

// Aspect is the output aspect ratio.
func (p *Packet) Aspect() float32 {
	if p.Height == 0 {
		return 1
	}
	return float32(p.Width) / float32(p.Height)
}

// SsaaFactor is RenderWidth / Width, at least 1.
func (p *Packet) SsaaFactor() uint32 {
	if p.Width == 0 || p.RenderWidth < p.Width {
		return 1
	}
	return p.RenderWidth / p.Width
}

func (p *Packet) frame(pass renderer.RenderPass, variant metadata.PassVariant) *structures.Frame {
	return &structures.Frame{
		Backend:     p.Backend,
		Pass:        pass,
		Variant:     variant,
		Resources:   p.Resources,
		View:        p.View,
		Projection:  p.Projection,
		LengthScale: p.LengthScale,
		SlicePlanes: p.SlicePlanes,
	}
}

/**
 * @brief One pass of the frame. Views run in the order of their Type.
 */
type RenderView interface {
	Name() string
	Type() metadata.RenderViewKnownType
	/** @brief Reports whether the view has work this frame. */
	ShouldRender(p *Packet) bool
	OnRender(p *Packet) error
	/** @brief Destroys pass-owned GPU objects. */
	OnDestroy(backend renderer.RendererBackend)
}

/** @brief Views that read GPU results back after the frame is submitted. */
type Resolver interface {
	OnResolve(p *Packet) error
}

// drawAll records every structure into pass, stopping at the first failure.
func drawAll(p *Packet, pass renderer.RenderPass, variant metadata.PassVariant, list []structures.Structure) error {
	for _, s := range list {
		f := p.frame(pass, variant)
		var err error
		if variant == metadata.PassVariantPick {
			err = s.DrawPick(f)
		} else {
			err = s.Draw(f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// endPass closes pass and keeps the first error.
func endPass(pass renderer.RenderPass, err error) error {
	if endErr := pass.End(); err == nil {
		err = endErr
	}
	return err
}

const (
	hdrUsage   = metadata.TextureUsageRenderAttachment | metadata.TextureUsageTextureBinding | metadata.TextureUsageCopySrc
	depthUsage = metadata.TextureUsageRenderAttachment | metadata.TextureUsageTextureBinding | metadata.TextureUsageCopySrc | metadata.TextureUsageCopyDst
)
