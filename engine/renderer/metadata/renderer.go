package metadata

import "github.com/spaghettifunk/prism/engine/math"

/** @brief Opaque handles to backend-owned GPU objects. Zero is never a valid handle. */
type (
	BufferHandle          uint32
	TextureHandle         uint32
	SamplerHandle         uint32
	BindGroupLayoutHandle uint32
	BindGroupHandle       uint32
	ShaderHandle          uint32
	PipelineHandle        uint32
)

const InvalidHandle = 0

/** @brief Power preference handed to the adapter request. */
type PowerPreference int

const (
	PowerPreferenceDefault PowerPreference = iota
	PowerPreferenceLowPower
	PowerPreferenceHighPerformance
)

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief Initial framebuffer size in pixels. */
	Width  uint32
	Height uint32
	/** @brief Render without a surface; the frame goes into an offscreen target. */
	Headless bool
	VSync    bool
	/** @brief Opaque window handle used to create the surface. Nil when headless. */
	Window          interface{}
	PowerPreference PowerPreference
}

type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDiscard
)

type ColorAttachment struct {
	Texture    TextureHandle
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearColor math.Vec4
}

type DepthStencilAttachment struct {
	Texture           TextureHandle
	DepthLoadOp       LoadOp
	DepthClearValue   float32
	DepthReadOnly     bool
	StencilLoadOp     LoadOp
	StencilClearValue uint32
}

/**
 * @brief Describes one render pass scope. A pass without color attachments
 * is depth-only (shadow map, depth pre-pass).
 */
type RenderPassDescriptor struct {
	Label        string
	Colors       []ColorAttachment
	DepthStencil *DepthStencilAttachment
}

/**
 * @brief Known render views, one per pass of the frame in execution order.
 */
type RenderViewKnownType int

const (
	RENDER_VIEW_SHADOW RenderViewKnownType = iota
	RENDER_VIEW_PREPASS
	RENDER_VIEW_SSAO
	RENDER_VIEW_SCENE
	RENDER_VIEW_TRANSPARENCY
	RENDER_VIEW_REFLECTION
	RENDER_VIEW_GROUND
	RENDER_VIEW_FLOATING
	RENDER_VIEW_SSAA
	RENDER_VIEW_TONEMAP
	RENDER_VIEW_GIZMO
	RENDER_VIEW_PICK
	RENDER_VIEW_UI
)

func (t RenderViewKnownType) String() string {
	switch t {
	case RENDER_VIEW_SHADOW:
		return "shadow"
	case RENDER_VIEW_PREPASS:
		return "prepass"
	case RENDER_VIEW_SSAO:
		return "ssao"
	case RENDER_VIEW_SCENE:
		return "scene"
	case RENDER_VIEW_TRANSPARENCY:
		return "transparency"
	case RENDER_VIEW_REFLECTION:
		return "reflection"
	case RENDER_VIEW_GROUND:
		return "ground"
	case RENDER_VIEW_FLOATING:
		return "floating"
	case RENDER_VIEW_SSAA:
		return "ssaa"
	case RENDER_VIEW_TONEMAP:
		return "tonemap"
	case RENDER_VIEW_GIZMO:
		return "gizmo"
	case RENDER_VIEW_PICK:
		return "pick"
	case RENDER_VIEW_UI:
		return "ui"
	}
	return "unknown"
}
