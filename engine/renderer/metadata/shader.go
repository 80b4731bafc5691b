package metadata

/**
 * @brief The shader programs the viewer knows how to build. Each kind is one
 * WGSL module; passes select entry points through a PassVariant.
 */
type ShaderKind int

const (
	ShaderKindMesh ShaderKind = iota
	ShaderKindPoints
	ShaderKindLines
	ShaderKindGround
	ShaderKindSsao
	ShaderKindSsaoBlur
	ShaderKindFullscreen
	ShaderKindToneMap
	ShaderKindSlicePlane
	ShaderKindGizmo
	ShaderKindMax
)

func (k ShaderKind) String() string {
	switch k {
	case ShaderKindMesh:
		return "mesh"
	case ShaderKindPoints:
		return "points"
	case ShaderKindLines:
		return "lines"
	case ShaderKindGround:
		return "ground"
	case ShaderKindSsao:
		return "ssao"
	case ShaderKindSsaoBlur:
		return "ssao_blur"
	case ShaderKindFullscreen:
		return "fullscreen"
	case ShaderKindToneMap:
		return "tonemap"
	case ShaderKindSlicePlane:
		return "slice_plane"
	case ShaderKindGizmo:
		return "gizmo"
	}
	return "unknown"
}

/**
 * @brief Selects the fragment behaviour and fixed-function state of a
 * geometry pipeline.
 */
type PassVariant int

const (
	/** @brief Lit matcap shading into the HDR target, opaque. */
	PassVariantScene PassVariant = iota
	/** @brief Lit shading with alpha blending and no depth writes. */
	PassVariantTransparent
	/** @brief Depth only, used for the shadow map. */
	PassVariantShadow
	/** @brief Depth plus view-space normal, used by SSAO and peeling. */
	PassVariantPrepass
	/** @brief Element IDs into the pick target. */
	PassVariantPick
	/** @brief One depth-peel layer, under-blended into the accumulation target. */
	PassVariantPeel
	/** @brief Scene shading mirrored under the ground, stencil tested. */
	PassVariantReflection
	PassVariantMax
)

func (v PassVariant) String() string {
	switch v {
	case PassVariantScene:
		return "scene"
	case PassVariantTransparent:
		return "transparent"
	case PassVariantShadow:
		return "shadow"
	case PassVariantPrepass:
		return "prepass"
	case PassVariantPick:
		return "pick"
	case PassVariantPeel:
		return "peel"
	case PassVariantReflection:
		return "reflection"
	}
	return "unknown"
}

// FragmentEntry names the WGSL fragment entry point for the variant. Shadow
// passes have no fragment stage.
func (v PassVariant) FragmentEntry() string {
	switch v {
	case PassVariantScene, PassVariantTransparent, PassVariantReflection:
		return "fs_scene"
	case PassVariantPrepass:
		return "fs_prepass"
	case PassVariantPick:
		return "fs_pick"
	case PassVariantPeel:
		return "fs_peel"
	}
	return ""
}

/** @brief The shader stages a binding is visible to. */
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

type BindingType int

const (
	BindingTypeUniformBuffer BindingType = iota
	BindingTypeStorageBuffer
	BindingTypeTexture
	BindingTypeUnfilterableTexture
	BindingTypeDepthTexture
	BindingTypeSampler
	BindingTypeNonFilteringSampler
	BindingTypeComparisonSampler
)

type BindGroupLayoutEntry struct {
	Binding    uint32
	Visibility ShaderStage
	Type       BindingType
}

type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

/**
 * @brief One resource bound at Binding. Exactly one of Buffer, Texture or
 * Sampler is set. Size 0 binds the whole buffer.
 */
type BindGroupEntry struct {
	Binding uint32
	Buffer  BufferHandle
	Offset  uint64
	Size    uint64
	Texture TextureHandle
	Sampler SamplerHandle
}

type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayoutHandle
	Entries []BindGroupEntry
}

type ShaderDescriptor struct {
	Label string
	/** @brief WGSL source, already composed with the shared prelude. */
	Source string
}

type PrimitiveTopology int

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineList
)

type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type BlendMode int

const (
	/** @brief Overwrite. */
	BlendModeNone BlendMode = iota
	/** @brief Straight alpha over blending. */
	BlendModeAlpha
	/** @brief Premultiplied alpha over blending. */
	BlendModePremultiplied
	/** @brief Front-to-back premultiplied under blending (depth peeling). */
	BlendModeUnder
	BlendModeAdditive
)

/** @brief Stencil behaviour used by the ground reflection. */
type StencilMode int

const (
	StencilModeNone StencilMode = iota
	/** @brief Always pass, replace with the reference value. */
	StencilModeMark
	/** @brief Pass only where the stored value equals the reference. */
	StencilModeTestEqual
)

type ColorTargetState struct {
	Format TextureFormat
	Blend  BlendMode
	/** @brief Disable color writes (stencil marking). */
	NoWrite bool
}

type DepthStencilState struct {
	Format              TextureFormat
	DepthWriteEnabled   bool
	DepthCompare        CompareFunction
	Stencil             StencilMode
	DepthBias           int32
	DepthBiasSlopeScale float32
}

/**
 * @brief A render pipeline. Geometry is pulled from storage buffers, so no
 * vertex buffer layouts are described.
 */
type PipelineDescriptor struct {
	Label         string
	Shader        ShaderHandle
	VertexEntry   string
	FragmentEntry string
	Layouts       []BindGroupLayoutHandle
	Topology      PrimitiveTopology
	CullMode      CullMode
	Targets       []ColorTargetState
	DepthStencil  *DepthStencilState
}

/**
 * @brief The bind group layouts shared by every pipeline. Geometry pipelines
 * use Frame, Structure, Material and Peel at groups 0 to 3; the full-screen
 * passes bind their single layout at group 0.
 */
type LayoutKind int

const (
	LayoutKindFrame LayoutKind = iota
	LayoutKindStructure
	LayoutKindMaterial
	LayoutKindPeel
	LayoutKindGround
	LayoutKindSsao
	LayoutKindSsaoBlur
	LayoutKindFullscreen
	LayoutKindToneMap
	LayoutKindMax
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutKindFrame:
		return "frame"
	case LayoutKindStructure:
		return "structure"
	case LayoutKindMaterial:
		return "material"
	case LayoutKindPeel:
		return "peel"
	case LayoutKindGround:
		return "ground"
	case LayoutKindSsao:
		return "ssao"
	case LayoutKindSsaoBlur:
		return "ssao_blur"
	case LayoutKindFullscreen:
		return "fullscreen"
	case LayoutKindToneMap:
		return "tonemap"
	}
	return "unknown"
}
