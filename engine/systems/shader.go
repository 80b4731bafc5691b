package systems

import (
	"fmt"

	"github.com/gogpu/naga"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/shaders"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/**
	 * @brief Treat a WGSL module naga rejects as fatal. When false the
	 * rejection is logged and the module is still handed to the backend.
	 */
	StrictValidation bool
	/** @brief Skip naga entirely. */
	SkipValidation bool
}

type pipelineKey struct {
	kind    metadata.ShaderKind
	variant metadata.PassVariant
}

/**
 * @brief Owns the shader modules, the shared bind group layouts and a cache
 * of render pipelines keyed by shader kind and pass variant. Everything is
 * rebuilt lazily when the backend reports a new device generation.
 */
type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig
	// The device generation the cached objects belong to.
	generation uint64
	modules    map[metadata.ShaderKind]metadata.ShaderHandle
	layouts    [metadata.LayoutKindMax]metadata.BindGroupLayoutHandle
	pipelines  map[pipelineKey]metadata.PipelineHandle
	// naga verdicts survive device changes, the sources are embedded.
	validated map[metadata.ShaderKind]error

	backend renderer.RendererBackend
}

func NewShaderSystem(config *ShaderSystemConfig, backend renderer.RendererBackend) (*ShaderSystem, error) {
	if backend == nil {
		err := fmt.Errorf("func NewShaderSystem - backend is required")
		core.LogError("%s", err)
		return nil, err
	}
	if config == nil {
		config = &ShaderSystemConfig{}
	}
	return &ShaderSystem{
		Config:    config,
		modules:   make(map[metadata.ShaderKind]metadata.ShaderHandle),
		pipelines: make(map[pipelineKey]metadata.PipelineHandle),
		validated: make(map[metadata.ShaderKind]error),
		backend:   backend,
	}, nil
}

/**
 * @brief Builds the layouts and compiles every shader module. Called at
 * startup, where any failure is fatal to the caller.
 */
func (ss *ShaderSystem) Initialize() error {
	if err := ss.ensure(); err != nil {
		return err
	}
	for _, kind := range shaders.Kinds() {
		if _, err := ss.module(kind); err != nil {
			return err
		}
	}
	core.LogInfo("shader system initialized with %d modules", len(ss.modules))
	return nil
}

/**
 * @brief Shuts down the shader system, destroying every cached pipeline.
 */
func (ss *ShaderSystem) Shutdown() error {
	if ss.generation == ss.backend.Generation() {
		for _, p := range ss.pipelines {
			ss.backend.PipelineDestroy(p)
		}
	}
	ss.reset()
	return nil
}

func (ss *ShaderSystem) reset() {
	ss.generation = 0
	ss.modules = make(map[metadata.ShaderKind]metadata.ShaderHandle)
	ss.pipelines = make(map[pipelineKey]metadata.PipelineHandle)
	ss.layouts = [metadata.LayoutKindMax]metadata.BindGroupLayoutHandle{}
}

// ensure drops every cached object built on an older device and recreates the layouts.
func (ss *ShaderSystem) ensure() error {
	gen := ss.backend.Generation()
	if gen == ss.generation && ss.layouts[metadata.LayoutKindFrame] != metadata.InvalidHandle {
		return nil
	}
	ss.reset()
	for kind := metadata.LayoutKind(0); kind < metadata.LayoutKindMax; kind++ {
		desc := layoutDescriptor(kind)
		h, err := ss.backend.BindGroupLayoutCreate(&desc)
		if err != nil {
			return fmt.Errorf("bind group layout %s: %w", kind, err)
		}
		ss.layouts[kind] = h
	}
	ss.generation = gen
	return nil
}

/** @brief Returns the shared layout of kind, rebuilding the cache if the device changed. */
func (ss *ShaderSystem) Layout(kind metadata.LayoutKind) metadata.BindGroupLayoutHandle {
	if err := ss.ensure(); err != nil {
		core.LogError("shader system: %s", err)
		return metadata.InvalidHandle
	}
	if kind < 0 || kind >= metadata.LayoutKindMax {
		return metadata.InvalidHandle
	}
	return ss.layouts[kind]
}

func (ss *ShaderSystem) StructureLayout() metadata.BindGroupLayoutHandle {
	return ss.Layout(metadata.LayoutKindStructure)
}

/**
 * @brief Validates a composed WGSL module with naga. Returns nil when the
 * module translates to SPIR-V.
 */
func ValidateWGSL(label, source string) error {
	spirv, err := naga.Compile(source)
	if err != nil {
		return fmt.Errorf("shader %s: %w", label, err)
	}
	if len(spirv) < 4 {
		return fmt.Errorf("shader %s: empty SPIR-V output", label)
	}
	return nil
}

func (ss *ShaderSystem) module(kind metadata.ShaderKind) (metadata.ShaderHandle, error) {
	if h, ok := ss.modules[kind]; ok {
		return h, nil
	}
	src, err := shaders.Source(kind)
	if err != nil {
		return metadata.InvalidHandle, core.NewRenderError("%s", err)
	}
	if !ss.Config.SkipValidation {
		verdict, seen := ss.validated[kind]
		if !seen {
			verdict = ValidateWGSL(kind.String(), src)
			ss.validated[kind] = verdict
		}
		if verdict != nil {
			if ss.Config.StrictValidation {
				return metadata.InvalidHandle, fmt.Errorf("%w: %w", core.ErrRender, verdict)
			}
			if !seen {
				core.LogWarn("naga rejected %s, handing it to the backend anyway: %s", kind, verdict)
			}
		}
	}
	h, err := ss.backend.ShaderCreate(&metadata.ShaderDescriptor{Label: kind.String(), Source: src})
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("shader module %s: %w", kind, err)
	}
	ss.modules[kind] = h
	return h, nil
}

/**
 * @brief Returns the pipeline drawing kind in variant, creating it on first
 * use. Full-screen kinds map their variant onto the blend mode they support.
 */
func (ss *ShaderSystem) Pipeline(kind metadata.ShaderKind, variant metadata.PassVariant) (metadata.PipelineHandle, error) {
	if err := ss.ensure(); err != nil {
		return metadata.InvalidHandle, err
	}
	variant = normalizeVariant(kind, variant)
	if shaders.IsGeometry(kind) || kind == metadata.ShaderKindGround {
		if !shaders.HasVariant(kind, variant) {
			return metadata.InvalidHandle, core.NewRenderError("%s has no %s pipeline", kind, variant)
		}
	}
	key := pipelineKey{kind, variant}
	if p, ok := ss.pipelines[key]; ok {
		return p, nil
	}

	module, err := ss.module(kind)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	desc := ss.pipelineDescriptor(kind, variant)
	desc.Shader = module
	p, err := ss.backend.PipelineCreate(&desc)
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("pipeline %s: %w", desc.Label, err)
	}
	core.LogDebug("created pipeline %s", desc.Label)
	ss.pipelines[key] = p
	return p, nil
}

// normalizeVariant folds the variants a full-screen kind does not distinguish.
func normalizeVariant(kind metadata.ShaderKind, variant metadata.PassVariant) metadata.PassVariant {
	switch kind {
	case metadata.ShaderKindSsao, metadata.ShaderKindSsaoBlur, metadata.ShaderKindToneMap:
		return metadata.PassVariantScene
	case metadata.ShaderKindFullscreen:
		switch variant {
		case metadata.PassVariantTransparent, metadata.PassVariantPeel:
			return variant
		}
		return metadata.PassVariantScene
	}
	return variant
}

func (ss *ShaderSystem) layoutsOf(kinds ...metadata.LayoutKind) []metadata.BindGroupLayoutHandle {
	out := make([]metadata.BindGroupLayoutHandle, len(kinds))
	for i, k := range kinds {
		out[i] = ss.layouts[k]
	}
	return out
}

func (ss *ShaderSystem) pipelineDescriptor(kind metadata.ShaderKind, variant metadata.PassVariant) metadata.PipelineDescriptor {
	desc := metadata.PipelineDescriptor{
		Label:       fmt.Sprintf("%s_%s", kind, variant),
		VertexEntry: shaders.VertexEntry,
		Topology:    metadata.PrimitiveTopologyTriangleList,
		CullMode:    metadata.CullModeNone,
	}
	sceneDepth := func(write bool, compare metadata.CompareFunction, stencil metadata.StencilMode) *metadata.DepthStencilState {
		return &metadata.DepthStencilState{
			Format:            metadata.SceneDepthFormat,
			DepthWriteEnabled: write,
			DepthCompare:      compare,
			Stencil:           stencil,
		}
	}
	depth := &metadata.DepthStencilState{
		Format:            metadata.DepthFormat,
		DepthWriteEnabled: true,
		DepthCompare:      metadata.CompareFunctionLess,
	}

	switch kind {
	case metadata.ShaderKindSsao:
		desc.FragmentEntry = shaders.FragmentEntry
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindSsao)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.SsaoFormat}}
		return desc
	case metadata.ShaderKindSsaoBlur:
		desc.FragmentEntry = shaders.FragmentEntry
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindSsaoBlur)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.SsaoFormat}}
		return desc
	case metadata.ShaderKindToneMap:
		desc.FragmentEntry = shaders.FragmentEntry
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindToneMap)
		desc.Targets = []metadata.ColorTargetState{{Format: ss.backend.SurfaceFormat()}}
		return desc
	case metadata.ShaderKindFullscreen:
		blend := metadata.BlendModeNone
		switch variant {
		case metadata.PassVariantTransparent:
			blend = metadata.BlendModeAlpha
		case metadata.PassVariantPeel:
			blend = metadata.BlendModePremultiplied
		}
		desc.FragmentEntry = shaders.FragmentEntry
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFullscreen)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat, Blend: blend}}
		return desc
	case metadata.ShaderKindGround:
		desc.FragmentEntry = variant.FragmentEntry()
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindGround)
		if variant == metadata.PassVariantReflection {
			// Marks the visible ground in the stencil buffer.
			desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat, NoWrite: true}}
			desc.DepthStencil = sceneDepth(false, metadata.CompareFunctionLessEqual, metadata.StencilModeMark)
			return desc
		}
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat, Blend: metadata.BlendModeAlpha}}
		desc.DepthStencil = sceneDepth(false, metadata.CompareFunctionLessEqual, metadata.StencilModeNone)
		return desc
	case metadata.ShaderKindGizmo:
		desc.FragmentEntry = variant.FragmentEntry()
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure)
		desc.Targets = []metadata.ColorTargetState{{Format: ss.backend.SurfaceFormat(), Blend: metadata.BlendModeAlpha}}
		return desc
	case metadata.ShaderKindSlicePlane:
		desc.FragmentEntry = variant.FragmentEntry()
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat, Blend: metadata.BlendModeAlpha}}
		desc.DepthStencil = sceneDepth(variant == metadata.PassVariantScene, metadata.CompareFunctionLess, metadata.StencilModeNone)
		return desc
	}

	// Structure geometry: mesh, points and lines.
	desc.FragmentEntry = variant.FragmentEntry()
	switch variant {
	case metadata.PassVariantShadow:
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure)
		depth.DepthBias = 2
		depth.DepthBiasSlopeScale = 2
		desc.DepthStencil = depth
	case metadata.PassVariantPick:
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.PickFormat}}
		desc.DepthStencil = depth
	case metadata.PassVariantPrepass:
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure, metadata.LayoutKindMaterial)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.NormalFormat}}
		desc.DepthStencil = depth
	case metadata.PassVariantPeel:
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure, metadata.LayoutKindMaterial, metadata.LayoutKindPeel)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat, Blend: metadata.BlendModeUnder}}
		desc.DepthStencil = depth
	case metadata.PassVariantTransparent:
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure, metadata.LayoutKindMaterial)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat, Blend: metadata.BlendModeAlpha}}
		desc.DepthStencil = sceneDepth(false, metadata.CompareFunctionLess, metadata.StencilModeNone)
	case metadata.PassVariantReflection:
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure, metadata.LayoutKindMaterial)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat}}
		desc.DepthStencil = sceneDepth(true, metadata.CompareFunctionLess, metadata.StencilModeTestEqual)
	default:
		desc.Layouts = ss.layoutsOf(metadata.LayoutKindFrame, metadata.LayoutKindStructure, metadata.LayoutKindMaterial)
		desc.Targets = []metadata.ColorTargetState{{Format: metadata.HDRFormat}}
		desc.DepthStencil = sceneDepth(true, metadata.CompareFunctionLess, metadata.StencilModeNone)
	}
	return desc
}

func layoutDescriptor(kind metadata.LayoutKind) metadata.BindGroupLayoutDescriptor {
	const (
		vs   = metadata.ShaderStageVertex
		fs   = metadata.ShaderStageFragment
		both = metadata.ShaderStageVertex | metadata.ShaderStageFragment
	)
	entry := func(binding uint32, vis metadata.ShaderStage, t metadata.BindingType) metadata.BindGroupLayoutEntry {
		return metadata.BindGroupLayoutEntry{Binding: binding, Visibility: vis, Type: t}
	}
	desc := metadata.BindGroupLayoutDescriptor{Label: kind.String()}
	switch kind {
	case metadata.LayoutKindFrame:
		desc.Entries = []metadata.BindGroupLayoutEntry{entry(0, both, metadata.BindingTypeUniformBuffer)}
	case metadata.LayoutKindStructure:
		desc.Entries = []metadata.BindGroupLayoutEntry{entry(0, both, metadata.BindingTypeUniformBuffer)}
		for i := uint32(1); i <= 5; i++ {
			desc.Entries = append(desc.Entries, entry(i, vs, metadata.BindingTypeStorageBuffer))
		}
	case metadata.LayoutKindMaterial:
		desc.Entries = []metadata.BindGroupLayoutEntry{
			entry(0, fs, metadata.BindingTypeTexture),
			entry(1, fs, metadata.BindingTypeTexture),
			entry(2, fs, metadata.BindingTypeSampler),
		}
	case metadata.LayoutKindPeel:
		desc.Entries = []metadata.BindGroupLayoutEntry{entry(0, fs, metadata.BindingTypeDepthTexture)}
	case metadata.LayoutKindGround:
		desc.Entries = []metadata.BindGroupLayoutEntry{
			entry(0, both, metadata.BindingTypeUniformBuffer),
			entry(1, fs, metadata.BindingTypeDepthTexture),
			entry(2, fs, metadata.BindingTypeComparisonSampler),
		}
	case metadata.LayoutKindSsao:
		desc.Entries = []metadata.BindGroupLayoutEntry{
			entry(0, fs, metadata.BindingTypeUniformBuffer),
			entry(1, fs, metadata.BindingTypeDepthTexture),
			entry(2, fs, metadata.BindingTypeUnfilterableTexture),
			entry(3, fs, metadata.BindingTypeUnfilterableTexture),
		}
	case metadata.LayoutKindSsaoBlur:
		desc.Entries = []metadata.BindGroupLayoutEntry{
			entry(0, fs, metadata.BindingTypeUniformBuffer),
			entry(1, fs, metadata.BindingTypeUnfilterableTexture),
		}
	case metadata.LayoutKindFullscreen:
		desc.Entries = []metadata.BindGroupLayoutEntry{
			entry(0, fs, metadata.BindingTypeUniformBuffer),
			entry(1, fs, metadata.BindingTypeTexture),
			entry(2, fs, metadata.BindingTypeSampler),
		}
	case metadata.LayoutKindToneMap:
		desc.Entries = []metadata.BindGroupLayoutEntry{
			entry(0, fs, metadata.BindingTypeUniformBuffer),
			entry(1, fs, metadata.BindingTypeTexture),
			entry(2, fs, metadata.BindingTypeTexture),
			entry(3, fs, metadata.BindingTypeSampler),
		}
	}
	return desc
}
