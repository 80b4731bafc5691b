package webgpu

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func textureFormat(f metadata.TextureFormat) wgpu.TextureFormat {
	switch f {
	case metadata.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case metadata.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case metadata.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case metadata.TextureFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case metadata.TextureFormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case metadata.TextureFormatR8Unorm:
		return wgpu.TextureFormatR8Unorm
	case metadata.TextureFormatR32Float:
		return wgpu.TextureFormatR32Float
	case metadata.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case metadata.TextureFormatDepth24PlusStencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	}
	return wgpu.TextureFormatUndefined
}

// fromTextureFormat maps the surface formats the viewer can render into.
func fromTextureFormat(f wgpu.TextureFormat) metadata.TextureFormat {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm:
		return metadata.TextureFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return metadata.TextureFormatRGBA8UnormSrgb
	case wgpu.TextureFormatBGRA8Unorm:
		return metadata.TextureFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return metadata.TextureFormatBGRA8UnormSrgb
	}
	return metadata.TextureFormatUndefined
}

/**
 * @brief Picks the surface format: an sRGB 8-bit format when offered,
 * otherwise the first format the viewer understands.
 */
func chooseSurfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, bool) {
	for _, want := range []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb} {
		for _, f := range formats {
			if f == want {
				return f, true
			}
		}
	}
	for _, f := range formats {
		if fromTextureFormat(f) != metadata.TextureFormatUndefined {
			return f, true
		}
	}
	return wgpu.TextureFormatUndefined, false
}

func choosePresentMode(modes []wgpu.PresentMode, vsync bool) wgpu.PresentMode {
	if vsync {
		return wgpu.PresentModeFifo
	}
	for _, want := range []wgpu.PresentMode{wgpu.PresentModeMailbox, wgpu.PresentModeImmediate} {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
	}
	return wgpu.PresentModeFifo
}

func textureUsage(u metadata.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&metadata.TextureUsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&metadata.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	if u&metadata.TextureUsageTextureBinding != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&metadata.TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	return out
}

func bufferUsage(u metadata.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	flags := []struct {
		from metadata.BufferUsage
		to   wgpu.BufferUsage
	}{
		{metadata.BufferUsageVertex, wgpu.BufferUsageVertex},
		{metadata.BufferUsageIndex, wgpu.BufferUsageIndex},
		{metadata.BufferUsageUniform, wgpu.BufferUsageUniform},
		{metadata.BufferUsageStorage, wgpu.BufferUsageStorage},
		{metadata.BufferUsageCopySrc, wgpu.BufferUsageCopySrc},
		{metadata.BufferUsageCopyDst, wgpu.BufferUsageCopyDst},
		{metadata.BufferUsageMapRead, wgpu.BufferUsageMapRead},
	}
	for _, f := range flags {
		if u&f.from != 0 {
			out |= f.to
		}
	}
	return out
}

func shaderStage(s metadata.ShaderStage) wgpu.ShaderStage {
	var out wgpu.ShaderStage
	if s&metadata.ShaderStageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&metadata.ShaderStageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	return out
}

func layoutEntry(e metadata.BindGroupLayoutEntry) wgpu.BindGroupLayoutEntry {
	out := wgpu.BindGroupLayoutEntry{Binding: e.Binding, Visibility: shaderStage(e.Visibility)}
	texture := func(sample wgpu.TextureSampleType) wgpu.TextureBindingLayout {
		return wgpu.TextureBindingLayout{SampleType: sample, ViewDimension: wgpu.TextureViewDimension2D}
	}
	switch e.Type {
	case metadata.BindingTypeUniformBuffer:
		out.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
	case metadata.BindingTypeStorageBuffer:
		out.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
	case metadata.BindingTypeTexture:
		out.Texture = texture(wgpu.TextureSampleTypeFloat)
	case metadata.BindingTypeUnfilterableTexture:
		out.Texture = texture(wgpu.TextureSampleTypeUnfilterableFloat)
	case metadata.BindingTypeDepthTexture:
		out.Texture = texture(wgpu.TextureSampleTypeDepth)
	case metadata.BindingTypeSampler:
		out.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
	case metadata.BindingTypeNonFilteringSampler:
		out.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeNonFiltering}
	case metadata.BindingTypeComparisonSampler:
		out.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison}
	}
	return out
}

func compareFunction(c metadata.CompareFunction) wgpu.CompareFunction {
	switch c {
	case metadata.CompareFunctionNever:
		return wgpu.CompareFunctionNever
	case metadata.CompareFunctionLess:
		return wgpu.CompareFunctionLess
	case metadata.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	case metadata.CompareFunctionEqual:
		return wgpu.CompareFunctionEqual
	case metadata.CompareFunctionGreater:
		return wgpu.CompareFunctionGreater
	case metadata.CompareFunctionGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case metadata.CompareFunctionNotEqual:
		return wgpu.CompareFunctionNotEqual
	case metadata.CompareFunctionAlways:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionUndefined
}

func addressMode(a metadata.AddressMode) wgpu.AddressMode {
	if a == metadata.AddressModeRepeat {
		return wgpu.AddressModeRepeat
	}
	return wgpu.AddressModeClampToEdge
}

func filterMode(f metadata.FilterMode) wgpu.FilterMode {
	if f == metadata.FilterModeLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

func topology(t metadata.PrimitiveTopology) wgpu.PrimitiveTopology {
	switch t {
	case metadata.PrimitiveTopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case metadata.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func cullMode(c metadata.CullMode) wgpu.CullMode {
	switch c {
	case metadata.CullModeFront:
		return wgpu.CullModeFront
	case metadata.CullModeBack:
		return wgpu.CullModeBack
	}
	return wgpu.CullModeNone
}

func blendState(mode metadata.BlendMode) *wgpu.BlendState {
	component := func(src, dst wgpu.BlendFactor) wgpu.BlendComponent {
		return wgpu.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: wgpu.BlendOperationAdd}
	}
	switch mode {
	case metadata.BlendModeAlpha:
		return &wgpu.BlendState{
			Color: component(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha),
			Alpha: component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
		}
	case metadata.BlendModePremultiplied:
		c := component(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha)
		return &wgpu.BlendState{Color: c, Alpha: c}
	case metadata.BlendModeUnder:
		c := component(wgpu.BlendFactorOneMinusDstAlpha, wgpu.BlendFactorOne)
		return &wgpu.BlendState{Color: c, Alpha: c}
	case metadata.BlendModeAdditive:
		c := component(wgpu.BlendFactorOne, wgpu.BlendFactorOne)
		return &wgpu.BlendState{Color: c, Alpha: c}
	}
	return nil
}

func colorTarget(t metadata.ColorTargetState) wgpu.ColorTargetState {
	mask := wgpu.ColorWriteMaskAll
	if t.NoWrite {
		mask = wgpu.ColorWriteMaskNone
	}
	return wgpu.ColorTargetState{Format: textureFormat(t.Format), Blend: blendState(t.Blend), WriteMask: mask}
}

func stencilFace(mode metadata.StencilMode) wgpu.StencilFaceState {
	face := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}
	switch mode {
	case metadata.StencilModeMark:
		face.PassOp = wgpu.StencilOperationReplace
	case metadata.StencilModeTestEqual:
		face.Compare = wgpu.CompareFunctionEqual
	}
	return face
}

func depthStencil(d *metadata.DepthStencilState) *wgpu.DepthStencilState {
	if d == nil {
		return nil
	}
	compare := compareFunction(d.DepthCompare)
	if compare == wgpu.CompareFunctionUndefined {
		compare = wgpu.CompareFunctionAlways
	}
	face := stencilFace(d.Stencil)
	var mask uint32
	if d.Format.HasStencil() && d.Stencil != metadata.StencilModeNone {
		mask = 0xFF
	}
	return &wgpu.DepthStencilState{
		Format:              textureFormat(d.Format),
		DepthWriteEnabled:   d.DepthWriteEnabled,
		DepthCompare:        compare,
		StencilFront:        face,
		StencilBack:         face,
		StencilReadMask:     mask,
		StencilWriteMask:    mask,
		DepthBias:           d.DepthBias,
		DepthBiasSlopeScale: d.DepthBiasSlopeScale,
	}
}

func loadOp(op metadata.LoadOp) wgpu.LoadOp {
	if op == metadata.LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func storeOp(op metadata.StoreOp) wgpu.StoreOp {
	if op == metadata.StoreOpDiscard {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}

func powerPreference(p metadata.PowerPreference) wgpu.PowerPreference {
	switch p {
	case metadata.PowerPreferenceLowPower:
		return wgpu.PowerPreferenceLowPower
	case metadata.PowerPreferenceHighPerformance:
		return wgpu.PowerPreferenceHighPerformance
	}
	return wgpu.PowerPreferenceUndefined
}

/**
 * @brief Maps a failed surface acquisition onto the core surface errors so
 * the renderer can decide between reconfiguring, skipping and giving up.
 */
func surfaceError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	kind := core.ErrRender
	switch {
	case strings.Contains(msg, "timeout"):
		kind = core.ErrTimeout
	case strings.Contains(msg, "outdated"):
		kind = core.ErrSurfaceOutdated
	case strings.Contains(msg, "lost"):
		kind = core.ErrSurfaceLost
	case strings.Contains(msg, "memory"):
		kind = core.ErrOutOfMemory
	}
	return fmt.Errorf("%w: acquire surface texture: %s", kind, err)
}
