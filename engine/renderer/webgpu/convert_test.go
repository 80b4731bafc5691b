package webgpu

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func TestTextureFormatRoundTrip(t *testing.T) {
	for _, f := range []metadata.TextureFormat{
		metadata.TextureFormatRGBA8Unorm,
		metadata.TextureFormatRGBA8UnormSrgb,
		metadata.TextureFormatBGRA8Unorm,
		metadata.TextureFormatBGRA8UnormSrgb,
	} {
		t.Run(f.String(), func(t *testing.T) {
			assert.Equal(t, f, fromTextureFormat(textureFormat(f)))
		})
	}
	assert.Equal(t, wgpu.TextureFormatUndefined, textureFormat(metadata.TextureFormatUndefined))
	assert.Equal(t, metadata.TextureFormatUndefined, fromTextureFormat(wgpu.TextureFormatDepth32Float))
}

func TestChooseSurfaceFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
		ok      bool
	}{
		{"prefers bgra srgb", []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb}, wgpu.TextureFormatBGRA8UnormSrgb, true},
		{"falls back to rgba srgb", []wgpu.TextureFormat{wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm}, wgpu.TextureFormatRGBA8UnormSrgb, true},
		{"any known format", []wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatBGRA8Unorm}, wgpu.TextureFormatBGRA8Unorm, true},
		{"nothing usable", []wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float}, wgpu.TextureFormatUndefined, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := chooseSurfaceFormat(tt.formats)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate, wgpu.PresentModeMailbox}
	assert.Equal(t, wgpu.PresentModeFifo, choosePresentMode(all, true))
	assert.Equal(t, wgpu.PresentModeMailbox, choosePresentMode(all, false))
	assert.Equal(t, wgpu.PresentModeImmediate, choosePresentMode(all[:2], false))
	assert.Equal(t, wgpu.PresentModeFifo, choosePresentMode(all[:1], false))
}

func TestUsageFlags(t *testing.T) {
	got := bufferUsage(metadata.BufferUsageStorage | metadata.BufferUsageCopyDst)
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, got)

	tex := textureUsage(metadata.TextureUsageRenderAttachment | metadata.TextureUsageTextureBinding)
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, tex)

	stage := shaderStage(metadata.ShaderStageVertex | metadata.ShaderStageFragment)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, stage)
}

func TestLayoutEntry(t *testing.T) {
	e := layoutEntry(metadata.BindGroupLayoutEntry{Binding: 2, Visibility: metadata.ShaderStageFragment, Type: metadata.BindingTypeDepthTexture})
	assert.Equal(t, uint32(2), e.Binding)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, e.Texture.SampleType)

	e = layoutEntry(metadata.BindGroupLayoutEntry{Type: metadata.BindingTypeStorageBuffer})
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, e.Buffer.Type)

	e = layoutEntry(metadata.BindGroupLayoutEntry{Type: metadata.BindingTypeComparisonSampler})
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, e.Sampler.Type)
}

func TestBlendState(t *testing.T) {
	assert.Nil(t, blendState(metadata.BlendModeNone))

	alpha := blendState(metadata.BlendModeAlpha)
	require.NotNil(t, alpha)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, alpha.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOne, alpha.Alpha.SrcFactor)

	under := blendState(metadata.BlendModeUnder)
	require.NotNil(t, under)
	assert.Equal(t, wgpu.BlendFactorOneMinusDstAlpha, under.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOne, under.Color.DstFactor)

	target := colorTarget(metadata.ColorTargetState{Format: metadata.TextureFormatR32Float, NoWrite: true})
	assert.Equal(t, wgpu.ColorWriteMaskNone, target.WriteMask)
}

func TestDepthStencil(t *testing.T) {
	assert.Nil(t, depthStencil(nil))

	ds := depthStencil(&metadata.DepthStencilState{Format: metadata.TextureFormatDepth32Float})
	require.NotNil(t, ds)
	assert.Equal(t, wgpu.CompareFunctionAlways, ds.DepthCompare)
	assert.Zero(t, ds.StencilWriteMask)

	ds = depthStencil(&metadata.DepthStencilState{
		Format:       metadata.TextureFormatDepth24PlusStencil8,
		DepthCompare: metadata.CompareFunctionLess,
		Stencil:      metadata.StencilModeMark,
	})
	assert.Equal(t, wgpu.CompareFunctionLess, ds.DepthCompare)
	assert.Equal(t, uint32(0xFF), ds.StencilWriteMask)
	assert.Equal(t, wgpu.StencilOperationReplace, ds.StencilFront.PassOp)

	test := stencilFace(metadata.StencilModeTestEqual)
	assert.Equal(t, wgpu.CompareFunctionEqual, test.Compare)
	assert.Equal(t, wgpu.StencilOperationKeep, test.PassOp)
}

func TestSurfaceError(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"Surface texture acquire Timeout", core.ErrTimeout},
		{"surface is Outdated", core.ErrSurfaceOutdated},
		{"surface lost", core.ErrSurfaceLost},
		{"out of memory", core.ErrOutOfMemory},
		{"validation error", core.ErrRender},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := surfaceError(errors.New(tt.msg))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
	assert.NoError(t, surfaceError(nil))
}

func TestBackendRequiresInitialize(t *testing.T) {
	b := New()
	_, err := b.BufferCreate(&metadata.BufferDescriptor{Label: "x", Size: 4})
	assert.ErrorIs(t, err, core.ErrNotInitialized)
	_, err = b.TextureCreate(&metadata.TextureDescriptor{Label: "x", Width: 1, Height: 1, Format: metadata.TextureFormatRGBA8Unorm})
	assert.ErrorIs(t, err, core.ErrNotInitialized)
	assert.Error(t, b.BufferWrite(metadata.BufferHandle(42), 0, []byte{1}))
}
