package views

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Packs ToneMapUniforms. sRGB outputs encode in hardware, so the
 * shader gamma drops to 1 for them.
 */
func ToneMapUniformBytes(cfg scene.ToneMappingConfig, output metadata.TextureFormat, ssao bool) []byte {
	gamma := cfg.Gamma
	if output.IsSrgb() || gamma <= 0 {
		gamma = 1
	}
	return metadata.NewUniformWriter(16).
		Vec4(math.NewVec4(cfg.Exposure, cfg.WhiteLevel, gamma, flag(ssao))).
		Bytes()
}

/**
 * @brief Maps the HDR image (or its SSAA resolve) to the output texture,
 * applying exposure, white level, gamma and ambient occlusion.
 */
type RenderViewToneMap struct {
	tone *uniformGroup

	res   renderer.GPUResources
	white metadata.TextureHandle
}

func NewRenderViewToneMap() *RenderViewToneMap {
	return &RenderViewToneMap{tone: newUniformGroup("tonemap", 16, linearClamp)}
}

func (v *RenderViewToneMap) Name() string { return "tonemap" }

func (v *RenderViewToneMap) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_TONEMAP }

func (v *RenderViewToneMap) ShouldRender(p *Packet) bool {
	return p.Output != metadata.InvalidHandle
}

// whiteTexture is bound in place of the occlusion target when SSAO did not run.
func (v *RenderViewToneMap) whiteTexture(backend renderer.RendererBackend) (metadata.TextureHandle, error) {
	if !v.res.Stale(backend) {
		return v.white, nil
	}
	v.res.Release(backend)
	tex, err := backend.TextureCreate(&metadata.TextureDescriptor{
		Label:  "ssao_white",
		Width:  1,
		Height: 1,
		Format: metadata.SsaoFormat,
		Usage:  metadata.TextureUsageTextureBinding | metadata.TextureUsageCopyDst,
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	v.white = v.res.AddTexture(tex)
	v.res.Generation = backend.Generation()
	if err := backend.TextureWrite(tex, []byte{255}, 1, 1, 1); err != nil {
		return metadata.InvalidHandle, err
	}
	return v.white, nil
}

func (v *RenderViewToneMap) OnRender(p *Packet) error {
	source := p.ToneSource
	if source == metadata.InvalidHandle {
		hdr, ok := p.Targets.Lookup(TargetHDR)
		if !ok {
			return core.NewRenderError("tone mapping has no HDR source")
		}
		source = hdr
	}
	occlusion, err := v.whiteTexture(p.Backend)
	if err != nil {
		return err
	}
	if p.SsaoValid {
		if ssao, ok := p.Targets.Lookup(TargetSsao); ok {
			occlusion = ssao
		}
	}
	if err := v.tone.prepare(p.Backend); err != nil {
		return err
	}
	group, err := v.tone.bind(p.Backend, p.Resources.Layout(metadata.LayoutKindToneMap),
		ToneMapUniformBytes(p.Options.ToneMapping, p.Backend.SurfaceFormat(), p.SsaoValid),
		metadata.BindGroupEntry{Binding: 1, Texture: source},
		metadata.BindGroupEntry{Binding: 2, Texture: occlusion},
		metadata.BindGroupEntry{Binding: 3, Sampler: v.tone.samplerHandle},
	)
	if err != nil {
		return err
	}
	return fullscreenPass(p, "tonemap", p.Output, metadata.ShaderKindToneMap, metadata.PassVariantScene, group, metadata.LoadOpClear, math.Vec4{})
}

func (v *RenderViewToneMap) OnDestroy(backend renderer.RendererBackend) {
	v.res.Release(backend)
	v.white = metadata.InvalidHandle
	v.tone.destroy(backend)
}
