package views

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Averages factor x factor HDR samples per output pixel into the
 * resolved target. Skipped at factor 1, where tone mapping reads HDR directly.
 */
type RenderViewSsaa struct {
	downsample *uniformGroup
}

func NewRenderViewSsaa() *RenderViewSsaa {
	return &RenderViewSsaa{downsample: newUniformGroup("ssaa", 16, linearClamp)}
}

func (v *RenderViewSsaa) Name() string { return "ssaa" }

func (v *RenderViewSsaa) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_SSAA }

func (v *RenderViewSsaa) ShouldRender(p *Packet) bool {
	return p.SsaaFactor() > 1
}

func (v *RenderViewSsaa) OnRender(p *Packet) error {
	hdr, ok := p.Targets.Lookup(TargetHDR)
	if !ok {
		return nil
	}
	resolved, err := p.Targets.Target(TargetResolved, p.Width, p.Height, metadata.HDRFormat, hdrUsage)
	if err != nil {
		return err
	}
	if err := v.downsample.prepare(p.Backend); err != nil {
		return err
	}
	group, err := v.downsample.bind(p.Backend, p.Resources.Layout(metadata.LayoutKindFullscreen),
		fullscreenParams(p.SsaaFactor(), fullscreenModeDownsample, 1),
		metadata.BindGroupEntry{Binding: 1, Texture: hdr},
		metadata.BindGroupEntry{Binding: 2, Sampler: v.downsample.samplerHandle},
	)
	if err != nil {
		return err
	}
	if err := fullscreenPass(p, "ssaa", resolved, metadata.ShaderKindFullscreen, metadata.PassVariantScene, group, metadata.LoadOpClear, math.Vec4{}); err != nil {
		return err
	}
	p.ToneSource = resolved
	return nil
}

func (v *RenderViewSsaa) OnDestroy(backend renderer.RendererBackend) {
	v.downsample.destroy(backend)
}
