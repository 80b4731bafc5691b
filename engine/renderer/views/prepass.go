package views

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Depth and view-space normals of the opaque geometry. Feeds SSAO and
 * gives depth peeling its opaque occluders.
 */
type RenderViewPrepass struct {
	frame frameGroup
}

func NewRenderViewPrepass() *RenderViewPrepass {
	return &RenderViewPrepass{frame: newFrameGroup("prepass_frame")}
}

func (v *RenderViewPrepass) Name() string { return "prepass" }

func (v *RenderViewPrepass) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_PREPASS }

func (v *RenderViewPrepass) ShouldRender(p *Packet) bool {
	return p.Options.Ssao.Enabled || p.Options.EffectiveTransparency() == scene.TransparencyPretty
}

func (v *RenderViewPrepass) OnRender(p *Packet) error {
	normals, err := p.Targets.Target(TargetNormals, p.RenderWidth, p.RenderHeight, metadata.NormalFormat, hdrUsage)
	if err != nil {
		return err
	}
	depth, err := p.Targets.Target(TargetPrepassDepth, p.RenderWidth, p.RenderHeight, metadata.DepthFormat, depthUsage)
	if err != nil {
		return err
	}

	u := NewFrameUniforms(p, p.RenderWidth, p.RenderHeight)
	group, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}

	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label: "prepass",
		Colors: []metadata.ColorAttachment{{
			Texture:    normals,
			LoadOp:     metadata.LoadOpClear,
			ClearColor: math.Vec4{},
		}},
		DepthStencil: &metadata.DepthStencilAttachment{
			Texture:         depth,
			DepthLoadOp:     metadata.LoadOpClear,
			DepthClearValue: 1,
		},
	})
	if err != nil {
		return err
	}
	pass.SetBindGroup(0, group)
	err = drawAll(p, pass, metadata.PassVariantPrepass, p.Opaque)
	if err = endPass(pass, err); err != nil {
		return err
	}
	p.PrepassValid = true
	return nil
}

func (v *RenderViewPrepass) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
}
