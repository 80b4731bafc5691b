package views

import (
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Mirrors the opaque scene through the ground plane. The visible ground
 * is first marked in the stencil buffer; mirrored geometry only lands on
 * marked pixels.
 */
type RenderViewReflection struct {
	frame  frameGroup
	ground *RenderViewGround
}

func NewRenderViewReflection(ground *RenderViewGround) *RenderViewReflection {
	return &RenderViewReflection{frame: newFrameGroup("reflection_frame"), ground: ground}
}

func (v *RenderViewReflection) Name() string { return "reflection" }

func (v *RenderViewReflection) Type() metadata.RenderViewKnownType {
	return metadata.RENDER_VIEW_REFLECTION
}

func (v *RenderViewReflection) ShouldRender(p *Packet) bool {
	return p.Options.GroundPlaneMode == scene.GroundPlaneTileReflection && len(p.Opaque) > 0
}

func (v *RenderViewReflection) OnRender(p *Packet) error {
	hdr, depth, err := sceneTargets(p)
	if err != nil {
		return err
	}
	ground, err := v.ground.groundGroup(p)
	if err != nil {
		return err
	}

	basis := NewGroundBasis(packetUp(p))
	height := GroundHeight(&p.Options, p.BoundingBox, p.LengthScale, basis.Up)
	u := NewFrameUniforms(p, p.RenderWidth, p.RenderHeight)
	u.Reflection = ReflectionMatrix(basis, height)
	u.ReflectionPass = true
	frame, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}

	mark, err := p.Resources.Pipeline(metadata.ShaderKindGround, metadata.PassVariantReflection)
	if err != nil {
		return err
	}
	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label:  "reflection",
		Colors: []metadata.ColorAttachment{{Texture: hdr, LoadOp: metadata.LoadOpLoad}},
		DepthStencil: &metadata.DepthStencilAttachment{
			Texture:           depth,
			DepthLoadOp:       metadata.LoadOpLoad,
			StencilLoadOp:     metadata.LoadOpClear,
			StencilClearValue: 0,
		},
	})
	if err != nil {
		return err
	}
	pass.SetStencilReference(1)
	pass.SetPipeline(mark)
	pass.SetBindGroup(0, frame)
	pass.SetBindGroup(1, ground)
	pass.Draw(6, 1, 0, 0)

	err = drawAll(p, pass, metadata.PassVariantReflection, p.Opaque)
	return endPass(pass, err)
}

func (v *RenderViewReflection) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
}
