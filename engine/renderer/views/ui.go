package views

import (
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Lets an application overlay draw on top of the finished frame.
 */
type RenderViewUI struct{}

func NewRenderViewUI() *RenderViewUI { return &RenderViewUI{} }

func (v *RenderViewUI) Name() string { return "ui" }

func (v *RenderViewUI) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_UI }

func (v *RenderViewUI) ShouldRender(p *Packet) bool {
	return p.UI != nil && p.Output != metadata.InvalidHandle
}

func (v *RenderViewUI) OnRender(p *Packet) error {
	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label:  "ui",
		Colors: []metadata.ColorAttachment{{Texture: p.Output, LoadOp: metadata.LoadOpLoad}},
	})
	if err != nil {
		return err
	}
	return endPass(pass, p.UI.Record(pass, p.Width, p.Height))
}

func (v *RenderViewUI) OnDestroy(backend renderer.RendererBackend) {}
