package views

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief The main scene pass: clears the HDR target to the background, draws
 * opaque structures and then the slice plane squares.
 */
type RenderViewWorld struct {
	frame  frameGroup
	planes slicePlaneRenderer
}

func NewRenderViewWorld() *RenderViewWorld {
	return &RenderViewWorld{frame: newFrameGroup("scene_frame")}
}

func (v *RenderViewWorld) Name() string { return "scene" }

func (v *RenderViewWorld) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_SCENE }

func (v *RenderViewWorld) ShouldRender(p *Packet) bool { return true }

/**
 * @brief Converts the sRGB background color to the linear value the HDR
 * target is cleared with.
 */
func LinearBackground(background math.Vec4, transparent bool) math.Vec4 {
	c := colorful.Color{R: float64(background.X), G: float64(background.Y), B: float64(background.Z)}.Clamped()
	r, g, b := c.LinearRgb()
	alpha := math.Clamp(background.W, 0, 1)
	if transparent {
		alpha = 0
	}
	return math.NewVec4(float32(r), float32(g), float32(b), alpha)
}

// sceneTargets returns the HDR color target and the scene depth-stencil target.
func sceneTargets(p *Packet) (metadata.TextureHandle, metadata.TextureHandle, error) {
	hdr, err := p.Targets.Target(TargetHDR, p.RenderWidth, p.RenderHeight, metadata.HDRFormat, hdrUsage)
	if err != nil {
		return metadata.InvalidHandle, metadata.InvalidHandle, err
	}
	depth, err := p.Targets.Target(TargetSceneDepth, p.RenderWidth, p.RenderHeight, metadata.SceneDepthFormat,
		metadata.TextureUsageRenderAttachment)
	if err != nil {
		return metadata.InvalidHandle, metadata.InvalidHandle, err
	}
	return hdr, depth, nil
}

func (v *RenderViewWorld) OnRender(p *Packet) error {
	hdr, depth, err := sceneTargets(p)
	if err != nil {
		return err
	}
	p.ToneSource = hdr

	u := NewFrameUniforms(p, p.RenderWidth, p.RenderHeight)
	group, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}

	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label: "scene",
		Colors: []metadata.ColorAttachment{{
			Texture:    hdr,
			LoadOp:     metadata.LoadOpClear,
			ClearColor: LinearBackground(p.Options.Background(), p.TransparentBackground),
		}},
		DepthStencil: &metadata.DepthStencilAttachment{
			Texture:         depth,
			DepthLoadOp:     metadata.LoadOpClear,
			DepthClearValue: 1,
			StencilLoadOp:   metadata.LoadOpClear,
		},
	})
	if err != nil {
		return err
	}
	pass.SetBindGroup(0, group)
	err = drawAll(p, pass, metadata.PassVariantScene, p.Opaque)
	if err == nil {
		err = v.planes.record(p, pass)
	}
	return endPass(pass, err)
}

func (v *RenderViewWorld) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
	v.planes.destroy(backend)
}
