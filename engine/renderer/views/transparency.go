package views

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

/**
 * @brief Orders structures far to near by the view-space depth of their
 * bounding box centers. Ties keep their input order.
 */
func SortBackToFront(list []structures.Structure, view math.Mat4) []structures.Structure {
	type keyed struct {
		s structures.Structure
		z float32
	}
	items := make([]keyed, len(list))
	for i, s := range list {
		center := s.Transform().Translation()
		if box, ok := s.BoundingBox(); ok {
			center = box.Center()
		}
		// The camera looks down -Z, so farther means more negative.
		items[i] = keyed{s: s, z: center.Transform(view).Z}
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].z < items[b].z })
	out := make([]structures.Structure, len(items))
	for i, it := range items {
		out[i] = it.s
	}
	return out
}

/**
 * @brief Bind groups over a single texture, cached per texture handle.
 */
type textureGroups struct {
	label  string
	res    renderer.GPUResources
	groups map[metadata.TextureHandle]metadata.BindGroupHandle
}

// Resized targets get new handles; past this many groups the cache starts over.
const maxTextureGroups = 8

func (t *textureGroups) get(backend renderer.RendererBackend, layout metadata.BindGroupLayoutHandle, tex metadata.TextureHandle) (metadata.BindGroupHandle, error) {
	if t.res.Stale(backend) || len(t.groups) >= maxTextureGroups {
		t.destroy(backend)
		t.res.Generation = backend.Generation()
	}
	if g, ok := t.groups[tex]; ok {
		return g, nil
	}
	g, err := backend.BindGroupCreate(&metadata.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s_%d", t.label, tex),
		Layout:  layout,
		Entries: []metadata.BindGroupEntry{{Binding: 0, Texture: tex}},
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	t.res.AddBindGroup(g)
	t.groups[tex] = g
	return g, nil
}

func (t *textureGroups) destroy(backend renderer.RendererBackend) {
	t.res.Release(backend)
	t.groups = make(map[metadata.TextureHandle]metadata.BindGroupHandle)
}

/**
 * @brief Draws transparent structures into the HDR target. Simple mode
 * blends back to front over the scene; Pretty mode peels depth layers into an
 * accumulation target and composites it once.
 */
type RenderViewTransparency struct {
	frame     frameGroup
	peel      textureGroups
	composite *uniformGroup
}

func NewRenderViewTransparency() *RenderViewTransparency {
	return &RenderViewTransparency{
		frame:     newFrameGroup("transparency_frame"),
		peel:      textureGroups{label: "peel_depth", groups: make(map[metadata.TextureHandle]metadata.BindGroupHandle)},
		composite: newUniformGroup("peel_composite", 16, linearClamp),
	}
}

func (v *RenderViewTransparency) Name() string { return "transparency" }

func (v *RenderViewTransparency) Type() metadata.RenderViewKnownType {
	return metadata.RENDER_VIEW_TRANSPARENCY
}

func (v *RenderViewTransparency) ShouldRender(p *Packet) bool {
	return len(p.Transparent) > 0 && p.Options.EffectiveTransparency() != scene.TransparencyNone
}

func (v *RenderViewTransparency) OnRender(p *Packet) error {
	hdr, depth, err := sceneTargets(p)
	if err != nil {
		return err
	}
	u := NewFrameUniforms(p, p.RenderWidth, p.RenderHeight)
	group, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}
	if p.Options.EffectiveTransparency() == scene.TransparencyPretty {
		return v.renderPeeled(p, hdr, group)
	}

	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label:  "transparency",
		Colors: []metadata.ColorAttachment{{Texture: hdr, LoadOp: metadata.LoadOpLoad}},
		DepthStencil: &metadata.DepthStencilAttachment{
			Texture:       depth,
			DepthLoadOp:   metadata.LoadOpLoad,
			StencilLoadOp: metadata.LoadOpLoad,
		},
	})
	if err != nil {
		return err
	}
	pass.SetBindGroup(0, group)
	err = drawAll(p, pass, metadata.PassVariantTransparent, SortBackToFront(p.Transparent, p.View))
	return endPass(pass, err)
}

func (v *RenderViewTransparency) renderPeeled(p *Packet, hdr metadata.TextureHandle, frame metadata.BindGroupHandle) error {
	backend := p.Backend
	w, h := p.RenderWidth, p.RenderHeight
	accum, err := p.Targets.Target(TargetPeelAccum, w, h, metadata.HDRFormat, hdrUsage)
	if err != nil {
		return err
	}
	prev, err := p.Targets.Target(TargetPeelDepthA, w, h, metadata.DepthFormat, depthUsage)
	if err != nil {
		return err
	}
	cur, err := p.Targets.Target(TargetPeelDepthB, w, h, metadata.DepthFormat, depthUsage)
	if err != nil {
		return err
	}

	// Nothing is peeled before the first layer.
	reset, err := backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label: "peel_init",
		DepthStencil: &metadata.DepthStencilAttachment{
			Texture:         prev,
			DepthLoadOp:     metadata.LoadOpClear,
			DepthClearValue: 0,
		},
	})
	if err != nil {
		return err
	}
	if err := reset.End(); err != nil {
		return err
	}

	opaque, hasOpaque := p.Targets.Lookup(TargetPrepassDepth)
	hasOpaque = hasOpaque && p.PrepassValid
	peelLayout := p.Resources.Layout(metadata.LayoutKindPeel)

	layers := p.Options.TransparencyRenderPasses
	if layers < 1 {
		layers = 1
	}
	for i := 0; i < layers; i++ {
		depthLoad := metadata.LoadOpClear
		if hasOpaque {
			if err := backend.CopyTexture(opaque, cur, w, h); err != nil {
				return err
			}
			depthLoad = metadata.LoadOpLoad
		}
		colorLoad := metadata.LoadOpLoad
		if i == 0 {
			colorLoad = metadata.LoadOpClear
		}
		peelGroup, err := v.peel.get(backend, peelLayout, prev)
		if err != nil {
			return err
		}
		pass, err := backend.RenderPassBegin(&metadata.RenderPassDescriptor{
			Label:  fmt.Sprintf("peel_%d", i),
			Colors: []metadata.ColorAttachment{{Texture: accum, LoadOp: colorLoad}},
			DepthStencil: &metadata.DepthStencilAttachment{
				Texture:         cur,
				DepthLoadOp:     depthLoad,
				DepthClearValue: 1,
			},
		})
		if err != nil {
			return err
		}
		pass.SetBindGroup(0, frame)
		pass.SetBindGroup(3, peelGroup)
		err = drawAll(p, pass, metadata.PassVariantPeel, p.Transparent)
		if err = endPass(pass, err); err != nil {
			return err
		}
		prev, cur = cur, prev
	}

	if err := v.composite.prepare(backend); err != nil {
		return err
	}
	group, err := v.composite.bind(backend, p.Resources.Layout(metadata.LayoutKindFullscreen), fullscreenParams(1, fullscreenModeImage, 1),
		metadata.BindGroupEntry{Binding: 1, Texture: accum},
		metadata.BindGroupEntry{Binding: 2, Sampler: v.composite.samplerHandle},
	)
	if err != nil {
		return err
	}
	return fullscreenPass(p, "peel_composite", hdr, metadata.ShaderKindFullscreen, metadata.PassVariantPeel, group, metadata.LoadOpLoad, math.Vec4{})
}

func (v *RenderViewTransparency) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
	v.peel.destroy(backend)
	v.composite.destroy(backend)
}

const (
	fullscreenModeDownsample float32 = 0
	fullscreenModeImage      float32 = 1
)

func fullscreenParams(factor uint32, mode, opacity float32) []byte {
	return metadata.NewUniformWriter(16).Vec4(math.NewVec4(float32(factor), mode, opacity, 0)).Bytes()
}
