package views

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Converts a floating image to tightly packed RGBA8 rows, top row
 * first. Scalar images go through the packet colormap sampler.
 */
func FloatingPixels(f *scene.FloatingQuantity, sample func(name string, t float32) math.Vec3) []byte {
	colors := f.RGBA(func(t float32) math.Vec3 {
		if sample == nil {
			return math.NewVec3(t, t, t)
		}
		return sample(f.Colormap, t)
	})
	out := make([]byte, f.Width*f.Height*4)
	for i := 0; i < f.Width*f.Height && i < len(colors); i++ {
		c := colors[i]
		out[i*4+0] = unorm8(c.X)
		out[i*4+1] = unorm8(c.Y)
		out[i*4+2] = unorm8(c.Z)
		out[i*4+3] = unorm8(c.W)
	}
	return out
}

/**
 * @brief Composites the full-screen floating quantity over the HDR target.
 */
type RenderViewFloating struct {
	res     renderer.GPUResources
	texture metadata.TextureHandle
	// Identity of the uploaded image.
	id       uuid.UUID
	revision uint64
	width    int
	height   int

	composite *uniformGroup
}

func NewRenderViewFloating() *RenderViewFloating {
	return &RenderViewFloating{composite: newUniformGroup("floating_composite", 16, linearClamp)}
}

func (v *RenderViewFloating) Name() string { return "floating" }

func (v *RenderViewFloating) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_FLOATING }

func (v *RenderViewFloating) ShouldRender(p *Packet) bool {
	f := p.Floating
	return f != nil && f.Enabled && f.ShowFullscreen && f.Width > 0 && f.Height > 0
}

func (v *RenderViewFloating) upload(p *Packet) error {
	f := p.Floating
	backend := p.Backend
	if !v.res.Stale(backend) && v.id == f.ID && v.revision == f.Revision {
		return nil
	}
	if v.res.Stale(backend) || v.width != f.Width || v.height != f.Height {
		v.res.Release(backend)
		tex, err := backend.TextureCreate(&metadata.TextureDescriptor{
			Label:  "floating_" + f.Name,
			Width:  uint32(f.Width),
			Height: uint32(f.Height),
			Format: metadata.TextureFormatRGBA8UnormSrgb,
			Usage:  metadata.TextureUsageTextureBinding | metadata.TextureUsageCopyDst,
		})
		if err != nil {
			return err
		}
		v.texture = v.res.AddTexture(tex)
		v.res.Generation = backend.Generation()
		v.width, v.height = f.Width, f.Height
	}
	if err := backend.TextureWrite(v.texture, FloatingPixels(f, p.SampleColormap), uint32(f.Width), uint32(f.Height), uint32(f.Width)*4); err != nil {
		return err
	}
	v.id, v.revision = f.ID, f.Revision
	return nil
}

func (v *RenderViewFloating) OnRender(p *Packet) error {
	hdr, _, err := sceneTargets(p)
	if err != nil {
		return err
	}
	if err := v.upload(p); err != nil {
		return err
	}
	if err := v.composite.prepare(p.Backend); err != nil {
		return err
	}
	group, err := v.composite.bind(p.Backend, p.Resources.Layout(metadata.LayoutKindFullscreen), fullscreenParams(1, fullscreenModeImage, 1),
		metadata.BindGroupEntry{Binding: 1, Texture: v.texture},
		metadata.BindGroupEntry{Binding: 2, Sampler: v.composite.samplerHandle},
	)
	if err != nil {
		return err
	}
	return fullscreenPass(p, "floating", hdr, metadata.ShaderKindFullscreen, metadata.PassVariantTransparent, group, metadata.LoadOpLoad, math.Vec4{})
}

func (v *RenderViewFloating) OnDestroy(backend renderer.RendererBackend) {
	v.res.Release(backend)
	v.texture = metadata.InvalidHandle
	v.id = uuid.Nil
	v.composite.destroy(backend)
}
