package views

import (
	"math/rand/v2"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/shaders"
)

const (
	ssaoNoiseSize = 4
	ssaoSeed      = 0x5eed
)

/**
 * @brief Returns count sample offsets in the unit hemisphere around +Z,
 * denser near the origin. The sequence is the same on every call.
 */
func SsaoKernel(count int) []math.Vec3 {
	count = math.Clamp(count, 1, shaders.MaxSsaoSamples)
	rng := rand.New(rand.NewPCG(ssaoSeed, uint64(count)))
	out := make([]math.Vec3, count)
	for i := range out {
		v := math.NewVec3(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32())
		if v.LengthSquared() < 1e-8 {
			v = math.NewVec3(0, 0, 1)
		}
		v = v.Normalized().MulScalar(rng.Float32())
		t := float32(i) / float32(count)
		out[i] = v.MulScalar(math.Lerp(float32(0.1), 1, t*t))
	}
	return out
}

/**
 * @brief Returns the RGBA8 pixels of the 4x4 rotation tile. Each texel holds a
 * random tangent-plane vector with xy mapped from [-1, 1] to [0, 255].
 */
func SsaoNoise() []byte {
	rng := rand.New(rand.NewPCG(ssaoSeed, ssaoNoiseSize))
	out := make([]byte, 0, ssaoNoiseSize*ssaoNoiseSize*4)
	for i := 0; i < ssaoNoiseSize*ssaoNoiseSize; i++ {
		x := rng.Float32()*2 - 1
		y := rng.Float32()*2 - 1
		out = append(out, unorm8(x*0.5+0.5), unorm8(y*0.5+0.5), 128, 255)
	}
	return out
}

func unorm8(f float32) uint8 {
	return uint8(math.Clamp(f, 0, 1)*255 + 0.5)
}

/**
 * @brief Ambient occlusion from the prepass followed by a separable blur.
 * The result lands in the ssao target.
 */
type RenderViewSsao struct {
	res   renderer.GPUResources
	noise metadata.TextureHandle

	ssao  *uniformGroup
	blurH *uniformGroup
	blurV *uniformGroup
}

func NewRenderViewSsao() *RenderViewSsao {
	return &RenderViewSsao{
		ssao:  newUniformGroup("ssao", shaders.SsaoUniformSize, nil),
		blurH: newUniformGroup("ssao_blur_h", 16, nil),
		blurV: newUniformGroup("ssao_blur_v", 16, nil),
	}
}

func (v *RenderViewSsao) Name() string { return "ssao" }

func (v *RenderViewSsao) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_SSAO }

func (v *RenderViewSsao) ShouldRender(p *Packet) bool {
	return p.Options.Ssao.Enabled && p.PrepassValid
}

func (v *RenderViewSsao) ensureNoise(backend renderer.RendererBackend) error {
	if !v.res.Stale(backend) {
		return nil
	}
	v.res.Release(backend)
	tex, err := backend.TextureCreate(&metadata.TextureDescriptor{
		Label:  "ssao_noise",
		Width:  ssaoNoiseSize,
		Height: ssaoNoiseSize,
		Format: metadata.TextureFormatRGBA8Unorm,
		Usage:  metadata.TextureUsageTextureBinding | metadata.TextureUsageCopyDst,
	})
	if err != nil {
		return err
	}
	v.noise = v.res.AddTexture(tex)
	v.res.Generation = backend.Generation()
	return backend.TextureWrite(tex, SsaoNoise(), ssaoNoiseSize, ssaoNoiseSize, ssaoNoiseSize*4)
}

func (v *RenderViewSsao) uniforms(p *Packet) []byte {
	cfg := p.Options.Ssao
	kernel := SsaoKernel(cfg.SampleCount)
	radius := cfg.Radius * p.LengthScale
	w := metadata.NewUniformWriter(shaders.SsaoUniformSize).
		Mat4(p.Projection).
		Mat4(p.Projection.Inverse()).
		Vec4(math.NewVec4(radius, cfg.Bias*radius, cfg.Intensity, float32(len(kernel))))
	for i := 0; i < shaders.MaxSsaoSamples; i++ {
		var k math.Vec3
		if i < len(kernel) {
			k = kernel[i]
		}
		w.Vec4(k.ToVec4(0))
	}
	return w.Bytes()
}

func (v *RenderViewSsao) OnRender(p *Packet) error {
	backend := p.Backend
	if err := v.ensureNoise(backend); err != nil {
		return err
	}
	depth, ok := p.Targets.Lookup(TargetPrepassDepth)
	if !ok {
		return nil
	}
	normals, ok := p.Targets.Lookup(TargetNormals)
	if !ok {
		return nil
	}
	usage := metadata.TextureUsageRenderAttachment | metadata.TextureUsageTextureBinding
	out, err := p.Targets.Target(TargetSsao, p.RenderWidth, p.RenderHeight, metadata.SsaoFormat, usage)
	if err != nil {
		return err
	}
	scratch, err := p.Targets.Target(TargetSsaoBlur, p.RenderWidth, p.RenderHeight, metadata.SsaoFormat, usage)
	if err != nil {
		return err
	}

	group, err := v.ssao.bind(backend, p.Resources.Layout(metadata.LayoutKindSsao), v.uniforms(p),
		metadata.BindGroupEntry{Binding: 1, Texture: depth},
		metadata.BindGroupEntry{Binding: 2, Texture: normals},
		metadata.BindGroupEntry{Binding: 3, Texture: v.noise},
	)
	if err != nil {
		return err
	}
	if err := fullscreenPass(p, "ssao", out, metadata.ShaderKindSsao, metadata.PassVariantScene, group, metadata.LoadOpClear, math.NewVec4(1, 1, 1, 1)); err != nil {
		return err
	}

	blurLayout := p.Resources.Layout(metadata.LayoutKindSsaoBlur)
	h, err := v.blurH.bind(backend, blurLayout, direction(1, 0), metadata.BindGroupEntry{Binding: 1, Texture: out})
	if err != nil {
		return err
	}
	if err := fullscreenPass(p, "ssao_blur_h", scratch, metadata.ShaderKindSsaoBlur, metadata.PassVariantScene, h, metadata.LoadOpClear, math.Vec4{}); err != nil {
		return err
	}
	vg, err := v.blurV.bind(backend, blurLayout, direction(0, 1), metadata.BindGroupEntry{Binding: 1, Texture: scratch})
	if err != nil {
		return err
	}
	if err := fullscreenPass(p, "ssao_blur_v", out, metadata.ShaderKindSsaoBlur, metadata.PassVariantScene, vg, metadata.LoadOpClear, math.Vec4{}); err != nil {
		return err
	}
	p.SsaoValid = true
	return nil
}

func direction(x, y float32) []byte {
	return metadata.NewUniformWriter(16).Vec4(math.NewVec4(x, y, 0, 0)).Bytes()
}

func (v *RenderViewSsao) OnDestroy(backend renderer.RendererBackend) {
	v.res.Release(backend)
	v.ssao.destroy(backend)
	v.blurH.destroy(backend)
	v.blurV.destroy(backend)
}

/**
 * @brief Records a single full-screen triangle into target with group bound
 * at index 0.
 */
func fullscreenPass(p *Packet, label string, target metadata.TextureHandle, kind metadata.ShaderKind, variant metadata.PassVariant,
	group metadata.BindGroupHandle, load metadata.LoadOp, clear math.Vec4) error {
	pipeline, err := p.Resources.Pipeline(kind, variant)
	if err != nil {
		return err
	}
	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label: label,
		Colors: []metadata.ColorAttachment{{
			Texture:    target,
			LoadOp:     load,
			ClearColor: clear,
		}},
	})
	if err != nil {
		return err
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group)
	pass.Draw(3, 1, 0, 0)
	return pass.End()
}
