package views

import (
	"github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/shaders"
	"github.com/spaghettifunk/prism/engine/scene"
)

const (
	// Half size of the ground square in length scales.
	groundExtent = 5
	// Tile edge in length scales at TileScale 1.
	groundTileSize = 0.1
	// Gap between the automatic ground and the lowest point of the scene.
	groundOffset = 0.001
)

/**
 * @brief Height of the ground along up. Automatic placement puts it just
 * below the lowest corner of the scene box.
 */
func GroundHeight(opts *scene.Options, box math.Extents3D, lengthScale float32, up math.Vec3) float32 {
	if opts.GroundPlane.HeightIsAbsolute {
		return opts.GroundPlaneHeight
	}
	if box.IsEmpty() {
		return 0
	}
	corners := box.Corners()
	lowest := corners[0].Dot(up)
	for _, c := range corners[1:] {
		lowest = math32.Min(lowest, c.Dot(up))
	}
	return lowest - groundOffset*lengthScale
}

/** @brief Orthonormal frame of the ground plane. */
type GroundBasis struct {
	Forward math.Vec3
	Right   math.Vec3
	Up      math.Vec3
	// +1 when up points along a positive axis.
	UpSign float32
}

func NewGroundBasis(up components.UpDir) GroundBasis {
	u := up.Vector()
	f := up.Front()
	sign := float32(1)
	if u.X+u.Y+u.Z < 0 {
		sign = -1
	}
	return GroundBasis{Forward: f, Right: f.Cross(u).Normalized(), Up: u, UpSign: sign}
}

/** @brief Mirror matrix of the ground plane at height along the basis up. */
func ReflectionMatrix(basis GroundBasis, height float32) math.Mat4 {
	return math.NewMat4Reflection(basis.Up.MulScalar(height), basis.Up)
}

func groundMode(mode scene.GroundPlaneMode) float32 {
	return float32(mode)
}

/**
 * @brief Composites the ground plane into the HDR target: tiles with the
 * shadow of the scene, or the shadow alone.
 */
type RenderViewGround struct {
	frame  frameGroup
	ground *uniformGroup

	// Frame the ground uniforms were last written for.
	written uint64
	group   metadata.BindGroupHandle
}

func NewRenderViewGround() *RenderViewGround {
	return &RenderViewGround{
		frame: newFrameGroup("ground_frame"),
		ground: newUniformGroup("ground", shaders.GroundUniformSize, &metadata.SamplerDescriptor{
			Label:       "shadow_sampler",
			AddressMode: metadata.AddressModeClampToEdge,
			MagFilter:   metadata.FilterModeLinear,
			MinFilter:   metadata.FilterModeLinear,
			Compare:     metadata.CompareFunctionLessEqual,
		}),
	}
}

func (v *RenderViewGround) Name() string { return "ground" }

func (v *RenderViewGround) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_GROUND }

func (v *RenderViewGround) ShouldRender(p *Packet) bool {
	return p.Options.GroundPlaneMode != scene.GroundPlaneNone
}

// packetUp is the world up of the packet camera.
func packetUp(p *Packet) components.UpDir {
	if p.Camera == nil {
		return components.UpDirY
	}
	return p.Camera.Up
}

/** @brief Packs GroundUniforms for the packet. */
func GroundUniformBytes(p *Packet) []byte {
	opts := &p.Options
	basis := NewGroundBasis(packetUp(p))
	height := GroundHeight(opts, p.BoundingBox, p.LengthScale, basis.Up)
	center := p.BoundingBox.Center()
	if p.BoundingBox.IsEmpty() {
		center = math.Vec3{}
	}

	var cameraHeight, ortho float32
	if p.Camera != nil {
		cameraHeight = p.Camera.GetPosition().Dot(basis.Up) - height
		ortho = flag(p.Camera.Projection == components.ProjectionOrthographic)
	}
	tile := colorful.Color{
		R: float64(opts.GroundPlane.TileColor[0]),
		G: float64(opts.GroundPlane.TileColor[1]),
		B: float64(opts.GroundPlane.TileColor[2]),
	}.Clamped()
	r, g, b := tile.LinearRgb()

	return metadata.NewUniformWriter(shaders.GroundUniformSize).
		Vec4(center.ToVec4(groundExtent * p.LengthScale)).
		Vec4(basis.Forward.ToVec4(0)).
		Vec4(basis.Right.ToVec4(0)).
		Vec4(basis.Up.ToVec4(basis.UpSign)).
		Vec4(math.NewVec4(height, cameraHeight, opts.GroundPlane.ShadowDarkness, flag(p.ShadowValid))).
		Vec4(math.NewVec4(ortho, opts.GroundPlane.ReflectionIntensity,
			groundTileSize*p.LengthScale*opts.GroundPlane.TileScale, groundMode(opts.GroundPlaneMode))).
		Vec4(math.NewVec4(float32(r), float32(g), float32(b), 1)).
		Bytes()
}

/**
 * @brief Returns the group 1 bind group of the ground, writing its uniforms
 * once per frame. Shared with the reflection view.
 */
func (v *RenderViewGround) groundGroup(p *Packet) (metadata.BindGroupHandle, error) {
	if v.written == p.FrameNumber && v.group != metadata.InvalidHandle && !v.ground.res.Stale(p.Backend) {
		return v.group, nil
	}
	shadow, err := p.Targets.Target(TargetShadowMap, ShadowMapSize, ShadowMapSize, metadata.DepthFormat,
		metadata.TextureUsageRenderAttachment|metadata.TextureUsageTextureBinding)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	if err := v.ground.prepare(p.Backend); err != nil {
		return metadata.InvalidHandle, err
	}
	group, err := v.ground.bind(p.Backend, p.Resources.Layout(metadata.LayoutKindGround), GroundUniformBytes(p),
		metadata.BindGroupEntry{Binding: 1, Texture: shadow},
		metadata.BindGroupEntry{Binding: 2, Sampler: v.ground.samplerHandle},
	)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	v.group = group
	v.written = p.FrameNumber
	return group, nil
}

func (v *RenderViewGround) OnRender(p *Packet) error {
	hdr, depth, err := sceneTargets(p)
	if err != nil {
		return err
	}
	ground, err := v.groundGroup(p)
	if err != nil {
		return err
	}
	u := NewFrameUniforms(p, p.RenderWidth, p.RenderHeight)
	frame, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}
	pipeline, err := p.Resources.Pipeline(metadata.ShaderKindGround, metadata.PassVariantScene)
	if err != nil {
		return err
	}

	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label:  "ground",
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
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, frame)
	pass.SetBindGroup(1, ground)
	pass.Draw(6, 1, 0, 0)
	return pass.End()
}

func (v *RenderViewGround) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
	v.ground.destroy(backend)
	v.group = metadata.InvalidHandle
}
