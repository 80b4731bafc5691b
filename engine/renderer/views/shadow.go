package views

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/** @brief Light direction used when the packet carries none: down and slightly forward. */
var DefaultLightDirection = math.NewVec3(-0.3, -1, -0.2)

/**
 * @brief Orthographic camera of a directional light covering a sphere.
 */
type ShadowCamera struct {
	Eye    math.Vec3
	Center math.Vec3
	Up     math.Vec3
	// Half size of the orthographic square.
	Extent float32
	Near   float32
	Far    float32

	View       math.Mat4
	Projection math.Mat4
}

/**
 * @brief Places the light 2 * radius back from center along -direction.
 * The up vector becomes +Z when the light is close to vertical.
 */
func NewShadowCamera(direction, center math.Vec3, radius float32) ShadowCamera {
	dir := direction.Normalized()
	if radius <= 0 {
		radius = 1
	}
	c := ShadowCamera{
		Eye:    center.Sub(dir.MulScalar(radius * 2)),
		Center: center,
		Up:     math.NewVec3(0, 1, 0),
		Extent: radius,
		Near:   0.1,
		Far:    radius * 4,
	}
	if math32.Abs(dir.Y) > 0.99 {
		c.Up = math.NewVec3(0, 0, 1)
	}
	c.View = math.NewMat4LookAt(c.Eye, c.Center, c.Up)
	c.Projection = math.NewMat4Orthographic(-radius, radius, -radius, radius, c.Near, c.Far)
	return c
}

func (c ShadowCamera) ViewProjection() math.Mat4 {
	return c.View.Mul(c.Projection)
}

/**
 * @brief Renders opaque geometry from the light into the shadow map.
 */
type RenderViewShadow struct {
	frame frameGroup
}

func NewRenderViewShadow() *RenderViewShadow {
	return &RenderViewShadow{frame: newFrameGroup("shadow_frame")}
}

func (v *RenderViewShadow) Name() string { return "shadow" }

func (v *RenderViewShadow) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_SHADOW }

func (v *RenderViewShadow) ShouldRender(p *Packet) bool {
	return p.Options.GroundPlaneMode != scene.GroundPlaneNone && len(p.Opaque) > 0
}

func (v *RenderViewShadow) OnRender(p *Packet) error {
	target, err := p.Targets.Target(TargetShadowMap, ShadowMapSize, ShadowMapSize, metadata.DepthFormat,
		metadata.TextureUsageRenderAttachment|metadata.TextureUsageTextureBinding)
	if err != nil {
		return err
	}

	dir := p.LightDirection
	if dir.LengthSquared() == 0 {
		dir = DefaultLightDirection
	}
	light := NewShadowCamera(dir, p.BoundingBox.Center(), p.BoundingBox.Diagonal()*0.5)

	u := NewFrameUniforms(p, ShadowMapSize, ShadowMapSize)
	u.View = light.View
	u.Projection = light.Projection
	u.InvViewProjection = light.ViewProjection().Inverse()
	u.LightViewProjection = light.ViewProjection()
	u.CameraPosition = light.Eye
	u.Orthographic = true
	group, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}

	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label: "shadow",
		DepthStencil: &metadata.DepthStencilAttachment{
			Texture:         target,
			DepthLoadOp:     metadata.LoadOpClear,
			DepthClearValue: 1,
		},
	})
	if err != nil {
		return err
	}
	pass.SetBindGroup(0, group)

	// Structures draw with the light matrices.
	shadowPacket := *p
	shadowPacket.View = light.View
	shadowPacket.Projection = light.Projection
	err = drawAll(&shadowPacket, pass, metadata.PassVariantShadow, p.Opaque)
	if err = endPass(pass, err); err != nil {
		return err
	}
	p.LightViewProjection = light.ViewProjection()
	p.ShadowValid = true
	return nil
}

func (v *RenderViewShadow) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
}
