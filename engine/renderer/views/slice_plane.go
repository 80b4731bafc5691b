package views

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

// Drawn half size of a slice plane square per unit of PlaneSize, in length scales.
const slicePlaneExtent = 10

/**
 * @brief Maps the [-1, 1]^2 square of the slice plane shader onto the plane:
 * x and y span the plane, z is the normal.
 */
func SlicePlaneModel(plane *scene.SlicePlane, lengthScale float32) math.Mat4 {
	n := plane.Normal.Normalized()
	t := n.AnyPerpendicular().Normalized()
	b := n.Cross(t)
	half := plane.PlaneSize * slicePlaneExtent * lengthScale
	if half <= 0 {
		half = lengthScale
	}
	t = t.MulScalar(half)
	b = b.MulScalar(half)
	m := math.NewMat4Identity()
	m.Data[0], m.Data[1], m.Data[2] = t.X, t.Y, t.Z
	m.Data[4], m.Data[5], m.Data[6] = b.X, b.Y, b.Z
	m.Data[8], m.Data[9], m.Data[10] = n.X, n.Y, n.Z
	m.Data[12], m.Data[13], m.Data[14] = plane.Origin.X, plane.Origin.Y, plane.Origin.Z
	return m
}

/**
 * @brief Draws the visible slice planes as translucent gridded squares. Used
 * inside the scene pass after opaque geometry.
 */
type slicePlaneRenderer struct {
	groups []*geometryGroup
}

func (r *slicePlaneRenderer) record(p *Packet, pass renderer.RenderPass) error {
	i := 0
	for _, plane := range p.SlicePlaneVisuals {
		if !plane.Enabled || !plane.DrawPlane {
			continue
		}
		if i == len(r.groups) {
			r.groups = append(r.groups, &geometryGroup{label: fmt.Sprintf("slice_plane_%d", i)})
		}
		g := r.groups[i]
		i++

		color := plane.Color.ToVec4(math.Clamp(plane.Transparency, 0, 1))
		if err := g.upload(p, structureUniformBytes(SlicePlaneModel(plane, p.LengthScale), color), nil, nil); err != nil {
			return err
		}
		variant := metadata.PassVariantScene
		if color.W < 1 {
			variant = metadata.PassVariantTransparent
		}
		pipeline, err := p.Resources.Pipeline(metadata.ShaderKindSlicePlane, variant)
		if err != nil {
			return err
		}
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(1, g.group)
		pass.Draw(6, 1, 0, 0)
	}
	return nil
}

func (r *slicePlaneRenderer) destroy(backend renderer.RendererBackend) {
	for _, g := range r.groups {
		g.destroy(backend)
	}
	r.groups = nil
}
