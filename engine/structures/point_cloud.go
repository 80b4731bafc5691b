package structures

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief Default point radius relative to the scene length scale. */
const DefaultPointRadius float32 = 0.005

/** @brief Vertices drawn per point: one screen-facing triangle. */
const pointImpostorVertices = 3

const (
	pointSoupPoints = iota
	pointSoupArrows
)

/**
 * @brief Points rendered as ray-cast sphere impostors.
 */
type PointCloud struct {
	structureBase

	points []math.Vec3

	PointColor math.Vec3
	// Relative to the length scale unless RadiusAbsolute is set.
	PointRadius    float32
	RadiusAbsolute bool

	render soupSet
}

func NewPointCloud(name string, points []math.Vec3) *PointCloud {
	pc := &PointCloud{
		structureBase: newStructureBase(name, TypePointCloud),
		points:        points,
		PointColor:    math.NewVec3(0.95, 0.55, 0.15),
		PointRadius:   DefaultPointRadius,
	}
	pc.counter = pc.elementCount
	pc.local = pc.localBounds
	return pc
}

func (pc *PointCloud) Points() []math.Vec3 {
	return pc.points
}

func (pc *PointCloud) UpdatePointPositions(points []math.Vec3) error {
	if len(points) != len(pc.points) {
		return fmt.Errorf("point cloud %q positions: %w", pc.name, core.NewSizeMismatch(len(pc.points), len(points)))
	}
	pc.points = points
	pc.dirty = true
	return nil
}

func (pc *PointCloud) SetPointRadius(radius float32, relative bool) {
	pc.PointRadius = radius
	pc.RadiusAbsolute = !relative
}

// Radius is the world-space point radius for a scene length scale.
func (pc *PointCloud) Radius(lengthScale float32) float32 {
	if pc.RadiusAbsolute {
		return pc.PointRadius
	}
	return pc.PointRadius * lengthScale
}

func (pc *PointCloud) elementCount(domain quantities.ElementDomain) (int, bool) {
	if domain == quantities.DomainVertex {
		return len(pc.points), true
	}
	return 0, false
}

func (pc *PointCloud) localBounds() (math.Extents3D, bool) {
	if len(pc.points) == 0 {
		return math.Extents3D{}, false
	}
	return math.NewExtentsFromPoints(pc.points), true
}

func (pc *PointCloud) PickDomain() quantities.ElementDomain {
	return quantities.DomainVertex
}

func (pc *PointCloud) buildSoup() *soup {
	s := &soup{stride: pointImpostorVertices}
	col := newColoring(pc.quantities, pc.PointColor.ToVec4(1))
	for i, p := range pc.points {
		e := noElement()
		e.vertex = i
		color, data := col.sample(e)
		s.addEntry(p, uint32(i), color, data)
	}
	return s
}

func (pc *PointCloud) anchors(q quantities.Quantity) ([]math.Vec3, []math.Vec3) {
	switch v := q.(type) {
	case *quantities.VectorQuantity:
		return pc.points, v.Vectors
	case *quantities.IntrinsicVectorQuantity:
		return pc.points, v.Vectors
	}
	return nil, nil
}

func (pc *PointCloud) Prepare(frame *Frame) error {
	key := quantityKey(pc.quantities, frame.LengthScale)
	if pc.render.stale(frame, key, pc.dirty) {
		arrows := arrowSoup(quantities.ActiveVectors(pc.quantities), frame.LengthScale, pc.anchors)
		if err := pc.render.upload(frame, "point_cloud_"+pc.name, key, pc.buildSoup(), arrows); err != nil {
			return err
		}
		pc.dirty = false
	}
	if g := pc.render.at(pointSoupPoints); g != nil {
		u := newStructureUniforms(pc.transform, frame)
		u.BaseColor = pc.PointColor.ToVec4(pc.transparency)
		u.Params.Y = pc.Radius(frame.LengthScale)
		u.applyColoring(quantities.ActiveColoring(pc.quantities), frame.LengthScale)
		if err := g.writeUniforms(frame, u); err != nil {
			return err
		}
	}
	if g := pc.render.at(pointSoupArrows); g != nil {
		if err := g.writeUniforms(frame, arrowUniforms(pc.transform, frame, pc.transparency)); err != nil {
			return err
		}
	}
	return nil
}

func (pc *PointCloud) Draw(frame *Frame) error {
	colormap := coloringColormap(quantities.ActiveColoring(pc.quantities))
	if err := pc.render.at(pointSoupPoints).draw(frame, metadata.ShaderKindPoints, pc.material, colormap); err != nil {
		return err
	}
	return pc.render.at(pointSoupArrows).draw(frame, metadata.ShaderKindMesh, pc.material, quantities.DefaultColormap)
}

func (pc *PointCloud) DrawPick(frame *Frame) error {
	return pc.render.at(pointSoupPoints).draw(frame, metadata.ShaderKindPoints, pc.material, "")
}

func (pc *PointCloud) ClearGPUResources() {
	pc.render.forget()
}

func (pc *PointCloud) ReleaseGPUResources(backend renderer.RendererBackend) {
	pc.render.release(backend)
}
