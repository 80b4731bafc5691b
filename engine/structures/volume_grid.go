package structures

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	gridSoupSurface = iota
	gridSoupArrows
)

// Corner loops of the six cube faces, wound outward.
var boxFaces = [6][4]int{
	{0, 2, 3, 1}, {4, 5, 7, 6},
	{0, 1, 5, 4}, {2, 6, 7, 3},
	{0, 4, 6, 2}, {1, 3, 7, 5},
}

/**
 * @brief A regular grid of nodes between two corners. Node scalars render
 * as colored cubes or as an isosurface; cell scalars as cubes per cell.
 */
type VolumeGrid struct {
	structureBase

	dims     [3]int
	boundMin math.Vec3
	boundMax math.Vec3

	Color     math.Vec3
	EdgeColor math.Vec3
	EdgeWidth float32
	// Cube size as a fraction of the grid spacing.
	CubeSizeFactor float32

	render soupSet
}

/**
 * @brief Creates a grid with dims nodes per axis spanning [boundMin, boundMax].
 * Every axis needs at least two nodes.
 */
func NewVolumeGrid(name string, dims [3]int, boundMin, boundMax math.Vec3) (*VolumeGrid, error) {
	for axis, n := range dims {
		if n < 2 {
			return nil, fmt.Errorf("volume grid %q: axis %d has %d nodes, need at least 2", name, axis, n)
		}
	}
	g := &VolumeGrid{
		structureBase:  newStructureBase(name, TypeVolumeGrid),
		dims:           dims,
		boundMin:       boundMin,
		boundMax:       boundMax,
		Color:          math.NewVec3(0.5, 0.7, 0.5),
		EdgeColor:      math.NewVec3(0.1, 0.1, 0.1),
		EdgeWidth:      0.5,
		CubeSizeFactor: 1,
	}
	g.counter = g.elementCount
	g.local = g.localBounds
	return g, nil
}

func (g *VolumeGrid) Dims() [3]int {
	return g.dims
}

func (g *VolumeGrid) Bounds() (math.Vec3, math.Vec3) {
	return g.boundMin, g.boundMax
}

func (g *VolumeGrid) NodeCount() int {
	return g.dims[0] * g.dims[1] * g.dims[2]
}

func (g *VolumeGrid) CellCount() int {
	return (g.dims[0] - 1) * (g.dims[1] - 1) * (g.dims[2] - 1)
}

func (g *VolumeGrid) spacing() math.Vec3 {
	return g.boundMax.Sub(g.boundMin).Div(math.NewVec3(
		float32(g.dims[0]-1), float32(g.dims[1]-1), float32(g.dims[2]-1)))
}

/** @brief World position of node (i, j, k) before the model transform. */
func (g *VolumeGrid) NodePosition(i, j, k int) math.Vec3 {
	return g.boundMin.Add(g.spacing().Mul(math.NewVec3(float32(i), float32(j), float32(k))))
}

// NodeIndex flattens (i, j, k) with i fastest.
func (g *VolumeGrid) NodeIndex(i, j, k int) int {
	return i + g.dims[0]*(j+g.dims[1]*k)
}

func (g *VolumeGrid) CellIndex(i, j, k int) int {
	return i + (g.dims[0]-1)*(j+(g.dims[1]-1)*k)
}

func (g *VolumeGrid) elementCount(domain quantities.ElementDomain) (int, bool) {
	switch domain {
	case quantities.DomainNode:
		return g.NodeCount(), true
	case quantities.DomainCell:
		return g.CellCount(), true
	}
	return 0, false
}

func (g *VolumeGrid) localBounds() (math.Extents3D, bool) {
	return math.NewExtentsFromPoints([]math.Vec3{g.boundMin, g.boundMax}), true
}

// isosurface returns the enabled node scalar drawn as an isosurface, if any.
func (g *VolumeGrid) isosurface() *quantities.ScalarQuantity {
	if s, ok := quantities.ActiveColoring(g.quantities).(*quantities.ScalarQuantity); ok {
		if s.Domain() == quantities.DomainNode && s.VizMode == quantities.GridVizIsosurface {
			return s
		}
	}
	return nil
}

func (g *VolumeGrid) PickDomain() quantities.ElementDomain {
	if q := quantities.ActiveColoring(g.quantities); q != nil && q.Domain() == quantities.DomainNode && g.isosurface() == nil {
		return quantities.DomainNode
	}
	return quantities.DomainCell
}

func appendBox(s *soup, lo, hi math.Vec3, id uint32, color, data math.Vec4) {
	var corners [8]math.Vec3
	for c := 0; c < 8; c++ {
		corners[c] = math.NewVec3(
			pick(c&1 != 0, hi.X, lo.X),
			pick(c&2 != 0, hi.Y, lo.Y),
			pick(c&4 != 0, hi.Z, lo.Z))
	}
	colors := [3]math.Vec4{color, color, color}
	datas := [3]math.Vec4{data, data, data}
	for _, f := range boxFaces {
		a, b, c, d := corners[f[0]], corners[f[1]], corners[f[2]], corners[f[3]]
		n := math.TriangleNormal(a, b, c)
		nn := [3]math.Vec3{n, n, n}
		s.addTriangle([3]math.Vec3{a, b, c}, nn, fanEdgeFlags(0, 4), id, colors, datas)
		s.addTriangle([3]math.Vec3{a, c, d}, nn, fanEdgeFlags(1, 4), id, colors, datas)
	}
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}

func (g *VolumeGrid) buildGridcubeSoup() *soup {
	s := &soup{}
	base := g.Color.ToVec4(1)
	col := newColoring(g.quantities, base)
	half := g.spacing().MulScalar(0.5 * g.CubeSizeFactor)
	nx, ny, nz := g.dims[0], g.dims[1], g.dims[2]

	switch {
	case col.q != nil && col.q.Domain() == quantities.DomainNode:
		for k := 0; k < nz; k++ {
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					n := g.NodeIndex(i, j, k)
					e := noElement()
					e.node = n
					color, data := col.sample(e)
					p := g.NodePosition(i, j, k)
					appendBox(s, p.Sub(half), p.Add(half), uint32(n), color, data)
				}
			}
		}
	case col.q != nil && col.q.Domain() == quantities.DomainCell:
		for k := 0; k < nz-1; k++ {
			for j := 0; j < ny-1; j++ {
				for i := 0; i < nx-1; i++ {
					c := g.CellIndex(i, j, k)
					e := noElement()
					e.cell = c
					color, data := col.sample(e)
					center := g.NodePosition(i, j, k).Add(g.spacing().MulScalar(0.5))
					appendBox(s, center.Sub(half), center.Add(half), uint32(c), color, data)
				}
			}
		}
	default:
		appendBox(s, g.boundMin, g.boundMax, 0, base, math.Vec4{})
	}
	return s
}

func (g *VolumeGrid) buildIsosurfaceSoup(q *quantities.ScalarQuantity) *soup {
	s := &soup{}
	iso := MarchingCubes(q.Values, g.dims, g.boundMin, g.boundMax, q.IsoValue)
	color := g.Color.ToVec4(1)
	for t, tri := range iso.Triangles {
		var p, n [3]math.Vec3
		for k, v := range tri {
			p[k] = iso.Vertices[v]
			n[k] = iso.Normals[v]
		}
		colors := [3]math.Vec4{color, color, color}
		s.addTriangle(p, n, [3]float32{}, uint32(iso.TriangleCell[t]), colors, [3]math.Vec4{})
	}
	return s
}

func (g *VolumeGrid) anchors(q quantities.Quantity) ([]math.Vec3, []math.Vec3) {
	v, ok := q.(*quantities.VectorQuantity)
	if !ok || q.Domain() != quantities.DomainNode {
		return nil, nil
	}
	pts := make([]math.Vec3, 0, g.NodeCount())
	for k := 0; k < g.dims[2]; k++ {
		for j := 0; j < g.dims[1]; j++ {
			for i := 0; i < g.dims[0]; i++ {
				pts = append(pts, g.NodePosition(i, j, k))
			}
		}
	}
	return pts, v.Vectors
}

func (g *VolumeGrid) Prepare(frame *Frame) error {
	key := quantityKey(g.quantities, frame.LengthScale)
	iso := g.isosurface()
	if g.render.stale(frame, key, g.dirty) {
		var surface *soup
		if iso != nil {
			surface = g.buildIsosurfaceSoup(iso)
		} else {
			surface = g.buildGridcubeSoup()
		}
		arrows := arrowSoup(quantities.ActiveVectors(g.quantities), frame.LengthScale, g.anchors)
		if err := g.render.upload(frame, "volume_grid_"+g.name, key, surface, arrows); err != nil {
			return err
		}
		g.dirty = false
	}

	if s := g.render.at(gridSoupSurface); s != nil {
		u := newStructureUniforms(g.transform, frame)
		u.BaseColor = g.Color.ToVec4(g.transparency)
		u.BackfaceColor = g.Color.ToVec4(float32(BackfaceIdentical))
		if iso == nil {
			u.EdgeColor = g.EdgeColor.ToVec4(g.EdgeWidth)
			u.applyColoring(quantities.ActiveColoring(g.quantities), frame.LengthScale)
		}
		if err := s.writeUniforms(frame, u); err != nil {
			return err
		}
	}
	if s := g.render.at(gridSoupArrows); s != nil {
		if err := s.writeUniforms(frame, arrowUniforms(g.transform, frame, g.transparency)); err != nil {
			return err
		}
	}
	return nil
}

func (g *VolumeGrid) Draw(frame *Frame) error {
	colormap := coloringColormap(quantities.ActiveColoring(g.quantities))
	if err := g.render.at(gridSoupSurface).draw(frame, metadata.ShaderKindMesh, g.material, colormap); err != nil {
		return err
	}
	return g.render.at(gridSoupArrows).draw(frame, metadata.ShaderKindMesh, g.material, quantities.DefaultColormap)
}

func (g *VolumeGrid) DrawPick(frame *Frame) error {
	return g.render.at(gridSoupSurface).draw(frame, metadata.ShaderKindMesh, g.material, "")
}

func (g *VolumeGrid) ClearGPUResources() {
	g.render.forget()
}

func (g *VolumeGrid) ReleaseGPUResources(backend renderer.RendererBackend) {
	g.render.release(backend)
}
