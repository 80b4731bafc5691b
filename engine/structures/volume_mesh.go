package structures

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief Marks the unused slots of a tetrahedron stored in an 8-slot cell. */
const CellSentinel = ^uint32(0)

// Local faces of each cell type, wound outward for positively oriented cells.
var (
	tetFaces = [][]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}}
	hexFaces = [][]int{
		{0, 3, 2, 1}, {4, 5, 6, 7},
		{0, 1, 5, 4}, {1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
	}
	// Six tets around the 0-6 diagonal.
	hexTets = [][4]int{
		{0, 1, 2, 6}, {0, 2, 3, 6}, {0, 3, 7, 6},
		{0, 7, 4, 6}, {0, 4, 5, 6}, {0, 5, 1, 6},
	}
)

type volumeFace struct {
	verts []uint32
	cell  int
}

/**
 * @brief A mesh of tetrahedra and hexahedra. The exterior surface is drawn
 * directly; slice planes cut the cells and render capping polygons.
 */
type VolumeMesh struct {
	structureBase

	vertices []math.Vec3
	cells    [][8]uint32

	Color         math.Vec3
	InteriorColor math.Vec3
	EdgeColor     math.Vec3
	EdgeWidth     float32
	ShowEdges     bool

	needsRecompute bool
	exterior       []volumeFace
	interior       []volumeFace
	tets           [][4]uint32
	tetCell        []int

	render soupSet
	caps   soupSet
}

/**
 * @brief Creates a mesh from 8-slot cells. Tetrahedra fill slots 4..7 with
 * CellSentinel.
 */
func NewVolumeMesh(name string, vertices []math.Vec3, cells [][8]uint32) (*VolumeMesh, error) {
	for c, cell := range cells {
		n := cellSize(cell)
		for _, v := range cell[:n] {
			if int(v) >= len(vertices) {
				return nil, fmt.Errorf("volume mesh %q: cell %d references vertex %d of %d", name, c, v, len(vertices))
			}
		}
	}
	vm := &VolumeMesh{
		structureBase:  newStructureBase(name, TypeVolumeMesh),
		vertices:       vertices,
		cells:          cells,
		Color:          math.NewVec3(0.9, 0.75, 0.3),
		InteriorColor:  math.NewVec3(0.7, 0.55, 0.2),
		EdgeColor:      math.NewVec3(0, 0, 0),
		EdgeWidth:      1,
		ShowEdges:      true,
		needsRecompute: true,
	}
	vm.counter = vm.elementCount
	vm.local = vm.localBounds
	return vm, nil
}

func NewTetMesh(name string, vertices []math.Vec3, tets [][4]uint32) (*VolumeMesh, error) {
	cells := make([][8]uint32, len(tets))
	for i, t := range tets {
		cells[i] = [8]uint32{t[0], t[1], t[2], t[3], CellSentinel, CellSentinel, CellSentinel, CellSentinel}
	}
	return NewVolumeMesh(name, vertices, cells)
}

func NewHexMesh(name string, vertices []math.Vec3, hexes [][8]uint32) (*VolumeMesh, error) {
	return NewVolumeMesh(name, vertices, hexes)
}

func cellSize(cell [8]uint32) int {
	if cell[4] == CellSentinel {
		return 4
	}
	return 8
}

func (vm *VolumeMesh) Vertices() []math.Vec3 {
	return vm.vertices
}

func (vm *VolumeMesh) Cells() [][8]uint32 {
	return vm.cells
}

func (vm *VolumeMesh) UpdateVertexPositions(positions []math.Vec3) error {
	if len(positions) != len(vm.vertices) {
		return fmt.Errorf("volume mesh %q positions: %w", vm.name, core.NewSizeMismatch(len(vm.vertices), len(positions)))
	}
	vm.vertices = positions
	vm.needsRecompute = true
	vm.dirty = true
	return nil
}

func (vm *VolumeMesh) elementCount(domain quantities.ElementDomain) (int, bool) {
	switch domain {
	case quantities.DomainVertex:
		return len(vm.vertices), true
	case quantities.DomainCell:
		return len(vm.cells), true
	}
	return 0, false
}

func (vm *VolumeMesh) localBounds() (math.Extents3D, bool) {
	if len(vm.vertices) == 0 {
		return math.Extents3D{}, false
	}
	return math.NewExtentsFromPoints(vm.vertices), true
}

func (vm *VolumeMesh) PickDomain() quantities.ElementDomain {
	return quantities.DomainCell
}

func (vm *VolumeMesh) cellCentroid(cell [8]uint32) math.Vec3 {
	n := cellSize(cell)
	c := math.Vec3{}
	for _, v := range cell[:n] {
		c = c.Add(vm.vertices[v])
	}
	return c.MulScalar(1 / float32(n))
}

func (vm *VolumeMesh) recompute() {
	if !vm.needsRecompute {
		return
	}
	vm.needsRecompute = false

	type faceKey [4]uint32
	counts := make(map[faceKey]int)
	var all []volumeFace
	var keys []faceKey

	vm.tets = vm.tets[:0]
	vm.tetCell = vm.tetCell[:0]
	for c, cell := range vm.cells {
		local := hexFaces
		if cellSize(cell) == 4 {
			local = tetFaces
			vm.tets = append(vm.tets, [4]uint32{cell[0], cell[1], cell[2], cell[3]})
			vm.tetCell = append(vm.tetCell, c)
		} else {
			for _, t := range hexTets {
				vm.tets = append(vm.tets, [4]uint32{cell[t[0]], cell[t[1]], cell[t[2]], cell[t[3]]})
				vm.tetCell = append(vm.tetCell, c)
			}
		}
		centroid := vm.cellCentroid(cell)
		for _, lf := range local {
			verts := make([]uint32, len(lf))
			pts := make([]math.Vec3, len(lf))
			for i, l := range lf {
				verts[i] = cell[l]
				pts[i] = vm.vertices[cell[l]]
			}
			// Orient outward regardless of the cell's handedness.
			fc := math.Vec3{}
			for _, p := range pts {
				fc = fc.Add(p)
			}
			fc = fc.MulScalar(1 / float32(len(pts)))
			if math.PolygonNormal(pts).Dot(fc.Sub(centroid)) < 0 {
				for i, j := 0, len(verts)-1; i < j; i, j = i+1, j-1 {
					verts[i], verts[j] = verts[j], verts[i]
				}
			}

			key := faceKey{CellSentinel, CellSentinel, CellSentinel, CellSentinel}
			sorted := append([]uint32(nil), verts...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			copy(key[:], sorted)
			counts[key]++
			all = append(all, volumeFace{verts: verts, cell: c})
			keys = append(keys, key)
		}
	}

	vm.exterior = vm.exterior[:0]
	vm.interior = vm.interior[:0]
	for i, f := range all {
		if counts[keys[i]] == 1 {
			vm.exterior = append(vm.exterior, f)
		} else {
			vm.interior = append(vm.interior, f)
		}
	}
}

/** @brief Boundary faces as outward-wound vertex loops. */
func (vm *VolumeMesh) ExteriorFaces() [][]uint32 {
	vm.recompute()
	out := make([][]uint32, len(vm.exterior))
	for i, f := range vm.exterior {
		out[i] = f.verts
	}
	return out
}

/** @brief Faces shared by two cells, once per owning cell. */
func (vm *VolumeMesh) InteriorFaces() [][]uint32 {
	vm.recompute()
	out := make([][]uint32, len(vm.interior))
	for i, f := range vm.interior {
		out[i] = f.verts
	}
	return out
}

/** @brief The cells split into tetrahedra, with the owning cell of each. */
func (vm *VolumeMesh) Tets() ([][4]uint32, []int) {
	vm.recompute()
	return vm.tets, vm.tetCell
}

func (vm *VolumeMesh) buildSurfaceSoup() *soup {
	s := &soup{}
	col := newColoring(vm.quantities, vm.Color.ToVec4(1))
	for _, f := range vm.exterior {
		pts := make([]math.Vec3, len(f.verts))
		for i, v := range f.verts {
			pts[i] = vm.vertices[v]
		}
		n := math.PolygonNormal(pts)
		for j := 0; j+2 < len(f.verts); j++ {
			idx := [3]int{0, j + 1, j + 2}
			flags := fanEdgeFlags(j, len(f.verts))
			var p, nn [3]math.Vec3
			var colors, data [3]math.Vec4
			for k, i := range idx {
				p[k] = pts[i]
				nn[k] = n
				e := noElement()
				e.vertex = int(f.verts[i])
				e.cell = f.cell
				colors[k], data[k] = col.sample(e)
			}
			s.addTriangle(p, nn, flags, uint32(f.cell), colors, data)
		}
	}
	return s
}

// fanEdgeFlags marks the real polygon edges of fan triangle j of an n-gon.
func fanEdgeFlags(j, n int) [3]float32 {
	flags := [3]float32{0, 1, 0}
	if j == 0 {
		flags[0] = 1
	}
	if j == n-3 {
		flags[2] = 1
	}
	return flags
}

/**
 * @brief One polygon of a slice cap. Point i lies a fraction T[i] of the way
 * along the mesh edge Edges[i].
 */
type CapPolygon struct {
	Points []math.Vec3
	Edges  [][2]uint32
	T      []float32
	Cell   int
}

// Interpolate evaluates per-vertex values at the cap points.
func (c CapPolygon) Interpolate(values []float32) []float32 {
	out := make([]float32, len(c.Points))
	for i, e := range c.Edges {
		out[i] = math.Lerp(values[e[0]], values[e[1]], c.T[i])
	}
	return out
}

/**
 * @brief Cuts every tet with the plane (origin, normal) and returns the
 * cross-section polygons wound to face +normal. Vertices on the positive
 * side are the clipped ones.
 */
func ComputeSliceCaps(vertices []math.Vec3, tets [][4]uint32, tetCell []int, origin, normal math.Vec3) []CapPolygon {
	var out []CapPolygon
	for ti, tet := range tets {
		var above, below []uint32
		var d [4]float32
		for i, v := range tet {
			d[i] = math.PointPlaneDistance(vertices[v], origin, normal)
		}
		dist := make(map[uint32]float32, 4)
		for i, v := range tet {
			dist[v] = d[i]
			if d[i] > 0 {
				above = append(above, v)
			} else {
				below = append(below, v)
			}
		}
		if len(above) == 0 || len(below) == 0 {
			continue
		}

		var edges [][2]uint32
		switch {
		case len(above) == 1:
			for _, b := range below {
				edges = append(edges, [2]uint32{above[0], b})
			}
		case len(below) == 1:
			for _, a := range above {
				edges = append(edges, [2]uint32{a, below[0]})
			}
		default:
			a1, a2 := above[0], above[1]
			b1, b2 := below[0], below[1]
			edges = [][2]uint32{{a1, b1}, {a1, b2}, {a2, b2}, {a2, b1}}
		}

		poly := CapPolygon{Cell: ti}
		if ti < len(tetCell) {
			poly.Cell = tetCell[ti]
		}
		for _, e := range edges {
			da, db := dist[e[0]], dist[e[1]]
			t := da / (da - db)
			poly.Points = append(poly.Points, vertices[e[0]].Lerp(vertices[e[1]], t))
			poly.Edges = append(poly.Edges, e)
			poly.T = append(poly.T, t)
		}
		if math.PolygonNormal(poly.Points).Dot(normal) < 0 {
			reverseCap(&poly)
		}
		out = append(out, poly)
	}
	return out
}

func reverseCap(p *CapPolygon) {
	for i, j := 0, len(p.Points)-1; i < j; i, j = i+1, j-1 {
		p.Points[i], p.Points[j] = p.Points[j], p.Points[i]
		p.Edges[i], p.Edges[j] = p.Edges[j], p.Edges[i]
		p.T[i], p.T[j] = p.T[j], p.T[i]
	}
}

/**
 * @brief Slice caps in world space for every plane of the frame.
 */
func (vm *VolumeMesh) SliceCaps(planes []SlicePlane) []CapPolygon {
	vm.recompute()
	world := make([]math.Vec3, len(vm.vertices))
	for i, v := range vm.vertices {
		world[i] = v.Transform(vm.transform)
	}
	var out []CapPolygon
	for _, p := range planes {
		out = append(out, ComputeSliceCaps(world, vm.tets, vm.tetCell, p.Origin, p.Normal.Normalized())...)
	}
	return out
}

func (vm *VolumeMesh) buildCapSoup(caps []CapPolygon) *soup {
	s := &soup{}
	col := newColoring(vm.quantities, vm.InteriorColor.ToVec4(1))
	for _, c := range caps {
		n := math.PolygonNormal(c.Points)
		for j := 0; j+2 < len(c.Points); j++ {
			idx := [3]int{0, j + 1, j + 2}
			var p, nn [3]math.Vec3
			var colors, data [3]math.Vec4
			for k, i := range idx {
				p[k] = c.Points[i]
				nn[k] = n
				a, b := noElement(), noElement()
				a.vertex, b.vertex = int(c.Edges[i][0]), int(c.Edges[i][1])
				a.cell, b.cell = c.Cell, c.Cell
				colors[k], data[k] = col.sampleBetween(a, b, c.T[i])
			}
			s.addTriangle(p, nn, fanEdgeFlags(j, len(c.Points)), uint32(c.Cell), colors, data)
		}
	}
	return s
}

func (vm *VolumeMesh) anchors(q quantities.Quantity) ([]math.Vec3, []math.Vec3) {
	var vecs []math.Vec3
	switch v := q.(type) {
	case *quantities.VectorQuantity:
		vecs = v.Vectors
	case *quantities.IntrinsicVectorQuantity:
		vecs = v.Vectors
	default:
		return nil, nil
	}
	if q.Domain() == quantities.DomainCell {
		centroids := make([]math.Vec3, len(vm.cells))
		for i, c := range vm.cells {
			centroids[i] = vm.cellCentroid(c)
		}
		return centroids, vecs
	}
	return vm.vertices, vecs
}

func (vm *VolumeMesh) baseUniforms(frame *Frame, model math.Mat4, color math.Vec3) *structureUniforms {
	u := newStructureUniforms(model, frame)
	u.BaseColor = color.ToVec4(vm.transparency)
	width := float32(0)
	if vm.ShowEdges {
		width = vm.EdgeWidth
	}
	u.EdgeColor = vm.EdgeColor.ToVec4(width)
	u.BackfaceColor = vm.Color.ToVec4(float32(BackfaceIdentical))
	u.applyColoring(quantities.ActiveColoring(vm.quantities), frame.LengthScale)
	return u
}

func (vm *VolumeMesh) Prepare(frame *Frame) error {
	vm.recompute()
	key := quantityKey(vm.quantities, frame.LengthScale)
	if vm.render.stale(frame, key, vm.dirty) {
		arrows := arrowSoup(quantities.ActiveVectors(vm.quantities), frame.LengthScale, vm.anchors)
		if err := vm.render.upload(frame, "volume_mesh_"+vm.name, key, vm.buildSurfaceSoup(), arrows); err != nil {
			return err
		}
		// Caps depend on the same data.
		vm.caps.release(frame.Backend)
		vm.dirty = false
	}

	capKey := fmt.Sprintf("%s%s|%v", key, sliceKey(frame.SlicePlanes), vm.transform.Data)
	if len(frame.SlicePlanes) == 0 {
		vm.caps.release(frame.Backend)
	} else if vm.caps.stale(frame, capKey, false) {
		caps := vm.SliceCaps(frame.SlicePlanes)
		if err := vm.caps.upload(frame, "volume_mesh_caps_"+vm.name, capKey, vm.buildCapSoup(caps)); err != nil {
			return err
		}
	}

	if g := vm.render.at(0); g != nil {
		if err := g.writeUniforms(frame, vm.baseUniforms(frame, vm.transform, vm.Color)); err != nil {
			return err
		}
	}
	if g := vm.render.at(1); g != nil {
		if err := g.writeUniforms(frame, arrowUniforms(vm.transform, frame, vm.transparency)); err != nil {
			return err
		}
	}
	if g := vm.caps.at(0); g != nil {
		// Caps are built in world space.
		if err := g.writeUniforms(frame, vm.baseUniforms(frame, math.NewMat4Identity(), vm.InteriorColor)); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VolumeMesh) Draw(frame *Frame) error {
	colormap := coloringColormap(quantities.ActiveColoring(vm.quantities))
	if err := vm.render.at(0).draw(frame, metadata.ShaderKindMesh, vm.material, colormap); err != nil {
		return err
	}
	if err := vm.caps.at(0).draw(frame, metadata.ShaderKindMesh, vm.material, colormap); err != nil {
		return err
	}
	return vm.render.at(1).draw(frame, metadata.ShaderKindMesh, vm.material, quantities.DefaultColormap)
}

func (vm *VolumeMesh) DrawPick(frame *Frame) error {
	if err := vm.render.at(0).draw(frame, metadata.ShaderKindMesh, vm.material, ""); err != nil {
		return err
	}
	return vm.caps.at(0).draw(frame, metadata.ShaderKindMesh, vm.material, "")
}

func (vm *VolumeMesh) ClearGPUResources() {
	vm.render.forget()
	vm.caps.forget()
}

func (vm *VolumeMesh) ReleaseGPUResources(backend renderer.RendererBackend) {
	vm.render.release(backend)
	vm.caps.release(backend)
}
