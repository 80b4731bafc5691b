package structures

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief How per-corner normals are chosen. */
type ShadeStyle int

const (
	/** @brief Interpolated area-weighted vertex normals. */
	ShadeSmooth ShadeStyle = iota
	/** @brief One normal per polygon. */
	ShadeFlat
	/** @brief One normal per fan triangle. */
	ShadeTriFlat
)

/** @brief How back faces are shown. */
type BackfacePolicy int

const (
	BackfaceIdentical BackfacePolicy = iota
	BackfaceDifferent
	BackfaceCustom
	BackfaceCull
)

// Slot in the mesh's soup set.
const (
	meshSoupSurface = iota
	meshSoupArrows
)

/**
 * @brief A polygon mesh. Faces are arbitrary polygons which get fan
 * triangulated; only real polygon edges show in the wireframe.
 */
type SurfaceMesh struct {
	structureBase

	vertices []math.Vec3
	faces    [][]uint32

	SurfaceColor   math.Vec3
	EdgeColor      math.Vec3
	EdgeWidth      float32
	ShowEdges      bool
	BackfaceColor  math.Vec3
	BackfacePolicy BackfacePolicy
	ShadeStyle     ShadeStyle

	needsRecompute bool
	triangles      [][3]uint32
	triangleFace   []int
	edgeIsReal     [][3]float32
	faceTriangles  [][2]int
	faceNormals    []math.Vec3
	triNormals     []math.Vec3
	vertexNormals  []math.Vec3
	edges          [][2]uint32
	edgeLookup     map[[2]uint32]int
	cornerStart    []int
	cornerCount    int

	render soupSet
}

/**
 * @brief Creates a mesh over vertices with polygon faces. Every face index
 * must reference an existing vertex.
 */
func NewSurfaceMesh(name string, vertices []math.Vec3, faces [][]uint32) (*SurfaceMesh, error) {
	if err := checkIndices(len(vertices), faces); err != nil {
		return nil, fmt.Errorf("surface mesh %q: %w", name, err)
	}
	m := &SurfaceMesh{
		structureBase:  newStructureBase(name, TypeSurfaceMesh),
		vertices:       vertices,
		faces:          faces,
		SurfaceColor:   math.NewVec3(0.35, 0.6, 0.9),
		EdgeColor:      math.NewVec3(0, 0, 0),
		EdgeWidth:      1,
		BackfaceColor:  math.NewVec3(0.6, 0.6, 0.6),
		BackfacePolicy: BackfaceIdentical,
		ShadeStyle:     ShadeFlat,
		needsRecompute: true,
	}
	m.counter = m.elementCount
	m.local = m.localBounds
	return m, nil
}

func checkIndices(vertexCount int, faces [][]uint32) error {
	for f, face := range faces {
		for _, v := range face {
			if int(v) >= vertexCount {
				return fmt.Errorf("face %d references vertex %d of %d", f, v, vertexCount)
			}
		}
	}
	return nil
}

func (m *SurfaceMesh) Vertices() []math.Vec3 {
	return m.vertices
}

func (m *SurfaceMesh) Faces() [][]uint32 {
	return m.faces
}

/**
 * @brief Replaces vertex positions. The vertex count cannot change.
 */
func (m *SurfaceMesh) UpdateVertexPositions(positions []math.Vec3) error {
	if len(positions) != len(m.vertices) {
		return fmt.Errorf("surface mesh %q positions: %w", m.name, core.NewSizeMismatch(len(m.vertices), len(positions)))
	}
	m.vertices = positions
	m.needsRecompute = true
	m.dirty = true
	return nil
}

func (m *SurfaceMesh) SetShadeStyle(style ShadeStyle) {
	if m.ShadeStyle != style {
		m.ShadeStyle = style
		m.dirty = true
	}
}

func (m *SurfaceMesh) elementCount(domain quantities.ElementDomain) (int, bool) {
	m.recompute()
	switch domain {
	case quantities.DomainVertex:
		return len(m.vertices), true
	case quantities.DomainFace:
		return len(m.faces), true
	case quantities.DomainEdge:
		return len(m.edges), true
	case quantities.DomainCorner:
		return m.cornerCount, true
	}
	return 0, false
}

func (m *SurfaceMesh) localBounds() (math.Extents3D, bool) {
	if len(m.vertices) == 0 {
		return math.Extents3D{}, false
	}
	return math.NewExtentsFromPoints(m.vertices), true
}

func (m *SurfaceMesh) PickDomain() quantities.ElementDomain {
	return quantities.DomainFace
}

/**
 * @brief Rebuilds the derived data when the geometry changed: fan
 * triangulation, edge flags, normals, edges and corner offsets.
 */
func (m *SurfaceMesh) recompute() {
	if !m.needsRecompute {
		return
	}
	m.needsRecompute = false

	m.triangles = m.triangles[:0]
	m.triangleFace = m.triangleFace[:0]
	m.edgeIsReal = m.edgeIsReal[:0]
	m.triNormals = m.triNormals[:0]
	m.faceTriangles = make([][2]int, len(m.faces))
	m.faceNormals = make([]math.Vec3, len(m.faces))
	m.vertexNormals = make([]math.Vec3, len(m.vertices))
	m.cornerStart = make([]int, len(m.faces))
	m.edges = m.edges[:0]
	m.edgeLookup = make(map[[2]uint32]int)
	m.cornerCount = 0

	for f, face := range m.faces {
		n := len(face)
		m.cornerStart[f] = m.cornerCount
		m.cornerCount += n

		start := len(m.triangles)
		for j := 0; j+2 < n; j++ {
			tri := [3]uint32{face[0], face[j+1], face[j+2]}
			m.triangles = append(m.triangles, tri)
			m.triangleFace = append(m.triangleFace, f)
			m.edgeIsReal = append(m.edgeIsReal, fanEdgeFlags(j, n))

			a, b, c := m.vertices[tri[0]], m.vertices[tri[1]], m.vertices[tri[2]]
			cross := b.Sub(a).Cross(c.Sub(a))
			m.triNormals = append(m.triNormals, cross.Normalized())
			// Area weighting: the unnormalized cross product is twice the area.
			for _, v := range face {
				m.vertexNormals[v] = m.vertexNormals[v].Add(cross)
			}
		}
		m.faceTriangles[f] = [2]int{start, len(m.triangles)}

		if n >= 3 {
			p0, p1, p2 := m.vertices[face[0]], m.vertices[face[1]], m.vertices[face[2]]
			m.faceNormals[f] = p1.Sub(p0).Cross(p2.Sub(p1)).Normalized()
		}
		for k := 0; k < n; k++ {
			m.addEdge(face[k], face[(k+1)%n])
		}
	}
	for i, n := range m.vertexNormals {
		m.vertexNormals[i] = n.Normalized()
	}
}

func (m *SurfaceMesh) addEdge(a, b uint32) {
	if a == b {
		return
	}
	key := edgeKey(a, b)
	if _, ok := m.edgeLookup[key]; ok {
		return
	}
	m.edgeLookup[key] = len(m.edges)
	m.edges = append(m.edges, key)
}

func edgeKey(a, b uint32) [2]uint32 {
	if a > b {
		a, b = b, a
	}
	return [2]uint32{a, b}
}

/** @brief The fan triangles, in face order. */
func (m *SurfaceMesh) Triangles() [][3]uint32 {
	m.recompute()
	return m.triangles
}

/** @brief The [start, end) range of face f's triangles. */
func (m *SurfaceMesh) FaceTriangleRange(f int) (int, int) {
	m.recompute()
	r := m.faceTriangles[f]
	return r[0], r[1]
}

/**
 * @brief Per-triangle polygon boundary flags. Slot i covers the edge from
 * corner i to corner i+1.
 */
func (m *SurfaceMesh) EdgeIsReal() [][3]float32 {
	m.recompute()
	return m.edgeIsReal
}

func (m *SurfaceMesh) FaceNormals() []math.Vec3 {
	m.recompute()
	return m.faceNormals
}

func (m *SurfaceMesh) VertexNormals() []math.Vec3 {
	m.recompute()
	return m.vertexNormals
}

/** @brief Unique polygon edges as (low, high) pairs in first-seen order. */
func (m *SurfaceMesh) Edges() [][2]uint32 {
	m.recompute()
	return m.edges
}

// EdgeIndex returns the index of edge (a, b) in either orientation.
func (m *SurfaceMesh) EdgeIndex(a, b uint32) (int, bool) {
	m.recompute()
	i, ok := m.edgeLookup[edgeKey(a, b)]
	return i, ok
}

func (m *SurfaceMesh) CornerStart(f int) int {
	m.recompute()
	return m.cornerStart[f]
}

func (m *SurfaceMesh) FaceCentroid(f int) math.Vec3 {
	face := m.faces[f]
	c := math.Vec3{}
	if len(face) == 0 {
		return c
	}
	for _, v := range face {
		c = c.Add(m.vertices[v])
	}
	return c.MulScalar(1 / float32(len(face)))
}

/**
 * @brief A tangent basis per face: X along the first edge, Y = n x X.
 */
func (m *SurfaceMesh) FaceTangentBasis() ([]math.Vec3, []math.Vec3) {
	m.recompute()
	bx := make([]math.Vec3, len(m.faces))
	by := make([]math.Vec3, len(m.faces))
	for f, face := range m.faces {
		if len(face) < 2 {
			continue
		}
		x := m.vertices[face[1]].Sub(m.vertices[face[0]]).Normalized()
		bx[f] = x
		by[f] = m.faceNormals[f].Cross(x)
	}
	return bx, by
}

/**
 * @brief A tangent basis per vertex: X is the first outgoing edge projected
 * into the tangent plane, Y = n x X.
 */
func (m *SurfaceMesh) VertexTangentBasis() ([]math.Vec3, []math.Vec3) {
	m.recompute()
	bx := make([]math.Vec3, len(m.vertices))
	by := make([]math.Vec3, len(m.vertices))
	seen := make([]bool, len(m.vertices))
	for _, face := range m.faces {
		for k, v := range face {
			if seen[v] {
				continue
			}
			seen[v] = true
			n := m.vertexNormals[v]
			e := m.vertices[face[(k+1)%len(face)]].Sub(m.vertices[v])
			x := e.Sub(n.MulScalar(n.Dot(e))).Normalized()
			if x.LengthSquared() == 0 {
				x = n.AnyPerpendicular()
			}
			bx[v] = x
			by[v] = n.Cross(x)
		}
	}
	return bx, by
}

/**
 * @brief Reconstructs a one-form as one tangent vector per face, by Whitney
 * interpolation at each fan triangle barycenter averaged by area. Fan
 * diagonals integrate along the polygon boundary from the first corner.
 */
func (m *SurfaceMesh) OneFormFaceVectors(q *quantities.OneFormQuantity) []math.Vec3 {
	m.recompute()
	out := make([]math.Vec3, len(m.faces))
	for f, face := range m.faces {
		n := len(face)
		if n < 3 {
			continue
		}
		// prefix[k] integrates face[0] -> face[k] along the boundary.
		prefix := make([]float32, n)
		for k := 1; k < n; k++ {
			e, ok := m.EdgeIndex(face[k-1], face[k])
			if !ok {
				continue
			}
			prefix[k] = prefix[k-1] + q.Along(e, face[k-1], face[k])
		}
		sum := math.Vec3{}
		area := float32(0)
		for j := 0; j+2 < n; j++ {
			p := [3]math.Vec3{m.vertices[face[0]], m.vertices[face[j+1]], m.vertices[face[j+2]]}
			w := [3]float32{
				prefix[j+1],
				prefix[j+2] - prefix[j+1],
				-prefix[j+2],
			}
			a := math.TriangleArea(p[0], p[1], p[2])
			sum = sum.Add(quantities.WhitneyAtBarycenter(p, w).MulScalar(a))
			area += a
		}
		if area > 0 {
			out[f] = sum.MulScalar(1 / area)
		}
	}
	return out
}

// vectorAnchors places arrows at vertices or face centroids.
func (m *SurfaceMesh) vectorAnchors(q quantities.Quantity) ([]math.Vec3, []math.Vec3) {
	var vecs []math.Vec3
	switch v := q.(type) {
	case *quantities.VectorQuantity:
		vecs = v.Vectors
	case *quantities.IntrinsicVectorQuantity:
		vecs = v.Vectors
	case *quantities.OneFormQuantity:
		vecs = m.OneFormFaceVectors(v)
		return m.faceCentroids(), vecs
	}
	switch q.Domain() {
	case quantities.DomainVertex:
		return m.vertices, vecs
	case quantities.DomainFace:
		return m.faceCentroids(), vecs
	}
	return nil, nil
}

func (m *SurfaceMesh) faceCentroids() []math.Vec3 {
	out := make([]math.Vec3, len(m.faces))
	for f := range m.faces {
		out[f] = m.FaceCentroid(f)
	}
	return out
}

func (m *SurfaceMesh) cornerNormal(t int, corner int) math.Vec3 {
	switch m.ShadeStyle {
	case ShadeSmooth:
		return m.vertexNormals[m.triangles[t][corner]]
	case ShadeTriFlat:
		return m.triNormals[t]
	}
	return m.faceNormals[m.triangleFace[t]]
}

func (m *SurfaceMesh) buildSurfaceSoup() *soup {
	s := &soup{}
	col := newColoring(m.quantities, m.SurfaceColor.ToVec4(1))
	for t, tri := range m.triangles {
		f := m.triangleFace[t]
		j := t - m.faceTriangles[f][0]
		cornerOffsets := [3]int{0, j + 1, j + 2}

		var p, n [3]math.Vec3
		var colors, data [3]math.Vec4
		for k := 0; k < 3; k++ {
			p[k] = m.vertices[tri[k]]
			n[k] = m.cornerNormal(t, k)
			e := noElement()
			e.vertex = int(tri[k])
			e.face = f
			e.corner = m.cornerStart[f] + cornerOffsets[k]
			colors[k], data[k] = col.sample(e)
		}
		s.addTriangle(p, n, m.edgeIsReal[t], uint32(f), colors, data)
	}
	return s
}

func (m *SurfaceMesh) edgeWidth() float32 {
	if !m.ShowEdges {
		return 0
	}
	return m.EdgeWidth
}

func (m *SurfaceMesh) Prepare(frame *Frame) error {
	m.recompute()
	key := fmt.Sprintf("%s|shade=%d", quantityKey(m.quantities, frame.LengthScale), m.ShadeStyle)
	if m.render.stale(frame, key, m.dirty) {
		arrows := arrowSoup(quantities.ActiveVectors(m.quantities), frame.LengthScale, m.vectorAnchors)
		if err := m.render.upload(frame, "surface_mesh_"+m.name, key, m.buildSurfaceSoup(), arrows); err != nil {
			return err
		}
		m.dirty = false
	}

	if g := m.render.at(meshSoupSurface); g != nil {
		u := newStructureUniforms(m.transform, frame)
		u.BaseColor = m.SurfaceColor.ToVec4(m.transparency)
		u.EdgeColor = m.EdgeColor.ToVec4(m.edgeWidth())
		u.BackfaceColor = m.BackfaceColor.ToVec4(float32(m.BackfacePolicy))
		u.applyColoring(quantities.ActiveColoring(m.quantities), frame.LengthScale)
		if err := g.writeUniforms(frame, u); err != nil {
			return err
		}
	}
	if g := m.render.at(meshSoupArrows); g != nil {
		if err := g.writeUniforms(frame, arrowUniforms(m.transform, frame, m.transparency)); err != nil {
			return err
		}
	}
	return nil
}

// arrowUniforms shades glyph soups with their per-vertex colors.
func arrowUniforms(model math.Mat4, frame *Frame, alpha float32) *structureUniforms {
	u := newStructureUniforms(model, frame)
	u.BaseColor = math.NewVec4(1, 1, 1, alpha)
	u.Params.X = colorModeColor
	return u
}

func (m *SurfaceMesh) Draw(frame *Frame) error {
	colormap := coloringColormap(quantities.ActiveColoring(m.quantities))
	if err := m.render.at(meshSoupSurface).draw(frame, metadata.ShaderKindMesh, m.material, colormap); err != nil {
		return err
	}
	return m.render.at(meshSoupArrows).draw(frame, metadata.ShaderKindMesh, m.material, quantities.DefaultColormap)
}

func (m *SurfaceMesh) DrawPick(frame *Frame) error {
	return m.render.at(meshSoupSurface).draw(frame, metadata.ShaderKindMesh, m.material, "")
}

func (m *SurfaceMesh) ClearGPUResources() {
	m.render.forget()
}

func (m *SurfaceMesh) ReleaseGPUResources(backend renderer.RendererBackend) {
	m.render.release(backend)
}
