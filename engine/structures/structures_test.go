package structures

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/null"
)

var (
	_ Structure = (*PointCloud)(nil)
	_ Structure = (*SurfaceMesh)(nil)
	_ Structure = (*CurveNetwork)(nil)
	_ Structure = (*VolumeMesh)(nil)
	_ Structure = (*VolumeGrid)(nil)
	_ Structure = (*CameraView)(nil)
)

type testResources struct {
	backend *null.Backend
	layout  metadata.BindGroupLayoutHandle
	gen     uint64
}

func (r *testResources) StructureLayout() metadata.BindGroupLayoutHandle {
	if r.gen != r.backend.Generation() {
		entries := []metadata.BindGroupLayoutEntry{{Binding: 0, Type: metadata.BindingTypeUniformBuffer}}
		for i := 1; i <= 5; i++ {
			entries = append(entries, metadata.BindGroupLayoutEntry{Binding: uint32(i), Type: metadata.BindingTypeStorageBuffer})
		}
		r.layout, _ = r.backend.BindGroupLayoutCreate(&metadata.BindGroupLayoutDescriptor{Label: "structure", Entries: entries})
		r.gen = r.backend.Generation()
	}
	return r.layout
}

func (r *testResources) Pipeline(kind metadata.ShaderKind, variant metadata.PassVariant) (metadata.PipelineHandle, error) {
	return metadata.PipelineHandle(1000 + int(kind)*10 + int(variant)), nil
}

func (r *testResources) MaterialBindGroup(material, colormap string) (metadata.BindGroupHandle, error) {
	return 999, nil
}

func newTestFrame(t *testing.T) (*Frame, *null.Backend) {
	t.Helper()
	b := null.New()
	require.NoError(t, b.Initialize(&metadata.RendererBackendConfig{ApplicationName: "structures", Width: 8, Height: 8, Headless: true}))
	require.NoError(t, b.BeginFrame())
	pass, err := b.RenderPassBegin(&metadata.RenderPassDescriptor{Label: "scene"})
	require.NoError(t, err)
	return &Frame{
		Backend:           b,
		Pass:              pass,
		Variant:           metadata.PassVariantScene,
		Resources:         &testResources{backend: b},
		View:              math.NewMat4Identity(),
		Projection:        math.NewMat4Identity(),
		LengthScale:       1,
		PickDiscriminator: 1,
	}, b
}

func drawCounts(b *null.Backend) []uint32 {
	var out []uint32
	for _, c := range b.Commands() {
		if c.Op == "draw" {
			out = append(out, c.Args[0])
		}
	}
	return out
}

func vec3Near(t *testing.T, expected, actual math.Vec3) {
	t.Helper()
	assert.True(t, expected.Compare(actual, 1e-5), "expected %v, got %v", expected, actual)
}

func TestTriangleRegistration(t *testing.T) {
	m, err := NewSurfaceMesh("tri", []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][]uint32{{0, 1, 2}})
	require.NoError(t, err)

	assert.Equal(t, [][3]uint32{{0, 1, 2}}, m.Triangles())
	vec3Near(t, math.NewVec3(0, 0, 1), m.FaceNormals()[0])
	for _, n := range m.VertexNormals() {
		vec3Near(t, math.NewVec3(0, 0, 1), n)
	}
	assert.ElementsMatch(t, [][2]uint32{{0, 1}, {0, 2}, {1, 2}}, m.Edges())
	assert.InDelta(t, math32.Sqrt(2), m.LengthScale(), 1e-6)
}

func TestQuadFan(t *testing.T) {
	m, err := NewSurfaceMesh("quad", []math.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, [][]uint32{{0, 1, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t, [][3]uint32{{0, 1, 2}, {0, 2, 3}}, m.Triangles())
	assert.Equal(t, [][3]float32{{1, 1, 0}, {0, 1, 1}}, m.EdgeIsReal())
	assert.ElementsMatch(t, [][2]uint32{{0, 1}, {1, 2}, {2, 3}, {0, 3}}, m.Edges())
	start, end := m.FaceTriangleRange(0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)

	corners, ok := m.ElementCount(quantities.DomainCorner)
	require.True(t, ok)
	assert.Equal(t, 4, corners)
}

func TestFanTriangulationInvariants(t *testing.T) {
	for n := 3; n <= 9; n++ {
		verts := make([]math.Vec3, n)
		face := make([]uint32, n)
		for i := range verts {
			a := 2 * math.K_PI * float32(i) / float32(n)
			verts[i] = math.NewVec3(math32.Cos(a), math32.Sin(a), 0)
			face[i] = uint32(i)
		}
		m, err := NewSurfaceMesh("poly", verts, [][]uint32{face})
		require.NoError(t, err)

		tris := m.Triangles()
		require.Len(t, tris, n-2)

		seen := map[uint32]bool{}
		realCount := map[[2]uint32]int{}
		for ti, tri := range tris {
			for k := 0; k < 3; k++ {
				seen[tri[k]] = true
				a, b := tri[k], tri[(k+1)%3]
				isPolygonEdge := (b == (a+1)%uint32(n)) || (a == (b+1)%uint32(n))
				flag := m.EdgeIsReal()[ti][k]
				if isPolygonEdge {
					assert.Equal(t, float32(1), flag, "n=%d tri=%d slot=%d", n, ti, k)
					realCount[edgeKey(a, b)]++
				} else {
					assert.Equal(t, float32(0), flag, "n=%d tri=%d slot=%d", n, ti, k)
				}
			}
		}
		assert.Len(t, seen, n)
		assert.Len(t, realCount, n)
		for e, c := range realCount {
			assert.Equal(t, 1, c, "edge %v", e)
		}
	}
}

func TestDegenerateFacesEmitNoTriangles(t *testing.T) {
	m, err := NewSurfaceMesh("deg", []math.Vec3{{0, 0, 0}, {1, 0, 0}}, [][]uint32{{0, 1}, {}})
	require.NoError(t, err)
	assert.Empty(t, m.Triangles())
	assert.Len(t, m.Edges(), 1)
}

func TestFaceIndexOutOfRange(t *testing.T) {
	_, err := NewSurfaceMesh("bad", []math.Vec3{{0, 0, 0}}, [][]uint32{{0, 1, 2}})
	assert.Error(t, err)
}

func TestBoundingBoxAfterTransform(t *testing.T) {
	pc := NewPointCloud("pts", []math.Vec3{{0, 0, 0}, {1, 2, 3}})
	tr := math.NewTransformFromPRS(
		math.NewVec3(5, 0, 0),
		math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.K_PI/2, true),
		math.NewVec3(2, 2, 2))
	pc.SetTransform(tr.GetLocal())

	local, ok := pc.LocalBoundingBox()
	require.True(t, ok)
	expected := math.NewExtentsEmpty()
	for _, c := range local.Corners() {
		expected = expected.Expand(c.Transform(pc.Transform()))
	}
	box, ok := pc.BoundingBox()
	require.True(t, ok)
	vec3Near(t, expected.Min, box.Min)
	vec3Near(t, expected.Max, box.Max)
}

func TestQuantityRegistration(t *testing.T) {
	m, err := NewSurfaceMesh("quad", []math.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, [][]uint32{{0, 1, 2, 3}})
	require.NoError(t, err)

	tests := []struct {
		name string
		q    quantities.Quantity
		err  error
	}{
		{"vertex scalar", quantities.NewScalarQuantity("height", quantities.DomainVertex, []float32{0, 1, 2, 3}), nil},
		{"short face scalar", quantities.NewScalarQuantity("area", quantities.DomainFace, []float32{}), core.ErrSizeMismatch},
		{"duplicate", quantities.NewScalarQuantity("height", quantities.DomainVertex, []float32{0, 1, 2, 3}), core.ErrQuantityExists},
		{"edge one-form", quantities.NewOneFormQuantity("flow", []float32{1, 1, 1, 1}, nil), nil},
		{"cell scalar", quantities.NewScalarQuantity("cells", quantities.DomainCell, []float32{1}), core.ErrSizeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.AddQuantity(tt.q)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}

	var mismatch *core.SizeMismatchError
	err = m.AddQuantity(quantities.NewColorQuantity("c", quantities.DomainVertex, make([]math.Vec3, 3)))
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)

	assert.ErrorIs(t, m.RemoveQuantity("missing"), core.ErrQuantityNotFound)
	assert.NoError(t, m.RemoveQuantity("height"))
	_, ok := m.Quantity("height")
	assert.False(t, ok)
}

func TestOneFormReconstructsExactField(t *testing.T) {
	verts := []math.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {2, 0.5, 0}}
	m, err := NewSurfaceMesh("m", verts, [][]uint32{{0, 1, 2, 3}, {1, 4, 2}})
	require.NoError(t, err)

	f := func(p math.Vec3) float32 { return 2*p.X + 3*p.Y }
	edges := m.Edges()
	values := make([]float32, len(edges))
	orient := make([]bool, len(edges))
	for i, e := range edges {
		values[i] = f(verts[e[1]]) - f(verts[e[0]])
		orient[i] = true
	}
	q := quantities.NewOneFormQuantity("df", values, orient)
	require.NoError(t, m.AddQuantity(q))

	for _, v := range m.OneFormFaceVectors(q) {
		assert.True(t, math.NewVec3(2, 3, 0).Compare(v, 1e-4), "got %v", v)
	}
}

func TestTangentBasesAreOrthonormal(t *testing.T) {
	m, err := NewSurfaceMesh("quad", []math.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, [][]uint32{{0, 1, 2, 3}})
	require.NoError(t, err)

	fx, fy := m.FaceTangentBasis()
	vec3Near(t, math.NewVec3(1, 0, 0), fx[0])
	vec3Near(t, math.NewVec3(0, 1, 0), fy[0])

	vx, vy := m.VertexTangentBasis()
	for i := range vx {
		assert.InDelta(t, 1, vx[i].Length(), 1e-5)
		assert.InDelta(t, 0, vx[i].Dot(vy[i]), 1e-5)
		assert.InDelta(t, 0, vx[i].Dot(m.VertexNormals()[i]), 1e-5)
	}
}

func TestPrepareRebuildsOnlyWhenNeeded(t *testing.T) {
	frame, b := newTestFrame(t)
	m, err := NewSurfaceMesh("tri", []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][]uint32{{0, 1, 2}})
	require.NoError(t, err)

	require.NoError(t, m.Prepare(frame))
	created := b.Count("buffer_create")
	assert.Equal(t, 6, created)

	require.NoError(t, m.Prepare(frame))
	assert.Equal(t, created, b.Count("buffer_create"))

	q := quantities.NewScalarQuantity("s", quantities.DomainVertex, []float32{0, 1, 2})
	require.NoError(t, m.AddQuantity(q))
	require.NoError(t, m.Prepare(frame))
	assert.Equal(t, 2*created, b.Count("buffer_create"))
	buffers, _, _ := b.LiveObjects()
	assert.Equal(t, 6, buffers)

	// Toggling a quantity changes the rebuild key without touching the mesh.
	q.SetEnabled(false)
	require.NoError(t, m.Prepare(frame))
	assert.Equal(t, 3*created, b.Count("buffer_create"))

	require.NoError(t, m.Draw(frame))
	assert.Equal(t, []uint32{3}, drawCounts(b))
}

func TestDeviceReplacementRebuilds(t *testing.T) {
	frame, b := newTestFrame(t)
	pc := NewPointCloud("pts", []math.Vec3{{0, 0, 0}, {1, 1, 1}})
	require.NoError(t, pc.Prepare(frame))

	require.NoError(t, b.Initialize(&metadata.RendererBackendConfig{Width: 8, Height: 8, Headless: true}))
	pc.ClearGPUResources()
	require.NoError(t, b.BeginFrame())
	pass, err := b.RenderPassBegin(&metadata.RenderPassDescriptor{Label: "scene"})
	require.NoError(t, err)
	frame.Pass = pass

	b.ResetCommands()
	require.NoError(t, pc.Prepare(frame))
	assert.Equal(t, 6, b.Count("buffer_create"))
	require.NoError(t, pc.Draw(frame))
	assert.Equal(t, []uint32{2 * pointImpostorVertices}, drawCounts(b))

	pc.ReleaseGPUResources(b)
	buffers, _, groups := b.LiveObjects()
	assert.Zero(t, buffers)
	assert.Zero(t, groups)
}

func TestVectorArrowsAreDrawn(t *testing.T) {
	frame, b := newTestFrame(t)
	pc := NewPointCloud("pts", []math.Vec3{{0, 0, 0}, {1, 1, 1}})
	require.NoError(t, pc.AddQuantity(quantities.NewVectorQuantity("v", quantities.DomainVertex, []math.Vec3{{1, 0, 0}, {0, 0, 0}})))
	require.NoError(t, pc.Prepare(frame))
	require.NoError(t, pc.Draw(frame))
	// The zero vector produces no arrow.
	assert.Equal(t, []uint32{2 * pointImpostorVertices, trianglesPerArrow * 3}, drawCounts(b))

	b.ResetCommands()
	frame.Variant = metadata.PassVariantPick
	require.NoError(t, pc.DrawPick(frame))
	assert.Equal(t, []uint32{2 * pointImpostorVertices}, drawCounts(b))
}

func TestCurveNetworkModes(t *testing.T) {
	frame, b := newTestFrame(t)
	c, err := NewCurveNetworkLine("line", []math.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}, true)
	require.NoError(t, err)
	assert.Len(t, c.Edges(), 3)
	assert.Equal(t, quantities.DomainEdge, c.PickDomain())

	require.NoError(t, c.Prepare(frame))
	require.NoError(t, c.Draw(frame))
	assert.Equal(t, []uint32{3 * 2 * lineVerticesPerEntry, 3 * pointImpostorVertices}, drawCounts(b))

	b.ResetCommands()
	c.SetMode(CurveModeLines)
	require.NoError(t, c.Prepare(frame))
	require.NoError(t, c.Draw(frame))
	assert.Equal(t, []uint32{3 * 6}, drawCounts(b))

	_, err = NewCurveNetwork("bad", []math.Vec3{{0, 0, 0}}, [][2]uint32{{0, 1}})
	assert.Error(t, err)
}

func TestCameraViewHasNoDomains(t *testing.T) {
	cv := NewCameraView("cam", NewCameraParameters(math.NewVec3(1, 2, 3), math.NewVec3(0, 0, -1), math.NewVec3(0, 1, 0), 60, 1.5))
	err := cv.AddQuantity(quantities.NewScalarQuantity("s", quantities.DomainVertex, nil))
	assert.ErrorIs(t, err, core.ErrSizeMismatch)
	assert.Equal(t, float32(0), cv.LengthScale())
	assert.Len(t, cv.FrustumSegments(1), 10)

	look, up, right := cv.Parameters().Basis()
	assert.InDelta(t, 0, look.Dot(up), 1e-6)
	assert.InDelta(t, 0, look.Dot(right), 1e-6)
}

func unitTet() ([]math.Vec3, [][4]uint32) {
	return []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [][4]uint32{{0, 1, 2, 3}}
}

func TestVolumeMeshExteriorFaces(t *testing.T) {
	t.Run("single tet", func(t *testing.T) {
		verts, tets := unitTet()
		vm, err := NewTetMesh("tet", verts, tets)
		require.NoError(t, err)
		faces := vm.ExteriorFaces()
		require.Len(t, faces, 4)
		center := math.NewVec3(0.25, 0.25, 0.25)
		for _, f := range faces {
			pts := []math.Vec3{verts[f[0]], verts[f[1]], verts[f[2]]}
			fc := pts[0].Add(pts[1]).Add(pts[2]).MulScalar(1.0 / 3)
			assert.Greater(t, math.PolygonNormal(pts).Dot(fc.Sub(center)), float32(0))
		}
	})
	t.Run("shared face", func(t *testing.T) {
		verts := []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, -1}}
		vm, err := NewTetMesh("pair", verts, [][4]uint32{{0, 1, 2, 3}, {0, 2, 1, 4}})
		require.NoError(t, err)
		assert.Len(t, vm.ExteriorFaces(), 6)
		assert.Len(t, vm.InteriorFaces(), 2)
	})
	t.Run("hex", func(t *testing.T) {
		var verts []math.Vec3
		for c := 0; c < 8; c++ {
			verts = append(verts, math.NewVec3(float32(c&1), float32(c>>1&1), float32(c>>2&1)))
		}
		vm, err := NewHexMesh("hex", verts, [][8]uint32{{0, 1, 3, 2, 4, 5, 7, 6}})
		require.NoError(t, err)
		assert.Len(t, vm.ExteriorFaces(), 6)
		tets, owners := vm.Tets()
		assert.Len(t, tets, 6)
		assert.Equal(t, []int{0, 0, 0, 0, 0, 0}, owners)
		total := float32(0)
		for _, tet := range tets {
			total += math32.Abs(math.TetVolume(verts[tet[0]], verts[tet[1]], verts[tet[2]], verts[tet[3]]))
		}
		assert.InDelta(t, 1, total, 1e-5)
	})
}

func TestSliceCapsOnTet(t *testing.T) {
	verts, tets := unitTet()
	values := []float32{0, 1, 2, 3}

	t.Run("one vertex clipped", func(t *testing.T) {
		caps := ComputeSliceCaps(verts, tets, []int{0}, math.NewVec3(0, 0.5, 0), math.NewVec3(0, 1, 0))
		require.Len(t, caps, 1)
		c := caps[0]
		require.Len(t, c.Points, 3)
		for _, p := range c.Points {
			assert.InDelta(t, 0.5, p.Y, 1e-6)
		}
		for i, e := range c.Edges {
			assert.Equal(t, uint32(2), e[0])
			assert.InDelta(t, 0.5, c.T[i], 1e-6)
		}
		assert.ElementsMatch(t, []float32{1, 1.5, 2.5}, c.Interpolate(values))
		assert.Greater(t, math.PolygonNormal(c.Points).Y, float32(0))
	})
	t.Run("two vertices clipped", func(t *testing.T) {
		n := math.NewVec3(1, 1, 0).Normalized()
		caps := ComputeSliceCaps(verts, tets, []int{0}, math.NewVec3(0.25, 0.25, 0), n)
		require.Len(t, caps, 1)
		c := caps[0]
		require.Len(t, c.Points, 4)
		for _, p := range c.Points {
			assert.InDelta(t, 0.5, p.X+p.Y, 1e-6)
		}
		assert.Greater(t, math.PolygonNormal(c.Points).Dot(n), float32(0))
		interp := c.Interpolate(values)
		for i, e := range c.Edges {
			expected := values[e[0]] + (values[e[1]]-values[e[0]])*c.T[i]
			assert.InDelta(t, expected, interp[i], 1e-6)
		}
	})
	t.Run("plane misses", func(t *testing.T) {
		caps := ComputeSliceCaps(verts, tets, []int{0}, math.NewVec3(0, 2, 0), math.NewVec3(0, 1, 0))
		assert.Empty(t, caps)
	})
}

func TestSliceCapsAreDrawnWithPlanes(t *testing.T) {
	frame, b := newTestFrame(t)
	verts, tets := unitTet()
	vm, err := NewTetMesh("tet", verts, tets)
	require.NoError(t, err)
	require.NoError(t, vm.AddQuantity(quantities.NewScalarQuantity("s", quantities.DomainVertex, []float32{0, 1, 2, 3})))

	require.NoError(t, vm.Prepare(frame))
	require.NoError(t, vm.Draw(frame))
	assert.Equal(t, []uint32{12}, drawCounts(b))

	b.ResetCommands()
	frame.SlicePlanes = []SlicePlane{{Origin: math.NewVec3(0, 0.5, 0), Normal: math.NewVec3(0, 1, 0)}}
	require.NoError(t, vm.Prepare(frame))
	require.NoError(t, vm.Draw(frame))
	assert.Equal(t, []uint32{12, 3}, drawCounts(b))
}

func TestMarchingCubesTable(t *testing.T) {
	assert.Empty(t, marchingCubesCase(0))
	assert.Empty(t, marchingCubesCase(255))
	assert.Len(t, marchingCubesCase(1), 1)
	assert.Len(t, marchingCubesCase(3), 2)
	for config := 1; config < 255; config++ {
		assert.NotEmpty(t, marchingCubesCase(config), "config %d", config)
	}
}

func TestMarchingCubesSingleCorner(t *testing.T) {
	values := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	iso := MarchingCubes(values, [3]int{2, 2, 2}, math.NewVec3(0, 0, 0), math.NewVec3(1, 1, 1), 0.5)
	require.Len(t, iso.Triangles, 1)
	require.Len(t, iso.Vertices, 3)
	for _, v := range iso.Vertices {
		assert.InDelta(t, 0.5, v.X+v.Y+v.Z, 1e-6)
	}
	tri := iso.Triangles[0]
	n := math.TriangleNormal(iso.Vertices[tri[0]], iso.Vertices[tri[1]], iso.Vertices[tri[2]])
	// Away from the inside corner at the origin.
	assert.Greater(t, n.X+n.Y+n.Z, float32(0))
}

func TestMarchingCubesSphere(t *testing.T) {
	const n = 16
	lo, hi := math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1)
	values := make([]float32, n*n*n)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				p := lo.Add(hi.Sub(lo).Mul(math.NewVec3(float32(i), float32(j), float32(k)).MulScalar(1.0 / (n - 1))))
				values[i+n*(j+n*k)] = 0.7 - p.Length()
			}
		}
	}
	iso := MarchingCubes(values, [3]int{n, n, n}, lo, hi, 0)
	require.NotEmpty(t, iso.Triangles)

	directed := map[[2]uint32]int{}
	volume := float32(0)
	for _, tri := range iso.Triangles {
		for k := 0; k < 3; k++ {
			directed[[2]uint32{tri[k], tri[(k+1)%3]}]++
		}
		a, b, c := iso.Vertices[tri[0]], iso.Vertices[tri[1]], iso.Vertices[tri[2]]
		volume += a.Dot(b.Cross(c)) / 6
	}
	for e, count := range directed {
		assert.Equal(t, 1, count, "directed edge %v", e)
		assert.Equal(t, 1, directed[[2]uint32{e[1], e[0]}], "edge %v has no twin", e)
	}
	expected := 4.0 / 3.0 * math.K_PI * 0.7 * 0.7 * 0.7
	assert.InDelta(t, float64(expected), float64(volume), float64(expected)*0.1)

	for i, v := range iso.Vertices {
		assert.InDelta(t, 0.7, v.Length(), 0.05)
		assert.Greater(t, iso.Normals[i].Dot(v), float32(0))
	}
}

func TestVolumeGridDomainsAndModes(t *testing.T) {
	frame, b := newTestFrame(t)
	g, err := NewVolumeGrid("grid", [3]int{3, 3, 3}, math.NewVec3(0, 0, 0), math.NewVec3(2, 2, 2))
	require.NoError(t, err)

	nodes, _ := g.ElementCount(quantities.DomainNode)
	cells, _ := g.ElementCount(quantities.DomainCell)
	assert.Equal(t, 27, nodes)
	assert.Equal(t, 8, cells)
	vec3Near(t, math.NewVec3(1, 2, 0), g.NodePosition(1, 2, 0))
	assert.Equal(t, quantities.DomainCell, g.PickDomain())

	values := make([]float32, nodes)
	values[g.NodeIndex(1, 1, 1)] = 1
	q := quantities.NewScalarQuantity("f", quantities.DomainNode, values)
	require.NoError(t, g.AddQuantity(q))
	assert.Equal(t, quantities.DomainNode, g.PickDomain())

	require.NoError(t, g.Prepare(frame))
	require.NoError(t, g.Draw(frame))
	assert.Equal(t, []uint32{27 * 36}, drawCounts(b))

	b.ResetCommands()
	q.VizMode = quantities.GridVizIsosurface
	q.IsoValue = 0.5
	assert.Equal(t, quantities.DomainCell, g.PickDomain())
	require.NoError(t, g.Prepare(frame))
	require.NoError(t, g.Draw(frame))
	counts := drawCounts(b)
	require.Len(t, counts, 1)
	// Each of the eight cells touching the center node cuts one corner.
	assert.Equal(t, uint32(8*3), counts[0])

	_, err = NewVolumeGrid("flat", [3]int{1, 3, 3}, math.NewVec3(0, 0, 0), math.NewVec3(1, 1, 1))
	assert.Error(t, err)
}
