package structures

import (
	"sync"

	"github.com/spaghettifunk/prism/engine/math"
)

// Cube corner i sits at (i&1, i>>1&1, i>>2&1).
var (
	cubeEdges      [12][2]int
	cubeEdgeLookup = map[[2]int]int{}
	mcTable        [256][][3]int
	mcTableOnce    sync.Once
)

func init() {
	n := 0
	for _, bit := range []int{1, 2, 4} {
		for a := 0; a < 8; a++ {
			if a&bit != 0 {
				continue
			}
			cubeEdges[n] = [2]int{a, a | bit}
			cubeEdgeLookup[[2]int{a, a | bit}] = n
			n++
		}
	}
}

func cubeEdge(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return cubeEdgeLookup[[2]int{a, b}]
}

// cubeFaces lists the six faces as cyclic corner loops.
func cubeFaces() [6][4]int {
	var faces [6][4]int
	i := 0
	for _, axis := range []int{1, 2, 4} {
		var others []int
		for _, b := range []int{1, 2, 4} {
			if b != axis {
				others = append(others, b)
			}
		}
		u, v := others[0], others[1]
		for _, val := range []int{0, axis} {
			faces[i] = [4]int{val, val | u, val | u | v, val | v}
			i++
		}
	}
	return faces
}

/**
 * @brief Builds the triangle table by walking the cube faces. On each face
 * the crossing edges are joined into segments; a face with four crossings
 * cuts each inside corner off on its own. Segments chain into loops that
 * are fan triangulated and wound so normals point away from the inside.
 */
func buildMarchingCubesTable() {
	faces := cubeFaces()
	for config := 0; config < 256; config++ {
		inside := func(c int) bool { return config&(1<<c) != 0 }

		adjacency := map[int][]int{}
		link := func(a, b int) {
			adjacency[a] = append(adjacency[a], b)
			adjacency[b] = append(adjacency[b], a)
		}
		for _, f := range faces {
			var crossing []int
			for k := 0; k < 4; k++ {
				a, b := f[k], f[(k+1)%4]
				if inside(a) != inside(b) {
					crossing = append(crossing, cubeEdge(a, b))
				}
			}
			switch len(crossing) {
			case 2:
				link(crossing[0], crossing[1])
			case 4:
				for k := 0; k < 4; k++ {
					if inside(f[k]) {
						prev := cubeEdge(f[(k+3)%4], f[k])
						next := cubeEdge(f[k], f[(k+1)%4])
						link(prev, next)
					}
				}
			}
		}

		visited := map[int]bool{}
		for e := 0; e < 12; e++ {
			if visited[e] || len(adjacency[e]) == 0 {
				continue
			}
			loop := []int{e}
			visited[e] = true
			prev, cur := -1, e
			for {
				next := -1
				for _, cand := range adjacency[cur] {
					if cand != prev && !visited[cand] {
						next = cand
						break
					}
				}
				if next < 0 {
					break
				}
				visited[next] = true
				loop = append(loop, next)
				prev, cur = cur, next
			}
			mcTable[config] = append(mcTable[config], orientLoop(loop, inside)...)
		}
	}
}

func cornerPosition(c int) math.Vec3 {
	return math.NewVec3(float32(c&1), float32(c>>1&1), float32(c>>2&1))
}

func orientLoop(loop []int, inside func(int) bool) [][3]int {
	pts := make([]math.Vec3, len(loop))
	center := math.Vec3{}
	insideCenter := math.Vec3{}
	for i, e := range loop {
		a, b := cubeEdges[e][0], cubeEdges[e][1]
		pts[i] = cornerPosition(a).Lerp(cornerPosition(b), 0.5)
		center = center.Add(pts[i])
		if inside(a) {
			insideCenter = insideCenter.Add(cornerPosition(a))
		} else {
			insideCenter = insideCenter.Add(cornerPosition(b))
		}
	}
	scale := 1 / float32(len(loop))
	center = center.MulScalar(scale)
	insideCenter = insideCenter.MulScalar(scale)

	flip := math.PolygonNormal(pts).Dot(center.Sub(insideCenter)) < 0
	var tris [][3]int
	for j := 0; j+2 < len(loop); j++ {
		t := [3]int{loop[0], loop[j+1], loop[j+2]}
		if flip {
			t[1], t[2] = t[2], t[1]
		}
		tris = append(tris, t)
	}
	return tris
}

// marchingCubesCase returns the triangles, as cube edge triples, for a corner configuration.
func marchingCubesCase(config int) [][3]int {
	mcTableOnce.Do(buildMarchingCubesTable)
	return mcTable[config]
}

/**
 * @brief An indexed isosurface. Vertex i lies on the grid edge between
 * nodes VertexNodes[i] at fraction VertexT[i]; TriangleCell is the cell
 * each triangle came from.
 */
type IsoMesh struct {
	Vertices     []math.Vec3
	Normals      []math.Vec3
	Triangles    [][3]uint32
	TriangleCell []int
	VertexNodes  [][2]int
	VertexT      []float32
}

/**
 * @brief Extracts the surface value == iso from node values on a regular
 * grid. Nodes with value > iso are inside; normals point outward.
 */
func MarchingCubes(values []float32, dims [3]int, boundMin, boundMax math.Vec3, iso float32) *IsoMesh {
	out := &IsoMesh{}
	nx, ny, nz := dims[0], dims[1], dims[2]
	if nx < 2 || ny < 2 || nz < 2 || len(values) < nx*ny*nz {
		return out
	}
	node := func(i, j, k int) int { return i + nx*(j+ny*k) }
	spacing := boundMax.Sub(boundMin).Div(math.NewVec3(float32(nx-1), float32(ny-1), float32(nz-1)))
	position := func(n int) math.Vec3 {
		i, j, k := n%nx, (n/nx)%ny, n/(nx*ny)
		return boundMin.Add(spacing.Mul(math.NewVec3(float32(i), float32(j), float32(k))))
	}
	gradient := func(n int) math.Vec3 {
		i, j, k := n%nx, (n/nx)%ny, n/(nx*ny)
		diff := func(lo, hi int, h float32) float32 {
			if h == 0 {
				return 0
			}
			return (values[hi] - values[lo]) / h
		}
		g := math.Vec3{}
		i0, i1 := max(i-1, 0), min(i+1, nx-1)
		j0, j1 := max(j-1, 0), min(j+1, ny-1)
		k0, k1 := max(k-1, 0), min(k+1, nz-1)
		g.X = diff(node(i0, j, k), node(i1, j, k), float32(i1-i0)*spacing.X)
		g.Y = diff(node(i, j0, k), node(i, j1, k), float32(j1-j0)*spacing.Y)
		g.Z = diff(node(i, j, k0), node(i, j, k1), float32(k1-k0)*spacing.Z)
		return g
	}

	// Vertices are shared through the global grid edge they lie on.
	vertexOf := map[[2]int]uint32{}
	emit := func(a, b int) uint32 {
		key := [2]int{min(a, b), max(a, b)}
		if v, ok := vertexOf[key]; ok {
			return v
		}
		va, vb := values[a], values[b]
		t := float32(0.5)
		if vb != va {
			t = math.Clamp((iso-va)/(vb-va), 0, 1)
		}
		p := position(a).Lerp(position(b), t)
		n := gradient(a).Lerp(gradient(b), t).Negate().Normalized()
		v := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, p)
		out.Normals = append(out.Normals, n)
		out.VertexNodes = append(out.VertexNodes, [2]int{a, b})
		out.VertexT = append(out.VertexT, t)
		vertexOf[key] = v
		return v
	}

	cell := 0
	for k := 0; k < nz-1; k++ {
		for j := 0; j < ny-1; j++ {
			for i := 0; i < nx-1; i++ {
				var corners [8]int
				config := 0
				for c := 0; c < 8; c++ {
					corners[c] = node(i+(c&1), j+(c>>1&1), k+(c>>2&1))
					if values[corners[c]] > iso {
						config |= 1 << c
					}
				}
				for _, tri := range marchingCubesCase(config) {
					var t [3]uint32
					for x, e := range tri {
						t[x] = emit(corners[cubeEdges[e][0]], corners[cubeEdges[e][1]])
					}
					out.Triangles = append(out.Triangles, t)
					out.TriangleCell = append(out.TriangleCell, cell)
				}
				cell++
			}
		}
	}
	return out
}
