package testbed

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/math"
)

// torus returns a quad-faced torus around the Y axis.
func torus(major, minor float32, nu, nv int) ([]math.Vec3, [][]uint32, []math.Vec2) {
	vertices := make([]math.Vec3, 0, nu*nv)
	uvs := make([]math.Vec2, 0, nu*nv)
	for i := 0; i < nu; i++ {
		u := 2 * math32.Pi * float32(i) / float32(nu)
		for j := 0; j < nv; j++ {
			v := 2 * math32.Pi * float32(j) / float32(nv)
			r := major + minor*math32.Cos(v)
			vertices = append(vertices, math.NewVec3(r*math32.Cos(u), minor*math32.Sin(v), r*math32.Sin(u)))
			uvs = append(uvs, math.NewVec2(float32(i)/float32(nu), float32(j)/float32(nv)))
		}
	}
	index := func(i, j int) uint32 {
		return uint32((i%nu)*nv + j%nv)
	}
	faces := make([][]uint32, 0, nu*nv)
	for i := 0; i < nu; i++ {
		for j := 0; j < nv; j++ {
			faces = append(faces, []uint32{index(i, j), index(i, j+1), index(i+1, j+1), index(i+1, j)})
		}
	}
	return vertices, faces, uvs
}

// fibonacciSphere spreads n points evenly over a sphere.
func fibonacciSphere(center math.Vec3, radius float32, n int) []math.Vec3 {
	golden := math32.Pi * (3 - math32.Sqrt(5))
	points := make([]math.Vec3, n)
	for i := range points {
		y := 1 - 2*(float32(i)+0.5)/float32(n)
		r := math32.Sqrt(1 - y*y)
		theta := golden * float32(i)
		points[i] = center.Add(math.NewVec3(r*math32.Cos(theta), y, r*math32.Sin(theta)).MulScalar(radius))
	}
	return points
}

func helix(turns float32, radius, height float32, n int) []math.Vec3 {
	nodes := make([]math.Vec3, n)
	for i := range nodes {
		t := float32(i) / float32(n-1)
		a := 2 * math32.Pi * turns * t
		nodes[i] = math.NewVec3(radius*math32.Cos(a), height*t, radius*math32.Sin(a))
	}
	return nodes
}

// cubeTets splits the unit cube at origin into five tetrahedra.
func cubeTets(origin math.Vec3, size float32) ([]math.Vec3, [][4]uint32) {
	vertices := make([]math.Vec3, 8)
	for i := range vertices {
		vertices[i] = origin.Add(math.NewVec3(float32(i&1), float32((i>>1)&1), float32((i>>2)&1)).MulScalar(size))
	}
	tets := [][4]uint32{
		{0, 1, 2, 4},
		{1, 3, 2, 7},
		{1, 4, 5, 7},
		{2, 4, 7, 6},
		{1, 2, 4, 7},
	}
	return vertices, tets
}

// sphereField samples the signed distance to a sphere at every node of an n^3 grid over [lo, hi].
func sphereField(n int, lo, hi math.Vec3, center math.Vec3, radius float32) []float32 {
	values := make([]float32, 0, n*n*n)
	step := hi.Sub(lo).MulScalar(1 / float32(n-1))
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				p := lo.Add(math.NewVec3(float32(i)*step.X, float32(j)*step.Y, float32(k)*step.Z))
				values = append(values, p.Distance(center)-radius)
			}
		}
	}
	return values
}
