package math

import "github.com/chewxy/math32"

/**
 * @brief Returns an inverted box that any Expand call will overwrite.
 */
func NewExtentsEmpty() Extents3D {
	return Extents3D{
		Min: Vec3{K_INFINITY, K_INFINITY, K_INFINITY},
		Max: Vec3{-K_INFINITY, -K_INFINITY, -K_INFINITY},
	}
}

// NewExtentsFromPoints bounds the finite points in the slice.
func NewExtentsFromPoints(points []Vec3) Extents3D {
	e := NewExtentsEmpty()
	for _, p := range points {
		e = e.Expand(p)
	}
	return e
}

func (e Extents3D) IsEmpty() bool {
	return e.Min.X > e.Max.X || e.Min.Y > e.Max.Y || e.Min.Z > e.Max.Z
}

// Expand grows the box to include p. Non-finite points are ignored.
func (e Extents3D) Expand(p Vec3) Extents3D {
	if !p.IsFinite() {
		return e
	}
	return Extents3D{Min: e.Min.Min(p), Max: e.Max.Max(p)}
}

func (e Extents3D) Union(other Extents3D) Extents3D {
	if other.IsEmpty() {
		return e
	}
	if e.IsEmpty() {
		return other
	}
	return Extents3D{Min: e.Min.Min(other.Min), Max: e.Max.Max(other.Max)}
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

// Diagonal is the length of the box diagonal; 0 for an empty box.
func (e Extents3D) Diagonal() float32 {
	if e.IsEmpty() {
		return 0
	}
	return e.Max.Sub(e.Min).Length()
}

func (e Extents3D) Corners() [8]Vec3 {
	return [8]Vec3{
		{e.Min.X, e.Min.Y, e.Min.Z},
		{e.Max.X, e.Min.Y, e.Min.Z},
		{e.Min.X, e.Max.Y, e.Min.Z},
		{e.Max.X, e.Max.Y, e.Min.Z},
		{e.Min.X, e.Min.Y, e.Max.Z},
		{e.Max.X, e.Min.Y, e.Max.Z},
		{e.Min.X, e.Max.Y, e.Max.Z},
		{e.Max.X, e.Max.Y, e.Max.Z},
	}
}

/**
 * @brief Bounds the eight transformed corners of the box.
 */
func (e Extents3D) Transform(m Mat4) Extents3D {
	if e.IsEmpty() {
		return e
	}
	out := NewExtentsEmpty()
	for _, c := range e.Corners() {
		out = out.Expand(c.Transform(m))
	}
	return out
}

func (e Extents3D) Contains(p Vec3) bool {
	return p.X >= e.Min.X && p.X <= e.Max.X &&
		p.Y >= e.Min.Y && p.Y <= e.Max.Y &&
		p.Z >= e.Min.Z && p.Z <= e.Max.Z
}

// TriangleNormal returns the unit normal of the counter-clockwise triangle abc.
func TriangleNormal(a, b, c Vec3) Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalized()
}

// TriangleArea returns the area of triangle abc.
func TriangleArea(a, b, c Vec3) float32 {
	return 0.5 * b.Sub(a).Cross(c.Sub(a)).Length()
}

/**
 * @brief Newell normal of a (possibly non-planar) polygon, area weighted before
 * normalization.
 */
func PolygonNormal(points []Vec3) Vec3 {
	n := Vec3{}
	for i := range points {
		cur := points[i]
		next := points[(i+1)%len(points)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n.Normalized()
}

// TetVolume returns the signed volume of tetrahedron abcd.
func TetVolume(a, b, c, d Vec3) float32 {
	return b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a)) / 6.0
}

// PointPlaneDistance is the signed distance from p to the plane through origin with unit normal n.
func PointPlaneDistance(p, origin, normal Vec3) float32 {
	return p.Sub(origin).Dot(normal)
}

// AngleBetween returns the unsigned angle between a and b in radians.
func AngleBetween(a, b Vec3) float32 {
	d := a.Normalized().Dot(b.Normalized())
	return math32.Acos(Clamp(d, -1, 1))
}
