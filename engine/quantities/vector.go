package quantities

import (
	"github.com/spaghettifunk/prism/engine/math"
)

/** @brief Default arrow length as a fraction of the scene length scale. */
const DefaultVectorLengthFactor float32 = 0.02

/** @brief Default arrow shaft radius as a fraction of the scene length scale. */
const DefaultVectorRadiusFactor float32 = 0.0025

/**
 * @brief One 3D vector per element, drawn as shaft plus cone arrows.
 * Lengths are normalized by the largest vector so the longest arrow measures
 * LengthFactor * length scale, unless an absolute length is set.
 */
type VectorQuantity struct {
	base
	Vectors []math.Vec3
	Color   math.Vec3

	LengthFactor   float32
	AbsoluteLength float32
	RadiusFactor   float32

	maxNorm float32
}

func NewVectorQuantity(name string, domain ElementDomain, vectors []math.Vec3) *VectorQuantity {
	q := &VectorQuantity{
		base:         base{name: name, domain: domain, enabled: true},
		Vectors:      vectors,
		Color:        math.NewVec3(0.1, 0.1, 0.8),
		LengthFactor: DefaultVectorLengthFactor,
		RadiusFactor: DefaultVectorRadiusFactor,
	}
	q.maxNorm = maxNorm(vectors)
	return q
}

func (q *VectorQuantity) Kind() Kind {
	return KindVector
}

func (q *VectorQuantity) DataSize() int {
	return len(q.Vectors)
}

func (q *VectorQuantity) MaxNorm() float32 {
	return q.maxNorm
}

// SetLength sets the longest arrow's length, relative to the length scale or absolute.
func (q *VectorQuantity) SetLength(length float32, relative bool) {
	if relative {
		q.LengthFactor = length
		q.AbsoluteLength = 0
		return
	}
	q.AbsoluteLength = length
}

/**
 * @brief The multiplier applied to each raw vector to get its drawn arrow.
 */
func (q *VectorQuantity) ScaleFactor(lengthScale float32) float32 {
	if q.maxNorm == 0 {
		return 0
	}
	target := q.LengthFactor * lengthScale
	if q.AbsoluteLength > 0 {
		target = q.AbsoluteLength
	}
	return target / q.maxNorm
}

func (q *VectorQuantity) Radius(lengthScale float32) float32 {
	return q.RadiusFactor * lengthScale
}

/**
 * @brief Tangent vectors stored as coefficients in a per-element basis.
 * The extrinsic vector is basisX * u + basisY * v.
 */
type IntrinsicVectorQuantity struct {
	*VectorQuantity
	Coefficients []math.Vec2
	BasisX       []math.Vec3
	BasisY       []math.Vec3
}

func NewIntrinsicVectorQuantity(name string, domain ElementDomain, coefficients []math.Vec2, basisX, basisY []math.Vec3) *IntrinsicVectorQuantity {
	return &IntrinsicVectorQuantity{
		VectorQuantity: NewVectorQuantity(name, domain, ToExtrinsic(coefficients, basisX, basisY)),
		Coefficients:   coefficients,
		BasisX:         basisX,
		BasisY:         basisY,
	}
}

func (q *IntrinsicVectorQuantity) DataSize() int {
	return len(q.Coefficients)
}

// ToExtrinsic expands coefficients in a basis. Missing basis entries give zero vectors.
func ToExtrinsic(coefficients []math.Vec2, basisX, basisY []math.Vec3) []math.Vec3 {
	out := make([]math.Vec3, len(coefficients))
	for i, c := range coefficients {
		if i >= len(basisX) || i >= len(basisY) {
			continue
		}
		out[i] = basisX[i].MulScalar(c.X).Add(basisY[i].MulScalar(c.Y))
	}
	return out
}

func maxNorm(vectors []math.Vec3) float32 {
	m := float32(0)
	for _, v := range vectors {
		if !v.IsFinite() {
			continue
		}
		if l := v.Length(); l > m {
			m = l
		}
	}
	return m
}
