package quantities

import "github.com/spaghettifunk/prism/engine/math"

/**
 * @brief A discrete 1-form: one value per edge, integrated along the edge.
 * Values are stored for the edge's canonical direction (low vertex index to
 * high); a false orientation flips the sign.
 */
type OneFormQuantity struct {
	base
	Values       []float32
	Orientations []bool
	Color        math.Vec3

	LengthFactor float32
	RadiusFactor float32
}

func NewOneFormQuantity(name string, values []float32, orientations []bool) *OneFormQuantity {
	return &OneFormQuantity{
		base:         base{name: name, domain: DomainEdge, enabled: true},
		Values:       values,
		Orientations: orientations,
		Color:        math.NewVec3(0.2, 0.6, 0.2),
		LengthFactor: DefaultVectorLengthFactor,
		RadiusFactor: DefaultVectorRadiusFactor,
	}
}

func (q *OneFormQuantity) Kind() Kind {
	return KindOneForm
}

func (q *OneFormQuantity) DataSize() int {
	return len(q.Values)
}

/**
 * @brief The integral of the form along a -> b, where (a, b) is edge e.
 */
func (q *OneFormQuantity) Along(e int, a, b uint32) float32 {
	v := q.Values[e]
	if e < len(q.Orientations) && !q.Orientations[e] {
		v = -v
	}
	if a > b {
		v = -v
	}
	return v
}

/**
 * @brief Whitney interpolation of a 1-form at the barycenter of triangle p.
 * w[0] integrates p0 -> p1, w[1] p1 -> p2, w[2] p2 -> p0. Constant fields are
 * reproduced exactly.
 */
func WhitneyAtBarycenter(p [3]math.Vec3, w [3]float32) math.Vec3 {
	e01 := p[1].Sub(p[0])
	e02 := p[2].Sub(p[0])
	cross := e01.Cross(e02)
	twiceArea := cross.Length()
	if twiceArea == 0 {
		return math.Vec3{}
	}
	n := cross.MulScalar(1 / twiceArea)

	var grad [3]math.Vec3
	for i := 0; i < 3; i++ {
		j := p[(i+1)%3]
		k := p[(i+2)%3]
		grad[i] = n.Cross(k.Sub(j)).MulScalar(1 / twiceArea)
	}

	out := grad[1].Sub(grad[0]).MulScalar(w[0]).
		Add(grad[2].Sub(grad[1]).MulScalar(w[1])).
		Add(grad[0].Sub(grad[2]).MulScalar(w[2]))
	return out.MulScalar(1.0 / 3.0)
}
