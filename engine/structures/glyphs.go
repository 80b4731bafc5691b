package structures

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
)

const (
	arrowSegments = 8
	// Fraction of the arrow taken by the shaft.
	arrowShaftFraction float32 = 0.8
	arrowConeRadius    float32 = 2.0
)

var noEdges = [3]float32{}

/**
 * @brief Appends a shaft plus cone arrow from base along vec.
 */
func appendArrow(s *soup, base, vec math.Vec3, radius float32, color math.Vec4) {
	length := vec.Length()
	if length == 0 || !vec.IsFinite() || !base.IsFinite() {
		return
	}
	dir := vec.MulScalar(1 / length)
	u := dir.AnyPerpendicular()
	w := dir.Cross(u)

	shaftEnd := base.Add(vec.MulScalar(arrowShaftFraction))
	tip := base.Add(vec)
	coneR := radius * arrowConeRadius

	ring := func(k int) math.Vec3 {
		theta := 2 * math.K_PI * float32(k) / arrowSegments
		return u.MulScalar(math32.Cos(theta)).Add(w.MulScalar(math32.Sin(theta)))
	}
	colors := [3]math.Vec4{color, color, color}
	data := [3]math.Vec4{}

	for k := 0; k < arrowSegments; k++ {
		r0 := ring(k)
		r1 := ring(k + 1)

		a0 := base.Add(r0.MulScalar(radius))
		a1 := base.Add(r1.MulScalar(radius))
		b0 := shaftEnd.Add(r0.MulScalar(radius))
		b1 := shaftEnd.Add(r1.MulScalar(radius))
		s.addTriangle([3]math.Vec3{a0, a1, b1}, [3]math.Vec3{r0, r1, r1}, noEdges, 0, colors, data)
		s.addTriangle([3]math.Vec3{a0, b1, b0}, [3]math.Vec3{r0, r1, r0}, noEdges, 0, colors, data)

		c0 := shaftEnd.Add(r0.MulScalar(coneR))
		c1 := shaftEnd.Add(r1.MulScalar(coneR))
		slope := coneR / (length * (1 - arrowShaftFraction))
		n0 := r0.Add(dir.MulScalar(slope)).Normalized()
		n1 := r1.Add(dir.MulScalar(slope)).Normalized()
		s.addTriangle([3]math.Vec3{c0, c1, tip}, [3]math.Vec3{n0, n1, dir}, noEdges, 0, colors, data)

		back := dir.Negate()
		s.addTriangle([3]math.Vec3{shaftEnd, c1, c0}, [3]math.Vec3{back, back, back}, noEdges, 0, colors, data)
	}
}

/** @brief Triangles emitted per arrow. */
const trianglesPerArrow = arrowSegments * 4

/**
 * @brief Builds one soup holding the arrows of every given vector field.
 * anchors returns the base points and world vectors for a quantity.
 */
func arrowSoup(qs []quantities.Quantity, lengthScale float32, anchors func(q quantities.Quantity) ([]math.Vec3, []math.Vec3)) *soup {
	s := &soup{}
	for _, q := range qs {
		bases, vecs := anchors(q)
		if len(bases) == 0 {
			continue
		}
		scale, radius, color := arrowStyle(q, vecs, lengthScale)
		for i := range bases {
			if i >= len(vecs) {
				break
			}
			appendArrow(s, bases[i], vecs[i].MulScalar(scale), radius, color)
		}
	}
	return s
}

func arrowStyle(q quantities.Quantity, vecs []math.Vec3, lengthScale float32) (float32, float32, math.Vec4) {
	switch v := q.(type) {
	case *quantities.VectorQuantity:
		return v.ScaleFactor(lengthScale), v.Radius(lengthScale), v.Color.ToVec4(1)
	case *quantities.IntrinsicVectorQuantity:
		return v.ScaleFactor(lengthScale), v.Radius(lengthScale), v.Color.ToVec4(1)
	case *quantities.OneFormQuantity:
		// Reconstructed fields are normalized the same way as vector quantities.
		maxNorm := float32(0)
		for _, x := range vecs {
			maxNorm = math32.Max(maxNorm, x.Length())
		}
		scale := float32(0)
		if maxNorm > 0 {
			scale = v.LengthFactor * lengthScale / maxNorm
		}
		return scale, v.RadiusFactor * lengthScale, v.Color.ToVec4(1)
	}
	return 0, 0, math.Vec4{}
}
