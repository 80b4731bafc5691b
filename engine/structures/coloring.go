package structures

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
)

/** @brief Indices of one emitted vertex in every domain it belongs to; -1 when not applicable. */
type elementIndex struct {
	vertex, face, edge, corner, cell, node int
}

func noElement() elementIndex {
	return elementIndex{-1, -1, -1, -1, -1, -1}
}

func (e elementIndex) in(domain quantities.ElementDomain) int {
	switch domain {
	case quantities.DomainVertex:
		return e.vertex
	case quantities.DomainFace:
		return e.face
	case quantities.DomainEdge:
		return e.edge
	case quantities.DomainCorner:
		return e.corner
	case quantities.DomainCell:
		return e.cell
	case quantities.DomainNode:
		return e.node
	}
	return -1
}

/**
 * @brief Samples the active coloring quantity into per-vertex color and data
 * streams. With no quantity, or one on a domain the vertex does not belong
 * to, the base color is used.
 */
type coloring struct {
	q    quantities.Quantity
	base math.Vec4
}

func newColoring(qs []quantities.Quantity, base math.Vec4) coloring {
	return coloring{q: quantities.ActiveColoring(qs), base: base}
}

func (c coloring) sample(e elementIndex) (math.Vec4, math.Vec4) {
	if c.q == nil {
		return c.base, math.Vec4{}
	}
	i := e.in(c.q.Domain())
	if i < 0 || i >= c.q.DataSize() {
		return c.base, math.Vec4{}
	}
	switch q := c.q.(type) {
	case *quantities.ColorQuantity:
		return q.Colors[i], math.Vec4{}
	case *quantities.ScalarQuantity:
		return c.base, math.NewVec4(q.Normalize(q.Values[i]), 0, 0, 0)
	case *quantities.ParameterizationQuantity:
		uv := q.Coords[i]
		return c.base, math.NewVec4(uv.X, uv.Y, 0, 0)
	}
	return c.base, math.Vec4{}
}

/**
 * @brief Samples at a point a fraction t along the way from element a to b.
 * Scalars interpolate their raw values before normalizing so clamping stays
 * exact; every other payload interpolates the sampled streams.
 */
func (c coloring) sampleBetween(a, b elementIndex, t float32) (math.Vec4, math.Vec4) {
	if q, ok := c.q.(*quantities.ScalarQuantity); ok {
		ia, ib := a.in(q.Domain()), b.in(q.Domain())
		if ia >= 0 && ib >= 0 && ia < len(q.Values) && ib < len(q.Values) {
			v := math.Lerp(q.Values[ia], q.Values[ib], t)
			return c.base, math.NewVec4(q.Normalize(v), 0, 0, 0)
		}
	}
	ca, da := c.sample(a)
	cb, db := c.sample(b)
	return lerpSample(ca, da, cb, db, t)
}

// lerpSample interpolates two samples, used where geometry is cut.
func lerpSample(ca, da, cb, db math.Vec4, t float32) (math.Vec4, math.Vec4) {
	return ca.Lerp(cb, t), da.Lerp(db, t)
}
