package quantities

import (
	"github.com/chewxy/math32"
	"github.com/spaghettifunk/prism/engine/math"
)

const DefaultColormap = "viridis"

/** @brief How a volume grid draws a node scalar. */
type GridVizMode int

const (
	GridVizGridcube GridVizMode = iota
	GridVizIsosurface
)

/**
 * @brief One float per element, colour-mapped over [min, max] with clamping.
 */
type ScalarQuantity struct {
	base
	Values   []float32
	Colormap string
	// Volume grid node scalars only.
	VizMode  GridVizMode
	IsoValue float32

	dataMin, dataMax float32
	rangeMin         float32
	rangeMax         float32
}

func NewScalarQuantity(name string, domain ElementDomain, values []float32) *ScalarQuantity {
	q := &ScalarQuantity{
		base:     base{name: name, domain: domain, enabled: true},
		Values:   values,
		Colormap: DefaultColormap,
	}
	q.dataMin, q.dataMax = DataRange(values)
	q.rangeMin, q.rangeMax = q.dataMin, q.dataMax
	q.IsoValue = 0.5 * (q.dataMin + q.dataMax)
	return q
}

func (q *ScalarQuantity) Kind() Kind {
	return KindScalar
}

func (q *ScalarQuantity) DataSize() int {
	return len(q.Values)
}

// DataRange returns the observed [min, max] of the finite values.
func (q *ScalarQuantity) DataRange() (float32, float32) {
	return q.dataMin, q.dataMax
}

// MapRange returns the range currently used for colour mapping.
func (q *ScalarQuantity) MapRange() (float32, float32) {
	return q.rangeMin, q.rangeMax
}

func (q *ScalarQuantity) SetMapRange(lo, hi float32) {
	q.rangeMin, q.rangeMax = lo, hi
}

func (q *ScalarQuantity) ResetMapRange() {
	q.rangeMin, q.rangeMax = q.dataMin, q.dataMax
}

/**
 * @brief Maps v into [0, 1] over the map range. Non-finite values map to 0.
 */
func (q *ScalarQuantity) Normalize(v float32) float32 {
	if !math.IsFinite(v) {
		return 0
	}
	width := q.rangeMax - q.rangeMin
	if width <= 0 {
		if v >= q.rangeMax {
			return 1
		}
		return 0
	}
	return math.Clamp((v-q.rangeMin)/width, 0, 1)
}

// NormalizedValues applies Normalize to every value.
func (q *ScalarQuantity) NormalizedValues() []float32 {
	out := make([]float32, len(q.Values))
	for i, v := range q.Values {
		out[i] = q.Normalize(v)
	}
	return out
}

/**
 * @brief Observed [min, max] over finite values; [0, 1] when none are finite.
 */
func DataRange(values []float32) (float32, float32) {
	lo := math32.Inf(1)
	hi := math32.Inf(-1)
	for _, v := range values {
		if !math.IsFinite(v) {
			continue
		}
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}
	if lo > hi {
		return 0, 1
	}
	return lo, hi
}
