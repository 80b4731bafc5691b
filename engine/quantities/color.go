package quantities

import "github.com/spaghettifunk/prism/engine/math"

/**
 * @brief Direct per-element colors. Alpha is only honoured by Pretty transparency.
 */
type ColorQuantity struct {
	base
	Colors   []math.Vec4
	HasAlpha bool
}

func NewColorQuantity(name string, domain ElementDomain, colors []math.Vec3) *ColorQuantity {
	c := make([]math.Vec4, len(colors))
	for i, col := range colors {
		c[i] = col.ToVec4(1)
	}
	return &ColorQuantity{
		base:   base{name: name, domain: domain, enabled: true},
		Colors: c,
	}
}

func NewColorQuantityRGBA(name string, domain ElementDomain, colors []math.Vec4) *ColorQuantity {
	return &ColorQuantity{
		base:     base{name: name, domain: domain, enabled: true},
		Colors:   colors,
		HasAlpha: true,
	}
}

func (q *ColorQuantity) Kind() Kind {
	return KindColor
}

func (q *ColorQuantity) DataSize() int {
	return len(q.Colors)
}
