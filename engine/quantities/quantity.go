package quantities

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

/** @brief The part of a structure a quantity lives on. */
type ElementDomain int

const (
	DomainVertex ElementDomain = iota
	DomainFace
	DomainEdge
	DomainCorner
	DomainCell
	DomainNode
)

func (d ElementDomain) String() string {
	switch d {
	case DomainVertex:
		return "vertex"
	case DomainFace:
		return "face"
	case DomainEdge:
		return "edge"
	case DomainCorner:
		return "corner"
	case DomainCell:
		return "cell"
	case DomainNode:
		return "node"
	}
	return "unknown"
}

type Kind int

const (
	KindScalar Kind = iota
	KindVector
	KindColor
	KindParameterization
	KindOneForm
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindColor:
		return "color"
	case KindParameterization:
		return "parameterization"
	case KindOneForm:
		return "one_form"
	}
	return "other"
}

/**
 * @brief Data attached to the elements of one domain of a structure.
 */
type Quantity interface {
	Name() string
	Domain() ElementDomain
	Kind() Kind
	IsEnabled() bool
	SetEnabled(enabled bool)
	/** @brief Number of elements carried by the payload. */
	DataSize() int
}

type base struct {
	name    string
	domain  ElementDomain
	enabled bool
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Domain() ElementDomain {
	return b.domain
}

func (b *base) IsEnabled() bool {
	return b.enabled
}

func (b *base) SetEnabled(enabled bool) {
	b.enabled = enabled
}

// Validate rejects a quantity whose payload does not match the element count of its domain.
func Validate(q Quantity, count int) error {
	if q.DataSize() != count {
		return fmt.Errorf("quantity %q on %s: %w", q.Name(), q.Domain(), core.NewSizeMismatch(count, q.DataSize()))
	}
	return nil
}

func coloringPriority(k Kind) int {
	switch k {
	case KindColor:
		return 3
	case KindParameterization:
		return 2
	case KindScalar:
		return 1
	}
	return 0
}

/**
 * @brief Picks the quantity that colors a structure: color beats
 * parameterization beats scalar. Among equals the first attached wins.
 * Returns nil when no coloring quantity is enabled.
 */
func ActiveColoring(qs []Quantity) Quantity {
	var best Quantity
	bestPriority := 0
	for _, q := range qs {
		if !q.IsEnabled() {
			continue
		}
		if p := coloringPriority(q.Kind()); p > bestPriority {
			best, bestPriority = q, p
		}
	}
	return best
}

// ActiveVectors returns every enabled quantity that renders as arrows.
func ActiveVectors(qs []Quantity) []Quantity {
	var out []Quantity
	for _, q := range qs {
		if q.IsEnabled() && (q.Kind() == KindVector || q.Kind() == KindOneForm) {
			out = append(out, q)
		}
	}
	return out
}
