package quantities

import "github.com/spaghettifunk/prism/engine/math"

type ParamStyle int

const (
	ParamStyleChecker ParamStyle = iota
	ParamStyleGrid
	ParamStyleLocalCheck
	ParamStyleLocalRad
)

func (s ParamStyle) String() string {
	switch s {
	case ParamStyleChecker:
		return "checker"
	case ParamStyleGrid:
		return "grid"
	case ParamStyleLocalCheck:
		return "local_check"
	case ParamStyleLocalRad:
		return "local_rad"
	}
	return "unknown"
}

/** @brief Whether UVs are in [0, 1] units or world distances. */
type ParamCoordsType int

const (
	ParamCoordsUnit ParamCoordsType = iota
	ParamCoordsWorld
)

/**
 * @brief UV coordinates per element, visualised as a procedural pattern.
 */
type ParameterizationQuantity struct {
	base
	Coords     []math.Vec2
	Style      ParamStyle
	CoordsType ParamCoordsType
	// Pattern period in UV units.
	CheckerSize float32
	ColorA      math.Vec3
	ColorB      math.Vec3
	GridColor   math.Vec3
	// Colormap used by the local styles.
	Colormap string
}

func NewParameterizationQuantity(name string, domain ElementDomain, coords []math.Vec2) *ParameterizationQuantity {
	return &ParameterizationQuantity{
		base:        base{name: name, domain: domain, enabled: true},
		Coords:      coords,
		Style:       ParamStyleChecker,
		CoordsType:  ParamCoordsUnit,
		CheckerSize: 0.02,
		ColorA:      math.NewVec3(1, 0.45, 0.1),
		ColorB:      math.NewVec3(0.95, 0.95, 0.95),
		GridColor:   math.NewVec3(0.1, 0.1, 0.1),
		Colormap:    "phase",
	}
}

func (q *ParameterizationQuantity) Kind() Kind {
	return KindParameterization
}

func (q *ParameterizationQuantity) DataSize() int {
	return len(q.Coords)
}

/**
 * @brief Pattern period in the shader's coordinate space. World coordinates
 * scale the period by the length scale so the pattern keeps its apparent size.
 */
func (q *ParameterizationQuantity) Period(lengthScale float32) float32 {
	if q.CoordsType == ParamCoordsWorld {
		return q.CheckerSize * lengthScale
	}
	return q.CheckerSize
}
