package api

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/structures"
)

type CurveNetworkHandle struct {
	Handle[*structures.CurveNetwork]
}

func RegisterCurveNetwork(name string, nodes []math.Vec3, edges [][2]uint32) (CurveNetworkHandle, error) {
	c, err := structures.NewCurveNetwork(name, nodes, edges)
	if err != nil {
		return CurveNetworkHandle{}, err
	}
	h, err := register(c)
	return CurveNetworkHandle{h}, err
}

// RegisterCurveNetworkLine joins consecutive nodes; closed links the last node back to the first.
func RegisterCurveNetworkLine(name string, nodes []math.Vec3, closed bool) (CurveNetworkHandle, error) {
	c, err := structures.NewCurveNetworkLine(name, nodes, closed)
	if err != nil {
		return CurveNetworkHandle{}, err
	}
	h, err := register(c)
	return CurveNetworkHandle{h}, err
}

func GetCurveNetwork(name string) (CurveNetworkHandle, bool) {
	h, ok := get[*structures.CurveNetwork](structures.TypeCurveNetwork, name)
	return CurveNetworkHandle{h}, ok
}

func WithCurveNetwork(name string, fn func(c *structures.CurveNetwork) error) error {
	return withStructure(structures.TypeCurveNetwork, name, fn)
}

func WithCurveNetworkRef(name string, fn func(c *structures.CurveNetwork) error) error {
	return withStructureRef(structures.TypeCurveNetwork, name, fn)
}

func RemoveCurveNetwork(name string) error {
	return newHandle[*structures.CurveNetwork](structures.TypeCurveNetwork, name).Remove()
}

func (h CurveNetworkHandle) SetColor(color math.Vec3) error {
	return h.With(func(c *structures.CurveNetwork) error {
		c.Color = color
		c.MarkDirty()
		return nil
	})
}

func (h CurveNetworkHandle) SetRadius(radius float32, relative bool) error {
	return h.With(func(c *structures.CurveNetwork) error {
		c.SetRadius(radius, relative)
		c.MarkDirty()
		return nil
	})
}

func (h CurveNetworkHandle) SetMode(mode structures.CurveRenderMode) error {
	return h.With(func(c *structures.CurveNetwork) error {
		c.SetMode(mode)
		return nil
	})
}

func (h CurveNetworkHandle) UpdateNodePositions(nodes []math.Vec3) error {
	return h.withExtents(func(c *structures.CurveNetwork) error {
		return c.UpdateNodePositions(nodes)
	})
}

func (h CurveNetworkHandle) AddNodeScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainNode, values))
}

func (h CurveNetworkHandle) AddEdgeScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainEdge, values))
}

func (h CurveNetworkHandle) AddNodeColorQuantity(name string, colors []math.Vec3) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantity(name, quantities.DomainNode, colors))
}

func (h CurveNetworkHandle) AddEdgeColorQuantity(name string, colors []math.Vec3) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantity(name, quantities.DomainEdge, colors))
}

func (h CurveNetworkHandle) AddNodeVectorQuantity(name string, vectors []math.Vec3) (QuantityHandle[*quantities.VectorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewVectorQuantity(name, quantities.DomainNode, vectors))
}

func (h CurveNetworkHandle) AddEdgeVectorQuantity(name string, vectors []math.Vec3) (QuantityHandle[*quantities.VectorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewVectorQuantity(name, quantities.DomainEdge, vectors))
}
