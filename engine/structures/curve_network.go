package structures

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type CurveRenderMode int

const (
	CurveModeLines CurveRenderMode = iota
	CurveModeTubes
)

func (m CurveRenderMode) String() string {
	if m == CurveModeTubes {
		return "tubes"
	}
	return "lines"
}

const DefaultCurveRadius float32 = 0.002

// Each segment is stored as two entries and drawn as a six vertex quad.
const lineVerticesPerEntry = 3

const (
	curveSoupEdges = iota
	curveSoupNodes
	curveSoupArrows
)

/**
 * @brief Nodes joined by unordered edges, drawn as lines or shaded tubes
 * with sphere joints.
 */
type CurveNetwork struct {
	structureBase

	nodes []math.Vec3
	edges [][2]uint32

	Color          math.Vec3
	Radius         float32
	RadiusAbsolute bool
	Mode           CurveRenderMode

	render soupSet
}

func NewCurveNetwork(name string, nodes []math.Vec3, edges [][2]uint32) (*CurveNetwork, error) {
	for i, e := range edges {
		if int(e[0]) >= len(nodes) || int(e[1]) >= len(nodes) {
			return nil, fmt.Errorf("curve network %q: edge %d references node outside %d nodes", name, i, len(nodes))
		}
	}
	c := &CurveNetwork{
		structureBase: newStructureBase(name, TypeCurveNetwork),
		nodes:         nodes,
		edges:         edges,
		Color:         math.NewVec3(0.2, 0.45, 0.85),
		Radius:        DefaultCurveRadius,
		Mode:          CurveModeTubes,
	}
	c.counter = c.elementCount
	c.local = c.localBounds
	return c, nil
}

/**
 * @brief Builds a polyline through nodes; closed adds the edge back to the start.
 */
func NewCurveNetworkLine(name string, nodes []math.Vec3, closed bool) (*CurveNetwork, error) {
	var edges [][2]uint32
	for i := 0; i+1 < len(nodes); i++ {
		edges = append(edges, [2]uint32{uint32(i), uint32(i + 1)})
	}
	if closed && len(nodes) > 2 {
		edges = append(edges, [2]uint32{uint32(len(nodes) - 1), 0})
	}
	return NewCurveNetwork(name, nodes, edges)
}

func (c *CurveNetwork) Nodes() []math.Vec3 {
	return c.nodes
}

func (c *CurveNetwork) Edges() [][2]uint32 {
	return c.edges
}

func (c *CurveNetwork) UpdateNodePositions(nodes []math.Vec3) error {
	if len(nodes) != len(c.nodes) {
		return fmt.Errorf("curve network %q nodes: %w", c.name, core.NewSizeMismatch(len(c.nodes), len(nodes)))
	}
	c.nodes = nodes
	c.dirty = true
	return nil
}

func (c *CurveNetwork) SetMode(mode CurveRenderMode) {
	if c.Mode != mode {
		c.Mode = mode
		c.dirty = true
	}
}

func (c *CurveNetwork) SetRadius(radius float32, relative bool) {
	c.Radius = radius
	c.RadiusAbsolute = !relative
}

func (c *CurveNetwork) WorldRadius(lengthScale float32) float32 {
	if c.RadiusAbsolute {
		return c.Radius
	}
	return c.Radius * lengthScale
}

func (c *CurveNetwork) elementCount(domain quantities.ElementDomain) (int, bool) {
	switch domain {
	case quantities.DomainNode:
		return len(c.nodes), true
	case quantities.DomainEdge:
		return len(c.edges), true
	}
	return 0, false
}

func (c *CurveNetwork) localBounds() (math.Extents3D, bool) {
	if len(c.nodes) == 0 {
		return math.Extents3D{}, false
	}
	return math.NewExtentsFromPoints(c.nodes), true
}

func (c *CurveNetwork) PickDomain() quantities.ElementDomain {
	return quantities.DomainEdge
}

func (c *CurveNetwork) edgeMidpoints() []math.Vec3 {
	out := make([]math.Vec3, len(c.edges))
	for i, e := range c.edges {
		out[i] = c.nodes[e[0]].Lerp(c.nodes[e[1]], 0.5)
	}
	return out
}

func (c *CurveNetwork) buildSoups() (*soup, *soup) {
	col := newColoring(c.quantities, c.Color.ToVec4(1))
	edges := &soup{stride: lineVerticesPerEntry}
	for i, e := range c.edges {
		for _, n := range e {
			el := noElement()
			el.node = int(n)
			el.edge = i
			color, data := col.sample(el)
			edges.addEntry(c.nodes[n], uint32(i), color, data)
		}
	}
	if c.Mode != CurveModeTubes {
		return edges, nil
	}
	nodes := &soup{stride: pointImpostorVertices}
	for i, p := range c.nodes {
		el := noElement()
		el.node = i
		color, data := col.sample(el)
		nodes.addEntry(p, uint32(i), color, data)
	}
	return edges, nodes
}

func (c *CurveNetwork) anchors(q quantities.Quantity) ([]math.Vec3, []math.Vec3) {
	var vecs []math.Vec3
	switch v := q.(type) {
	case *quantities.VectorQuantity:
		vecs = v.Vectors
	case *quantities.IntrinsicVectorQuantity:
		vecs = v.Vectors
	default:
		return nil, nil
	}
	if q.Domain() == quantities.DomainEdge {
		return c.edgeMidpoints(), vecs
	}
	return c.nodes, vecs
}

func (c *CurveNetwork) Prepare(frame *Frame) error {
	key := fmt.Sprintf("%s|mode=%d", quantityKey(c.quantities, frame.LengthScale), c.Mode)
	if c.render.stale(frame, key, c.dirty) {
		edges, nodes := c.buildSoups()
		arrows := arrowSoup(quantities.ActiveVectors(c.quantities), frame.LengthScale, c.anchors)
		if err := c.render.upload(frame, "curve_network_"+c.name, key, edges, nodes, arrows); err != nil {
			return err
		}
		c.dirty = false
	}

	u := newStructureUniforms(c.transform, frame)
	u.BaseColor = c.Color.ToVec4(c.transparency)
	u.Params.Y = c.WorldRadius(frame.LengthScale)
	u.Params.W = float32(c.Mode)
	u.applyColoring(quantities.ActiveColoring(c.quantities), frame.LengthScale)
	for _, slot := range []int{curveSoupEdges, curveSoupNodes} {
		if g := c.render.at(slot); g != nil {
			if err := g.writeUniforms(frame, u); err != nil {
				return err
			}
		}
	}
	if g := c.render.at(curveSoupArrows); g != nil {
		if err := g.writeUniforms(frame, arrowUniforms(c.transform, frame, c.transparency)); err != nil {
			return err
		}
	}
	return nil
}

func (c *CurveNetwork) Draw(frame *Frame) error {
	colormap := coloringColormap(quantities.ActiveColoring(c.quantities))
	if err := c.render.at(curveSoupEdges).draw(frame, metadata.ShaderKindLines, c.material, colormap); err != nil {
		return err
	}
	if err := c.render.at(curveSoupNodes).draw(frame, metadata.ShaderKindPoints, c.material, colormap); err != nil {
		return err
	}
	return c.render.at(curveSoupArrows).draw(frame, metadata.ShaderKindMesh, c.material, quantities.DefaultColormap)
}

// DrawPick writes edge ids only; joints would alias edge indices.
func (c *CurveNetwork) DrawPick(frame *Frame) error {
	return c.render.at(curveSoupEdges).draw(frame, metadata.ShaderKindLines, c.material, "")
}

func (c *CurveNetwork) ClearGPUResources() {
	c.render.forget()
}

func (c *CurveNetwork) ReleaseGPUResources(backend renderer.RendererBackend) {
	c.render.release(backend)
}
