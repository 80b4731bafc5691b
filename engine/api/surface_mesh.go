package api

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/structures"
)

type SurfaceMeshHandle struct {
	Handle[*structures.SurfaceMesh]
}

/**
 * @brief Registers a polygon mesh. Faces may have any number of corners;
 * an index outside the vertex list fails the registration.
 */
func RegisterSurfaceMesh(name string, vertices []math.Vec3, faces [][]uint32) (SurfaceMeshHandle, error) {
	m, err := structures.NewSurfaceMesh(name, vertices, faces)
	if err != nil {
		return SurfaceMeshHandle{}, err
	}
	h, err := register(m)
	return SurfaceMeshHandle{h}, err
}

// RegisterTriangleMesh is RegisterSurfaceMesh for triangle soups.
func RegisterTriangleMesh(name string, vertices []math.Vec3, triangles [][3]uint32) (SurfaceMeshHandle, error) {
	faces := make([][]uint32, len(triangles))
	for i, t := range triangles {
		faces[i] = []uint32{t[0], t[1], t[2]}
	}
	return RegisterSurfaceMesh(name, vertices, faces)
}

func GetSurfaceMesh(name string) (SurfaceMeshHandle, bool) {
	h, ok := get[*structures.SurfaceMesh](structures.TypeSurfaceMesh, name)
	return SurfaceMeshHandle{h}, ok
}

func WithSurfaceMesh(name string, fn func(m *structures.SurfaceMesh) error) error {
	return withStructure(structures.TypeSurfaceMesh, name, fn)
}

func WithSurfaceMeshRef(name string, fn func(m *structures.SurfaceMesh) error) error {
	return withStructureRef(structures.TypeSurfaceMesh, name, fn)
}

func RemoveSurfaceMesh(name string) error {
	return newHandle[*structures.SurfaceMesh](structures.TypeSurfaceMesh, name).Remove()
}

func (h SurfaceMeshHandle) SetSurfaceColor(color math.Vec3) error {
	return h.With(func(m *structures.SurfaceMesh) error {
		m.SurfaceColor = color
		m.MarkDirty()
		return nil
	})
}

// SetEdgeWidth shows the polygon edges when width is positive.
func (h SurfaceMeshHandle) SetEdgeWidth(width float32) error {
	return h.With(func(m *structures.SurfaceMesh) error {
		m.EdgeWidth = width
		m.ShowEdges = width > 0
		m.MarkDirty()
		return nil
	})
}

func (h SurfaceMeshHandle) SetEdgeColor(color math.Vec3) error {
	return h.With(func(m *structures.SurfaceMesh) error {
		m.EdgeColor = color
		m.MarkDirty()
		return nil
	})
}

func (h SurfaceMeshHandle) SetShadeStyle(style structures.ShadeStyle) error {
	return h.With(func(m *structures.SurfaceMesh) error {
		m.SetShadeStyle(style)
		return nil
	})
}

func (h SurfaceMeshHandle) SetBackfacePolicy(policy structures.BackfacePolicy) error {
	return h.With(func(m *structures.SurfaceMesh) error {
		m.BackfacePolicy = policy
		m.MarkDirty()
		return nil
	})
}

func (h SurfaceMeshHandle) SetBackfaceColor(color math.Vec3) error {
	return h.With(func(m *structures.SurfaceMesh) error {
		m.BackfaceColor = color
		m.MarkDirty()
		return nil
	})
}

func (h SurfaceMeshHandle) UpdateVertexPositions(positions []math.Vec3) error {
	return h.withExtents(func(m *structures.SurfaceMesh) error {
		return m.UpdateVertexPositions(positions)
	})
}

func (h SurfaceMeshHandle) AddVertexScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainVertex, values))
}

func (h SurfaceMeshHandle) AddFaceScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainFace, values))
}

func (h SurfaceMeshHandle) AddEdgeScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainEdge, values))
}

func (h SurfaceMeshHandle) AddVertexColorQuantity(name string, colors []math.Vec3) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantity(name, quantities.DomainVertex, colors))
}

func (h SurfaceMeshHandle) AddFaceColorQuantity(name string, colors []math.Vec3) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantity(name, quantities.DomainFace, colors))
}

// AddFaceColorQuantityRGBA keeps alpha, which only Pretty transparency respects.
func (h SurfaceMeshHandle) AddFaceColorQuantityRGBA(name string, colors []math.Vec4) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantityRGBA(name, quantities.DomainFace, colors))
}

func (h SurfaceMeshHandle) AddVertexVectorQuantity(name string, vectors []math.Vec3) (QuantityHandle[*quantities.VectorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewVectorQuantity(name, quantities.DomainVertex, vectors))
}

func (h SurfaceMeshHandle) AddFaceVectorQuantity(name string, vectors []math.Vec3) (QuantityHandle[*quantities.VectorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewVectorQuantity(name, quantities.DomainFace, vectors))
}

/**
 * @brief Adds tangent vectors given as coefficients in the mesh's own
 * vertex tangent basis.
 */
func (h SurfaceMeshHandle) AddVertexIntrinsicVectorQuantity(name string, coefficients []math.Vec2) (QuantityHandle[*quantities.IntrinsicVectorQuantity], error) {
	return h.addIntrinsic(name, quantities.DomainVertex, coefficients)
}

// AddFaceIntrinsicVectorQuantity uses the per-face tangent basis.
func (h SurfaceMeshHandle) AddFaceIntrinsicVectorQuantity(name string, coefficients []math.Vec2) (QuantityHandle[*quantities.IntrinsicVectorQuantity], error) {
	return h.addIntrinsic(name, quantities.DomainFace, coefficients)
}

func (h SurfaceMeshHandle) addIntrinsic(name string, domain quantities.ElementDomain, coefficients []math.Vec2) (QuantityHandle[*quantities.IntrinsicVectorQuantity], error) {
	err := h.With(func(m *structures.SurfaceMesh) error {
		var basisX, basisY []math.Vec3
		if domain == quantities.DomainFace {
			basisX, basisY = m.FaceTangentBasis()
		} else {
			basisX, basisY = m.VertexTangentBasis()
		}
		return m.AddQuantity(quantities.NewIntrinsicVectorQuantity(name, domain, coefficients, basisX, basisY))
	})
	if err != nil {
		return QuantityHandle[*quantities.IntrinsicVectorQuantity]{}, err
	}
	return QuantityHandle[*quantities.IntrinsicVectorQuantity]{owner: h.Ref(), name: name}, nil
}

/**
 * @brief Adds a one-form: one value per edge in Edges order, with
 * orientations[i] true when the value runs along the edge's stored direction.
 */
func (h SurfaceMeshHandle) AddOneFormQuantity(name string, values []float32, orientations []bool) (QuantityHandle[*quantities.OneFormQuantity], error) {
	return addQuantity(h.Handle, quantities.NewOneFormQuantity(name, values, orientations))
}

func (h SurfaceMeshHandle) AddVertexParameterizationQuantity(name string, coords []math.Vec2) (QuantityHandle[*quantities.ParameterizationQuantity], error) {
	return addQuantity(h.Handle, quantities.NewParameterizationQuantity(name, quantities.DomainVertex, coords))
}

func (h SurfaceMeshHandle) AddCornerParameterizationQuantity(name string, coords []math.Vec2) (QuantityHandle[*quantities.ParameterizationQuantity], error) {
	return addQuantity(h.Handle, quantities.NewParameterizationQuantity(name, quantities.DomainCorner, coords))
}
