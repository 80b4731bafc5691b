package api

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/structures"
)

type VolumeMeshHandle struct {
	Handle[*structures.VolumeMesh]
}

/**
 * @brief Registers a mesh of mixed cells. Each cell has eight slots;
 * tetrahedra fill the last four with structures.CellSentinel.
 */
func RegisterVolumeMesh(name string, vertices []math.Vec3, cells [][8]uint32) (VolumeMeshHandle, error) {
	vm, err := structures.NewVolumeMesh(name, vertices, cells)
	if err != nil {
		return VolumeMeshHandle{}, err
	}
	h, err := register(vm)
	return VolumeMeshHandle{h}, err
}

func RegisterTetMesh(name string, vertices []math.Vec3, tets [][4]uint32) (VolumeMeshHandle, error) {
	vm, err := structures.NewTetMesh(name, vertices, tets)
	if err != nil {
		return VolumeMeshHandle{}, err
	}
	h, err := register(vm)
	return VolumeMeshHandle{h}, err
}

func RegisterHexMesh(name string, vertices []math.Vec3, hexes [][8]uint32) (VolumeMeshHandle, error) {
	return RegisterVolumeMesh(name, vertices, hexes)
}

func GetVolumeMesh(name string) (VolumeMeshHandle, bool) {
	h, ok := get[*structures.VolumeMesh](structures.TypeVolumeMesh, name)
	return VolumeMeshHandle{h}, ok
}

func WithVolumeMesh(name string, fn func(vm *structures.VolumeMesh) error) error {
	return withStructure(structures.TypeVolumeMesh, name, fn)
}

func WithVolumeMeshRef(name string, fn func(vm *structures.VolumeMesh) error) error {
	return withStructureRef(structures.TypeVolumeMesh, name, fn)
}

func RemoveVolumeMesh(name string) error {
	return newHandle[*structures.VolumeMesh](structures.TypeVolumeMesh, name).Remove()
}

func (h VolumeMeshHandle) SetColor(color math.Vec3) error {
	return h.With(func(vm *structures.VolumeMesh) error {
		vm.Color = color
		vm.MarkDirty()
		return nil
	})
}

func (h VolumeMeshHandle) SetInteriorColor(color math.Vec3) error {
	return h.With(func(vm *structures.VolumeMesh) error {
		vm.InteriorColor = color
		vm.MarkDirty()
		return nil
	})
}

func (h VolumeMeshHandle) SetEdgeWidth(width float32) error {
	return h.With(func(vm *structures.VolumeMesh) error {
		vm.EdgeWidth = width
		vm.ShowEdges = width > 0
		vm.MarkDirty()
		return nil
	})
}

func (h VolumeMeshHandle) UpdateVertexPositions(positions []math.Vec3) error {
	return h.withExtents(func(vm *structures.VolumeMesh) error {
		return vm.UpdateVertexPositions(positions)
	})
}

func (h VolumeMeshHandle) AddVertexScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainVertex, values))
}

func (h VolumeMeshHandle) AddCellScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainCell, values))
}

func (h VolumeMeshHandle) AddVertexColorQuantity(name string, colors []math.Vec3) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantity(name, quantities.DomainVertex, colors))
}

func (h VolumeMeshHandle) AddCellColorQuantity(name string, colors []math.Vec3) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantity(name, quantities.DomainCell, colors))
}

func (h VolumeMeshHandle) AddVertexVectorQuantity(name string, vectors []math.Vec3) (QuantityHandle[*quantities.VectorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewVectorQuantity(name, quantities.DomainVertex, vectors))
}

func (h VolumeMeshHandle) AddCellVectorQuantity(name string, vectors []math.Vec3) (QuantityHandle[*quantities.VectorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewVectorQuantity(name, quantities.DomainCell, vectors))
}

type VolumeGridHandle struct {
	Handle[*structures.VolumeGrid]
}

/**
 * @brief Registers a regular grid with dims nodes per axis spanning
 * [boundMin, boundMax].
 */
func RegisterVolumeGrid(name string, dims [3]int, boundMin, boundMax math.Vec3) (VolumeGridHandle, error) {
	g, err := structures.NewVolumeGrid(name, dims, boundMin, boundMax)
	if err != nil {
		return VolumeGridHandle{}, err
	}
	h, err := register(g)
	return VolumeGridHandle{h}, err
}

func GetVolumeGrid(name string) (VolumeGridHandle, bool) {
	h, ok := get[*structures.VolumeGrid](structures.TypeVolumeGrid, name)
	return VolumeGridHandle{h}, ok
}

func WithVolumeGrid(name string, fn func(g *structures.VolumeGrid) error) error {
	return withStructure(structures.TypeVolumeGrid, name, fn)
}

func WithVolumeGridRef(name string, fn func(g *structures.VolumeGrid) error) error {
	return withStructureRef(structures.TypeVolumeGrid, name, fn)
}

func RemoveVolumeGrid(name string) error {
	return newHandle[*structures.VolumeGrid](structures.TypeVolumeGrid, name).Remove()
}

func (h VolumeGridHandle) SetColor(color math.Vec3) error {
	return h.With(func(g *structures.VolumeGrid) error {
		g.Color = color
		g.MarkDirty()
		return nil
	})
}

// SetCubeSizeFactor scales the gridcube boxes relative to the node spacing.
func (h VolumeGridHandle) SetCubeSizeFactor(factor float32) error {
	return h.With(func(g *structures.VolumeGrid) error {
		g.CubeSizeFactor = factor
		g.MarkDirty()
		return nil
	})
}

/**
 * @brief Adds a node scalar drawn in mode. Isosurface mode extracts the
 * level set at the middle of the data range until SetIsoValue moves it.
 */
func (h VolumeGridHandle) AddNodeScalarQuantity(name string, values []float32, mode quantities.GridVizMode) (QuantityHandle[*quantities.ScalarQuantity], error) {
	q := quantities.NewScalarQuantity(name, quantities.DomainNode, values)
	q.VizMode = mode
	return addQuantity(h.Handle, q)
}

func (h VolumeGridHandle) AddCellScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainCell, values))
}

// SetIsoValue moves the level set of a node scalar quantity.
func SetIsoValue(q QuantityHandle[*quantities.ScalarQuantity], iso float32) error {
	return q.With(func(s *quantities.ScalarQuantity) error {
		s.IsoValue = iso
		return nil
	})
}

/**
 * @brief Sets the colour-map range of a scalar quantity. lo == hi resets it
 * to the observed data range.
 */
func SetMapRange(q QuantityHandle[*quantities.ScalarQuantity], lo, hi float32) error {
	return q.With(func(s *quantities.ScalarQuantity) error {
		if lo == hi {
			s.ResetMapRange()
			return nil
		}
		s.SetMapRange(lo, hi)
		return nil
	})
}

func SetColormap(q QuantityHandle[*quantities.ScalarQuantity], colormap string) error {
	return q.With(func(s *quantities.ScalarQuantity) error {
		s.Colormap = colormap
		return nil
	})
}

// SetVectorLength sets the longest arrow, relative to the length scale or absolute.
func SetVectorLength(q QuantityHandle[*quantities.VectorQuantity], length float32, relative bool) error {
	return q.With(func(v *quantities.VectorQuantity) error {
		v.SetLength(length, relative)
		return nil
	})
}

type CameraViewHandle struct {
	Handle[*structures.CameraView]
}

func RegisterCameraView(name string, params structures.CameraParameters) (CameraViewHandle, error) {
	h, err := register(structures.NewCameraView(name, params))
	return CameraViewHandle{h}, err
}

func GetCameraView(name string) (CameraViewHandle, bool) {
	h, ok := get[*structures.CameraView](structures.TypeCameraView, name)
	return CameraViewHandle{h}, ok
}

func WithCameraView(name string, fn func(cv *structures.CameraView) error) error {
	return withStructure(structures.TypeCameraView, name, fn)
}

func WithCameraViewRef(name string, fn func(cv *structures.CameraView) error) error {
	return withStructureRef(structures.TypeCameraView, name, fn)
}

func RemoveCameraView(name string) error {
	return newHandle[*structures.CameraView](structures.TypeCameraView, name).Remove()
}

func (h CameraViewHandle) SetParameters(params structures.CameraParameters) error {
	return h.withExtents(func(cv *structures.CameraView) error {
		cv.SetParameters(params)
		return nil
	})
}

// SetWidget sets the frustum focal length and line thickness, both relative to the length scale.
func (h CameraViewHandle) SetWidget(focalLength, thickness float32, color math.Vec3) error {
	return h.With(func(cv *structures.CameraView) error {
		cv.WidgetFocalLength = focalLength
		cv.WidgetThickness = thickness
		cv.WidgetColor = color
		cv.MarkDirty()
		return nil
	})
}
