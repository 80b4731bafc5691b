package api

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/structures"
)

type PointCloudHandle struct {
	Handle[*structures.PointCloud]
}

/**
 * @brief Registers a point cloud. Fails with ErrStructureExists when the
 * name is taken.
 */
func RegisterPointCloud(name string, points []math.Vec3) (PointCloudHandle, error) {
	h, err := register(structures.NewPointCloud(name, points))
	return PointCloudHandle{h}, err
}

func GetPointCloud(name string) (PointCloudHandle, bool) {
	h, ok := get[*structures.PointCloud](structures.TypePointCloud, name)
	return PointCloudHandle{h}, ok
}

func WithPointCloud(name string, fn func(pc *structures.PointCloud) error) error {
	return withStructure(structures.TypePointCloud, name, fn)
}

func WithPointCloudRef(name string, fn func(pc *structures.PointCloud) error) error {
	return withStructureRef(structures.TypePointCloud, name, fn)
}

func RemovePointCloud(name string) error {
	return newHandle[*structures.PointCloud](structures.TypePointCloud, name).Remove()
}

func (h PointCloudHandle) SetPointRadius(radius float32, relative bool) error {
	return h.With(func(pc *structures.PointCloud) error {
		pc.SetPointRadius(radius, relative)
		pc.MarkDirty()
		return nil
	})
}

func (h PointCloudHandle) SetPointColor(color math.Vec3) error {
	return h.With(func(pc *structures.PointCloud) error {
		pc.PointColor = color
		pc.MarkDirty()
		return nil
	})
}

// UpdatePointPositions moves the points; the count must not change.
func (h PointCloudHandle) UpdatePointPositions(points []math.Vec3) error {
	return h.withExtents(func(pc *structures.PointCloud) error {
		return pc.UpdatePointPositions(points)
	})
}

func (h PointCloudHandle) AddScalarQuantity(name string, values []float32) (QuantityHandle[*quantities.ScalarQuantity], error) {
	return addQuantity(h.Handle, quantities.NewScalarQuantity(name, quantities.DomainVertex, values))
}

func (h PointCloudHandle) AddColorQuantity(name string, colors []math.Vec3) (QuantityHandle[*quantities.ColorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewColorQuantity(name, quantities.DomainVertex, colors))
}

func (h PointCloudHandle) AddVectorQuantity(name string, vectors []math.Vec3) (QuantityHandle[*quantities.VectorQuantity], error) {
	return addQuantity(h.Handle, quantities.NewVectorQuantity(name, quantities.DomainVertex, vectors))
}

func (h PointCloudHandle) AddParameterizationQuantity(name string, coords []math.Vec2) (QuantityHandle[*quantities.ParameterizationQuantity], error) {
	return addQuantity(h.Handle, quantities.NewParameterizationQuantity(name, quantities.DomainVertex, coords))
}
