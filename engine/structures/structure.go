package structures

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
)

/** @brief The registered structure types. */
type TypeTag int

const (
	TypePointCloud TypeTag = iota
	TypeSurfaceMesh
	TypeCurveNetwork
	TypeVolumeMesh
	TypeVolumeGrid
	TypeCameraView
)

func (t TypeTag) String() string {
	switch t {
	case TypePointCloud:
		return "PointCloud"
	case TypeSurfaceMesh:
		return "SurfaceMesh"
	case TypeCurveNetwork:
		return "CurveNetwork"
	case TypeVolumeMesh:
		return "VolumeMesh"
	case TypeVolumeGrid:
		return "VolumeGrid"
	case TypeCameraView:
		return "CameraView"
	}
	return "Unknown"
}

const DefaultMaterial = "clay"

/**
 * @brief The contract every registered structure fulfils. Draw records into
 * the pass in frame; Prepare runs once per frame before any pass and is the
 * only place that writes GPU memory.
 */
type Structure interface {
	Name() string
	Type() TypeTag

	IsEnabled() bool
	SetEnabled(enabled bool)
	Transform() math.Mat4
	SetTransform(m math.Mat4)
	Material() string
	SetMaterial(name string)
	/** @brief Opacity in [0, 1]; 1 is opaque. */
	Transparency() float32
	SetTransparency(alpha float32)
	IsTransparent() bool

	/** @brief Bounding box in local coordinates; false when the structure has no extent. */
	LocalBoundingBox() (math.Extents3D, bool)
	/** @brief Axis-aligned hull of the transformed local box corners. */
	BoundingBox() (math.Extents3D, bool)
	LengthScale() float32

	/** @brief Element count of a domain; false if the structure has no such domain. */
	ElementCount(domain quantities.ElementDomain) (int, bool)
	AddQuantity(q quantities.Quantity) error
	Quantity(name string) (quantities.Quantity, bool)
	RemoveQuantity(name string) error
	Quantities() []quantities.Quantity

	/** @brief The domain pick IDs index into. */
	PickDomain() quantities.ElementDomain

	Prepare(frame *Frame) error
	Draw(frame *Frame) error
	DrawPick(frame *Frame) error

	/** @brief Forgets every GPU handle. Called when the device is replaced. */
	ClearGPUResources()
	/** @brief Destroys GPU objects on the current device. */
	ReleaseGPUResources(backend renderer.RendererBackend)
}

/**
 * @brief State shared by every structure type.
 */
type structureBase struct {
	name         string
	tag          TypeTag
	enabled      bool
	transform    math.Mat4
	material     string
	transparency float32

	quantities []quantities.Quantity
	// Set whenever geometry, appearance or quantities change.
	dirty bool

	counter func(quantities.ElementDomain) (int, bool)
	local   func() (math.Extents3D, bool)
}

func newStructureBase(name string, tag TypeTag) structureBase {
	return structureBase{
		name:         name,
		tag:          tag,
		enabled:      true,
		transform:    math.NewMat4Identity(),
		material:     DefaultMaterial,
		transparency: 1,
		dirty:        true,
	}
}

func (s *structureBase) Name() string {
	return s.name
}

func (s *structureBase) Type() TypeTag {
	return s.tag
}

func (s *structureBase) IsEnabled() bool {
	return s.enabled
}

func (s *structureBase) SetEnabled(enabled bool) {
	s.enabled = enabled
}

func (s *structureBase) Transform() math.Mat4 {
	return s.transform
}

func (s *structureBase) SetTransform(m math.Mat4) {
	s.transform = m
}

func (s *structureBase) Material() string {
	return s.material
}

func (s *structureBase) SetMaterial(name string) {
	if s.material != name {
		s.material = name
		s.dirty = true
	}
}

func (s *structureBase) Transparency() float32 {
	return s.transparency
}

func (s *structureBase) SetTransparency(alpha float32) {
	s.transparency = math.Clamp(alpha, 0, 1)
	s.dirty = true
}

func (s *structureBase) IsTransparent() bool {
	if s.transparency < 1 {
		return true
	}
	if c, ok := quantities.ActiveColoring(s.quantities).(*quantities.ColorQuantity); ok && c.HasAlpha {
		return true
	}
	return false
}

// MarkDirty forces the next Prepare to rebuild GPU data.
func (s *structureBase) MarkDirty() {
	s.dirty = true
}

func (s *structureBase) LocalBoundingBox() (math.Extents3D, bool) {
	if s.local == nil {
		return math.Extents3D{}, false
	}
	return s.local()
}

func (s *structureBase) BoundingBox() (math.Extents3D, bool) {
	local, ok := s.LocalBoundingBox()
	if !ok {
		return math.Extents3D{}, false
	}
	return local.Transform(s.transform), true
}

func (s *structureBase) LengthScale() float32 {
	box, ok := s.BoundingBox()
	if !ok {
		return 1
	}
	return box.Diagonal()
}

func (s *structureBase) ElementCount(domain quantities.ElementDomain) (int, bool) {
	if s.counter == nil {
		return 0, false
	}
	return s.counter(domain)
}

func (s *structureBase) AddQuantity(q quantities.Quantity) error {
	count, ok := s.ElementCount(q.Domain())
	if !ok {
		return fmt.Errorf("%s %q has no %s domain: %w", s.tag, s.name, q.Domain(), core.NewSizeMismatch(0, q.DataSize()))
	}
	if err := quantities.Validate(q, count); err != nil {
		return err
	}
	if _, exists := s.Quantity(q.Name()); exists {
		return fmt.Errorf("%s %q quantity %q: %w", s.tag, s.name, q.Name(), core.ErrQuantityExists)
	}
	s.quantities = append(s.quantities, q)
	s.dirty = true
	return nil
}

func (s *structureBase) Quantity(name string) (quantities.Quantity, bool) {
	for _, q := range s.quantities {
		if q.Name() == name {
			return q, true
		}
	}
	return nil, false
}

func (s *structureBase) RemoveQuantity(name string) error {
	for i, q := range s.quantities {
		if q.Name() == name {
			s.quantities = append(s.quantities[:i], s.quantities[i+1:]...)
			s.dirty = true
			return nil
		}
	}
	return fmt.Errorf("%s %q quantity %q: %w", s.tag, s.name, name, core.ErrQuantityNotFound)
}

func (s *structureBase) Quantities() []quantities.Quantity {
	out := make([]quantities.Quantity, len(s.quantities))
	copy(out, s.quantities)
	return out
}

// EnableQuantityExclusive enables name and disables every other coloring quantity.
func (s *structureBase) EnableQuantityExclusive(name string) error {
	target, ok := s.Quantity(name)
	if !ok {
		return fmt.Errorf("%s %q quantity %q: %w", s.tag, s.name, name, core.ErrQuantityNotFound)
	}
	for _, q := range s.quantities {
		if q.Kind() != quantities.KindVector && q.Kind() != quantities.KindOneForm {
			q.SetEnabled(false)
		}
	}
	target.SetEnabled(true)
	s.dirty = true
	return nil
}
