// Package api is the thin layer applications use to build a scene: register,
// look up and remove structures by name, attach quantities and manage
// groups, slice planes and floating quantities. Every call goes through the
// process-wide scene context, so the engine must be initialized first.
package api

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

/**
 * @brief Anything that names a registered structure.
 */
type Referenced interface {
	Ref() scene.StructureRef
}

/**
 * @brief A weak reference to a registered structure of type T. It holds
 * only the name; every call resolves it against the context and fails with
 * ErrStructureNotFound once the structure is gone.
 */
type Handle[T structures.Structure] struct {
	tag  structures.TypeTag
	name string
}

func newHandle[T structures.Structure](tag structures.TypeTag, name string) Handle[T] {
	return Handle[T]{tag: tag, name: name}
}

func (h Handle[T]) Name() string {
	return h.name
}

func (h Handle[T]) Ref() scene.StructureRef {
	return scene.StructureRef{Type: h.tag, Name: h.name}
}

// Exists reports whether the structure is still registered.
func (h Handle[T]) Exists() bool {
	return StructureExists(h.tag, h.name)
}

// With runs fn with exclusive access to the structure.
func (h Handle[T]) With(fn func(s T) error) error {
	return scene.With(func(ctx *scene.Context) error {
		s, err := lookup[T](ctx, h.tag, h.name)
		if err != nil {
			return err
		}
		return fn(s)
	})
}

// WithRef runs fn with shared access; fn must not mutate the structure.
func (h Handle[T]) WithRef(fn func(s T) error) error {
	return scene.WithRead(func(ctx *scene.Context) error {
		s, err := lookup[T](ctx, h.tag, h.name)
		if err != nil {
			return err
		}
		return fn(s)
	})
}

// Remove unregisters the structure. Its GPU resources go at the end of the frame.
func (h Handle[T]) Remove() error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.Remove(h.tag, h.name)
	})
}

func (h Handle[T]) SetEnabled(enabled bool) error {
	return h.With(func(s T) error {
		s.SetEnabled(enabled)
		return nil
	})
}

func (h Handle[T]) IsEnabled() (bool, error) {
	var enabled bool
	err := h.WithRef(func(s T) error {
		enabled = s.IsEnabled()
		return nil
	})
	return enabled, err
}

// withExtents is With for changes that move the structure's bounding box.
func (h Handle[T]) withExtents(fn func(s T) error) error {
	return scene.With(func(ctx *scene.Context) error {
		s, err := lookup[T](ctx, h.tag, h.name)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		ctx.MarkExtentsDirty()
		return nil
	})
}

/**
 * @brief Replaces the model transform. The scene extents are recomputed on
 * the next frame.
 */
func (h Handle[T]) SetTransform(m math.Mat4) error {
	return h.withExtents(func(s T) error {
		s.SetTransform(m)
		return nil
	})
}

func (h Handle[T]) SetMaterial(material string) error {
	return h.With(func(s T) error {
		s.SetMaterial(material)
		return nil
	})
}

func (h Handle[T]) SetTransparency(alpha float32) error {
	return h.With(func(s T) error {
		s.SetTransparency(alpha)
		return nil
	})
}

func (h Handle[T]) RemoveQuantity(name string) error {
	return h.With(func(s T) error {
		return s.RemoveQuantity(name)
	})
}

// EnableQuantityExclusive enables name and turns off the other coloring quantities.
func (h Handle[T]) EnableQuantityExclusive(name string) error {
	return h.With(func(s T) error {
		ex, ok := any(s).(interface{ EnableQuantityExclusive(string) error })
		if !ok {
			return fmt.Errorf("%s %q: %w", h.tag, h.name, core.ErrQuantityNotFound)
		}
		return ex.EnableQuantityExclusive(name)
	})
}

// Select makes the structure the current selection.
func (h Handle[T]) Select() error {
	return scene.With(func(ctx *scene.Context) error {
		if !ctx.Select(h.tag, h.name, -1) {
			return fmt.Errorf("%s %q: %w", h.tag, h.name, core.ErrStructureNotFound)
		}
		return nil
	})
}

func lookup[T structures.Structure](ctx *scene.Context, tag structures.TypeTag, name string) (T, error) {
	var zero T
	s, ok := ctx.Get(tag, name)
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", tag, name, core.ErrStructureNotFound)
	}
	typed, ok := s.(T)
	if !ok {
		return zero, fmt.Errorf("%s %q has type %T: %w", tag, name, s, core.ErrStructureNotFound)
	}
	return typed, nil
}

func register[T structures.Structure](s T) (Handle[T], error) {
	err := scene.With(func(ctx *scene.Context) error {
		return ctx.Register(s)
	})
	if err != nil {
		return Handle[T]{}, err
	}
	return newHandle[T](s.Type(), s.Name()), nil
}

func get[T structures.Structure](tag structures.TypeTag, name string) (Handle[T], bool) {
	if !StructureExists(tag, name) {
		return Handle[T]{}, false
	}
	return newHandle[T](tag, name), true
}

func withStructure[T structures.Structure](tag structures.TypeTag, name string, fn func(s T) error) error {
	return newHandle[T](tag, name).With(fn)
}

func withStructureRef[T structures.Structure](tag structures.TypeTag, name string, fn func(s T) error) error {
	return newHandle[T](tag, name).WithRef(fn)
}

/**
 * @brief Reports whether a structure of the given type and name is
 * registered. False when the scene is not initialized.
 */
func StructureExists(tag structures.TypeTag, name string) bool {
	exists := false
	_ = scene.WithRead(func(ctx *scene.Context) error {
		exists = ctx.Has(tag, name)
		return nil
	})
	return exists
}

// RemoveStructure unregisters any structure by reference.
func RemoveStructure(r Referenced) error {
	ref := r.Ref()
	return scene.With(func(ctx *scene.Context) error {
		return ctx.Remove(ref.Type, ref.Name)
	})
}

// RemoveAllStructures empties the registry.
func RemoveAllStructures() error {
	return scene.With(func(ctx *scene.Context) error {
		ctx.RemoveAll()
		return nil
	})
}

/**
 * @brief A weak reference to a quantity of kind Q attached to a structure.
 */
type QuantityHandle[Q quantities.Quantity] struct {
	owner scene.StructureRef
	name  string
}

func (q QuantityHandle[Q]) Name() string {
	return q.name
}

func (q QuantityHandle[Q]) Owner() scene.StructureRef {
	return q.owner
}

/**
 * @brief Runs fn with exclusive access to the quantity. The owning
 * structure is marked for re-upload afterwards.
 */
func (q QuantityHandle[Q]) With(fn func(quantity Q) error) error {
	return scene.With(func(ctx *scene.Context) error {
		s, ok := ctx.Get(q.owner.Type, q.owner.Name)
		if !ok {
			return fmt.Errorf("%s: %w", q.owner, core.ErrStructureNotFound)
		}
		found, ok := s.Quantity(q.name)
		if !ok {
			return fmt.Errorf("%s quantity %q: %w", q.owner, q.name, core.ErrQuantityNotFound)
		}
		typed, ok := found.(Q)
		if !ok {
			return fmt.Errorf("%s quantity %q is a %s: %w", q.owner, q.name, found.Kind(), core.ErrQuantityNotFound)
		}
		if err := fn(typed); err != nil {
			return err
		}
		if d, ok := s.(interface{ MarkDirty() }); ok {
			d.MarkDirty()
		}
		return nil
	})
}

func (q QuantityHandle[Q]) SetEnabled(enabled bool) error {
	return q.With(func(quantity Q) error {
		quantity.SetEnabled(enabled)
		return nil
	})
}

func (q QuantityHandle[Q]) Remove() error {
	return scene.With(func(ctx *scene.Context) error {
		s, ok := ctx.Get(q.owner.Type, q.owner.Name)
		if !ok {
			return fmt.Errorf("%s: %w", q.owner, core.ErrStructureNotFound)
		}
		return s.RemoveQuantity(q.name)
	})
}

func addQuantity[T structures.Structure, Q quantities.Quantity](h Handle[T], q Q) (QuantityHandle[Q], error) {
	err := h.With(func(s T) error {
		return s.AddQuantity(q)
	})
	if err != nil {
		return QuantityHandle[Q]{}, err
	}
	return QuantityHandle[Q]{owner: h.Ref(), name: q.Name()}, nil
}
