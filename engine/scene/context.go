package scene

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/structures"
)

/** @brief Identifies a registered structure. */
type StructureRef struct {
	Type structures.TypeTag `json:"type"`
	Name string             `json:"name"`
}

func (r StructureRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.Name)
}

/**
 * @brief The scene state: registry, options, groups, slice planes,
 * floating quantities, selection and gizmo config. A Context is not safe for
 * concurrent use on its own; the process-wide instance is reached through
 * With and WithRead.
 */
type Context struct {
	structures map[StructureRef]structures.Structure
	// Registration order, for deterministic iteration.
	order []StructureRef
	// Removed structures whose GPU resources are released at the end of the frame.
	removed []structures.Structure

	groups      map[string]*Group
	groupOrder  []string
	slicePlanes []*SlicePlane
	floating    []*FloatingQuantity

	Options Options
	Gizmo   GizmoConfig

	selection Selection

	boundingBox  math.Extents3D
	lengthScale  float32
	extentsDirty bool
	cameraFitted bool
}

func NewContext() *Context {
	c := &Context{
		structures: make(map[StructureRef]structures.Structure),
		groups:     make(map[string]*Group),
		Options:    DefaultOptions(),
		Gizmo:      DefaultGizmoConfig(),
	}
	c.resetExtents()
	return c
}

/**
 * @brief Adds a structure. Fails with ErrStructureExists when its type and
 * name are taken.
 */
func (c *Context) Register(s structures.Structure) error {
	ref := StructureRef{Type: s.Type(), Name: s.Name()}
	if _, ok := c.structures[ref]; ok {
		return fmt.Errorf("%s: %w", ref, core.ErrStructureExists)
	}
	c.structures[ref] = s
	c.order = append(c.order, ref)
	c.extentsDirty = true
	core.LogDebug("registered %s", ref)
	return nil
}

func (c *Context) Get(tag structures.TypeTag, name string) (structures.Structure, bool) {
	s, ok := c.structures[StructureRef{Type: tag, Name: name}]
	return s, ok
}

func (c *Context) Has(tag structures.TypeTag, name string) bool {
	_, ok := c.Get(tag, name)
	return ok
}

/**
 * @brief Removes a structure. Its GPU resources are handed to the frame
 * orchestrator through TakeRemoved.
 */
func (c *Context) Remove(tag structures.TypeTag, name string) error {
	ref := StructureRef{Type: tag, Name: name}
	s, ok := c.structures[ref]
	if !ok {
		return fmt.Errorf("%s: %w", ref, core.ErrStructureNotFound)
	}
	delete(c.structures, ref)
	for i, r := range c.order {
		if r == ref {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	for _, g := range c.groups {
		g.removeChild(ref)
	}
	if c.selection.Valid && c.selection.Ref == ref {
		c.selection = Selection{}
	}
	c.removed = append(c.removed, s)
	c.extentsDirty = true
	return nil
}

// RemoveAll empties the registry.
func (c *Context) RemoveAll() {
	for _, ref := range append([]StructureRef(nil), c.order...) {
		_ = c.Remove(ref.Type, ref.Name)
	}
}

// TakeRemoved returns and forgets the structures removed since the last call.
func (c *Context) TakeRemoved() []structures.Structure {
	out := c.removed
	c.removed = nil
	return out
}

/** @brief Every registered structure in registration order. */
func (c *Context) Structures() []structures.Structure {
	out := make([]structures.Structure, 0, len(c.order))
	for _, ref := range c.order {
		out = append(out, c.structures[ref])
	}
	return out
}

func (c *Context) StructuresOfType(tag structures.TypeTag) []structures.Structure {
	var out []structures.Structure
	for _, ref := range c.order {
		if ref.Type == tag {
			out = append(out, c.structures[ref])
		}
	}
	return out
}

/**
 * @brief Reports whether a structure is drawn: it is enabled and every
 * group holding it is enabled along with all of that group's ancestors.
 */
func (c *Context) IsVisible(s structures.Structure) bool {
	if !s.IsEnabled() {
		return false
	}
	ref := StructureRef{Type: s.Type(), Name: s.Name()}
	for _, name := range c.groupOrder {
		g := c.groups[name]
		if g.hasChild(ref) && !c.IsGroupEnabled(name) {
			return false
		}
	}
	return true
}

// VisibleStructures are the structures passes draw this frame.
func (c *Context) VisibleStructures() []structures.Structure {
	var out []structures.Structure
	for _, s := range c.Structures() {
		if c.IsVisible(s) {
			out = append(out, s)
		}
	}
	return out
}

/** @brief Flags the extents for recomputation at the start of the next frame. */
func (c *Context) MarkExtentsDirty() {
	c.extentsDirty = true
}

func (c *Context) ExtentsDirty() bool {
	return c.extentsDirty
}

func (c *Context) resetExtents() {
	c.boundingBox = math.Extents3D{Min: math.NewVec3(0, 0, 0), Max: math.NewVec3(1, 1, 1)}
	c.lengthScale = 1
}

/**
 * @brief Recomputes the scene bounding box and length scale from every
 * registered structure. With no extent at all the box is the unit cube and
 * the length scale 1. Does nothing when auto-compute is off.
 */
func (c *Context) UpdateExtents() {
	c.extentsDirty = false
	if !c.Options.AutoComputeSceneExtents {
		return
	}
	box := math.NewExtentsEmpty()
	for _, s := range c.Structures() {
		if b, ok := s.BoundingBox(); ok {
			box = box.Union(b)
		}
	}
	if box.IsEmpty() {
		c.resetExtents()
		return
	}
	c.boundingBox = box
	c.lengthScale = box.Diagonal()
	if c.lengthScale <= 0 {
		c.lengthScale = 1
	}
}

// UpdateExtentsIfDirty runs UpdateExtents when something changed; reports whether it ran.
func (c *Context) UpdateExtentsIfDirty() bool {
	if !c.extentsDirty {
		return false
	}
	c.UpdateExtents()
	return true
}

func (c *Context) SetAutoComputeExtents(enabled bool) {
	c.Options.AutoComputeSceneExtents = enabled
	if enabled {
		c.UpdateExtents()
	}
}

func (c *Context) BoundingBox() math.Extents3D {
	return c.boundingBox
}

func (c *Context) LengthScale() float32 {
	return c.lengthScale
}

/** @brief Overrides the extents; only meaningful with auto-compute off. */
func (c *Context) SetBoundingBox(box math.Extents3D) {
	c.boundingBox = box
}

func (c *Context) SetLengthScale(l float32) {
	c.lengthScale = l
}

/**
 * @brief Reports whether the camera still has to be fitted to the scene.
 * True until MarkCameraFitted, once something is registered.
 */
func (c *Context) NeedsCameraFit() bool {
	return !c.cameraFitted && len(c.order) > 0
}

func (c *Context) MarkCameraFitted() {
	c.cameraFitted = true
}

// RequestCameraFit refits the camera on the next frame.
func (c *Context) RequestCameraFit() {
	c.cameraFitted = false
}
