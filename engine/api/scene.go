package api

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Applies fn to the viewer options and brings them back into their
 * valid ranges afterwards.
 */
func SetOptions(fn func(o *scene.Options)) error {
	return scene.With(func(ctx *scene.Context) error {
		fn(&ctx.Options)
		ctx.Options.Normalize()
		return nil
	})
}

func GetOptions() (scene.Options, error) {
	var options scene.Options
	err := scene.WithRead(func(ctx *scene.Context) error {
		options = ctx.Options
		return nil
	})
	return options, err
}

// SetGizmo replaces the gizmo mode, space, snapping and visibility.
func SetGizmo(fn func(g *scene.GizmoConfig)) error {
	return scene.With(func(ctx *scene.Context) error {
		fn(&ctx.Gizmo)
		return nil
	})
}

func ClearSelection() error {
	return scene.With(func(ctx *scene.Context) error {
		ctx.ClearSelection()
		return nil
	})
}

func GetSelection() (scene.Selection, error) {
	var sel scene.Selection
	err := scene.WithRead(func(ctx *scene.Context) error {
		sel = ctx.Selection()
		return nil
	})
	return sel, err
}

// RequestCameraFit makes the next frame fit the camera to the scene.
func RequestCameraFit() error {
	return scene.With(func(ctx *scene.Context) error {
		ctx.RequestCameraFit()
		return nil
	})
}

type GroupHandle struct {
	name string
}

func CreateGroup(name string) (GroupHandle, error) {
	err := scene.With(func(ctx *scene.Context) error {
		_, err := ctx.CreateGroup(name)
		return err
	})
	if err != nil {
		return GroupHandle{}, err
	}
	return GroupHandle{name: name}, nil
}

func GetGroup(name string) (GroupHandle, bool) {
	found := false
	_ = scene.WithRead(func(ctx *scene.Context) error {
		_, found = ctx.Group(name)
		return nil
	})
	if !found {
		return GroupHandle{}, false
	}
	return GroupHandle{name: name}, true
}

func (g GroupHandle) Name() string {
	return g.name
}

func (g GroupHandle) AddStructure(r Referenced) error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.AddToGroup(g.name, r.Ref())
	})
}

func (g GroupHandle) RemoveStructure(r Referenced) error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.RemoveFromGroup(g.name, r.Ref())
	})
}

// AddChildGroup nests child below g; cycles are rejected.
func (g GroupHandle) AddChildGroup(child GroupHandle) error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.AddChildGroup(g.name, child.name)
	})
}

func (g GroupHandle) SetEnabled(enabled bool) error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.SetGroupEnabled(g.name, enabled)
	})
}

func (g GroupHandle) SetShowChildDetails(show bool) error {
	return scene.With(func(ctx *scene.Context) error {
		grp, ok := ctx.Group(g.name)
		if !ok {
			return fmt.Errorf("group %q: %w", g.name, core.ErrGroupNotFound)
		}
		grp.ShowChildDetails = show
		return nil
	})
}

// IsEnabled is false when the group or any of its ancestors is disabled.
func (g GroupHandle) IsEnabled() bool {
	enabled := false
	_ = scene.WithRead(func(ctx *scene.Context) error {
		enabled = ctx.IsGroupEnabled(g.name)
		return nil
	})
	return enabled
}

func (g GroupHandle) Remove() error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.RemoveGroup(g.name)
	})
}

type SlicePlaneHandle struct {
	name string
}

/**
 * @brief Adds a slice plane through the scene center facing +X. Geometry
 * on the side the normal points to is cut away in every pass.
 */
func AddSlicePlane(name string) (SlicePlaneHandle, error) {
	err := scene.With(func(ctx *scene.Context) error {
		_, err := ctx.AddSlicePlane(name)
		return err
	})
	if err != nil {
		return SlicePlaneHandle{}, err
	}
	return SlicePlaneHandle{name: name}, nil
}

func (p SlicePlaneHandle) Name() string {
	return p.name
}

func (p SlicePlaneHandle) With(fn func(plane *scene.SlicePlane) error) error {
	return scene.With(func(ctx *scene.Context) error {
		plane, ok := ctx.SlicePlane(p.name)
		if !ok {
			return fmt.Errorf("slice plane %q: %w", p.name, core.ErrStructureNotFound)
		}
		return fn(plane)
	})
}

func (p SlicePlaneHandle) SetPose(origin, normal math.Vec3) error {
	return p.With(func(plane *scene.SlicePlane) error {
		plane.SetPose(origin, normal)
		return nil
	})
}

func (p SlicePlaneHandle) SetEnabled(enabled bool) error {
	return p.With(func(plane *scene.SlicePlane) error {
		plane.Enabled = enabled
		return nil
	})
}

// SetDrawing toggles the translucent plane quad and the transform widget.
func (p SlicePlaneHandle) SetDrawing(plane, widget bool) error {
	return p.With(func(sp *scene.SlicePlane) error {
		sp.DrawPlane = plane
		sp.DrawWidget = widget
		return nil
	})
}

func (p SlicePlaneHandle) SetColor(color math.Vec3, transparency float32) error {
	return p.With(func(plane *scene.SlicePlane) error {
		plane.Color = color
		plane.Transparency = math.Clamp(transparency, 0, 1)
		return nil
	})
}

func (p SlicePlaneHandle) Remove() error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.RemoveSlicePlane(p.name)
	})
}

type FloatingHandle struct {
	name string
}

/**
 * @brief Registers a width x height scalar image, colour-mapped with
 * colormap over its data range.
 */
func AddScalarImage(name string, width, height int, values []float32, colormap string) (FloatingHandle, error) {
	err := scene.With(func(ctx *scene.Context) error {
		_, err := ctx.AddScalarImage(name, width, height, values, colormap)
		return err
	})
	if err != nil {
		return FloatingHandle{}, err
	}
	return FloatingHandle{name: name}, nil
}

func AddColorImage(name string, width, height int, colors []math.Vec4) (FloatingHandle, error) {
	err := scene.With(func(ctx *scene.Context) error {
		_, err := ctx.AddColorImage(name, width, height, colors)
		return err
	})
	if err != nil {
		return FloatingHandle{}, err
	}
	return FloatingHandle{name: name}, nil
}

func (f FloatingHandle) Name() string {
	return f.name
}

func (f FloatingHandle) With(fn func(q *scene.FloatingQuantity) error) error {
	return scene.With(func(ctx *scene.Context) error {
		q, ok := ctx.FloatingQuantity(f.name)
		if !ok {
			return fmt.Errorf("floating quantity %q: %w", f.name, core.ErrQuantityNotFound)
		}
		return fn(q)
	})
}

// ShowFullscreen composites the image over the whole frame.
func (f FloatingHandle) ShowFullscreen(show bool) error {
	return f.With(func(q *scene.FloatingQuantity) error {
		q.ShowFullscreen = show
		return nil
	})
}

func (f FloatingHandle) SetEnabled(enabled bool) error {
	return f.With(func(q *scene.FloatingQuantity) error {
		q.Enabled = enabled
		return nil
	})
}

func (f FloatingHandle) SetMapRange(lo, hi float32) error {
	return f.With(func(q *scene.FloatingQuantity) error {
		q.SetMapRange(lo, hi)
		return nil
	})
}

func (f FloatingHandle) Remove() error {
	return scene.With(func(ctx *scene.Context) error {
		return ctx.RemoveFloatingQuantity(f.name)
	})
}
