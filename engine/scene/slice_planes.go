package scene

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/structures"
)

/**
 * @brief A cutting plane. Fragments on the positive-normal side are
 * discarded by every pass while the plane is enabled.
 */
type SlicePlane struct {
	Name   string    `json:"name"`
	Origin math.Vec3 `json:"origin"`
	// Unit length, kept normalized by SetPose.
	Normal       math.Vec3 `json:"normal"`
	Color        math.Vec3 `json:"color"`
	Transparency float32   `json:"transparency"`
	PlaneSize    float32   `json:"plane_size"`
	DrawPlane    bool      `json:"draw_plane"`
	DrawWidget   bool      `json:"draw_widget"`
	Enabled      bool      `json:"enabled"`
}

func (p *SlicePlane) SetPose(origin, normal math.Vec3) {
	p.Origin = origin
	p.Normal = normal.Normalized()
}

// Discards reports whether a world point lies on the clipped side.
func (p *SlicePlane) Discards(point math.Vec3) bool {
	return point.Sub(p.Origin).Dot(p.Normal) > 0
}

/**
 * @brief Adds a plane through the scene center facing +X. Names must be unique.
 */
func (c *Context) AddSlicePlane(name string) (*SlicePlane, error) {
	if _, ok := c.SlicePlane(name); ok {
		return nil, fmt.Errorf("slice plane %q: %w", name, core.ErrStructureExists)
	}
	p := &SlicePlane{
		Name:         name,
		Origin:       c.boundingBox.Center(),
		Normal:       math.NewVec3(1, 0, 0),
		Color:        math.NewVec3(0.5, 0.5, 0.5),
		Transparency: 0.5,
		PlaneSize:    0.05,
		DrawPlane:    true,
		DrawWidget:   true,
		Enabled:      true,
	}
	c.slicePlanes = append(c.slicePlanes, p)
	return p, nil
}

func (c *Context) SlicePlane(name string) (*SlicePlane, bool) {
	for _, p := range c.slicePlanes {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (c *Context) SlicePlanes() []*SlicePlane {
	return c.slicePlanes
}

func (c *Context) RemoveSlicePlane(name string) error {
	for i, p := range c.slicePlanes {
		if p.Name == name {
			c.slicePlanes = append(c.slicePlanes[:i], c.slicePlanes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("slice plane %q: %w", name, core.ErrStructureNotFound)
}

/** @brief The enabled planes in the form structures consume. */
func (c *Context) EnabledSlicePlanes() []structures.SlicePlane {
	var out []structures.SlicePlane
	for _, p := range c.slicePlanes {
		if p.Enabled {
			out = append(out, structures.SlicePlane{Origin: p.Origin, Normal: p.Normal})
		}
	}
	return out
}
