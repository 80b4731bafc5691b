package scene

import (
	"github.com/jinzhu/copier"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
)

type QuantitySnapshot struct {
	Name    string                   `json:"name"`
	Kind    quantities.Kind          `json:"kind"`
	Domain  quantities.ElementDomain `json:"domain"`
	Enabled bool                     `json:"enabled"`
}

type StructureSnapshot struct {
	Ref          StructureRef       `json:"ref"`
	Enabled      bool               `json:"enabled"`
	Visible      bool               `json:"visible"`
	Material     string             `json:"material"`
	Transparency float32            `json:"transparency"`
	Quantities   []QuantitySnapshot `json:"quantities"`
}

type FloatingSnapshot struct {
	Name           string       `json:"name"`
	Kind           FloatingKind `json:"kind"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Enabled        bool         `json:"enabled"`
	ShowFullscreen bool         `json:"show_fullscreen"`
}

/**
 * @brief A detached copy of the scene state for the UI. Mutating it has no
 * effect on the context; edits go back through With.
 */
type Snapshot struct {
	Options     Options             `json:"options"`
	Gizmo       GizmoConfig         `json:"gizmo"`
	Selection   Selection           `json:"selection"`
	BoundingBox math.Extents3D      `json:"bounding_box"`
	LengthScale float32             `json:"length_scale"`
	Structures  []StructureSnapshot `json:"structures"`
	Groups      []Group             `json:"groups"`
	SlicePlanes []SlicePlane        `json:"slice_planes"`
	Floating    []FloatingSnapshot  `json:"floating"`
}

var deepCopy = copier.Option{DeepCopy: true}

func (c *Context) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Gizmo:       c.Gizmo,
		Selection:   c.selection,
		BoundingBox: c.boundingBox,
		LengthScale: c.lengthScale,
	}
	if err := copier.CopyWithOption(&snap.Options, &c.Options, deepCopy); err != nil {
		return nil, err
	}
	for _, s := range c.Structures() {
		ss := StructureSnapshot{
			Ref:          StructureRef{Type: s.Type(), Name: s.Name()},
			Enabled:      s.IsEnabled(),
			Visible:      c.IsVisible(s),
			Material:     s.Material(),
			Transparency: s.Transparency(),
		}
		for _, q := range s.Quantities() {
			ss.Quantities = append(ss.Quantities, QuantitySnapshot{
				Name:    q.Name(),
				Kind:    q.Kind(),
				Domain:  q.Domain(),
				Enabled: q.IsEnabled(),
			})
		}
		snap.Structures = append(snap.Structures, ss)
	}
	for _, g := range c.Groups() {
		var cp Group
		if err := copier.CopyWithOption(&cp, g, deepCopy); err != nil {
			return nil, err
		}
		snap.Groups = append(snap.Groups, cp)
	}
	for _, p := range c.slicePlanes {
		snap.SlicePlanes = append(snap.SlicePlanes, *p)
	}
	for _, f := range c.floating {
		var fs FloatingSnapshot
		if err := copier.Copy(&fs, f); err != nil {
			return nil, err
		}
		snap.Floating = append(snap.Floating, fs)
	}
	return snap, nil
}
