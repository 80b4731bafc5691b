package scene

import "github.com/spaghettifunk/prism/engine/structures"

type GizmoMode int

const (
	GizmoTranslate GizmoMode = iota
	GizmoRotate
	GizmoScale
)

func (m GizmoMode) String() string {
	switch m {
	case GizmoRotate:
		return "rotate"
	case GizmoScale:
		return "scale"
	}
	return "translate"
}

type GizmoSpace int

const (
	GizmoSpaceWorld GizmoSpace = iota
	GizmoSpaceLocal
)

/**
 * @brief Transform gizmo settings. A snap value of 0 disables snapping on
 * that channel; rotation snaps are in degrees.
 */
type GizmoConfig struct {
	Mode          GizmoMode  `json:"mode"`
	Space         GizmoSpace `json:"space"`
	TranslateSnap float32    `json:"translate_snap"`
	RotateSnap    float32    `json:"rotate_snap"`
	ScaleSnap     float32    `json:"scale_snap"`
	Visible       bool       `json:"visible"`
}

func DefaultGizmoConfig() GizmoConfig {
	return GizmoConfig{Mode: GizmoTranslate, Space: GizmoSpaceWorld, Visible: true}
}

/** @brief The selected structure and, when known, the picked element. */
type Selection struct {
	Valid   bool
	Ref     StructureRef
	Element int
}

func (c *Context) Select(tag structures.TypeTag, name string, element int) bool {
	ref := StructureRef{Type: tag, Name: name}
	if _, ok := c.structures[ref]; !ok {
		return false
	}
	c.selection = Selection{Valid: true, Ref: ref, Element: element}
	return true
}

func (c *Context) ClearSelection() {
	c.selection = Selection{}
}

func (c *Context) Selection() Selection {
	return c.selection
}

// SelectedStructure resolves the selection against the registry.
func (c *Context) SelectedStructure() (structures.Structure, bool) {
	if !c.selection.Valid {
		return nil, false
	}
	s, ok := c.structures[c.selection.Ref]
	return s, ok
}
