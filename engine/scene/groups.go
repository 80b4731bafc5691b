package scene

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

/**
 * @brief A named set of structures and child groups. Members are kept by
 * name only; names of removed structures are ignored.
 */
type Group struct {
	Name             string         `json:"name"`
	Enabled          bool           `json:"enabled"`
	ShowChildDetails bool           `json:"show_child_details"`
	Parent           string         `json:"parent,omitempty"`
	Children         []StructureRef `json:"children"`
	ChildGroups      []string       `json:"child_groups"`
}

func (g *Group) hasChild(ref StructureRef) bool {
	for _, r := range g.Children {
		if r == ref {
			return true
		}
	}
	return false
}

func (g *Group) removeChild(ref StructureRef) {
	for i, r := range g.Children {
		if r == ref {
			g.Children = append(g.Children[:i], g.Children[i+1:]...)
			return
		}
	}
}

func (c *Context) CreateGroup(name string) (*Group, error) {
	if _, ok := c.groups[name]; ok {
		return nil, fmt.Errorf("group %q: %w", name, core.ErrGroupExists)
	}
	g := &Group{Name: name, Enabled: true, ShowChildDetails: true}
	c.groups[name] = g
	c.groupOrder = append(c.groupOrder, name)
	return g, nil
}

func (c *Context) Group(name string) (*Group, bool) {
	g, ok := c.groups[name]
	return g, ok
}

func (c *Context) Groups() []*Group {
	out := make([]*Group, 0, len(c.groupOrder))
	for _, name := range c.groupOrder {
		out = append(out, c.groups[name])
	}
	return out
}

func (c *Context) group(name string) (*Group, error) {
	g, ok := c.groups[name]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", name, core.ErrGroupNotFound)
	}
	return g, nil
}

/**
 * @brief Removes a group. Its child groups become roots and its structures
 * stay registered.
 */
func (c *Context) RemoveGroup(name string) error {
	g, err := c.group(name)
	if err != nil {
		return err
	}
	for _, child := range g.ChildGroups {
		if cg, ok := c.groups[child]; ok {
			cg.Parent = ""
		}
	}
	if parent, ok := c.groups[g.Parent]; ok {
		parent.ChildGroups = removeString(parent.ChildGroups, name)
	}
	delete(c.groups, name)
	c.groupOrder = removeString(c.groupOrder, name)
	return nil
}

func (c *Context) AddToGroup(group string, ref StructureRef) error {
	g, err := c.group(group)
	if err != nil {
		return err
	}
	if _, ok := c.structures[ref]; !ok {
		return fmt.Errorf("%s: %w", ref, core.ErrStructureNotFound)
	}
	if !g.hasChild(ref) {
		g.Children = append(g.Children, ref)
	}
	return nil
}

func (c *Context) RemoveFromGroup(group string, ref StructureRef) error {
	g, err := c.group(group)
	if err != nil {
		return err
	}
	g.removeChild(ref)
	return nil
}

/**
 * @brief Nests child under parent. A group has at most one parent and the
 * hierarchy must stay acyclic.
 */
func (c *Context) AddChildGroup(parent, child string) error {
	p, err := c.group(parent)
	if err != nil {
		return err
	}
	ch, err := c.group(child)
	if err != nil {
		return err
	}
	for cur := parent; cur != ""; {
		if cur == child {
			return fmt.Errorf("group %q under %q: %w", child, parent, core.ErrGroupCycle)
		}
		g, ok := c.groups[cur]
		if !ok {
			break
		}
		cur = g.Parent
	}
	if old, ok := c.groups[ch.Parent]; ok {
		old.ChildGroups = removeString(old.ChildGroups, child)
	}
	ch.Parent = parent
	p.ChildGroups = append(p.ChildGroups, child)
	return nil
}

func (c *Context) SetGroupEnabled(name string, enabled bool) error {
	g, err := c.group(name)
	if err != nil {
		return err
	}
	g.Enabled = enabled
	return nil
}

/** @brief A group is enabled when it and all its ancestors are. */
func (c *Context) IsGroupEnabled(name string) bool {
	seen := map[string]bool{}
	for cur := name; cur != "" && !seen[cur]; {
		seen[cur] = true
		g, ok := c.groups[cur]
		if !ok {
			return true
		}
		if !g.Enabled {
			return false
		}
		cur = g.Parent
	}
	return true
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
