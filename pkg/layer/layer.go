// Package layer maintains the layer forest of a project: named, ordered,
// nestable groups that own block instances and gate their visibility and
// lock state.
//
// # Ownership
//
// Every instance belongs to exactly one layer. [Manager.Assign] is the only
// way an instance changes layer; it removes the id from the previous layer's
// list and appends it to the new one in one step, so the per-layer
// InstanceIDs lists and the instance→layer index never disagree.
//
// # Effective State
//
// Visible and Locked are stored per layer. The effective value of a layer is
// its own flag combined with every ancestor's: a layer is effectively
// visible only if it and all its ancestors are visible, and effectively
// locked if it or any ancestor is locked.
//
// # Concurrency
//
// Manager is not safe for concurrent use without external synchronization.
package layer

import (
	"slices"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// Layer is one node of the forest.
type Layer struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Parent      string   `json:"parent,omitempty"` // "" for roots
	Children    []string `json:"children"`         // sibling order
	Order       int      `json:"order"`            // index among siblings
	Visible     bool     `json:"visible"`
	Locked      bool     `json:"locked"`
	Opacity     float32  `json:"opacity"`
	Color       string   `json:"color,omitempty"`
	InstanceIDs []string `json:"instanceIds"`
}

// Clone returns a deep copy.
func (l *Layer) Clone() Layer {
	c := *l
	c.Children = slices.Clone(l.Children)
	c.InstanceIDs = slices.Clone(l.InstanceIDs)
	return c
}

// Manager owns the layers of one project.
type Manager struct {
	layers map[string]*Layer
	roots  []string
	owner  map[string]string // instance id -> layer id
}

// NewManager creates an empty forest.
func NewManager() *Manager {
	return &Manager{
		layers: make(map[string]*Layer),
		owner:  make(map[string]string),
	}
}

// Create adds a visible, unlocked, opaque layer under parent ("" for a new
// root), appended after its siblings.
func (m *Manager) Create(id, name, parent string) (*Layer, error) {
	if err := bferrors.ValidateID("layer", id); err != nil {
		return nil, err
	}
	if err := bferrors.ValidateName("layer", name); err != nil {
		return nil, err
	}
	if _, exists := m.layers[id]; exists {
		return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "duplicate layer id %q", id)
	}
	if parent != "" {
		if _, ok := m.layers[parent]; !ok {
			return nil, bferrors.NotFound("layer", parent)
		}
	}
	l := &Layer{
		ID:          id,
		Name:        name,
		Parent:      parent,
		Children:    []string{},
		Visible:     true,
		Opacity:     1,
		InstanceIDs: []string{},
	}
	m.layers[id] = l
	m.insertSibling(parent, id, -1)
	return l, nil
}

// Get returns the layer with the given id.
func (m *Manager) Get(id string) (*Layer, error) {
	l, ok := m.layers[id]
	if !ok {
		return nil, bferrors.NotFound("layer", id)
	}
	return l, nil
}

// Has reports whether a layer exists.
func (m *Manager) Has(id string) bool {
	_, ok := m.layers[id]
	return ok
}

// Len returns the number of layers.
func (m *Manager) Len() int { return len(m.layers) }

// Roots returns root layer ids in order.
func (m *Manager) Roots() []string { return slices.Clone(m.roots) }

// Children returns the child ids of a layer in order.
func (m *Manager) Children(id string) []string {
	if l, ok := m.layers[id]; ok {
		return slices.Clone(l.Children)
	}
	return nil
}

// Layers returns every layer depth-first in sibling order.
func (m *Manager) Layers() []*Layer {
	out := make([]*Layer, 0, len(m.layers))
	var walk func(ids []string)
	walk = func(ids []string) {
		for _, id := range ids {
			l := m.layers[id]
			out = append(out, l)
			walk(l.Children)
		}
	}
	walk(m.roots)
	return out
}

// Depth returns the number of ancestors of a layer.
func (m *Manager) Depth(id string) int {
	d := 0
	for l := m.layers[id]; l != nil && l.Parent != ""; l = m.layers[l.Parent] {
		d++
	}
	return d
}

// Descendants returns all descendants of id, depth-first pre-order,
// excluding id itself.
func (m *Manager) Descendants(id string) []string {
	var out []string
	var walk func(string)
	walk = func(cur string) {
		for _, c := range m.layers[cur].Children {
			out = append(out, c)
			walk(c)
		}
	}
	if _, ok := m.layers[id]; ok {
		walk(id)
	}
	return out
}

// IsDescendant reports whether candidate lies in the subtree below id.
func (m *Manager) IsDescendant(candidate, id string) bool {
	for l := m.layers[candidate]; l != nil && l.Parent != ""; l = m.layers[l.Parent] {
		if l.Parent == id {
			return true
		}
	}
	return false
}

// Move reparents id under newParent ("" makes it a root), appended after the
// new siblings. Moving a layer under itself or one of its descendants fails
// with a CYCLE error and leaves the forest unchanged.
func (m *Manager) Move(id, newParent string) error {
	l, ok := m.layers[id]
	if !ok {
		return bferrors.NotFound("layer", id)
	}
	if newParent != "" {
		if _, ok := m.layers[newParent]; !ok {
			return bferrors.NotFound("layer", newParent)
		}
		if newParent == id || m.IsDescendant(newParent, id) {
			return bferrors.Cycle(id, newParent)
		}
	}
	if l.Parent == newParent {
		return nil
	}
	m.removeSibling(l.Parent, id)
	l.Parent = newParent
	m.insertSibling(newParent, id, -1)
	return nil
}

// MoveTo reparents id and places it at index among the new siblings.
// It is used to restore an exact position when undoing a move.
func (m *Manager) MoveTo(id, newParent string, index int) error {
	if err := m.Move(id, newParent); err != nil {
		return err
	}
	return m.Reorder(id, index)
}

// Reorder moves id to index among its siblings. Negative or out-of-range
// indexes place it last.
func (m *Manager) Reorder(id string, index int) error {
	l, ok := m.layers[id]
	if !ok {
		return bferrors.NotFound("layer", id)
	}
	m.removeSibling(l.Parent, id)
	m.insertSibling(l.Parent, id, index)
	return nil
}

// Rename changes a layer's display name.
func (m *Manager) Rename(id, name string) error {
	l, ok := m.layers[id]
	if !ok {
		return bferrors.NotFound("layer", id)
	}
	if err := bferrors.ValidateName("layer", name); err != nil {
		return err
	}
	l.Name = name
	return nil
}

// SetVisible sets the stored visibility flag of one layer.
func (m *Manager) SetVisible(id string, visible bool) error {
	l, ok := m.layers[id]
	if !ok {
		return bferrors.NotFound("layer", id)
	}
	l.Visible = visible
	return nil
}

// SetLocked sets the stored lock flag of one layer.
func (m *Manager) SetLocked(id string, locked bool) error {
	l, ok := m.layers[id]
	if !ok {
		return bferrors.NotFound("layer", id)
	}
	l.Locked = locked
	return nil
}

// SetOpacity sets a layer's opacity, clamped to [0, 1].
func (m *Manager) SetOpacity(id string, opacity float32) error {
	l, ok := m.layers[id]
	if !ok {
		return bferrors.NotFound("layer", id)
	}
	l.Opacity = min(max(opacity, 0), 1)
	return nil
}

// EffectiveVisible reports whether id and all its ancestors are visible.
func (m *Manager) EffectiveVisible(id string) bool {
	l, ok := m.layers[id]
	if !ok {
		return false
	}
	for ; l != nil; l = m.layers[l.Parent] {
		if !l.Visible {
			return false
		}
	}
	return true
}

// EffectiveLocked reports whether id or any ancestor is locked.
func (m *Manager) EffectiveLocked(id string) bool {
	for l := m.layers[id]; l != nil; l = m.layers[l.Parent] {
		if l.Locked {
			return true
		}
	}
	return false
}

func (m *Manager) siblings(parent string) *[]string {
	if parent == "" {
		return &m.roots
	}
	return &m.layers[parent].Children
}

// insertSibling inserts id into parent's child list at index (append when
// index is negative or past the end) and renumbers Order.
func (m *Manager) insertSibling(parent, id string, index int) {
	s := m.siblings(parent)
	if index < 0 || index > len(*s) {
		index = len(*s)
	}
	*s = slices.Insert(*s, index, id)
	m.renumber(*s)
}

func (m *Manager) removeSibling(parent, id string) int {
	s := m.siblings(parent)
	i := slices.Index(*s, id)
	if i >= 0 {
		*s = slices.Delete(*s, i, i+1)
		m.renumber(*s)
	}
	return i
}

func (m *Manager) renumber(ids []string) {
	for i, id := range ids {
		m.layers[id].Order = i
	}
}
