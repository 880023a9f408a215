package layer

import (
	"cmp"
	"slices"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// Subtree is a detached copy of a layer and its descendants, as produced by
// [Manager.Delete] and consumed by [Manager.Restore].
type Subtree struct {
	Root   string  // id of the top layer
	Parent string  // parent of Root at removal time
	Index  int     // position of Root among its siblings
	Layers []Layer // depth-first pre-order, Root first
}

// InstanceIDs returns every instance owned by the subtree, in layer order.
func (s *Subtree) InstanceIDs() []string {
	var out []string
	for i := range s.Layers {
		out = append(out, s.Layers[i].InstanceIDs...)
	}
	return out
}

// LayerIDs returns the ids of every removed layer, depth-first.
func (s *Subtree) LayerIDs() []string {
	out := make([]string, len(s.Layers))
	for i := range s.Layers {
		out[i] = s.Layers[i].ID
	}
	return out
}

// Delete removes a layer. Without cascade the layer must have no children
// and no instances, or a NOT_EMPTY error is returned and nothing changes.
// With cascade the whole subtree goes, and every instance it owned is
// released from ownership; removing those instances from the scene is the
// caller's job.
func (m *Manager) Delete(id string, cascade bool) (*Subtree, error) {
	l, ok := m.layers[id]
	if !ok {
		return nil, bferrors.NotFound("layer", id)
	}
	if !cascade && (len(l.Children) > 0 || len(l.InstanceIDs) > 0) {
		return nil, bferrors.NotEmpty(id, len(l.Children), len(l.InstanceIDs))
	}

	sub := &Subtree{Root: id, Parent: l.Parent}
	ids := append([]string{id}, m.Descendants(id)...)
	for _, lid := range ids {
		sub.Layers = append(sub.Layers, m.layers[lid].Clone())
	}

	sub.Index = m.removeSibling(l.Parent, id)
	// children before parents
	for _, lid := range slices.Backward(ids) {
		for _, inst := range m.layers[lid].InstanceIDs {
			delete(m.owner, inst)
		}
		delete(m.layers, lid)
	}
	return sub, nil
}

// Restore reinserts a subtree removed by Delete at its original position,
// together with its instance ownership.
func (m *Manager) Restore(s *Subtree) error {
	if s == nil || len(s.Layers) == 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "empty subtree")
	}
	if s.Parent != "" && !m.Has(s.Parent) {
		return bferrors.NotFound("layer", s.Parent)
	}
	for i := range s.Layers {
		if m.Has(s.Layers[i].ID) {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "layer %q already exists", s.Layers[i].ID)
		}
	}
	for i := range s.Layers {
		c := s.Layers[i].Clone()
		m.layers[c.ID] = &c
		for _, inst := range c.InstanceIDs {
			m.owner[inst] = c.ID
		}
	}
	m.insertSibling(s.Parent, s.Root, s.Index)
	return nil
}

// Load rebuilds a manager from flat layer records, such as a decoded
// project document. Children lists define sibling order; roots are ordered
// by their Order field. The result is validated before it is returned.
func Load(records []Layer) (*Manager, error) {
	m := NewManager()
	for i := range records {
		r := records[i].Clone()
		if err := bferrors.ValidateID("layer", r.ID); err != nil {
			return nil, err
		}
		if m.Has(r.ID) {
			return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "duplicate layer id %q", r.ID)
		}
		if r.Children == nil {
			r.Children = []string{}
		}
		if r.InstanceIDs == nil {
			r.InstanceIDs = []string{}
		}
		m.layers[r.ID] = &r
	}

	var roots []*Layer
	for _, l := range m.layers {
		if l.Parent == "" {
			roots = append(roots, l)
		}
		for _, inst := range l.InstanceIDs {
			if prev, dup := m.owner[inst]; dup {
				return nil, bferrors.New(bferrors.ErrCodeInvalidInput,
					"instance %q owned by both %q and %q", inst, prev, l.ID)
			}
			m.owner[inst] = l.ID
		}
	}
	slices.SortFunc(roots, func(a, b *Layer) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, r := range roots {
		m.roots = append(m.roots, r.ID)
	}
	m.renumber(m.roots)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	for _, l := range m.layers {
		m.renumber(l.Children)
	}
	return m, nil
}

// Validate checks the structural invariants of the forest: parent and
// child links agree, every layer is reachable from exactly one root, there
// are no cycles, and instance ownership is consistent.
func (m *Manager) Validate() error {
	for id, l := range m.layers {
		if l.Parent != "" {
			p, ok := m.layers[l.Parent]
			if !ok {
				return bferrors.New(bferrors.ErrCodeInvalidInput, "layer %q: parent %q not found", id, l.Parent)
			}
			if !slices.Contains(p.Children, id) {
				return bferrors.New(bferrors.ErrCodeInvalidInput, "layer %q missing from children of %q", id, l.Parent)
			}
		}
		for _, c := range l.Children {
			child, ok := m.layers[c]
			if !ok {
				return bferrors.New(bferrors.ErrCodeInvalidInput, "layer %q: child %q not found", id, c)
			}
			if child.Parent != id {
				return bferrors.New(bferrors.ErrCodeInvalidInput, "layer %q lists child %q whose parent is %q", id, c, child.Parent)
			}
		}
	}

	if err := m.detectCycles(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(m.layers))
	for _, l := range m.Layers() {
		if seen[l.ID] {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "layer %q reachable twice", l.ID)
		}
		seen[l.ID] = true
	}
	if len(seen) != len(m.layers) {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "%d layers unreachable from roots", len(m.layers)-len(seen))
	}

	for inst, lid := range m.owner {
		l, ok := m.layers[lid]
		if !ok || !slices.Contains(l.InstanceIDs, inst) {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "instance %q ownership out of sync", inst)
		}
	}
	return nil
}

// detectCycles walks parent links with three-color marking.
func (m *Manager) detectCycles() error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(m.layers))

	ids := make([]string, 0, len(m.layers))
	for id := range m.layers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, start := range ids {
		var path []string
		cur := start
		for cur != "" && color[cur] == white {
			color[cur] = gray
			path = append(path, cur)
			cur = m.layers[cur].Parent
		}
		if cur != "" && color[cur] == gray {
			return bferrors.Cycle(cur, m.layers[cur].Parent)
		}
		for _, id := range path {
			color[id] = black
		}
	}
	return nil
}
