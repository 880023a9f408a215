package layer

import (
	"maps"
	"slices"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// Assign moves an instance into layerID, appending it to that layer's list.
// If the instance already belongs to another layer it is removed there
// first. Assigning to the current layer is a no-op.
func (m *Manager) Assign(instanceID, layerID string) error {
	return m.AssignAt(instanceID, layerID, -1)
}

// AssignAt is Assign with an explicit position in the target list; negative
// or out-of-range positions append.
func (m *Manager) AssignAt(instanceID, layerID string, index int) error {
	target, ok := m.layers[layerID]
	if !ok {
		return bferrors.NotFound("layer", layerID)
	}
	if cur, ok := m.owner[instanceID]; ok {
		if cur == layerID {
			return nil
		}
		m.detach(instanceID, cur)
	}
	if index < 0 || index > len(target.InstanceIDs) {
		index = len(target.InstanceIDs)
	}
	target.InstanceIDs = slices.Insert(target.InstanceIDs, index, instanceID)
	m.owner[instanceID] = layerID
	return nil
}

// Unassign removes an instance from its layer and reports where it was, so
// the removal can be undone with AssignAt.
func (m *Manager) Unassign(instanceID string) (layerID string, index int, err error) {
	cur, ok := m.owner[instanceID]
	if !ok {
		return "", -1, bferrors.New(bferrors.ErrCodeNotFound, "instance %q has no layer", instanceID)
	}
	return cur, m.detach(instanceID, cur), nil
}

func (m *Manager) detach(instanceID, layerID string) int {
	l := m.layers[layerID]
	i := slices.Index(l.InstanceIDs, instanceID)
	if i >= 0 {
		l.InstanceIDs = slices.Delete(l.InstanceIDs, i, i+1)
	}
	delete(m.owner, instanceID)
	return i
}

// LayerOf returns the layer owning an instance.
func (m *Manager) LayerOf(instanceID string) (string, bool) {
	id, ok := m.owner[instanceID]
	return id, ok
}

// IndexOf returns an instance's position within its layer's list.
func (m *Manager) IndexOf(instanceID string) int {
	id, ok := m.owner[instanceID]
	if !ok {
		return -1
	}
	return slices.Index(m.layers[id].InstanceIDs, instanceID)
}

// InstanceIDs returns every owned instance id, sorted.
func (m *Manager) InstanceIDs() []string {
	return slices.Sorted(maps.Keys(m.owner))
}
