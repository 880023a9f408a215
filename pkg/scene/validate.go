package scene

import (
	"slices"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/snap"
)

// Validate checks every cross-entity invariant of the project: layer forest
// and ownership, instance references, connection endpoints, per-snap-point
// connection limits and the error state mirrored on instances. A violation
// is a bug, reported as INTERNAL_ERROR.
func (p *Project) Validate() error {
	if err := p.layers.Validate(); err != nil {
		return bferrors.Wrap(bferrors.ErrCodeInternal, err, "layer forest")
	}
	if owned := p.layers.InstanceIDs(); !slices.Equal(owned, sortedIDs(p.instances)) {
		return bferrors.Internal("layers own %d instances, project has %d", len(owned), len(p.instances))
	}

	for _, id := range sortedIDs(p.instances) {
		if err := p.validateInstance(p.instances[id]); err != nil {
			return err
		}
	}

	used := make(map[snap.Endpoint]int)
	for _, id := range sortedIDs(p.conns) {
		c := p.conns[id]
		if err := p.validateConnection(c); err != nil {
			return err
		}
		if c.Valid {
			used[c.Source]++
			used[c.Target]++
		}
	}
	for e, n := range used {
		b := must(p.blockOf(p.instances[e.InstanceID]))
		sp, _ := b.SnapPoint(e.SnapPointID)
		if limit := sp.MaxConnectionsOr(p.engine.Options().DefaultMaxConnections); n > limit {
			return bferrors.Internal("snap point %s holds %d valid connections, limit %d", e, n, limit)
		}
	}
	return nil
}

func (p *Project) validateInstance(inst *Instance) error {
	if inst.Transform == nil {
		return bferrors.Internal("instance %q has no transform", inst.ID)
	}
	if lid, ok := p.layers.LayerOf(inst.ID); !ok || lid != inst.LayerID {
		return bferrors.Internal("instance %q claims layer %q, owned by %q", inst.ID, inst.LayerID, lid)
	}
	if _, err := p.blockOf(inst); err != nil {
		return bferrors.Wrap(bferrors.ErrCodeInternal, err, "instance %q", inst.ID)
	}
	if !slices.IsSorted(inst.Connections) {
		return bferrors.Internal("instance %q connection list is not sorted", inst.ID)
	}
	var errs []string
	for _, cid := range inst.Connections {
		c, ok := p.conns[cid]
		if !ok || !c.Involves(inst.ID) {
			return bferrors.Internal("instance %q lists foreign connection %q", inst.ID, cid)
		}
		if !c.Valid {
			errs = append(errs, c.Error)
		}
	}
	if inst.State.HasErrors != (len(errs) > 0) || !slices.Equal(inst.State.Errors, errs) {
		return bferrors.Internal("instance %q error state does not match its connections", inst.ID)
	}
	return nil
}

func (p *Project) validateConnection(c *Connection) error {
	if c.Source.InstanceID == c.Target.InstanceID {
		return bferrors.Internal("connection %q joins instance %q to itself", c.ID, c.Source.InstanceID)
	}
	if c.Target.Compare(c.Source) <= 0 {
		return bferrors.Internal("connection %q endpoints are not in canonical order", c.ID)
	}
	if c.ID != ConnectionID(c.Source, c.Target) {
		return bferrors.Internal("connection %q id does not match its endpoints", c.ID)
	}
	if c.Locked && !c.Valid {
		return bferrors.Internal("connection %q is locked but invalid", c.ID)
	}
	for _, e := range [2]snap.Endpoint{c.Source, c.Target} {
		inst, ok := p.instances[e.InstanceID]
		if !ok {
			return bferrors.Internal("connection %q references missing instance %q", c.ID, e.InstanceID)
		}
		if _, found := slices.BinarySearch(inst.Connections, c.ID); !found {
			return bferrors.Internal("instance %q does not list connection %q", e.InstanceID, c.ID)
		}
		b := must(p.blockOf(inst))
		if _, ok := b.SnapPoint(e.SnapPointID); !ok {
			return bferrors.Internal("connection %q references unknown snap point %s", c.ID, e)
		}
	}
	return nil
}
