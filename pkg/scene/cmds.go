package scene

import (
	"context"
	"maps"
	"slices"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/layer"
	"github.com/blockforge/blockforge/pkg/transform"
)

// funcCmd is a command whose mutation and inverse need no re-derivation.
type funcCmd struct {
	label  string
	apply  func() error
	revert func() error
}

func (f *funcCmd) Label() string                { return f.label }
func (f *funcCmd) Apply(context.Context) error  { return f.apply() }
func (f *funcCmd) Revert(context.Context) error { return f.revert() }

// placeCmd adds an instance and derives its connections.
type placeCmd struct {
	p    *Project
	inst *Instance // template, cloned on every Apply
}

func (c *placeCmd) Label() string { return "place " + c.inst.BlockID }

func (c *placeCmd) Apply(ctx context.Context) error {
	inst := c.inst.Clone()
	if err := c.p.layers.Assign(inst.ID, inst.LayerID); err != nil {
		return err
	}
	c.p.instances[inst.ID] = inst
	c.p.resolve(ctx, inst.ID)
	return nil
}

func (c *placeCmd) Revert(context.Context) error {
	c.p.detach(c.inst.ID)
	return nil
}

// moveCmd changes an instance's transform.
type moveCmd struct {
	p        *Project
	id       string
	from, to *transform.Transform
	force    bool
	broken   []*Connection // locked connections removed by a forced move
}

func (c *moveCmd) Label() string { return "move " + c.id }

func (c *moveCmd) Apply(ctx context.Context) error {
	inst, err := c.p.instance(c.id)
	if err != nil {
		return err
	}
	stretched := c.p.lockedStretched(inst, c.to)
	if len(stretched) > 0 && !c.force {
		return bferrors.LockedConnection(stretched[0].ID)
	}
	c.broken = c.broken[:0]
	for _, lc := range stretched {
		c.broken = append(c.broken, lc.Clone())
		c.p.removeConnection(lc)
		c.p.logger.Info("locked connection detached", "connection", lc.ID, "instance", c.id)
	}
	inst.Transform = c.to.Clone()
	c.p.resolve(ctx, c.id)
	return nil
}

func (c *moveCmd) Revert(ctx context.Context) error {
	inst, err := c.p.instance(c.id)
	if err != nil {
		return err
	}
	inst.Transform = c.from.Clone()
	for _, lc := range c.broken {
		c.p.addConnection(lc.Clone())
	}
	c.p.resolve(ctx, c.id)
	return nil
}

// deleteCmd removes an instance and every connection it takes part in.
type deleteCmd struct {
	p      *Project
	id     string
	force  bool
	saved  *Instance
	index  int
	locked []*Connection
}

func (c *deleteCmd) Label() string { return "delete " + c.id }

func (c *deleteCmd) Apply(context.Context) error {
	inst, err := c.p.instance(c.id)
	if err != nil {
		return err
	}
	locked := c.p.lockedOf(inst)
	if len(locked) > 0 && !c.force {
		return bferrors.LockedConnection(locked[0].ID)
	}
	c.saved = inst.Clone()
	c.index = c.p.layers.IndexOf(c.id)
	c.locked = cloneAll(locked)
	c.p.detach(c.id)
	return nil
}

func (c *deleteCmd) Revert(ctx context.Context) error {
	c.p.restore(c.saved, c.index)
	for _, lc := range c.locked {
		c.p.addConnection(lc.Clone())
	}
	c.p.resolve(ctx, c.id)
	return nil
}

// deleteLayerCmd removes a layer, and with cascade its subtree and every
// instance it owned. Cascade detaches locked connections.
type deleteLayerCmd struct {
	p         *Project
	id        string
	cascade   bool
	sub       *layer.Subtree
	instances []*Instance
	locked    []*Connection
}

func (c *deleteLayerCmd) Label() string { return "delete layer " + c.id }

func (c *deleteLayerCmd) Apply(context.Context) error {
	ids := c.p.layers.Descendants(c.id)
	ids = append(ids, c.id)
	var owned []string
	for _, lid := range ids {
		if l, err := c.p.layers.Get(lid); err == nil {
			owned = append(owned, l.InstanceIDs...)
		}
	}

	sub, err := c.p.layers.Delete(c.id, c.cascade)
	if err != nil {
		return err
	}
	c.sub = sub
	c.instances = c.instances[:0]

	locked := make(map[string]*Connection)
	slices.Sort(owned)
	for _, iid := range owned {
		inst := c.p.instances[iid]
		for _, lc := range c.p.lockedOf(inst) {
			locked[lc.ID] = lc.Clone()
		}
		c.instances = append(c.instances, inst.Clone())
	}
	c.locked = c.locked[:0]
	for _, id := range slices.Sorted(maps.Keys(locked)) {
		c.locked = append(c.locked, locked[id])
	}
	// layer ownership is already released by layers.Delete
	for _, inst := range c.instances {
		c.p.dropInstance(inst.ID)
	}
	return nil
}

func (c *deleteLayerCmd) Revert(ctx context.Context) error {
	if err := c.p.layers.Restore(c.sub); err != nil {
		return err
	}
	for _, saved := range c.instances {
		inst := saved.Clone()
		inst.Connections = nil
		c.p.instances[inst.ID] = inst
	}
	for _, lc := range c.locked {
		c.p.addConnection(lc.Clone())
	}
	for _, saved := range c.instances {
		c.p.resolve(ctx, saved.ID)
	}
	return nil
}

// detach removes an instance, its layer membership and its connections.
func (p *Project) detach(id string) {
	if _, _, err := p.layers.Unassign(id); err != nil {
		panic(bferrors.Internal("instance %q has no layer", id))
	}
	p.dropInstance(id)
}

// dropInstance removes an instance and its connections, leaving layer
// membership to the caller.
func (p *Project) dropInstance(id string) {
	inst := p.instances[id]
	partners := make(map[string]bool)
	for _, cid := range slices.Clone(inst.Connections) {
		c := p.conns[cid]
		partners[c.Other(id).InstanceID] = true
		p.removeConnection(c)
	}
	delete(p.instances, id)
	for pid := range partners {
		p.refreshErrors(pid)
	}
}

// restore reinserts a deleted instance at its former position in its layer.
func (p *Project) restore(saved *Instance, index int) {
	inst := saved.Clone()
	inst.Connections = nil
	p.instances[inst.ID] = inst
	if err := p.layers.AssignAt(inst.ID, inst.LayerID, index); err != nil {
		panic(bferrors.Internal("restore instance %q: %v", inst.ID, err))
	}
}

func cloneAll(cs []*Connection) []*Connection {
	out := make([]*Connection, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}
