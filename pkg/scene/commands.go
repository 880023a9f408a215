package scene

import (
	"context"
	"time"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/history"
	"github.com/blockforge/blockforge/pkg/layer"
	"github.com/blockforge/blockforge/pkg/observability"
	"github.com/blockforge/blockforge/pkg/transform"
)

// run commits cmd to history. A cancelled ctx rejects the command before it
// touches anything.
func (p *Project) run(ctx context.Context, name string, cmd history.Command) error {
	start := time.Now()
	p.freed = p.freed[:0]
	err := ctx.Err()
	if err == nil {
		err = p.history.Commit(ctx, cmd)
	}
	if err == nil {
		p.settle(ctx)
	}
	p.freed = p.freed[:0]
	observability.Scene().OnCommand(ctx, name, time.Since(start), err)
	if err != nil {
		p.logger.Debug("command rejected", "command", cmd.Label(), "error", err)
		return err
	}
	p.logger.Debug("command applied", "command", cmd.Label(), "depth", len(p.history.Past()))
	return nil
}

// =============================================================================
// Instances
// =============================================================================

// PlaceInstance places the latest version of a block. A nil transform
// places it at the origin; an empty layerID uses [Project.DefaultLayer].
// Connections to neighbors are derived immediately.
func (p *Project) PlaceInstance(ctx context.Context, blockID string, t *transform.Transform, layerID string) (*Instance, error) {
	b, err := p.lib.Get(blockID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = transform.Identity()
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if layerID == "" {
		layerID = p.DefaultLayer()
	}
	if !p.layers.Has(layerID) {
		return nil, bferrors.NotFound("layer", layerID)
	}
	inst := &Instance{
		ID:           p.newID(),
		BlockID:      b.ID,
		BlockVersion: b.Version,
		Transform:    t.Clone(),
		LayerID:      layerID,
		State:        InstanceState{Visible: true},
	}
	if err := p.run(ctx, "place", &placeCmd{p: p, inst: inst}); err != nil {
		return nil, err
	}
	return p.Instance(inst.ID)
}

// MoveInstance sets an instance's transform and re-derives its connections.
// Constraint failures do not block the move; they show up as invalid
// connections. A locked connection that the move would stretch beyond snap
// tolerance fails the command with LOCKED_CONNECTION unless force is set,
// in which case the connection is removed.
func (p *Project) MoveInstance(ctx context.Context, id string, t *transform.Transform, force bool) (*Instance, error) {
	inst, err := p.instance(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "move %q: transform is required", id)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	cmd := &moveCmd{p: p, id: id, from: inst.Transform.Clone(), to: t.Clone(), force: force}
	if err := p.run(ctx, "move", cmd); err != nil {
		return nil, err
	}
	return p.Instance(id)
}

// DeleteInstance removes an instance and its connections. An instance that
// holds a locked connection is only deleted with force.
func (p *Project) DeleteInstance(ctx context.Context, id string, force bool) error {
	if _, err := p.instance(id); err != nil {
		return err
	}
	return p.run(ctx, "delete", &deleteCmd{p: p, id: id, force: force})
}

// AssignInstance moves an instance to another layer. Its connections are
// kept as they are; they are re-derived the next time it moves.
func (p *Project) AssignInstance(ctx context.Context, instanceID, layerID string) error {
	inst, err := p.instance(instanceID)
	if err != nil {
		return err
	}
	if !p.layers.Has(layerID) {
		return bferrors.NotFound("layer", layerID)
	}
	from, index := inst.LayerID, p.layers.IndexOf(instanceID)
	if from == layerID {
		return nil
	}
	return p.run(ctx, "assign", &funcCmd{
		label: "assign " + instanceID + " to " + layerID,
		apply: func() error {
			if err := p.layers.Assign(instanceID, layerID); err != nil {
				return err
			}
			p.instances[instanceID].LayerID = layerID
			return nil
		},
		revert: func() error {
			if err := p.layers.AssignAt(instanceID, from, index); err != nil {
				return err
			}
			p.instances[instanceID].LayerID = from
			return nil
		},
	})
}

// SetInstanceVisible sets an instance's own visibility flag.
func (p *Project) SetInstanceVisible(ctx context.Context, id string, visible bool) error {
	inst, err := p.instance(id)
	if err != nil {
		return err
	}
	if inst.State.Visible == visible {
		return nil
	}
	set := func(v bool) func() error {
		return func() error {
			p.instances[id].State.Visible = v
			return nil
		}
	}
	return p.run(ctx, "set-instance-visible", &funcCmd{
		label:  "set visible " + id,
		apply:  set(visible),
		revert: set(!visible),
	})
}

// SetInstanceLocked sets an instance's own lock flag. Locked instances are
// skipped by snap resolution.
func (p *Project) SetInstanceLocked(ctx context.Context, id string, locked bool) error {
	inst, err := p.instance(id)
	if err != nil {
		return err
	}
	if inst.State.Locked == locked {
		return nil
	}
	set := func(v bool) func() error {
		return func() error {
			p.instances[id].State.Locked = v
			return nil
		}
	}
	return p.run(ctx, "set-instance-locked", &funcCmd{
		label:  "set locked " + id,
		apply:  set(locked),
		revert: set(!locked),
	})
}

// =============================================================================
// Connections
// =============================================================================

// BreakConnection removes a connection. Locked connections need force.
// A broken unlocked connection comes back if resolution derives it again,
// e.g. when either instance is moved in place.
func (p *Project) BreakConnection(ctx context.Context, id string, force bool) error {
	c, ok := p.conns[id]
	if !ok {
		return bferrors.NotFound("connection", id)
	}
	if c.Locked && !force {
		return bferrors.LockedConnection(id)
	}
	saved := c.Clone()
	return p.run(ctx, "break", &funcCmd{
		label: "break " + id,
		apply: func() error {
			p.removeConnection(p.conns[id])
			p.refreshErrors(saved.Source.InstanceID)
			p.refreshErrors(saved.Target.InstanceID)
			return nil
		},
		revert: func() error {
			p.addConnection(saved.Clone())
			p.refreshErrors(saved.Source.InstanceID)
			p.refreshErrors(saved.Target.InstanceID)
			return nil
		},
	})
}

// LockConnection sets a connection's locked flag. Only valid connections
// can be locked.
func (p *Project) LockConnection(ctx context.Context, id string, locked bool) error {
	c, ok := p.conns[id]
	if !ok {
		return bferrors.NotFound("connection", id)
	}
	if c.Locked == locked {
		return nil
	}
	if locked && !c.Valid {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "connection %q is invalid and cannot be locked", id)
	}
	set := func(v bool) func() error {
		return func() error {
			p.conns[id].Locked = v
			return nil
		}
	}
	label := "unlock " + id
	if locked {
		label = "lock " + id
	}
	return p.run(ctx, "lock", &funcCmd{label: label, apply: set(locked), revert: set(!locked)})
}

// =============================================================================
// Layers
// =============================================================================

// CreateLayer adds a layer under parent ("" for a new root).
func (p *Project) CreateLayer(ctx context.Context, name, parent string) (*layer.Layer, error) {
	id := p.newID()
	err := p.run(ctx, "create-layer", &funcCmd{
		label: "create layer " + name,
		apply: func() error {
			_, err := p.layers.Create(id, name, parent)
			return err
		},
		revert: func() error {
			_, err := p.layers.Delete(id, false)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return p.Layer(id)
}

// MoveLayer reparents a layer ("" makes it a root). Moving a layer under
// itself or a descendant fails with CYCLE and changes nothing.
func (p *Project) MoveLayer(ctx context.Context, id, parent string) error {
	l, err := p.layers.Get(id)
	if err != nil {
		return err
	}
	from, index := l.Parent, l.Order
	return p.run(ctx, "move-layer", &funcCmd{
		label:  "move layer " + l.Name,
		apply:  func() error { return p.layers.Move(id, parent) },
		revert: func() error { return p.layers.MoveTo(id, from, index) },
	})
}

// ReorderLayer moves a layer to index among its siblings.
func (p *Project) ReorderLayer(ctx context.Context, id string, index int) error {
	l, err := p.layers.Get(id)
	if err != nil {
		return err
	}
	from := l.Order
	return p.run(ctx, "reorder-layer", &funcCmd{
		label:  "reorder layer " + l.Name,
		apply:  func() error { return p.layers.Reorder(id, index) },
		revert: func() error { return p.layers.Reorder(id, from) },
	})
}

// DeleteLayer removes a layer. A layer with children or instances is only
// deleted with cascade, which removes its whole subtree and every instance
// it owns, locked connections included.
func (p *Project) DeleteLayer(ctx context.Context, id string, cascade bool) error {
	if !p.layers.Has(id) {
		return bferrors.NotFound("layer", id)
	}
	return p.run(ctx, "delete-layer", &deleteLayerCmd{p: p, id: id, cascade: cascade})
}

// RenameLayer changes a layer's display name.
func (p *Project) RenameLayer(ctx context.Context, id, name string) error {
	l, err := p.layers.Get(id)
	if err != nil {
		return err
	}
	from := l.Name
	return p.run(ctx, "rename-layer", &funcCmd{
		label:  "rename layer " + from,
		apply:  func() error { return p.layers.Rename(id, name) },
		revert: func() error { return p.layers.Rename(id, from) },
	})
}

// SetLayerVisible sets a layer's stored visibility. Descendants inherit it
// through their effective state.
func (p *Project) SetLayerVisible(ctx context.Context, id string, visible bool) error {
	l, err := p.layers.Get(id)
	if err != nil {
		return err
	}
	from := l.Visible
	return p.run(ctx, "set-layer-visible", &funcCmd{
		label:  "set visible " + l.Name,
		apply:  func() error { return p.layers.SetVisible(id, visible) },
		revert: func() error { return p.layers.SetVisible(id, from) },
	})
}

// SetLayerLocked sets a layer's stored lock flag.
func (p *Project) SetLayerLocked(ctx context.Context, id string, locked bool) error {
	l, err := p.layers.Get(id)
	if err != nil {
		return err
	}
	from := l.Locked
	return p.run(ctx, "set-layer-locked", &funcCmd{
		label:  "set locked " + l.Name,
		apply:  func() error { return p.layers.SetLocked(id, locked) },
		revert: func() error { return p.layers.SetLocked(id, from) },
	})
}

// SetLayerOpacity sets a layer's opacity, clamped to [0, 1].
func (p *Project) SetLayerOpacity(ctx context.Context, id string, opacity float32) error {
	l, err := p.layers.Get(id)
	if err != nil {
		return err
	}
	from := l.Opacity
	return p.run(ctx, "set-layer-opacity", &funcCmd{
		label:  "set opacity " + l.Name,
		apply:  func() error { return p.layers.SetOpacity(id, opacity) },
		revert: func() error { return p.layers.SetOpacity(id, from) },
	})
}

// =============================================================================
// History
// =============================================================================

// Undo reverts the most recent command and returns its label. With nothing
// to undo it fails with EMPTY_HISTORY and the project is unchanged.
func (p *Project) Undo(ctx context.Context) (string, error) {
	return p.step(ctx, "undo", p.history.Undo)
}

// Redo re-applies the most recently undone command and returns its label.
func (p *Project) Redo(ctx context.Context) (string, error) {
	return p.step(ctx, "redo", p.history.Redo)
}

func (p *Project) step(ctx context.Context, name string, fn func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	p.freed = p.freed[:0]
	label, err := "", ctx.Err()
	if err == nil {
		label, err = fn(ctx)
	}
	if err == nil {
		p.settle(ctx)
	}
	p.freed = p.freed[:0]
	observability.Scene().OnCommand(ctx, name, time.Since(start), err)
	if err != nil {
		return "", err
	}
	p.logger.Debug(name, "command", label)
	return label, nil
}
