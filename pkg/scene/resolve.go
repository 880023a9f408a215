package scene

import (
	"context"
	"maps"
	"slices"

	"github.com/blockforge/blockforge/pkg/snap"
	"github.com/blockforge/blockforge/pkg/transform"
)

// resolve drops the unlocked connections of an instance and derives them
// again from its current transform. Resolution cannot be cancelled halfway:
// a command is either rejected before it mutates anything or runs to the end.
func (p *Project) resolve(ctx context.Context, id string) {
	inst := p.instances[id]
	touched := map[string]bool{id: true}

	for _, cid := range slices.Clone(inst.Connections) {
		c := p.conns[cid]
		if c.Locked {
			continue
		}
		touched[c.Other(id).InstanceID] = true
		p.removeConnection(c)
	}

	if p.cfg.SnapOn() && p.active(inst) {
		props, err := p.engine.Resolve(context.WithoutCancel(ctx), p.candidate(inst, inst.Transform), p.candidates(id), p)
		if err != nil {
			// only cancellation can fail Resolve, and ctx has none
			panic(err)
		}
		for _, pr := range props {
			c := newConnection(pr)
			if _, exists := p.conns[c.ID]; exists {
				continue
			}
			p.addConnection(c)
			touched[pr.Target.InstanceID] = true
			if !c.Valid {
				p.logger.Warn("snap constraint violated",
					"source", pr.Source, "target", pr.Target, "rule", pr.Rule())
			}
		}
	}

	for tid := range touched {
		p.refreshErrors(tid)
	}
}

// Count implements snap.Occupancy over the project's valid connections.
func (p *Project) Count(e snap.Endpoint) int {
	inst, ok := p.instances[e.InstanceID]
	if !ok {
		return 0
	}
	n := 0
	for _, cid := range inst.Connections {
		c := p.conns[cid]
		if c.Valid && c.Near(e.InstanceID) == e {
			n++
		}
	}
	return n
}

func (p *Project) candidate(inst *Instance, t *transform.Transform) snap.Candidate {
	return snap.Candidate{
		InstanceID: inst.ID,
		Block:      must(p.blockOf(inst)),
		Transform:  t,
	}
}

// candidates lists every active instance except exclude, sorted by id.
func (p *Project) candidates(exclude string) []snap.Candidate {
	var out []snap.Candidate
	for _, id := range sortedIDs(p.instances) {
		inst := p.instances[id]
		if id == exclude || !p.active(inst) {
			continue
		}
		out = append(out, p.candidate(inst, inst.Transform))
	}
	return out
}

func (p *Project) addConnection(c *Connection) {
	p.conns[c.ID] = c
	p.instances[c.Source.InstanceID].addConnection(c.ID)
	p.instances[c.Target.InstanceID].addConnection(c.ID)
}

func (p *Project) removeConnection(c *Connection) {
	if c.Valid {
		p.freed = append(p.freed, c.Source, c.Target)
	}
	delete(p.conns, c.ID)
	for _, id := range [2]string{c.Source.InstanceID, c.Target.InstanceID} {
		if inst, ok := p.instances[id]; ok {
			inst.removeConnection(c.ID)
		}
	}
}

// refreshErrors mirrors an instance's invalid connections into its state.
func (p *Project) refreshErrors(id string) {
	inst, ok := p.instances[id]
	if !ok {
		return
	}
	var errs []string
	for _, cid := range inst.Connections {
		if c := p.conns[cid]; !c.Valid {
			errs = append(errs, c.Error)
		}
	}
	inst.State.Errors = errs
	inst.State.HasErrors = len(errs) > 0
}

// settle re-resolves the instances whose invalid connections sit on an
// endpoint that lost a valid connection during the last command, so a
// near miss caused by a removed neighbor does not outlive it. Instances run
// in id order, each at most once; re-resolving may free further endpoints,
// which are handled in the next round. Inactive instances are left alone,
// as for any other re-derivation.
func (p *Project) settle(ctx context.Context) {
	done := make(map[string]bool)
	for len(p.freed) > 0 {
		freed := p.freed
		p.freed = nil

		pending := make(map[string]bool)
		for _, e := range freed {
			inst, ok := p.instances[e.InstanceID]
			if !ok {
				continue
			}
			for _, cid := range inst.Connections {
				c := p.conns[cid]
				if c.Valid || c.Near(e.InstanceID) != e {
					continue
				}
				if other := c.Other(e.InstanceID).InstanceID; !done[other] {
					pending[other] = true
				}
			}
		}
		for _, id := range slices.Sorted(maps.Keys(pending)) {
			done[id] = true
			if inst, ok := p.instances[id]; ok && p.active(inst) {
				p.logger.Debug("re-resolving near miss", "instance", id)
				p.resolve(ctx, id)
			}
		}
	}
}

// lockedStretched returns the locked connections of inst that would no
// longer hold if inst moved to t.
func (p *Project) lockedStretched(inst *Instance, t *transform.Transform) []*Connection {
	var out []*Connection
	moved := p.candidate(inst, t)
	for _, cid := range inst.Connections {
		c := p.conns[cid]
		if !c.Locked {
			continue
		}
		near, far := c.Near(inst.ID), c.Other(inst.ID)
		other := p.instances[far.InstanceID]
		if !p.engine.StillAttached(moved, p.candidate(other, other.Transform), near.SnapPointID, far.SnapPointID) {
			out = append(out, c)
		}
	}
	return out
}

// lockedOf returns the locked connections of an instance.
func (p *Project) lockedOf(inst *Instance) []*Connection {
	var out []*Connection
	for _, cid := range inst.Connections {
		if c := p.conns[cid]; c.Locked {
			out = append(out, c)
		}
	}
	return out
}
