package scene

import (
	"github.com/blockforge/blockforge/pkg/block"
	"github.com/blockforge/blockforge/pkg/config"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/layer"
	"github.com/blockforge/blockforge/pkg/snap"
)

// Snapshot is the persistent entity set of a project. History is not part
// of it: an imported project starts with empty undo and redo stacks.
type Snapshot struct {
	Config      config.Config
	Blocks      []*block.Block // every published version
	Layers      []layer.Layer  // depth-first
	Instances   []*Instance    // sorted by id
	Connections []*Connection  // sorted by id
}

// Export copies the project's entity set.
func (p *Project) Export() *Snapshot {
	s := &Snapshot{
		Config:      p.cfg,
		Instances:   p.Instances(),
		Connections: p.AllConnections(),
	}
	for _, b := range p.lib.All() {
		s.Blocks = append(s.Blocks, b.Clone())
	}
	for _, l := range p.layers.Layers() {
		s.Layers = append(s.Layers, l.Clone())
	}
	return s
}

// Import rebuilds a project from a snapshot. Connections are taken as
// stored, not re-derived, so locked and invalid connections survive a
// round trip. References to missing blocks, layers, instances or snap
// points fail with NOT_FOUND; any other broken invariant fails Validate.
func Import(s *Snapshot, opts ...Option) (*Project, error) {
	lib := block.NewLibrary()
	for _, b := range s.Blocks {
		if err := lib.Publish(b); err != nil {
			return nil, err
		}
	}
	p, err := newEmpty(s.Config, lib, opts...)
	if err != nil {
		return nil, err
	}
	if p.layers, err = layer.Load(s.Layers); err != nil {
		return nil, err
	}

	for _, in := range s.Instances {
		if _, dup := p.instances[in.ID]; dup {
			return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "duplicate instance %q", in.ID)
		}
		if !p.layers.Has(in.LayerID) {
			return nil, bferrors.NotFound("layer", in.LayerID)
		}
		if _, err := p.blockOf(in); err != nil {
			return nil, err
		}
		if in.Transform == nil {
			return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "instance %q has no transform", in.ID)
		}
		inst := in.Clone()
		inst.Connections = nil
		p.instances[inst.ID] = inst
	}

	for _, id := range p.layers.InstanceIDs() {
		if _, ok := p.instances[id]; !ok {
			return nil, bferrors.NotFound("instance", id)
		}
	}

	for _, in := range s.Connections {
		for _, e := range [2]snap.Endpoint{in.Source, in.Target} {
			inst, ok := p.instances[e.InstanceID]
			if !ok {
				return nil, bferrors.NotFound("instance", e.InstanceID)
			}
			if _, ok := must(p.blockOf(inst)).SnapPoint(e.SnapPointID); !ok {
				return nil, bferrors.NotFound("snap point", e.String())
			}
		}
		if _, dup := p.conns[in.ID]; dup {
			return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "duplicate connection %q", in.ID)
		}
		p.addConnection(in.Clone())
	}

	for id := range p.instances {
		p.refreshErrors(id)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
