// Package scene is the editing context of one project: the block library,
// the layer forest, placed instances, derived connections and undo history.
//
// # Commands and Queries
//
// Every mutation goes through a command method ([Project.PlaceInstance],
// [Project.MoveInstance], [Project.DeleteLayer], ...). Commands are recorded
// in the project's history and can be undone with [Project.Undo]. A failed
// command returns a coded error from pkg/errors and leaves the project
// unchanged.
//
// Queries ([Project.WorldBounds], [Project.Connections], ...) return copies;
// mutating them has no effect on the project.
//
// # Connections
//
// Connections are never authored directly. Whenever an instance is placed,
// moved or restored, its unlocked connections are dropped and derived again
// by the snap engine against every other instance whose layer chain is
// visible and unlocked. Connection ids are derived from their endpoints, so
// re-deriving an unchanged arrangement reproduces the same records.
//
// Locked connections survive re-derivation. A move or delete that would
// stretch a locked connection beyond snap tolerance fails with
// LOCKED_CONNECTION unless forced; a forced command deletes the connection.
//
// # Concurrency
//
// A Project assumes a single writer. Callers that share one across
// goroutines must serialize access, reads included: world-space queries fill
// transform caches.
package scene

import (
	"maps"
	"slices"

	"cogentcore.org/core/math32"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/blockforge/blockforge/pkg/block"
	"github.com/blockforge/blockforge/pkg/config"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/geom"
	"github.com/blockforge/blockforge/pkg/history"
	"github.com/blockforge/blockforge/pkg/layer"
	"github.com/blockforge/blockforge/pkg/snap"
)

// DefaultLayerName names the root layer created with a new project.
const DefaultLayerName = "Default"

// Project owns every collection of one editing session.
type Project struct {
	cfg       config.Config
	lib       *block.Library
	layers    *layer.Manager
	instances map[string]*Instance
	conns     map[string]*Connection
	history   *history.History
	engine    *snap.Engine
	logger    *log.Logger
	newID     func() string

	// freed collects endpoints whose valid connection was removed during
	// the current command; see settle.
	freed []snap.Endpoint
}

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(p *Project) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithIDGenerator replaces uuid.NewString for instance and layer ids.
func WithIDGenerator(fn func() string) Option {
	return func(p *Project) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New creates a project with one empty root layer. A nil library starts
// from the built-in catalog.
func New(cfg config.Config, lib *block.Library, opts ...Option) (*Project, error) {
	p, err := newEmpty(cfg, lib, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := p.layers.Create(p.newID(), DefaultLayerName, ""); err != nil {
		return nil, err
	}
	return p, nil
}

func newEmpty(cfg config.Config, lib *block.Library, opts ...Option) (*Project, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lib == nil {
		lib = block.NewCatalogLibrary()
	}
	p := &Project{
		cfg:       cfg,
		lib:       lib,
		layers:    layer.NewManager(),
		instances: make(map[string]*Instance),
		conns:     make(map[string]*Connection),
		history:   history.New(cfg.HistoryDepth),
		logger:    log.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.engine = snap.NewEngine(cfg.SnapOptions(), p.logger)
	return p, nil
}

// Config returns the project configuration.
func (p *Project) Config() config.Config { return p.cfg }

// Library returns the block library.
func (p *Project) Library() *block.Library { return p.lib }

// History returns the undo history. Use it for inspection only; mutate the
// project through its command methods.
func (p *Project) History() *history.History { return p.history }

// DefaultLayer returns the first root layer, or "" for an empty forest.
func (p *Project) DefaultLayer() string {
	if roots := p.layers.Roots(); len(roots) > 0 {
		return roots[0]
	}
	return ""
}

// =============================================================================
// Queries
// =============================================================================

// Instance returns a copy of one instance.
func (p *Project) Instance(id string) (*Instance, error) {
	inst, err := p.instance(id)
	if err != nil {
		return nil, err
	}
	return inst.Clone(), nil
}

// Instances returns copies of every instance, sorted by id.
func (p *Project) Instances() []*Instance {
	out := make([]*Instance, 0, len(p.instances))
	for _, id := range sortedIDs(p.instances) {
		out = append(out, p.instances[id].Clone())
	}
	return out
}

// InstanceCount returns the number of placed instances.
func (p *Project) InstanceCount() int { return len(p.instances) }

// Layer returns a copy of one layer.
func (p *Project) Layer(id string) (*layer.Layer, error) {
	l, err := p.layers.Get(id)
	if err != nil {
		return nil, err
	}
	c := l.Clone()
	return &c, nil
}

// Layers returns copies of every layer, depth-first in sibling order.
func (p *Project) Layers() []*layer.Layer {
	ls := p.layers.Layers()
	out := make([]*layer.Layer, len(ls))
	for i, l := range ls {
		c := l.Clone()
		out[i] = &c
	}
	return out
}

// LayerDepth returns the nesting depth of a layer (0 for roots).
func (p *Project) LayerDepth(id string) int { return p.layers.Depth(id) }

// Connection returns a copy of one connection.
func (p *Project) Connection(id string) (*Connection, error) {
	c, ok := p.conns[id]
	if !ok {
		return nil, bferrors.NotFound("connection", id)
	}
	return c.Clone(), nil
}

// Connections returns copies of an instance's connections, sorted by id.
func (p *Project) Connections(instanceID string) ([]*Connection, error) {
	inst, err := p.instance(instanceID)
	if err != nil {
		return nil, err
	}
	out := make([]*Connection, len(inst.Connections))
	for i, cid := range inst.Connections {
		out[i] = p.conns[cid].Clone()
	}
	return out, nil
}

// AllConnections returns copies of every connection, sorted by id.
func (p *Project) AllConnections() []*Connection {
	out := make([]*Connection, 0, len(p.conns))
	for _, id := range sortedIDs(p.conns) {
		out = append(out, p.conns[id].Clone())
	}
	return out
}

// WorldBounds returns the world-space box of an instance.
func (p *Project) WorldBounds(id string) (math32.Box3, error) {
	inst, err := p.instance(id)
	if err != nil {
		return math32.Box3{}, err
	}
	b, err := p.blockOf(inst)
	if err != nil {
		return math32.Box3{}, err
	}
	return geom.WorldBounds(b, inst.Transform), nil
}

// WorldSnapPoints returns the world-space snap points of an instance.
func (p *Project) WorldSnapPoints(id string) ([]geom.WorldSnapPoint, error) {
	inst, err := p.instance(id)
	if err != nil {
		return nil, err
	}
	b, err := p.blockOf(inst)
	if err != nil {
		return nil, err
	}
	return geom.WorldSnapPoints(b, inst.Transform), nil
}

// EffectiveVisible reports whether an instance is shown: its own flag and
// every layer up its chain must be visible.
func (p *Project) EffectiveVisible(id string) (bool, error) {
	inst, err := p.instance(id)
	if err != nil {
		return false, err
	}
	return inst.State.Visible && p.layers.EffectiveVisible(inst.LayerID), nil
}

// EffectiveLocked reports whether an instance or any layer up its chain is
// locked.
func (p *Project) EffectiveLocked(id string) (bool, error) {
	inst, err := p.instance(id)
	if err != nil {
		return false, err
	}
	return inst.State.Locked || p.layers.EffectiveLocked(inst.LayerID), nil
}

// LayerEffectiveVisible reports the effective visibility of a layer.
func (p *Project) LayerEffectiveVisible(id string) (bool, error) {
	if !p.layers.Has(id) {
		return false, bferrors.NotFound("layer", id)
	}
	return p.layers.EffectiveVisible(id), nil
}

// LayerEffectiveLocked reports the effective lock of a layer.
func (p *Project) LayerEffectiveLocked(id string) (bool, error) {
	if !p.layers.Has(id) {
		return false, bferrors.NotFound("layer", id)
	}
	return p.layers.EffectiveLocked(id), nil
}

// Select marks an instance selected. Selection is view state and is not
// recorded in history.
func (p *Project) Select(id string, selected bool) error {
	inst, err := p.instance(id)
	if err != nil {
		return err
	}
	inst.State.Selected = selected
	return nil
}

// =============================================================================
// Internal lookups
// =============================================================================

func (p *Project) instance(id string) (*Instance, error) {
	inst, ok := p.instances[id]
	if !ok {
		return nil, bferrors.NotFound("instance", id)
	}
	return inst, nil
}

func (p *Project) blockOf(inst *Instance) (*block.Block, error) {
	return p.lib.Version(inst.BlockID, inst.BlockVersion)
}

// active reports whether an instance takes part in snap resolution.
func (p *Project) active(inst *Instance) bool {
	return inst.State.Visible && !inst.State.Locked &&
		p.layers.EffectiveVisible(inst.LayerID) && !p.layers.EffectiveLocked(inst.LayerID)
}

// must panics on a broken internal invariant. It guards lookups that a
// consistent project can never miss.
func must[T any](v T, err error) T {
	if err != nil {
		panic(bferrors.Internal("scene invariant violated: %v", err))
	}
	return v
}

func sortedIDs[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
