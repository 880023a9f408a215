package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cogentcore.org/core/math32"
	"github.com/BurntSushi/toml"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/scene"
	"github.com/blockforge/blockforge/pkg/snap"
	"github.com/blockforge/blockforge/pkg/transform"
)

// script is a TOML edit script: a list of operations applied in order.
//
//	[[op]]
//	kind = "create-layer"
//	ref = "walls"
//	name = "Walls"
//
//	[[op]]
//	kind = "place"
//	ref = "a"
//	block = "brick-2x2"
//	layer = "walls"
//	position = [0, 0, 0]
//
//	[[op]]
//	kind = "lock-connection"
//	from = "a/+x"
//	to = "b/-x"
//
// Refs name the instances and layers created by earlier operations; any
// other target is taken as a literal id. A move replaces the whole
// transform: omitted parts take their identity values.
type script struct {
	Ops []op `toml:"op"`
}

type op struct {
	Kind   string `toml:"kind"`
	Ref    string `toml:"ref"`
	Target string `toml:"target"`

	Block    string      `toml:"block"`
	Layer    string      `toml:"layer"`
	Position *[3]float32 `toml:"position"`
	Rotation *[3]float32 `toml:"rotation"` // Euler degrees
	Scale    *[3]float32 `toml:"scale"`

	Name    string   `toml:"name"`
	Parent  string   `toml:"parent"`
	Index   *int     `toml:"index"`
	Visible *bool    `toml:"visible"`
	Locked  *bool    `toml:"locked"`
	Opacity *float32 `toml:"opacity"`

	From string `toml:"from"` // instance/snap-point endpoints of a connection
	To   string `toml:"to"`

	Force   bool `toml:"force"`
	Cascade bool `toml:"cascade"`
}

func parseScript(r io.Reader) (*script, error) {
	var s script
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return nil, bferrors.Wrap(bferrors.ErrCodeInvalidInput, err, "decode script: %v", err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "unknown script key %q", keys[0].String())
	}
	return &s, nil
}

// runner applies a script to one project.
type runner struct {
	p    *scene.Project
	refs map[string]string
}

func newRunner(p *scene.Project) *runner {
	return &runner{p: p, refs: make(map[string]string)}
}

// run applies every operation and returns how many ran. It stops at the
// first failure; the operations before it stay applied.
func (r *runner) run(ctx context.Context, s *script) (int, error) {
	for i, o := range s.Ops {
		if err := r.apply(ctx, o); err != nil {
			return i, fmt.Errorf("op %d (%s): %w", i+1, o.Kind, err)
		}
	}
	return len(s.Ops), nil
}

func (r *runner) apply(ctx context.Context, o op) error {
	p := r.p
	switch o.Kind {
	case "place":
		inst, err := p.PlaceInstance(ctx, o.Block, o.transform(), r.id(o.Layer))
		if err != nil {
			return err
		}
		r.bind(o.Ref, inst.ID)
		return nil
	case "move":
		t := o.transform()
		if t == nil {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "move needs a position, rotation or scale")
		}
		_, err := p.MoveInstance(ctx, r.id(o.Target), t, o.Force)
		return err
	case "delete":
		return p.DeleteInstance(ctx, r.id(o.Target), o.Force)
	case "assign":
		return p.AssignInstance(ctx, r.id(o.Target), r.id(o.Layer))
	case "set-instance":
		id := r.id(o.Target)
		if o.Visible != nil {
			if err := p.SetInstanceVisible(ctx, id, *o.Visible); err != nil {
				return err
			}
		}
		if o.Locked != nil {
			return p.SetInstanceLocked(ctx, id, *o.Locked)
		}
		return nil

	case "break", "lock-connection", "unlock-connection":
		id, err := r.connection(o)
		if err != nil {
			return err
		}
		switch o.Kind {
		case "break":
			return p.BreakConnection(ctx, id, o.Force)
		case "lock-connection":
			return p.LockConnection(ctx, id, true)
		default:
			return p.LockConnection(ctx, id, false)
		}

	case "create-layer":
		l, err := p.CreateLayer(ctx, o.Name, r.id(o.Parent))
		if err != nil {
			return err
		}
		r.bind(o.Ref, l.ID)
		return nil
	case "move-layer":
		return p.MoveLayer(ctx, r.id(o.Target), r.id(o.Parent))
	case "reorder-layer":
		if o.Index == nil {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "reorder-layer needs an index")
		}
		return p.ReorderLayer(ctx, r.id(o.Target), *o.Index)
	case "rename-layer":
		return p.RenameLayer(ctx, r.id(o.Target), o.Name)
	case "delete-layer":
		return p.DeleteLayer(ctx, r.id(o.Target), o.Cascade)
	case "set-layer":
		id := r.id(o.Target)
		if o.Visible != nil {
			if err := p.SetLayerVisible(ctx, id, *o.Visible); err != nil {
				return err
			}
		}
		if o.Locked != nil {
			if err := p.SetLayerLocked(ctx, id, *o.Locked); err != nil {
				return err
			}
		}
		if o.Opacity != nil {
			return p.SetLayerOpacity(ctx, id, *o.Opacity)
		}
		return nil

	case "undo":
		_, err := p.Undo(ctx)
		return err
	case "redo":
		_, err := p.Redo(ctx)
		return err
	default:
		return bferrors.New(bferrors.ErrCodeInvalidInput, "unknown operation kind %q", o.Kind)
	}
}

// id resolves a ref bound by an earlier operation, or returns s unchanged.
func (r *runner) id(s string) string {
	if id, ok := r.refs[s]; ok {
		return id
	}
	return s
}

func (r *runner) bind(ref, id string) {
	if ref != "" {
		r.refs[ref] = id
	}
}

// connection resolves the target of a connection operation: a literal id,
// or the from/to endpoints written as "<instance>/<snap point>".
func (r *runner) connection(o op) (string, error) {
	if o.Target != "" {
		return o.Target, nil
	}
	from, err := r.endpoint(o.From)
	if err != nil {
		return "", err
	}
	to, err := r.endpoint(o.To)
	if err != nil {
		return "", err
	}
	return scene.ConnectionID(from, to), nil
}

func (r *runner) endpoint(s string) (snap.Endpoint, error) {
	inst, sp, ok := strings.Cut(s, "/")
	if !ok || inst == "" || sp == "" {
		return snap.Endpoint{}, bferrors.New(bferrors.ErrCodeInvalidInput, "endpoint %q is not <instance>/<snap point>", s)
	}
	return snap.Endpoint{InstanceID: r.id(inst), SnapPointID: sp}, nil
}

// transform builds the operation's transform, or nil when it sets none of
// position, rotation or scale.
func (o op) transform() *transform.Transform {
	if o.Position == nil && o.Rotation == nil && o.Scale == nil {
		return nil
	}
	var pos, rot [3]float32
	scale := [3]float32{1, 1, 1}
	if o.Position != nil {
		pos = *o.Position
	}
	if o.Rotation != nil {
		rot = *o.Rotation
	}
	if o.Scale != nil {
		scale = *o.Scale
	}
	return transform.New(
		math32.Vec3(pos[0], pos[1], pos[2]),
		transform.EulerDegrees(rot[0], rot[1], rot[2]),
		math32.Vec3(scale[0], scale[1], scale[2]),
	)
}
