package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/charmbracelet/log"

	"github.com/blockforge/blockforge/pkg/block"
	"github.com/blockforge/blockforge/pkg/config"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/snap"
	"github.com/blockforge/blockforge/pkg/transform"
)

const brick = "brick-2x2"

// newProject returns a project over the built-in catalog plus extra blocks.
// Ids are generated as id01, id02, ...; the default layer is id01.
func newProject(t *testing.T, mutate func(*config.Config), extra ...*block.Block) *Project {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	lib := block.NewCatalogLibrary()
	for _, b := range extra {
		if err := lib.Publish(b); err != nil {
			t.Fatalf("Publish(%s): %v", b.ID, err)
		}
	}
	n := 0
	p, err := New(cfg, lib,
		WithLogger(log.New(io.Discard)),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id%02d", n)
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func place(t *testing.T, p *Project, blockID string, x, y, z float32) *Instance {
	t.Helper()
	inst, err := p.PlaceInstance(context.Background(), blockID, transform.At(x, y, z), "")
	if err != nil {
		t.Fatalf("PlaceInstance(%s): %v", blockID, err)
	}
	return inst
}

// wall is a 2x2 brick whose +x face only accepts other walls.
func wall() *block.Block {
	b, _ := block.NewCatalogLibrary().Get(brick)
	w := b.Clone()
	w.ID = "wall-2x2"
	w.Metadata.Category = "wall"
	w.SnapPoints[0].Constraints = &block.Constraints{AllowedCategories: []string{"wall"}}
	return w
}

// capture encodes every persistent collection so two states can be
// compared bit for bit.
func capture(t *testing.T, p *Project) string {
	t.Helper()
	data, err := json.Marshal(struct {
		Instances   []*Instance
		Layers      any
		Connections []*Connection
	}{p.Instances(), p.Layers(), p.AllConnections()})
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	return string(data)
}

func mustValidate(t *testing.T, p *Project) {
	t.Helper()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestNewProjectHasDefaultLayer(t *testing.T) {
	p := newProject(t, nil)
	ls := p.Layers()
	if len(ls) != 1 || ls[0].Name != DefaultLayerName {
		t.Fatalf("Layers = %+v, want one %q layer", ls, DefaultLayerName)
	}
	if p.DefaultLayer() != "id01" {
		t.Errorf("DefaultLayer = %q, want id01", p.DefaultLayer())
	}
	if p.History().CanUndo() {
		t.Error("new project has undo entries")
	}
}

func TestAdjacentBricksConnectOnce(t *testing.T) {
	p := newProject(t, nil)
	a := place(t, p, brick, 0, 0, 0)
	b := place(t, p, brick, 16, 0, 0)

	conns := p.AllConnections()
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1: %+v", len(conns), conns)
	}
	c := conns[0]
	if c.Source != (snap.Endpoint{InstanceID: a.ID, SnapPointID: "+x"}) ||
		c.Target != (snap.Endpoint{InstanceID: b.ID, SnapPointID: "-x"}) {
		t.Errorf("connection = %s -> %s, want %s/+x -> %s/-x", c.Source, c.Target, a.ID, b.ID)
	}
	if !c.Valid || c.Error != "" {
		t.Errorf("Valid = %v, Error = %q, want valid", c.Valid, c.Error)
	}
	if c.ID != ConnectionID(c.Target, c.Source) {
		t.Errorf("ID = %s, want id independent of endpoint order", c.ID)
	}
	for _, id := range []string{a.ID, b.ID} {
		cs, err := p.Connections(id)
		if err != nil {
			t.Fatalf("Connections(%s): %v", id, err)
		}
		if len(cs) != 1 || cs[0].ID != c.ID {
			t.Errorf("Connections(%s) = %+v, want [%s]", id, cs, c.ID)
		}
	}
	mustValidate(t, p)
}

func TestConnectionNormalsAntiParallel(t *testing.T) {
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	place(t, p, brick, 0, 9.6, 0)

	for _, c := range p.AllConnections() {
		normal := func(e snap.Endpoint) math32.Vector3 {
			pts, err := p.WorldSnapPoints(e.InstanceID)
			if err != nil {
				t.Fatalf("WorldSnapPoints: %v", err)
			}
			for _, sp := range pts {
				if sp.SnapPointID == e.SnapPointID {
					return sp.Normal
				}
			}
			t.Fatalf("snap point %s not found", e)
			return math32.Vector3{}
		}
		if d := normal(c.Source).Dot(normal(c.Target)); d > snap.DefaultNormalTolerance {
			t.Errorf("connection %s: normal dot = %v, want <= %v", c.ID, d, snap.DefaultNormalTolerance)
		}
	}
	if n := len(p.AllConnections()); n != 2 {
		t.Errorf("connections = %d, want 2", n)
	}
}

func TestCategoryNearMiss(t *testing.T) {
	p := newProject(t, nil, wall())
	w := place(t, p, "wall-2x2", 0, 0, 0)
	b := place(t, p, brick, 16, 0, 0)

	conns := p.AllConnections()
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1", len(conns))
	}
	if conns[0].Valid || conns[0].Error == "" {
		t.Errorf("connection Valid = %v, Error = %q, want invalid with error", conns[0].Valid, conns[0].Error)
	}
	if got := b.Transform.Position(); got != math32.Vec3(16, 0, 0) {
		t.Errorf("position = %v, want (16, 0, 0)", got)
	}
	for _, id := range []string{w.ID, b.ID} {
		inst, _ := p.Instance(id)
		if !inst.State.HasErrors || len(inst.State.Errors) != 1 {
			t.Errorf("%s state = %+v, want one error", id, inst.State)
		}
	}
	mustValidate(t, p)

	// moving out of range clears the warning
	if _, err := p.MoveInstance(context.Background(), b.ID, transform.At(40, 0, 0), false); err != nil {
		t.Fatalf("MoveInstance: %v", err)
	}
	inst, _ := p.Instance(w.ID)
	if inst.State.HasErrors {
		t.Errorf("wall still has errors after neighbor moved away: %v", inst.State.Errors)
	}
}

func TestMaxConnections(t *testing.T) {
	p := newProject(t, nil)
	a := place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	c := place(t, p, brick, 16, 0, 0)

	if !c.State.HasErrors {
		t.Fatalf("third brick has no errors: %+v", c.State)
	}
	valid := 0
	for _, conn := range p.AllConnections() {
		if conn.Valid && conn.Involves(a.ID) {
			valid++
		}
	}
	if valid != 1 {
		t.Errorf("valid connections on %s = %d, want 1", a.ID, valid)
	}
	mustValidate(t, p)
}

// nearMiss places id02 and id03 side by side and id04 one unit off id03,
// so id04/-x misses id02/+x only because that point is taken.
func nearMiss(t *testing.T) (*Project, string) {
	t.Helper()
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)  // id02
	place(t, p, brick, 16, 0, 0) // id03
	place(t, p, brick, 16, 0, 1) // id04
	id := ConnectionID(
		snap.Endpoint{InstanceID: "id02", SnapPointID: "+x"},
		snap.Endpoint{InstanceID: "id04", SnapPointID: "-x"})
	c, err := p.Connection(id)
	if err != nil || c.Valid {
		t.Fatalf("near miss connection = %+v, %v; want invalid", c, err)
	}
	return p, id
}

func wantFreed(t *testing.T, p *Project, id string) {
	t.Helper()
	c, err := p.Connection(id)
	if err != nil {
		t.Fatalf("Connection: %v", err)
	}
	if !c.Valid || c.Error != "" {
		t.Errorf("connection Valid = %v, Error = %q, want valid once the point is free", c.Valid, c.Error)
	}
	for _, iid := range []string{"id02", "id04"} {
		inst, _ := p.Instance(iid)
		if inst.State.HasErrors {
			t.Errorf("%s still has errors: %v", iid, inst.State.Errors)
		}
	}
	mustValidate(t, p)
}

func TestNearMissRecheckedAfterNeighborDeleted(t *testing.T) {
	ctx := context.Background()
	p, id := nearMiss(t)
	if err := p.DeleteInstance(ctx, "id03", false); err != nil {
		t.Fatalf("DeleteInstance: %v", err)
	}
	wantFreed(t, p, id)
	after := capture(t, p)

	if _, err := p.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	mustValidate(t, p)
	if _, err := p.Redo(ctx); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if redone := capture(t, p); redone != after {
		t.Errorf("redo state differs:\nafter  %s\nredone %s", after, redone)
	}
}

func TestNearMissRecheckedAfterBreakAndMove(t *testing.T) {
	ctx := context.Background()

	p, id := nearMiss(t)
	held := ConnectionID(
		snap.Endpoint{InstanceID: "id02", SnapPointID: "+x"},
		snap.Endpoint{InstanceID: "id03", SnapPointID: "-x"})
	if err := p.BreakConnection(ctx, held, false); err != nil {
		t.Fatalf("BreakConnection: %v", err)
	}
	wantFreed(t, p, id)

	p, id = nearMiss(t)
	if _, err := p.MoveInstance(ctx, "id03", transform.At(16, 40, 0), false); err != nil {
		t.Fatalf("MoveInstance: %v", err)
	}
	wantFreed(t, p, id)
}

func TestInvalidTransformRejected(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	a := place(t, p, brick, 0, 0, 0)
	tests := []struct {
		name string
		tr   *transform.Transform
	}{
		{"zero scale", transform.New(math32.Vec3(0, 0, 0), transform.EulerDegrees(0, 0, 0), math32.Vec3(1, 0, 1))},
		{"negative scale", transform.New(math32.Vec3(0, 0, 0), transform.EulerDegrees(0, 0, 0), math32.Vec3(-1, 1, 1))},
		{"zero quaternion", transform.New(math32.Vec3(0, 0, 0), transform.Rotation{Kind: transform.RotationQuat}, math32.Vec3(1, 1, 1))},
		{"nan position", transform.At(math32.NaN(), 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.PlaceInstance(ctx, brick, tt.tr, ""); !bferrors.Is(err, bferrors.ErrCodeInvalidInput) {
				t.Errorf("PlaceInstance err = %v, want INVALID_INPUT", err)
			}
			if _, err := p.MoveInstance(ctx, a.ID, tt.tr, false); !bferrors.Is(err, bferrors.ErrCodeInvalidInput) {
				t.Errorf("MoveInstance err = %v, want INVALID_INPUT", err)
			}
		})
	}
	if p.InstanceCount() != 1 || len(p.History().Past()) != 1 {
		t.Errorf("rejected transforms changed the project: %d instances, %d history entries",
			p.InstanceCount(), len(p.History().Past()))
	}
}

func TestSnapDisabled(t *testing.T) {
	p := newProject(t, func(c *config.Config) {
		off := false
		c.SnapEnabled = &off
	})
	place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	if n := len(p.AllConnections()); n != 0 {
		t.Errorf("connections = %d, want 0 with snapping disabled", n)
	}
}

func TestHiddenLayerIsNotACandidate(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	hidden, err := p.CreateLayer(ctx, "Hidden", "")
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	if err := p.SetLayerVisible(ctx, hidden.ID, false); err != nil {
		t.Fatalf("SetLayerVisible: %v", err)
	}
	if _, err := p.PlaceInstance(ctx, brick, transform.At(0, 0, 0), hidden.ID); err != nil {
		t.Fatalf("PlaceInstance: %v", err)
	}
	b := place(t, p, brick, 16, 0, 0)
	if len(b.Connections) != 0 {
		t.Errorf("connections = %v, want none against a hidden layer", b.Connections)
	}
	vis, _ := p.EffectiveVisible(b.ID)
	if !vis {
		t.Error("instance in the default layer is not visible")
	}
}

func TestEffectiveState(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	parent, _ := p.CreateLayer(ctx, "Parent", "")
	child, _ := p.CreateLayer(ctx, "Child", parent.ID)
	inst, err := p.PlaceInstance(ctx, brick, nil, child.ID)
	if err != nil {
		t.Fatalf("PlaceInstance: %v", err)
	}
	if err := p.SetLayerLocked(ctx, parent.ID, true); err != nil {
		t.Fatalf("SetLayerLocked: %v", err)
	}
	if locked, _ := p.EffectiveLocked(inst.ID); !locked {
		t.Error("EffectiveLocked = false under a locked ancestor")
	}
	if locked, _ := p.LayerEffectiveLocked(child.ID); !locked {
		t.Error("LayerEffectiveLocked(child) = false under a locked parent")
	}
	if l, _ := p.Layer(child.ID); l.Locked {
		t.Error("stored lock flag of child changed")
	}
}

func TestPlaceErrors(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	tests := []struct {
		name    string
		blockID string
		layerID string
		code    bferrors.Code
	}{
		{"unknown block", "nope", "", bferrors.ErrCodeNotFound},
		{"unknown layer", brick, "nope", bferrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.PlaceInstance(ctx, tt.blockID, nil, tt.layerID)
			if !bferrors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
	if p.InstanceCount() != 0 || p.History().CanUndo() {
		t.Error("failed placement changed the project")
	}
}

func TestCancelledContextRejectsCommand(t *testing.T) {
	p := newProject(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.PlaceInstance(ctx, brick, nil, ""); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if p.InstanceCount() != 0 {
		t.Errorf("InstanceCount = %d, want 0", p.InstanceCount())
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)
	p.History().Clear()
	before := capture(t, p)

	if _, err := p.Undo(context.Background()); !bferrors.Is(err, bferrors.ErrCodeEmptyHistory) {
		t.Errorf("Undo err = %v, want EMPTY_HISTORY", err)
	}
	if _, err := p.Redo(context.Background()); !bferrors.Is(err, bferrors.ErrCodeEmptyHistory) {
		t.Errorf("Redo err = %v, want EMPTY_HISTORY", err)
	}
	if after := capture(t, p); after != before {
		t.Errorf("state changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestUndoRedoRestoresBitIdenticalState(t *testing.T) {
	ctx := context.Background()
	addLayer := func(t *testing.T, p *Project) {
		if _, err := p.CreateLayer(ctx, "Walls", ""); err != nil { // id04
			t.Fatalf("CreateLayer: %v", err)
		}
	}
	tests := []struct {
		name  string
		setup func(t *testing.T, p *Project)
		run   func(p *Project) error
	}{
		{"place", nil, func(p *Project) error {
			_, err := p.PlaceInstance(ctx, brick, transform.At(-16, 0, 0), "")
			return err
		}},
		{"move away", nil, func(p *Project) error {
			_, err := p.MoveInstance(ctx, "id03", transform.At(40, 0, 0), false)
			return err
		}},
		{"move and rotate", nil, func(p *Project) error {
			tr := transform.New(math32.Vec3(0, 0, 16), transform.EulerDegrees(0, 90, 0), math32.Vec3(1, 1, 1))
			_, err := p.MoveInstance(ctx, "id03", tr, false)
			return err
		}},
		{"delete", nil, func(p *Project) error {
			return p.DeleteInstance(ctx, "id02", false)
		}},
		{"break", nil, func(p *Project) error {
			return p.BreakConnection(ctx, p.AllConnections()[0].ID, false)
		}},
		{"lock", nil, func(p *Project) error {
			return p.LockConnection(ctx, p.AllConnections()[0].ID, true)
		}},
		{"create layer", nil, func(p *Project) error {
			_, err := p.CreateLayer(ctx, "Walls", "id01")
			return err
		}},
		{"assign", addLayer, func(p *Project) error {
			return p.AssignInstance(ctx, "id02", "id04")
		}},
		{"move layer", addLayer, func(p *Project) error {
			return p.MoveLayer(ctx, "id04", "id01")
		}},
		{"reorder layer", addLayer, func(p *Project) error {
			return p.ReorderLayer(ctx, "id01", 1)
		}},
		{"hide layer", nil, func(p *Project) error {
			return p.SetLayerVisible(ctx, "id01", false)
		}},
		{"rename layer", nil, func(p *Project) error {
			return p.RenameLayer(ctx, "id01", "Base")
		}},
		{"cascade delete layer", func(t *testing.T, p *Project) {
			addLayer(t, p)
			if err := p.AssignInstance(ctx, "id03", "id04"); err != nil {
				t.Fatalf("AssignInstance: %v", err)
			}
			if err := p.LockConnection(ctx, p.AllConnections()[0].ID, true); err != nil {
				t.Fatalf("LockConnection: %v", err)
			}
		}, func(p *Project) error {
			return p.DeleteLayer(ctx, "id04", true)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject(t, nil)
			place(t, p, brick, 0, 0, 0)  // id02
			place(t, p, brick, 16, 0, 0) // id03
			if tt.setup != nil {
				tt.setup(t, p)
			}
			before := capture(t, p)

			if err := tt.run(p); err != nil {
				t.Fatalf("run: %v", err)
			}
			mustValidate(t, p)
			after := capture(t, p)
			if after == before {
				t.Fatal("command did not change state")
			}

			if _, err := p.Undo(ctx); err != nil {
				t.Fatalf("Undo: %v", err)
			}
			mustValidate(t, p)
			if undone := capture(t, p); undone != before {
				t.Errorf("undo state differs:\nbefore %s\nundone %s", before, undone)
			}

			if _, err := p.Redo(ctx); err != nil {
				t.Fatalf("Redo: %v", err)
			}
			mustValidate(t, p)
			if redone := capture(t, p); redone != after {
				t.Errorf("redo state differs:\nafter  %s\nredone %s", after, redone)
			}
		})
	}
}

func TestCommitDiscardsFuture(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	if _, err := p.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !p.History().CanRedo() {
		t.Fatal("CanRedo = false after undo")
	}
	place(t, p, brick, 0, 9.6, 0)
	if p.History().CanRedo() {
		t.Error("CanRedo = true after a new command")
	}
	if _, err := p.Redo(ctx); !bferrors.Is(err, bferrors.ErrCodeEmptyHistory) {
		t.Errorf("Redo err = %v, want EMPTY_HISTORY", err)
	}
}

func TestMoveLayerCycleLeavesTreeUnchanged(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	a, _ := p.CreateLayer(ctx, "A", "")
	b, _ := p.CreateLayer(ctx, "B", a.ID)
	c, _ := p.CreateLayer(ctx, "C", b.ID)
	before := capture(t, p)
	depth := len(p.History().Past())

	for _, target := range []string{a.ID, b.ID, c.ID} {
		if err := p.MoveLayer(ctx, a.ID, target); !bferrors.Is(err, bferrors.ErrCodeCycle) {
			t.Errorf("MoveLayer(A, %s) err = %v, want CYCLE", target, err)
		}
	}
	if after := capture(t, p); after != before {
		t.Errorf("tree changed after rejected moves")
	}
	if got := len(p.History().Past()); got != depth {
		t.Errorf("history depth = %d, want %d", got, depth)
	}
}

func TestOwnershipIsAPartition(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	l1, _ := p.CreateLayer(ctx, "One", "")
	l2, _ := p.CreateLayer(ctx, "Two", l1.ID)
	for i := range 6 {
		place(t, p, brick, float32(i*40), 0, 0)
	}
	ids := make([]string, 0, p.InstanceCount())
	for _, inst := range p.Instances() {
		ids = append(ids, inst.ID)
	}
	for i, id := range ids {
		target := []string{l1.ID, l2.ID, p.DefaultLayer()}[i%3]
		if err := p.AssignInstance(ctx, id, target); err != nil {
			t.Fatalf("AssignInstance: %v", err)
		}
	}

	var owned []string
	for _, l := range p.Layers() {
		owned = append(owned, l.InstanceIDs...)
	}
	slices.Sort(owned)
	if !slices.Equal(owned, ids) {
		t.Errorf("union of layer lists = %v, want %v", owned, ids)
	}
	mustValidate(t, p)
}

func TestDeleteLayerNotEmpty(t *testing.T) {
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)
	err := p.DeleteLayer(context.Background(), p.DefaultLayer(), false)
	if !bferrors.Is(err, bferrors.ErrCodeNotEmpty) {
		t.Fatalf("err = %v, want NOT_EMPTY", err)
	}
	if p.InstanceCount() != 1 {
		t.Errorf("InstanceCount = %d, want 1", p.InstanceCount())
	}
}

func TestCascadeDeleteRemovesSubtreeAndInstances(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	top, _ := p.CreateLayer(ctx, "Top", "")
	sub, _ := p.CreateLayer(ctx, "Sub", top.ID)
	keep := place(t, p, brick, 0, 0, 0)
	gone, err := p.PlaceInstance(ctx, brick, transform.At(16, 0, 0), sub.ID)
	if err != nil {
		t.Fatalf("PlaceInstance: %v", err)
	}
	if len(p.AllConnections()) != 1 {
		t.Fatalf("connections = %d, want 1", len(p.AllConnections()))
	}

	if err := p.DeleteLayer(ctx, top.ID, true); err != nil {
		t.Fatalf("DeleteLayer: %v", err)
	}
	if _, err := p.Layer(sub.ID); !bferrors.Is(err, bferrors.ErrCodeNotFound) {
		t.Errorf("sub layer still present: %v", err)
	}
	if _, err := p.Instance(gone.ID); !bferrors.Is(err, bferrors.ErrCodeNotFound) {
		t.Errorf("owned instance still present: %v", err)
	}
	inst, _ := p.Instance(keep.ID)
	if len(inst.Connections) != 0 {
		t.Errorf("surviving instance keeps connections %v", inst.Connections)
	}
	mustValidate(t, p)

	if _, err := p.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if len(p.AllConnections()) != 1 {
		t.Errorf("connections after undo = %d, want 1", len(p.AllConnections()))
	}
	mustValidate(t, p)
}

func TestLockedConnectionBlocksMove(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)
	b := place(t, p, brick, 16, 0, 0)
	cid := p.AllConnections()[0].ID
	if err := p.LockConnection(ctx, cid, true); err != nil {
		t.Fatalf("LockConnection: %v", err)
	}

	_, err := p.MoveInstance(ctx, b.ID, transform.At(40, 0, 0), false)
	if !bferrors.Is(err, bferrors.ErrCodeLockedConnection) {
		t.Fatalf("err = %v, want LOCKED_CONNECTION", err)
	}
	inst, _ := p.Instance(b.ID)
	if got := inst.Transform.Position(); got != math32.Vec3(16, 0, 0) {
		t.Errorf("position = %v, want unchanged (16, 0, 0)", got)
	}

	// a nudge within tolerance keeps the locked connection
	if _, err := p.MoveInstance(ctx, b.ID, transform.At(17, 0, 0), false); err != nil {
		t.Fatalf("MoveInstance within tolerance: %v", err)
	}
	if c, err := p.Connection(cid); err != nil || !c.Locked {
		t.Errorf("locked connection lost after nudge: %v", err)
	}

	if _, err := p.MoveInstance(ctx, b.ID, transform.At(40, 0, 0), true); err != nil {
		t.Fatalf("forced MoveInstance: %v", err)
	}
	if _, err := p.Connection(cid); !bferrors.Is(err, bferrors.ErrCodeNotFound) {
		t.Errorf("locked connection survived a forced move")
	}
	mustValidate(t, p)

	if _, err := p.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	c, err := p.Connection(cid)
	if err != nil || !c.Locked {
		t.Errorf("undo did not restore the locked connection: %v", err)
	}
	mustValidate(t, p)
}

func TestLockedConnectionBlocksDeleteAndBreak(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil)
	a := place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	cid := p.AllConnections()[0].ID
	if err := p.LockConnection(ctx, cid, true); err != nil {
		t.Fatalf("LockConnection: %v", err)
	}

	if err := p.DeleteInstance(ctx, a.ID, false); !bferrors.Is(err, bferrors.ErrCodeLockedConnection) {
		t.Errorf("DeleteInstance err = %v, want LOCKED_CONNECTION", err)
	}
	if err := p.BreakConnection(ctx, cid, false); !bferrors.Is(err, bferrors.ErrCodeLockedConnection) {
		t.Errorf("BreakConnection err = %v, want LOCKED_CONNECTION", err)
	}
	if err := p.DeleteInstance(ctx, a.ID, true); err != nil {
		t.Fatalf("forced DeleteInstance: %v", err)
	}
	if len(p.AllConnections()) != 0 {
		t.Errorf("connections = %d after forced delete, want 0", len(p.AllConnections()))
	}
	if _, err := p.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if c, err := p.Connection(cid); err != nil || !c.Locked {
		t.Errorf("undo did not restore the locked connection: %v", err)
	}
	mustValidate(t, p)
}

func TestLockInvalidConnectionRejected(t *testing.T) {
	p := newProject(t, nil, wall())
	place(t, p, "wall-2x2", 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	cid := p.AllConnections()[0].ID
	err := p.LockConnection(context.Background(), cid, true)
	if !bferrors.Is(err, bferrors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestQueriesReturnCopies(t *testing.T) {
	p := newProject(t, nil)
	a := place(t, p, brick, 0, 0, 0)
	a.Transform.SetPosition(math32.Vec3(100, 0, 0))
	a.State.Locked = true
	inst, _ := p.Instance(a.ID)
	if inst.Transform.Position() != math32.Vec3(0, 0, 0) || inst.State.Locked {
		t.Errorf("mutating a returned instance changed the project: %+v", inst)
	}
}

func TestWorldBounds(t *testing.T) {
	p := newProject(t, nil)
	a := place(t, p, brick, 16, 0, 0)
	box, err := p.WorldBounds(a.ID)
	if err != nil {
		t.Fatalf("WorldBounds: %v", err)
	}
	want := math32.Box3{Min: math32.Vec3(8, -4.8, -8), Max: math32.Vec3(24, 4.8, 8)}
	if box != want {
		t.Errorf("WorldBounds = %v, want %v", box, want)
	}
	if _, err := p.WorldBounds("nope"); !bferrors.Is(err, bferrors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newProject(t, nil, wall())
	l, _ := p.CreateLayer(ctx, "Walls", "")
	place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	if _, err := p.PlaceInstance(ctx, "wall-2x2", transform.At(-16, 0, 0), l.ID); err != nil {
		t.Fatalf("PlaceInstance: %v", err)
	}
	for _, c := range p.AllConnections() {
		if c.Valid {
			if err := p.LockConnection(ctx, c.ID, true); err != nil {
				t.Fatalf("LockConnection: %v", err)
			}
		}
	}

	q, err := Import(p.Export(), WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got, want := capture(t, q), capture(t, p); got != want {
		t.Errorf("round trip differs:\ngot  %s\nwant %s", got, want)
	}
	if q.History().CanUndo() || q.History().CanRedo() {
		t.Error("imported project has history")
	}
	if q.Library().Len() != p.Library().Len() {
		t.Errorf("library size = %d, want %d", q.Library().Len(), p.Library().Len())
	}
}

func TestImportDanglingReferences(t *testing.T) {
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"unknown layer", func(s *Snapshot) { s.Instances[0].LayerID = "nope" }},
		{"unknown block", func(s *Snapshot) { s.Instances[0].BlockID = "nope" }},
		{"unknown instance", func(s *Snapshot) { s.Connections[0].Target.InstanceID = "nope" }},
		{"unknown snap point", func(s *Snapshot) { s.Connections[0].Target.SnapPointID = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := p.Export()
			tt.mutate(s)
			if _, err := Import(s); !bferrors.Is(err, bferrors.ErrCodeNotFound) {
				t.Errorf("err = %v, want NOT_FOUND", err)
			}
		})
	}
}

func TestImportRejectsBrokenInvariants(t *testing.T) {
	p := newProject(t, nil)
	place(t, p, brick, 0, 0, 0)
	place(t, p, brick, 16, 0, 0)
	s := p.Export()
	s.Connections[0].ID = "forged"
	if _, err := Import(s); !bferrors.Is(err, bferrors.ErrCodeInternal) {
		t.Errorf("err = %v, want INTERNAL_ERROR", err)
	}
}
