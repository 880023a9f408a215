package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	NoopSceneHooks{}.OnCommand(ctx, "place", time.Millisecond, nil)
	NoopSnapHooks{}.OnResolve(ctx, 3, 1, 1, time.Millisecond)

	h := NoopHistoryHooks{}
	h.OnCommit(ctx, "place brick-2x2", 1)
	h.OnUndo(ctx, "place brick-2x2", nil)
	h.OnRedo(ctx, "", errors.New("empty"))

	s := NoopStoreHooks{}
	s.OnSave(ctx, "file", 1024, time.Millisecond, nil)
	s.OnLoad(ctx, "redis", 0, time.Millisecond, errors.New("miss"))
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	if _, ok := Scene().(NoopSceneHooks); !ok {
		t.Error("Scene() should return NoopSceneHooks by default")
	}
	if _, ok := Snap().(NoopSnapHooks); !ok {
		t.Error("Snap() should return NoopSnapHooks by default")
	}
	if _, ok := History().(NoopHistoryHooks); !ok {
		t.Error("History() should return NoopHistoryHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}

	scene := &testSceneHooks{}
	SetSceneHooks(scene)
	if Scene() != scene {
		t.Error("SetSceneHooks should set custom hooks")
	}

	snap := &testSnapHooks{}
	SetSnapHooks(snap)
	if Snap() != snap {
		t.Error("SetSnapHooks should set custom hooks")
	}

	history := &testHistoryHooks{}
	SetHistoryHooks(history)
	if History() != history {
		t.Error("SetHistoryHooks should set custom hooks")
	}

	store := &testStoreHooks{}
	SetStoreHooks(store)
	if Store() != store {
		t.Error("SetStoreHooks should set custom hooks")
	}

	Reset()
	if _, ok := Scene().(NoopSceneHooks); !ok {
		t.Error("Reset() should restore NoopSceneHooks")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Reset() should restore NoopStoreHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testSnapHooks{}
	SetSnapHooks(custom)
	SetSnapHooks(nil)

	if Snap() != custom {
		t.Error("SetSnapHooks(nil) should be ignored")
	}
}

type testSceneHooks struct{ NoopSceneHooks }
type testSnapHooks struct{ NoopSnapHooks }
type testHistoryHooks struct{ NoopHistoryHooks }
type testStoreHooks struct{ NoopStoreHooks }
