// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through the registered hooks without depending on a
// particular backend. Defaults are no-ops; main (or a test) installs real
// implementations at startup, for example the Prometheus collectors in the
// prom subpackage.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    c, _ := prom.NewCollector(reg)
//	    c.Install()
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	// ... resolve snaps ...
//	observability.Snap().OnResolve(ctx, candidates, valid, invalid, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Scene Hooks
// =============================================================================

// SceneHooks receives events from the project command surface.
type SceneHooks interface {
	// OnCommand records one command (place, move, delete-layer, undo, ...).
	OnCommand(ctx context.Context, name string, duration time.Duration, err error)
}

// =============================================================================
// Snap Hooks
// =============================================================================

// SnapHooks receives events from snap resolution.
type SnapHooks interface {
	// OnResolve records one resolution pass: how many candidate instances
	// passed the broad phase and how many connections came out valid or
	// invalid.
	OnResolve(ctx context.Context, candidates, valid, invalid int, duration time.Duration)
}

// =============================================================================
// History Hooks
// =============================================================================

// HistoryHooks receives events from the undo/redo stacks.
type HistoryHooks interface {
	OnCommit(ctx context.Context, label string, depth int)
	OnUndo(ctx context.Context, label string, err error)
	OnRedo(ctx context.Context, label string, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from project persistence.
type StoreHooks interface {
	OnSave(ctx context.Context, backend string, size int, duration time.Duration, err error)
	OnLoad(ctx context.Context, backend string, size int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSceneHooks is a no-op implementation of SceneHooks.
type NoopSceneHooks struct{}

func (NoopSceneHooks) OnCommand(context.Context, string, time.Duration, error) {}

// NoopSnapHooks is a no-op implementation of SnapHooks.
type NoopSnapHooks struct{}

func (NoopSnapHooks) OnResolve(context.Context, int, int, int, time.Duration) {}

// NoopHistoryHooks is a no-op implementation of HistoryHooks.
type NoopHistoryHooks struct{}

func (NoopHistoryHooks) OnCommit(context.Context, string, int) {}
func (NoopHistoryHooks) OnUndo(context.Context, string, error) {}
func (NoopHistoryHooks) OnRedo(context.Context, string, error) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnSave(context.Context, string, int, time.Duration, error) {}
func (NoopStoreHooks) OnLoad(context.Context, string, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	sceneHooks   SceneHooks   = NoopSceneHooks{}
	snapHooks    SnapHooks    = NoopSnapHooks{}
	historyHooks HistoryHooks = NoopHistoryHooks{}
	storeHooks   StoreHooks   = NoopStoreHooks{}
	hooksMu      sync.RWMutex
)

// SetSceneHooks registers custom scene hooks.
// This should be called once at application startup before any commands run.
func SetSceneHooks(h SceneHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sceneHooks = h
	}
}

// SetSnapHooks registers custom snap hooks.
func SetSnapHooks(h SnapHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		snapHooks = h
	}
}

// SetHistoryHooks registers custom history hooks.
func SetHistoryHooks(h HistoryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		historyHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Scene returns the registered scene hooks.
func Scene() SceneHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sceneHooks
}

// Snap returns the registered snap hooks.
func Snap() SnapHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return snapHooks
}

// History returns the registered history hooks.
func History() HistoryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return historyHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	sceneHooks = NoopSceneHooks{}
	snapHooks = NoopSnapHooks{}
	historyHooks = NoopHistoryHooks{}
	storeHooks = NoopStoreHooks{}
}
