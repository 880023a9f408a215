// Package history implements linear undo/redo over reversible commands.
//
// A History keeps one list of commands and a cursor. Commands before the
// cursor have been applied ("past"); commands after it were undone and can
// be redone ("future"). Committing a new command while a future exists
// discards that future: there is no redo tree.
//
// Commands carry everything they need to apply and revert themselves. The
// history never inspects them beyond their label.
package history

import (
	"context"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/observability"
)

// Command is one reversible mutation.
type Command interface {
	// Label describes the command for users, e.g. "move brick-2x2".
	Label() string
	// Apply performs (or re-performs) the mutation.
	Apply(ctx context.Context) error
	// Revert undoes a previous Apply.
	Revert(ctx context.Context) error
}

// History is a linear undo/redo stack. The zero value is ready to use and
// keeps unlimited entries.
//
// History is not safe for concurrent use.
type History struct {
	recs []Command
	idx  int // number of applied commands; recs[idx:] is the future

	// MaxDepth caps the number of undoable commands; the oldest are dropped
	// first. Zero means unlimited.
	MaxDepth int
}

// New creates a history keeping at most maxDepth undoable commands.
func New(maxDepth int) *History {
	return &History{MaxDepth: maxDepth}
}

// Commit applies cmd and records it as the most recent command, discarding
// any redo entries. If Apply fails nothing is recorded.
func (h *History) Commit(ctx context.Context, cmd Command) error {
	if err := cmd.Apply(ctx); err != nil {
		return err
	}
	h.recs = append(h.recs[:h.idx], cmd)
	h.idx++
	if h.MaxDepth > 0 && h.idx > h.MaxDepth {
		drop := h.idx - h.MaxDepth
		h.recs = append(h.recs[:0:0], h.recs[drop:]...)
		h.idx -= drop
	}
	observability.History().OnCommit(ctx, cmd.Label(), h.idx)
	return nil
}

// Undo reverts the most recent command and returns its label. It fails with
// EMPTY_HISTORY when there is nothing to undo. If Revert fails the stacks are
// left unchanged.
func (h *History) Undo(ctx context.Context) (string, error) {
	if h.idx == 0 {
		err := bferrors.EmptyHistory("undo")
		observability.History().OnUndo(ctx, "", err)
		return "", err
	}
	cmd := h.recs[h.idx-1]
	if err := cmd.Revert(ctx); err != nil {
		observability.History().OnUndo(ctx, cmd.Label(), err)
		return "", err
	}
	h.idx--
	observability.History().OnUndo(ctx, cmd.Label(), nil)
	return cmd.Label(), nil
}

// Redo re-applies the most recently undone command and returns its label.
// It fails with EMPTY_HISTORY when there is nothing to redo.
func (h *History) Redo(ctx context.Context) (string, error) {
	if h.idx == len(h.recs) {
		err := bferrors.EmptyHistory("redo")
		observability.History().OnRedo(ctx, "", err)
		return "", err
	}
	cmd := h.recs[h.idx]
	if err := cmd.Apply(ctx); err != nil {
		observability.History().OnRedo(ctx, cmd.Label(), err)
		return "", err
	}
	h.idx++
	observability.History().OnRedo(ctx, cmd.Label(), nil)
	return cmd.Label(), nil
}

// CanUndo reports whether Undo would do anything.
func (h *History) CanUndo() bool { return h.idx > 0 }

// CanRedo reports whether Redo would do anything.
func (h *History) CanRedo() bool { return h.idx < len(h.recs) }

// Present returns the label of the most recently applied command, or "".
func (h *History) Present() string {
	if h.idx == 0 {
		return ""
	}
	return h.recs[h.idx-1].Label()
}

// Past returns the labels of applied commands, oldest first.
func (h *History) Past() []string {
	return labels(h.recs[:h.idx])
}

// Future returns the labels of undone commands, next redo first.
func (h *History) Future() []string {
	return labels(h.recs[h.idx:])
}

// Len returns the total number of recorded commands, past and future.
func (h *History) Len() int { return len(h.recs) }

// Clear drops every recorded command.
func (h *History) Clear() {
	h.recs = nil
	h.idx = 0
}

func labels(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Label()
	}
	return out
}
