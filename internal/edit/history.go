package edit

import (
	"errors"
	"sync"
)

var (
	// ErrNothingToUndo is returned by Undo on an empty history.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo when no batch was undone.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultHistoryLimit bounds the undo stack when no limit is given.
const DefaultHistoryLimit = 100

// History is an undo/redo stack of applied batches.
// It is safe for concurrent use.
type History struct {
	mu     sync.Mutex
	limit  int
	done   []*Batch
	undone []*Batch
}

// NewHistory creates a history keeping at most limit batches.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Do applies b and records it. Any redo entries are dropped.
func (h *History) Do(b *Batch) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := Apply(b); err != nil {
		return err
	}
	h.done = append(h.done, b)
	if len(h.done) > h.limit {
		h.done = h.done[len(h.done)-h.limit:]
	}
	h.undone = nil
	return nil
}

// Undo reverts the most recent batch and returns it.
func (h *History) Undo() (*Batch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.done) == 0 {
		return nil, ErrNothingToUndo
	}
	b := h.done[len(h.done)-1]
	if err := Revert(b); err != nil {
		return nil, err
	}
	h.done = h.done[:len(h.done)-1]
	h.undone = append(h.undone, b)
	return b, nil
}

// Redo re-applies the most recently undone batch and returns it.
func (h *History) Redo() (*Batch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undone) == 0 {
		return nil, ErrNothingToRedo
	}
	b := h.undone[len(h.undone)-1]
	if err := Apply(b); err != nil {
		return nil, err
	}
	h.undone = h.undone[:len(h.undone)-1]
	h.done = append(h.done, b)
	return b, nil
}

// Forget drops the most recently undone batch so Redo cannot reach it.
func (h *History) Forget() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undone) > 0 {
		h.undone = h.undone[:len(h.undone)-1]
	}
}

// Len returns the number of undoable and redoable batches.
func (h *History) Len() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.done), len(h.undone)
}
