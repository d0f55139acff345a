package edit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrApplied is returned when applying a batch twice.
	ErrApplied = errors.New("batch already applied")
	// ErrNotApplied is returned when reverting a batch that is not applied.
	ErrNotApplied = errors.New("batch not applied")
)

// Batch is an ordered list of operations that succeed or fail together.
type Batch struct {
	ID    uuid.UUID
	Label string
	Ops   []Op

	applied bool
}

// NewBatch creates an empty batch with a fresh id.
func NewBatch(label string) *Batch {
	return &Batch{ID: uuid.New(), Label: label}
}

// Add appends ops to the batch.
func (b *Batch) Add(ops ...Op) {
	b.Ops = append(b.Ops, ops...)
}

// Len returns the number of operations.
func (b *Batch) Len() int { return len(b.Ops) }

// Applied reports whether the batch is currently applied.
func (b *Batch) Applied() bool { return b.applied }

// Stats counts a batch's operations by kind.
type Stats struct {
	FieldEdits  int
	NameChanges int
	RowInserts  int
	RowsAdded   int
}

// Stats summarises the batch.
func (b *Batch) Stats() Stats {
	var s Stats
	for _, op := range b.Ops {
		switch o := op.(type) {
		case *FieldEdit:
			s.FieldEdits++
		case *NameChange:
			s.NameChanges++
		case *RowInsert:
			s.RowInserts++
			s.RowsAdded += len(o.Rows)
		}
	}
	return s
}

// Apply checks every operation and then applies them in order.
// If any operation is invalid nothing is changed.
func Apply(b *Batch) error {
	if b.applied {
		return ErrApplied
	}
	for i, op := range b.Ops {
		if err := op.validate(); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Kind(), err)
		}
	}
	for _, op := range b.Ops {
		op.apply()
	}
	b.applied = true
	return nil
}

// Revert undoes an applied batch, last operation first.
func Revert(b *Batch) error {
	if !b.applied {
		return ErrNotApplied
	}
	for i := len(b.Ops) - 1; i >= 0; i-- {
		b.Ops[i].revert()
	}
	b.applied = false
	return nil
}
