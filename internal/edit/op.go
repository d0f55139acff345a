// Package edit models table mutations as values.
//
// An import never touches a table directly. It produces a Batch of Ops which
// the caller applies as a unit with Apply and may later undo with Revert.
package edit

import (
	"fmt"

	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
	"github.com/JonMunkholm/paramcsv/internal/value"
)

// Kind tags the concrete type of an Op.
type Kind int

const (
	KindFieldEdit Kind = iota
	KindNameChange
	KindRowInsert
)

func (k Kind) String() string {
	switch k {
	case KindFieldEdit:
		return "field_edit"
	case KindNameChange:
		return "name_change"
	case KindRowInsert:
		return "row_insert"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Op is one of *FieldEdit, *NameChange or *RowInsert.
type Op interface {
	Kind() Kind
	String() string

	validate() error
	apply()
	revert()
}

// FieldEdit sets one field of one row.
type FieldEdit struct {
	Row   *table.Row
	Field *schema.Field
	Value any

	old any
}

// NewFieldEdit stages f = v on row.
func NewFieldEdit(row *table.Row, f *schema.Field, v any) *FieldEdit {
	return &FieldEdit{Row: row, Field: f, Value: v}
}

func (e *FieldEdit) Kind() Kind { return KindFieldEdit }

func (e *FieldEdit) String() string {
	return fmt.Sprintf("set %d.%s = %s", e.Row.ID(), e.Field.Name, value.Format(e.Value))
}

func (e *FieldEdit) validate() error {
	if e.Row == nil || e.Field == nil {
		return fmt.Errorf("field edit without row or field")
	}
	if e.Row.Schema().Index(e.Field) < 0 {
		return fmt.Errorf("field %s is not part of row %d", e.Field.Name, e.Row.ID())
	}
	if !value.Matches(e.Field, e.Value) {
		return fmt.Errorf("value %#v does not fit %s field %s", e.Value, e.Field.Kind, e.Field.Name)
	}
	return nil
}

func (e *FieldEdit) apply() {
	// validate guarantees the field belongs to the row.
	e.old, _ = e.Row.Set(e.Field, e.Value)
}

func (e *FieldEdit) revert() {
	_, _ = e.Row.Set(e.Field, e.old)
}

// NameChange renames one row.
type NameChange struct {
	Row  *table.Row
	Name string

	old *string
}

// NewNameChange stages a rename of row.
func NewNameChange(row *table.Row, name string) *NameChange {
	return &NameChange{Row: row, Name: name}
}

func (c *NameChange) Kind() Kind { return KindNameChange }

func (c *NameChange) String() string {
	return fmt.Sprintf("rename %d to %q", c.Row.ID(), c.Name)
}

func (c *NameChange) validate() error {
	if c.Row == nil {
		return fmt.Errorf("name change without row")
	}
	return nil
}

func (c *NameChange) apply() {
	name := c.Name
	c.old = c.Row.SetName(&name)
}

func (c *NameChange) revert() {
	c.Row.SetName(c.old)
}

// RowInsert adds detached rows to a table.
//
// With Replace, each row takes the place of the first row with the same id
// that was in the table before the insert and is not replaced yet. With
// AppendOnly, rows go to the end of the table. Otherwise each row is placed
// after the last row whose id is not greater than its own.
type RowInsert struct {
	Table      *table.Table
	Rows       []*table.Row
	AppendOnly bool
	Replace    bool

	replaced map[*table.Row]*table.Row
}

// NewRowInsert stages the insertion of rows into t.
func NewRowInsert(t *table.Table, rows []*table.Row, appendOnly, replace bool) *RowInsert {
	return &RowInsert{Table: t, Rows: rows, AppendOnly: appendOnly, Replace: replace}
}

func (i *RowInsert) Kind() Kind { return KindRowInsert }

func (i *RowInsert) String() string {
	return fmt.Sprintf("insert %d rows into %s", len(i.Rows), i.Table.Name)
}

func (i *RowInsert) validate() error {
	if i.Table == nil {
		return fmt.Errorf("row insert without table")
	}
	seen := make(map[*table.Row]bool, len(i.Rows))
	for _, r := range i.Rows {
		if r == nil {
			return fmt.Errorf("row insert into %s has a nil row", i.Table.Name)
		}
		if r.Schema() != i.Table.Schema {
			return fmt.Errorf("row %d does not share the schema of %s", r.ID(), i.Table.Name)
		}
		if seen[r] || i.Table.IndexOf(r) >= 0 {
			return fmt.Errorf("row %d is already part of %s", r.ID(), i.Table.Name)
		}
		seen[r] = true
	}
	return nil
}

func (i *RowInsert) apply() {
	i.replaced = make(map[*table.Row]*table.Row)
	before := append([]*table.Row(nil), i.Table.Rows()...)
	taken := make(map[*table.Row]bool)
	for _, r := range i.Rows {
		switch {
		case i.Replace:
			if existing := firstUntaken(before, taken, r.ID()); existing != nil {
				i.Table.Replace(i.Table.IndexOf(existing), r)
				i.replaced[r] = existing
				taken[existing] = true
				continue
			}
			i.Table.Append(r)
		case i.AppendOnly:
			i.Table.Append(r)
		default:
			i.Table.InsertSorted(r)
		}
	}
}

func (i *RowInsert) revert() {
	for j := len(i.Rows) - 1; j >= 0; j-- {
		r := i.Rows[j]
		idx := i.Table.IndexOf(r)
		if idx < 0 {
			continue
		}
		if old, ok := i.replaced[r]; ok {
			i.Table.Replace(idx, old)
			continue
		}
		i.Table.RemoveAt(idx)
	}
	i.replaced = nil
}

func firstUntaken(rows []*table.Row, taken map[*table.Row]bool, id int) *table.Row {
	for _, r := range rows {
		if r.ID() == id && !taken[r] {
			return r
		}
	}
	return nil
}
