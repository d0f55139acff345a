// Package table holds param rows in memory.
//
// A Table is insertion ordered and keyed by row id, but ids are not unique:
// several rows may share one id and are told apart by their position.
// Rows are mutated only through the edit package; readers such as the CSV
// engine use the accessors.
package table

import (
	"fmt"

	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/value"
)

// Row is one schema-shaped record.
type Row struct {
	id     int
	name   *string
	values []any
	schema *schema.Schema
}

// NewRow builds a detached row with every field at its initial value.
// A nil name is kept as "no name", which is distinct from the empty string.
func NewRow(s *schema.Schema, id int, name *string) *Row {
	values := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		values[i] = value.Initial(f)
	}
	return &Row{id: id, name: cloneName(name), values: values, schema: s}
}

// NewNamedRow is NewRow with a present name.
func NewNamedRow(s *schema.Schema, id int, name string) *Row {
	return NewRow(s, id, &name)
}

// ID returns the row identifier.
func (r *Row) ID() int { return r.id }

// Name returns the row name and whether one is set.
func (r *Row) Name() (string, bool) {
	if r.name == nil {
		return "", false
	}
	return *r.name, true
}

// NamePtr returns a copy of the nullable name.
func (r *Row) NamePtr() *string { return cloneName(r.name) }

// HasName reports whether the row's name is set and equal to name.
func (r *Row) HasName(name string) bool {
	return r.name != nil && *r.name == name
}

// Schema returns the schema the row was built from.
func (r *Row) Schema() *schema.Schema { return r.schema }

// Get returns the current value of f. It panics if f is not in the row's schema.
func (r *Row) Get(f *schema.Field) any {
	i := r.schema.Index(f)
	if i < 0 {
		panic(fmt.Sprintf("table: field %s is not part of schema %s", f.Name, r.schema.Name))
	}
	return r.values[i]
}

// Lookup returns the value of the named field.
func (r *Row) Lookup(field string) (any, bool) {
	f := r.schema.Field(field)
	if f == nil {
		return nil, false
	}
	return r.Get(f), true
}

// Set stores v for f and returns the previous value.
// Callers must have checked v against the field kind.
func (r *Row) Set(f *schema.Field, v any) (any, error) {
	i := r.schema.Index(f)
	if i < 0 {
		return nil, fmt.Errorf("field %s is not part of schema %s", f.Name, r.schema.Name)
	}
	old := r.values[i]
	r.values[i] = value.Clone(v)
	return old, nil
}

// SetName replaces the nullable name and returns the previous one.
func (r *Row) SetName(name *string) *string {
	old := r.name
	r.name = cloneName(name)
	return old
}

// Clone returns a detached deep copy of the row.
func (r *Row) Clone() *Row {
	values := make([]any, len(r.values))
	for i, v := range r.values {
		values[i] = value.Clone(v)
	}
	return &Row{id: r.id, name: cloneName(r.name), values: values, schema: r.schema}
}

func cloneName(name *string) *string {
	if name == nil {
		return nil
	}
	n := *name
	return &n
}

// Table is the ordered collection of rows for one param.
type Table struct {
	Name    string
	Schema  *schema.Schema
	Version uint64 // format version that decides which fields are exported

	rows []*Row
}

// New creates an empty table.
func New(name string, s *schema.Schema, version uint64) *Table {
	return &Table{Name: name, Schema: s, Version: version}
}

// Rows returns the rows in table order. The slice must not be modified.
func (t *Table) Rows() []*Row { return t.rows }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// RowByID returns the first row with the given id, or nil.
func (t *Table) RowByID(id int) *Row {
	for _, r := range t.rows {
		if r.id == id {
			return r
		}
	}
	return nil
}

// IndexOf returns the position of r in the table, or -1.
func (t *Table) IndexOf(r *Row) int {
	for i, candidate := range t.rows {
		if candidate == r {
			return i
		}
	}
	return -1
}

// Field resolves a field of the table's schema by name.
func (t *Table) Field(name string) *schema.Field {
	return t.Schema.Field(name)
}

// ValidFields returns the schema fields valid for the table's format version.
func (t *Table) ValidFields() []*schema.Field {
	return t.Schema.ValidFields(t.Version)
}

// Append adds r at the end of the table.
func (t *Table) Append(r *Row) {
	t.rows = append(t.rows, r)
}

// Insert places r at position i, shifting later rows down.
func (t *Table) Insert(i int, r *Row) {
	if i < 0 || i > len(t.rows) {
		i = len(t.rows)
	}
	t.rows = append(t.rows, nil)
	copy(t.rows[i+1:], t.rows[i:])
	t.rows[i] = r
}

// InsertSorted places r after the last row whose id is <= r's id.
// It returns the position used.
func (t *Table) InsertSorted(r *Row) int {
	i := len(t.rows)
	for i > 0 && t.rows[i-1].id > r.id {
		i--
	}
	t.Insert(i, r)
	return i
}

// RemoveAt deletes and returns the row at position i.
func (t *Table) RemoveAt(i int) *Row {
	r := t.rows[i]
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return r
}

// Replace swaps the row at position i for r and returns the old row.
func (t *Table) Replace(i int, r *Row) *Row {
	old := t.rows[i]
	t.rows[i] = r
	return old
}

// Reset replaces every row of the table.
func (t *Table) Reset(rows []*Row) {
	t.rows = append([]*Row(nil), rows...)
}
