// Package schema describes the fields of a param table: their names, storage
// kinds and the range of format versions in which each field exists.
package schema

import "fmt"

// Field defines a single param column.
type Field struct {
	Name        string `yaml:"name"`
	Kind        Kind   `yaml:"kind"`
	ArrayLength int    `yaml:"array_length,omitempty"` // byte count for dummy8 fields
	Default     string `yaml:"default,omitempty"`      // canonical text of the initial value

	// FirstVersion is the first format version containing the field (0 = always).
	FirstVersion uint64 `yaml:"first_version,omitempty"`
	// RemovedVersion is the first format version without the field (0 = never removed).
	RemovedVersion uint64 `yaml:"removed_version,omitempty"`
}

// ValidFor reports whether the field exists in the given format version.
func (f *Field) ValidFor(version uint64) bool {
	if version < f.FirstVersion {
		return false
	}
	return f.RemovedVersion == 0 || version < f.RemovedVersion
}

// Schema is the ordered set of fields shared by every row of a table.
type Schema struct {
	Name   string   `yaml:"name"`
	Fields []*Field `yaml:"fields"`
}

// ValidFields returns the fields that exist in the given format version, in schema order.
func (s *Schema) ValidFields(version uint64) []*Field {
	fields := make([]*Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.ValidFor(version) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Field returns the field with the given name, or nil.
func (s *Schema) Field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Index returns the position of f in the schema, or -1.
func (s *Schema) Index(f *Field) int {
	for i, candidate := range s.Fields {
		if candidate == f {
			return i
		}
	}
	return -1
}

// Validate checks field names are present and unique and array fields have a length.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f == nil || f.Name == "" {
			return fmt.Errorf("schema %s: field %d has no name", s.Name, i)
		}
		if f.Name == "ID" || f.Name == "Name" {
			return fmt.Errorf("schema %s: field name %q is reserved", s.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Kind.IsArray() && f.ArrayLength <= 0 {
			return fmt.Errorf("schema %s: field %s needs a positive array_length", s.Name, f.Name)
		}
		if f.RemovedVersion != 0 && f.RemovedVersion <= f.FirstVersion {
			return fmt.Errorf("schema %s: field %s is removed before it is added", s.Name, f.Name)
		}
	}
	return nil
}
