package core

import (
	"strings"

	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
	"github.com/JonMunkholm/paramcsv/internal/value"
)

const (
	// IDColumn and NameField are the two columns every row line starts with.
	IDColumn  = "ID"
	NameField = "Name"

	// NullName is written for rows without a name.
	NullName = "null"

	// NameSubstitute replaces separators inside names so columns stay aligned.
	NameSubstitute = '-'

	// DefaultSeparator is used when options leave the separator unset.
	DefaultSeparator = ','
)

// ColumnLabels builds the header line for a table: "ID", "Name" and every
// field valid in version, each followed by sep, then a newline.
func ColumnLabels(s *schema.Schema, version uint64, sep rune) string {
	var b strings.Builder
	d := string(sep)
	b.WriteString(IDColumn + d + NameField + d)
	if s != nil {
		for _, f := range s.ValidFields(version) {
			b.WriteString(f.Name)
			b.WriteString(d)
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// ExportTable writes the header line followed by one line per row holding
// the id, the name and every field valid for the table's version.
func ExportTable(t *table.Table, rows []*table.Row, sep rune) string {
	var b strings.Builder
	d := string(sep)
	fields := t.ValidFields()

	b.WriteString(ColumnLabels(t.Schema, t.Version, sep))
	for _, r := range rows {
		b.WriteString(formatID(r))
		b.WriteString(d)
		b.WriteString(exportName(r, sep))
		for _, f := range fields {
			b.WriteString(d)
			b.WriteString(value.Format(r.Get(f)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ExportField writes a two-column "ID<sep>field" file. field is either
// NameField or the name of a schema field.
func ExportField(s *schema.Schema, rows []*table.Row, field string, sep rune) (string, error) {
	var f *schema.Field
	if field != NameField {
		if s != nil {
			f = s.Field(field)
		}
		if f == nil {
			return "", errNoField(field)
		}
	}

	var b strings.Builder
	d := string(sep)
	b.WriteString(IDColumn + d + field + "\n")
	for _, r := range rows {
		b.WriteString(formatID(r))
		b.WriteString(d)
		if f == nil {
			b.WriteString(exportName(r, sep))
		} else {
			b.WriteString(value.Format(r.Get(f)))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func exportName(r *table.Row, sep rune) string {
	name, ok := r.Name()
	if !ok {
		return NullName
	}
	return strings.ReplaceAll(name, string(sep), string(NameSubstitute))
}
