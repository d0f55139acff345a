package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/paramcsv/internal/edit"
	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
	"github.com/JonMunkholm/paramcsv/internal/value"
)

// TableImportOptions controls ImportTable.
type TableImportOptions struct {
	Separator  rune // zero means DefaultSeparator
	AppendOnly bool // new rows go to the end of the table
	Replace    bool // every line becomes a new row replacing the one with its id
}

// ImportTable parses a full export (id, name and every valid field per line)
// into a batch of edits against t. The table is not modified.
//
// Lines whose id is absent from t, and every line when Replace is set, stage a
// new row; the batch then ends with one row insertion. The first bad line
// rejects the whole import.
func ImportTable(text string, t *table.Table, opts TableImportOptions) Result {
	if t == nil {
		return failed(errNoTable())
	}
	if t.Schema == nil {
		return failed(errUnparseable(fmt.Errorf("table %s has no schema", t.Name)))
	}

	sep := separator(opts.Separator)
	fields := t.ValidFields()
	want := len(fields) + 2

	lines := strings.Split(text, "\n")
	if strings.HasPrefix(lines[0], IDColumn+string(sep)+NameField) {
		lines[0] = ""
	}

	var (
		ops   []edit.Op
		added []*table.Row
	)
	for i, line := range lines {
		n := i + 1
		cells := splitLine(line, sep)
		if cells == nil {
			continue
		}
		if !columnsFit(cells, want) {
			return failed(errWrongColumns(n))
		}

		id, err := parseID(cells[0])
		if err != nil {
			return failed(errBadID(n, cells[0], err))
		}
		name := cells[1]

		row := t.RowByID(id)
		fresh := row == nil || opts.Replace
		if fresh {
			row = table.NewRow(t.Schema, id, nil)
			added = append(added, row)
		}

		if fresh || !row.HasName(name) {
			ops = append(ops, edit.NewNameChange(row, name))
		}

		for j, f := range fields {
			raw := cells[j+2]
			v, err := coerce(f, raw, n)
			if err != nil {
				return failed(err)
			}
			if fresh || !value.Equal(row.Get(f), v) {
				ops = append(ops, edit.NewFieldEdit(row, f, v))
			}
		}
	}

	affected := len(ops)
	b := edit.NewBatch(fmt.Sprintf("Import CSV into %s", t.Name))
	b.Add(ops...)
	if len(added) > 0 {
		b.Add(edit.NewRowInsert(t, added, opts.AppendOnly, opts.Replace))
	}

	return Result{
		Message:  fmt.Sprintf("%d cells affected, %d rows added", affected, len(added)),
		Batch:    b,
		Affected: affected,
		Added:    len(added),
	}
}

// coerce converts raw to f's kind, reporting failures against the field.
func coerce(f *schema.Field, raw string, line int) (any, error) {
	v, err := value.Parse(f, raw)
	if err != nil {
		return nil, errCannotAssign(line, f.Name, raw, err)
	}
	return v, nil
}
