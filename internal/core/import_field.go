package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/paramcsv/internal/edit"
	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
	"github.com/JonMunkholm/paramcsv/internal/value"
)

// FieldImportOptions controls ImportField.
type FieldImportOptions struct {
	Separator rune // zero means DefaultSeparator

	// IgnoreMissingRows skips lines that match no row instead of adding one.
	IgnoreMissingRows bool
	// OnlyAffectEmptyNames renames only rows whose name is unset or empty.
	OnlyAffectEmptyNames bool
	// OnlyAffectVanillaNames renames only rows whose name still equals the
	// matching row of Reference. Without a Reference no row is renamed.
	OnlyAffectVanillaNames bool
	// SkipInvalidLines drops lines with fewer than two columns.
	SkipInvalidLines bool

	// Reference is the baseline table used by OnlyAffectVanillaNames.
	Reference *table.Table
}

// ImportField parses a single-column file ("ID<sep>value" lines, optionally
// under an "ID<sep>..." header naming the column) into a batch of edits
// against t. field is NameField or the name of a schema field.
//
// The k-th line for an id is bound to the k-th row with that id, so files
// exported from tables with duplicated ids re-import onto the same rows.
//
// Header, shape, field and per-value failures are reported with their own
// message. Anything else, including a malformed id, is reported as
// MsgUnparseable. ImportField never panics.
func ImportField(text string, t *table.Table, field string, opts FieldImportOptions) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(errUnparseable(fmt.Errorf("recovered: %v", r)))
		}
	}()

	res, err := importField(text, t, field, opts)
	if err != nil {
		return failed(narrow(err))
	}
	return res
}

// narrow keeps structurally detected failures and folds the rest into the
// generic parse failure.
func narrow(err error) error {
	ie, ok := err.(*ImportError)
	if !ok {
		return errUnparseable(err)
	}
	switch ie.Kind {
	case ErrSelection, ErrShape, ErrHeader, ErrField, ErrCoercion:
		return ie
	}
	return errUnparseable(ie)
}

func importField(text string, t *table.Table, field string, opts FieldImportOptions) (Result, error) {
	if t == nil {
		return Result{}, errNoTable()
	}
	if t.Schema == nil {
		return Result{}, fmt.Errorf("table %s has no schema", t.Name)
	}

	sep := separator(opts.Separator)
	isName := field == NameField

	lines := strings.Split(text, "\n")
	column := 1
	hasHeader := false
	if first := strings.TrimSpace(lines[0]); strings.HasPrefix(first, IDColumn+string(sep)) {
		hasHeader = true
		headers := headerNames(first, sep)
		column = indexOf(headers, field)
		if column < 0 {
			return Result{}, errMissingHeader(field, strings.Join(headers, ", "))
		}
		lines[0] = ""
	}

	var target *schema.Field
	if !isName {
		target = t.Field(field)
	}

	var reference *table.Table
	if opts.OnlyAffectVanillaNames {
		reference = opts.Reference
	}

	var (
		ops    []edit.Op
		added  []*table.Row
		fresh  = make(map[*table.Row]bool)
		counts = make(map[int]int)
	)
	for i, line := range lines {
		n := i + 1
		cells := splitLine(line, sep)
		if cells == nil {
			continue
		}
		if opts.SkipInvalidLines && len(cells) < 2 {
			continue
		}
		if hasHeader {
			if len(cells) <= column {
				return Result{}, errShortLine(n, column+1, len(cells))
			}
		} else if !columnsFit(cells, 2) {
			return Result{}, errWrongColumns(n)
		}

		id, err := parseID(cells[0])
		if err != nil {
			return Result{}, errBadID(n, cells[0], err)
		}
		counts[id]++
		occurrence := counts[id]
		raw := cells[column]

		var row, baseline *table.Row
		if isName {
			row = FindRowByName(t, added, raw)
		}
		if row == nil {
			row = FindRowByID(t, added, id, occurrence)
			if reference != nil {
				// Baseline rows are matched without the staged rows.
				baseline = FindRowByID(reference, nil, id, occurrence)
			}
			if row == nil {
				if opts.IgnoreMissingRows {
					continue
				}
				name := ""
				if isName {
					name = raw
				}
				row = table.NewNamedRow(t.Schema, id, name)
				added = append(added, row)
				fresh[row] = true
			}
		} else if reference != nil {
			baseline = FindRowByName(reference, nil, raw)
		}

		if isName {
			if row.HasName(raw) {
				continue
			}
			switch {
			case opts.OnlyAffectVanillaNames:
				if baseline != nil && sameName(row, baseline) {
					ops = append(ops, edit.NewNameChange(row, raw))
				}
			case !opts.OnlyAffectEmptyNames || nameEmpty(row):
				ops = append(ops, edit.NewNameChange(row, raw))
			}
			continue
		}

		if target == nil {
			return Result{}, errNoField(field)
		}
		v, err := coerce(target, raw, n)
		if err != nil {
			return Result{}, err
		}
		if fresh[row] || !value.Equal(row.Get(target), v) {
			ops = append(ops, edit.NewFieldEdit(row, target, v))
		}
	}

	affected := len(ops)
	b := edit.NewBatch(fmt.Sprintf("Import %s CSV into %s", field, t.Name))
	b.Add(ops...)
	if len(added) > 0 {
		b.Add(edit.NewRowInsert(t, added, false, false))
	}

	return Result{
		Message:  fmt.Sprintf("%d rows affected and %d rows added", affected, len(added)),
		Batch:    b,
		Affected: affected,
		Added:    len(added),
	}, nil
}

// headerNames splits a header line and drops blank trailing names left by a
// trailing separator.
func headerNames(line string, sep rune) []string {
	parts := strings.Split(line, string(sep))
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
