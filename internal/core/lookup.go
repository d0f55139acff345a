package core

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/paramcsv/internal/table"
)

// FindRowByName returns the first row named name, searching t's rows and then
// the rows staged for insertion.
func FindRowByName(t *table.Table, added []*table.Row, name string) *table.Row {
	if t != nil {
		for _, r := range t.Rows() {
			if r.HasName(name) {
				return r
			}
		}
	}
	for _, r := range added {
		if r.HasName(name) {
			return r
		}
	}
	return nil
}

// FindRowByID returns the occurrence-th row (1-based) carrying id, counting
// t's rows first and the staged rows after them. This keeps the k-th line for
// a duplicated id bound to the k-th row with that id.
func FindRowByID(t *table.Table, added []*table.Row, id, occurrence int) *table.Row {
	seen := 0
	if t != nil {
		for _, r := range t.Rows() {
			if r.ID() == id {
				seen++
				if seen == occurrence {
					return r
				}
			}
		}
	}
	for _, r := range added {
		if r.ID() == id {
			seen++
			if seen == occurrence {
				return r
			}
		}
	}
	return nil
}

// splitLine trims a raw input line and splits it on sep.
// It returns nil for blank lines.
func splitLine(line string, sep rune) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	return strings.Split(line, string(sep))
}

// columnsFit reports whether cells has want columns, tolerating one extra
// empty column left by a trailing separator.
func columnsFit(cells []string, want int) bool {
	if len(cells) == want {
		return true
	}
	return len(cells) == want+1 && strings.TrimSpace(cells[want]) == ""
}

func parseID(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	return int(n), err
}

func formatID(r *table.Row) string {
	return strconv.Itoa(r.ID())
}

func separator(sep rune) rune {
	if sep == 0 {
		return DefaultSeparator
	}
	return sep
}

func nameEmpty(r *table.Row) bool {
	name, _ := r.Name()
	return name == ""
}

func sameName(a, b *table.Row) bool {
	an, aok := a.Name()
	bn, bok := b.Name()
	return aok == bok && an == bn
}
