package core

import "fmt"

// Messages returned to the editor. They are shown verbatim, so they are part
// of the import contract.
const (
	MsgNoTable       = "No Param selected"
	MsgUnparseable   = "Unable to parse CSV into correct data types"
	MsgWrongColumns  = "CSV has wrong number of values.\n\nYour CSV input was likely generated from an older paramdef configuration. You should re-generate it by loading the target regulation.bin and then re-exporting the CSV values."
	msgMissingHeader = "CSV header does not contain field '%s'. Available fields: %s"
	msgShortLine     = "CSV line has insufficient columns. Expected at least %d columns but got %d"
	msgNoField       = "Could not locate field %s"
	msgCannotAssign  = "Could not assign %s to field %s"
)

// ErrorKind classifies import failures. Kinds are usable with errors.Is:
//
//	if errors.Is(res.Err, core.ErrShape) { ... }
type ErrorKind int

const (
	ErrSelection ErrorKind = iota + 1 // no table for the requested name
	ErrSchema                         // schema missing, or a catch-all parse failure
	ErrShape                          // wrong column count
	ErrHeader                         // requested field absent from the header line
	ErrField                          // requested field absent from the schema
	ErrCoercion                       // value does not convert to the field kind
	ErrParse                          // row id is not an integer
)

func (k ErrorKind) Error() string {
	switch k {
	case ErrSelection:
		return "selection error"
	case ErrSchema:
		return "schema error"
	case ErrShape:
		return "shape error"
	case ErrHeader:
		return "header error"
	case ErrField:
		return "field resolution error"
	case ErrCoercion:
		return "coercion error"
	case ErrParse:
		return "parse error"
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// ImportError is a failed import. Error returns the user-facing message.
type ImportError struct {
	Kind  ErrorKind
	Msg   string
	Line  int    // 1-based line of the input, 0 when not tied to a line
	Field string // offending field, if any
	Value string // offending raw value, if any
	Err   error  // underlying cause, if any
}

func (e *ImportError) Error() string { return e.Msg }

func (e *ImportError) Unwrap() error { return e.Err }

// Is matches the error against its kind.
func (e *ImportError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func errNoTable() *ImportError {
	return &ImportError{Kind: ErrSelection, Msg: MsgNoTable}
}

func errUnparseable(cause error) *ImportError {
	return &ImportError{Kind: ErrSchema, Msg: MsgUnparseable, Err: cause}
}

func errWrongColumns(line int) *ImportError {
	return &ImportError{Kind: ErrShape, Msg: MsgWrongColumns, Line: line}
}

func errShortLine(line, want, got int) *ImportError {
	return &ImportError{Kind: ErrShape, Msg: fmt.Sprintf(msgShortLine, want, got), Line: line}
}

func errMissingHeader(field, available string) *ImportError {
	return &ImportError{Kind: ErrHeader, Msg: fmt.Sprintf(msgMissingHeader, field, available), Field: field}
}

func errNoField(field string) *ImportError {
	return &ImportError{Kind: ErrField, Msg: fmt.Sprintf(msgNoField, field), Field: field}
}

func errCannotAssign(line int, field, raw string, cause error) *ImportError {
	return &ImportError{
		Kind:  ErrCoercion,
		Msg:   fmt.Sprintf(msgCannotAssign, raw, field),
		Line:  line,
		Field: field,
		Value: raw,
		Err:   cause,
	}
}

func errBadID(line int, raw string, cause error) *ImportError {
	return &ImportError{
		Kind:  ErrParse,
		Msg:   fmt.Sprintf("Could not parse row ID %q on line %d", raw, line),
		Line:  line,
		Value: raw,
		Err:   cause,
	}
}
