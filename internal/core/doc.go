// Package core provides the import and export engine for param CSV files.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers and the CLI alike.
//
// # Architecture
//
//   - Export: [ColumnLabels], [ExportTable] and [ExportField] render tables as
//     text, one line per row, every column followed by the separator.
//   - Import: [ImportTable] and [ImportField] parse text into an [edit.Batch]
//     without touching the table. The caller applies the batch.
//   - Lookup: [FindRowByName] and [FindRowByID] resolve rows across a table
//     and rows staged by the same import.
//   - Service: two-phase imports over a [bank.Bank], with commit, undo and
//     redo per table and optional persistence through a [Store].
//
// # CSV Format
//
// A full-table file has one line per row:
//
//	ID,Name,HP,Pad,
//	1,Knight,100,[0|0]
//	2,null,0,[1|2]
//
// The header is optional on import. Names never contain the separator; it is
// replaced by '-' on export. A row without a name is written as "null", which
// reads back as the literal name "null".
//
// A single-field file has two columns:
//
//	ID,HP
//	1,100
//
// When a header is present, the column to read is chosen by name, so any
// column of a full-table export can be imported on its own.
//
// # Error Handling
//
// Rejected imports return a [Result] with no batch, the user-facing message
// and an [*ImportError] whose kind is usable with errors.Is. [MapError] maps
// errors to codes for support reference:
//
//   - IMP001-IMP007: Import errors (selection, shape, header, field, values)
//   - TBL001: Unknown table
//   - HST001-HST004: Undo, redo and pending import errors
package core
