// Package core provides the import and export engine for param CSV files.
//
// # Error Codes Reference
//
// This file maps errors to user-facing messages with codes for support
// reference. Import failures carry their kind and are mapped by kind; other
// errors fall back to case-insensitive pattern matching.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - No table: No param table was selected
//	         Action: Select a param table before importing
//
//	IMP002 - Unparseable: The CSV could not be converted to the param's types
//	         Action: Check that every value matches its field type
//
//	IMP003 - Wrong shape: A line has the wrong number of columns
//	         Action: Re-export the CSV from the current regulation and try again
//
//	IMP004 - Missing header: The header does not name the requested field
//	         Action: Check the header line or import without a header
//
//	IMP005 - Unknown field: The param has no such field
//	         Action: Check the field name against the param definition
//
//	IMP006 - Bad value: A value cannot be assigned to its field
//	         Action: Fix the value on the reported line
//
//	IMP007 - Bad row ID: A row id is not an integer
//	         Action: Fix the id on the reported line
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Table not found: The specified table does not exist
//	         Action: Verify the table name is correct
//	         Patterns: "table not found"
//
// # History Errors (HST001-HST099)
//
//	HST001 - Nothing to undo
//	         Patterns: "nothing to undo"
//
//	HST002 - Nothing to redo
//	         Patterns: "nothing to redo"
//
//	HST003 - Pending import not found: The import expired or was already committed
//	         Patterns: "pending import not found"
//
//	HST004 - Stale import: The table changed after the import was staged
//	         Patterns: "table changed since the import was staged"
//
// # Capacity Errors (CAP001-CAP099)
//
//	CAP001 - Too many imports: Every import slot is busy
//	         Action: Wait a moment and try again
//	         Patterns: "too many concurrent imports"
//
// # Default Error (ERR000)
//
// Fallback when no kind or pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Review the suggested action to guide the user
//  3. If ERR000, check application logs for the original technical error
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// kindMessages maps import error kinds to their codes. The Message of an
// ImportError is used verbatim in place of the one listed here.
var kindMessages = map[ErrorKind]UserMessage{
	ErrSelection: {Action: "Select a param table before importing", Code: "IMP001"},
	ErrSchema:    {Action: "Check that every value matches its field type", Code: "IMP002"},
	ErrShape:     {Action: "Re-export the CSV from the current regulation and try again", Code: "IMP003"},
	ErrHeader:    {Action: "Check the header line or import without a header", Code: "IMP004"},
	ErrField:     {Action: "Check the field name against the param definition", Code: "IMP005"},
	ErrCoercion:  {Action: "Fix the value on the reported line", Code: "IMP006"},
	ErrParse:     {Action: "Fix the id on the reported line", Code: "IMP007"},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Table Errors (TBL001)
	// =========================================================================
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Verify the table name is correct",
			Code:    "TBL001",
		},
	},

	// =========================================================================
	// History Errors (HST001-HST004)
	// =========================================================================
	{
		pattern: "nothing to undo",
		msg: UserMessage{
			Message: "Nothing to undo",
			Action:  "No committed import is left to undo",
			Code:    "HST001",
		},
	},
	{
		pattern: "nothing to redo",
		msg: UserMessage{
			Message: "Nothing to redo",
			Action:  "No undone import is left to redo",
			Code:    "HST002",
		},
	},
	{
		pattern: "pending import not found",
		msg: UserMessage{
			Message: "Pending import not found",
			Action:  "The import may have been committed or discarded. Please import again",
			Code:    "HST003",
		},
	},
	{
		pattern: "table changed since the import was staged",
		msg: UserMessage{
			Message: "The table changed after this import was staged",
			Action:  "Import the CSV again and commit the new import",
			Code:    "HST004",
		},
	},

	// =========================================================================
	// Capacity Errors (CAP001)
	// =========================================================================
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "The server is busy with other imports",
			Action:  "Wait a moment and try again",
			Code:    "CAP001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Import failures keep their own message and get the code of their kind.
// Other errors are matched against known patterns, falling back to ERR000.
//
// Example:
//
//	res := core.ImportTable(text, t, core.TableImportOptions{})
//	msg := MapError(res.Err)
//	// msg.Code == "IMP003" for a line with the wrong column count
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ie *ImportError
	if errors.As(err, &ie) {
		if msg, ok := kindMessages[ie.Kind]; ok {
			msg.Message = ie.Msg
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
