// Package templates renders the HTML fragments swapped in by HTMX clients.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// ImportView is the data shown for a staged import.
type ImportView struct {
	ID      string
	Table   string
	Field   string
	Message string
	Cells   int
	Added   int
}

// ImportResult renders a staged import with its commit and discard buttons.
func ImportResult(v ImportView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		target := v.Table
		if v.Field != "" {
			target += "." + v.Field
		}
		_, err := fmt.Fprintf(w, `<div class="import-result" id="import-%[1]s">`+
			`<p class="import-message">%[2]s</p>`+
			`<dl><dt>Target</dt><dd>%[3]s</dd><dt>Changes</dt><dd>%[4]d</dd><dt>New rows</dt><dd>%[5]d</dd></dl>`+
			`<button hx-post="/api/pending/%[1]s/commit" hx-target="#import-%[1]s" hx-swap="outerHTML">Commit</button>`+
			`<button hx-delete="/api/pending/%[1]s" hx-target="#import-%[1]s" hx-swap="outerHTML">Discard</button>`+
			`</div>`,
			templ.EscapeString(v.ID),
			templ.EscapeString(v.Message),
			templ.EscapeString(target),
			v.Cells,
			v.Added,
		)
		return err
	})
}

// Notice renders a one-line status message, used after commit, discard,
// undo and redo.
func Notice(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="notice" role="status">%s</div>`, templ.EscapeString(message))
		return err
	})
}

// ErrorAlert renders a user-facing error with its action and support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="error-alert" role="alert">`+
			`<p class="error-message">%s</p>`+
			`<p class="error-action">%s</p>`+
			`<p class="error-code">Code: %s</p>`+
			`</div>`,
			templ.EscapeString(message),
			templ.EscapeString(action),
			templ.EscapeString(code),
		)
		return err
	})
}
