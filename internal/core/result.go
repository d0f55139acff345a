package core

import (
	"errors"

	"github.com/JonMunkholm/paramcsv/internal/edit"
)

// Result is the outcome of an import. Message is always set; Batch is nil
// when the import was rejected, in which case Err says why.
type Result struct {
	Message  string
	Batch    *edit.Batch
	Err      error
	Affected int // staged name changes and field edits
	Added    int // rows staged for insertion
}

// OK reports whether the import produced a batch.
func (r Result) OK() bool { return r.Batch != nil }

func failed(err error) Result {
	var ie *ImportError
	if !errors.As(err, &ie) {
		ie = errUnparseable(err)
	}
	return Result{Message: ie.Msg, Err: ie}
}
