package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error (or a rejected import)
//  2. Calls respondError(w, r, err)
//  3. The status code is derived from the error kind
//  4. Error is mapped via core.MapError to get a user-friendly message
//  5. The technical error is logged with the request ID for correlation
//  6. The message is rendered as an HTMX fragment or JSON

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/paramcsv/internal/core"
	"github.com/JonMunkholm/paramcsv/internal/edit"
	"github.com/JonMunkholm/paramcsv/internal/logging"
	"github.com/JonMunkholm/paramcsv/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// errBadRequest marks request problems detected by the handlers themselves.
type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", userMsg.Code,
		"error", err.Error(),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Warn("request rejected")
	}

	if !core.IsUserFacing(err) {
		var bad errBadRequest
		if errors.As(err, &bad) {
			userMsg.Message = bad.Error()
			userMsg.Action = "Check the request parameters"
			userMsg.Code = "REQ001"
		}
	}

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, status)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var ie *core.ImportError
	if errors.As(err, &ie) {
		resp.Line = ie.Line
	}
	writeJSON(w, status, resp)
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSelection), errors.Is(err, core.ErrPendingNotFound):
		return http.StatusNotFound
	case errors.Is(err, edit.ErrNothingToUndo), errors.Is(err, edit.ErrNothingToRedo),
		errors.Is(err, edit.ErrApplied), errors.Is(err, core.ErrStaleImport):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	}

	var ie *core.ImportError
	if errors.As(err, &ie) {
		return http.StatusUnprocessableEntity
	}
	if core.MapError(err).Code == "TBL001" {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
