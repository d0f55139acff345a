// Package web provides HTTP handlers for the param CSV engine.
// This file contains shared request parsing helpers used across handlers.
package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"unicode/utf8"
)

// parseBoolParam parses a boolean query parameter. A bare flag ("?replace")
// counts as true.
func parseBoolParam(r *http.Request, name string) (bool, error) {
	q := r.URL.Query()
	if !q.Has(name) {
		return false, nil
	}
	val := q.Get(name)
	if val == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errBadRequest(fmt.Sprintf("invalid value for %s: %q", name, val))
	}
	return b, nil
}

// parseSeparator reads the "sep" query parameter. Zero means the service
// default.
func parseSeparator(r *http.Request) (rune, error) {
	val := r.URL.Query().Get("sep")
	switch val {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	sep, size := utf8.DecodeRuneInString(val)
	if sep == utf8.RuneError || size != len(val) || sep == '\n' || sep == '\r' {
		return 0, errBadRequest(fmt.Sprintf("invalid separator %q", val))
	}
	return sep, nil
}

// readCSVBody returns the uploaded CSV text. It accepts either a multipart
// form with a "file" part or the raw request body.
func (s *Server) readCSVBody(w http.ResponseWriter, r *http.Request) (string, error) {
	maxSize := s.cfg.Import.MaxBodySize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	var src io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			return "", bodyError(err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", errBadRequest("no file provided")
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", bodyError(err)
	}
	if !utf8.Valid(data) {
		return "", errBadRequest("CSV is not valid UTF-8")
	}
	return string(data), nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBadRequest(fmt.Sprintf("file too large: limit is %d bytes", tooLarge.Limit))
	}
	return errBadRequest("could not read request body")
}
