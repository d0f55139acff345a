package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/paramcsv/internal/core"
	"github.com/JonMunkholm/paramcsv/internal/edit"
	"github.com/JonMunkholm/paramcsv/internal/web/templates"
)

// ImportResponse is the JSON body of a staged import.
type ImportResponse struct {
	ID      string `json:"id"`
	Table   string `json:"table"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Cells   int    `json:"cells"`
	Added   int    `json:"added"`
}

// BatchResponse describes a committed, undone or redone batch.
type BatchResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	FieldEdits  int    `json:"field_edits"`
	NameChanges int    `json:"name_changes"`
	RowsAdded   int    `json:"rows_added"`
}

func newBatchResponse(b *edit.Batch) BatchResponse {
	st := b.Stats()
	return BatchResponse{
		ID:          b.ID.String(),
		Label:       b.Label,
		FieldEdits:  st.FieldEdits,
		NameChanges: st.NameChanges,
		RowsAdded:   st.RowsAdded,
	}
}

// handleListTables returns every table with its row count.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListTables())
}

// handleLabels returns the CSV header line of a table.
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	sep, err := parseSeparator(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	labels, err := s.service.Labels(chi.URLParam(r, "table"), sep)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeText(w, "", labels)
}

// handleExport downloads a table, or one column of it with ?field=.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	sep, err := parseSeparator(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var (
		body     string
		filename = name + ".csv"
	)
	if field := r.URL.Query().Get("field"); field != "" {
		body, err = s.service.ExportField(name, field, sep)
		filename = fmt.Sprintf("%s.%s.csv", name, field)
	} else {
		body, err = s.service.Export(name, sep)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeText(w, filename, body)
}

// handleImport stages a full-table import.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")

	var opts core.TableImportOptions
	var err error
	if opts.Separator, err = parseSeparator(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	if opts.AppendOnly, err = parseBoolParam(r, "appendOnly"); err != nil {
		s.respondError(w, r, err)
		return
	}
	if opts.Replace, err = parseBoolParam(r, "replace"); err != nil {
		s.respondError(w, r, err)
		return
	}

	release, err := s.service.AcquireImport(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer release()

	text, err := s.readCSVBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res := s.service.ImportCSV(r.Context(), name, text, opts)
	s.respondImport(w, r, name, "", res)
}

// handleImportField stages a single-field import.
func (s *Server) handleImportField(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	field := chi.URLParam(r, "field")

	var opts core.FieldImportOptions
	var err error
	if opts.Separator, err = parseSeparator(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	flags := []struct {
		param string
		dst   *bool
	}{
		{"ignoreMissing", &opts.IgnoreMissingRows},
		{"onlyEmptyNames", &opts.OnlyAffectEmptyNames},
		{"onlyVanillaNames", &opts.OnlyAffectVanillaNames},
		{"skipInvalid", &opts.SkipInvalidLines},
	}
	for _, f := range flags {
		if *f.dst, err = parseBoolParam(r, f.param); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	release, err := s.service.AcquireImport(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer release()

	text, err := s.readCSVBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res := s.service.ImportFieldCSV(r.Context(), name, field, text, opts)
	s.respondImport(w, r, name, field, res)
}

func (s *Server) respondImport(w http.ResponseWriter, r *http.Request, name, field string, res core.Result) {
	if !res.OK() {
		s.respondError(w, r, res.Err)
		return
	}

	resp := ImportResponse{
		ID:      res.Batch.ID.String(),
		Table:   name,
		Field:   field,
		Message: res.Message,
		Cells:   res.Affected,
		Added:   res.Added,
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		templates.ImportResult(templates.ImportView(resp)).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleListPending lists staged imports, oldest first.
func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending := s.service.PendingImports()
	list := make([]ImportResponse, 0, len(pending))
	for _, p := range pending {
		list = append(list, ImportResponse{
			ID:      p.ID.String(),
			Table:   p.Table,
			Field:   p.Field,
			Message: p.Result.Message,
			Cells:   p.Result.Affected,
			Added:   p.Result.Added,
		})
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCommit applies a staged import.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, errBadRequest("invalid import id"))
		return
	}

	p, err := s.service.Commit(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondBatch(w, r, "Import committed", p.Result.Batch)
}

// handleDiscard drops a staged import.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, errBadRequest("invalid import id"))
		return
	}

	if !s.service.Discard(r.Context(), id) {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrPendingNotFound, id))
		return
	}

	if isHTMX(r) {
		templates.Notice("Import discarded").Render(r.Context(), w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUndo reverts the last committed import of a table.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Undo(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondBatch(w, r, "Undone: "+b.Label, b)
}

// handleRedo re-applies the last undone import of a table.
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Redo(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondBatch(w, r, "Redone: "+b.Label, b)
}

func (s *Server) respondBatch(w http.ResponseWriter, r *http.Request, notice string, b *edit.Batch) {
	if isHTMX(r) {
		templates.Notice(notice).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, newBatchResponse(b))
}
