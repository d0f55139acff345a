package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/paramcsv/internal/bank"
	"github.com/JonMunkholm/paramcsv/internal/edit"
	"github.com/JonMunkholm/paramcsv/internal/logging"
	"github.com/JonMunkholm/paramcsv/internal/table"
)

var (
	// ErrPendingNotFound is returned for an unknown or already resolved import.
	ErrPendingNotFound = errors.New("pending import not found")
	// ErrStaleImport is returned by Commit when the table changed after the
	// import was staged. The import is dropped and must be staged again.
	ErrStaleImport = errors.New("table changed since the import was staged")
)

// Store persists tables. Implementations must be safe for concurrent use.
type Store interface {
	LoadTable(ctx context.Context, t *table.Table) error
	SaveTable(ctx context.Context, t *table.Table) error
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Vanilla holds the baseline tables used for vanilla-name imports.
	Vanilla *bank.Bank
	// Store persists committed tables. Nil keeps tables in memory only.
	Store Store
	// Separator is used when a call passes a zero separator.
	Separator rune
	// HistoryLimit bounds the undo stack of each table.
	HistoryLimit int
	// MaxConcurrentImports and MaxImportWait size the import limiter.
	MaxConcurrentImports int
	MaxImportWait        time.Duration
}

// Service is the entry point for exporting and importing param CSV files.
//
// Imports are two-phase: ImportCSV and ImportFieldCSV stage a batch and park
// it under its id; Commit applies it. Nothing touches a table before Commit.
//
// Each table has a read/write lock. Staging and export hold it for reading;
// Commit, Undo, Redo and Load hold it for writing. Every change bumps the
// table's generation, and Commit only applies batches staged at the current
// generation.
type Service struct {
	bank    *bank.Bank
	opts    ServiceOptions
	store   Store
	limiter *ImportLimiter

	mu      sync.Mutex
	tables  map[string]*tableState
	pending map[uuid.UUID]*PendingImport
}

type tableState struct {
	mu      sync.RWMutex
	history *edit.History
	gen     uint64
}

// PendingImport is a staged import awaiting Commit or Discard.
type PendingImport struct {
	ID         uuid.UUID
	Table      string
	Field      string // empty for full-table imports
	Result     Result
	CreatedAt  time.Time
	Generation uint64 // table generation the import was staged against
}

// TableInfo describes a table for listings.
type TableInfo struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Fields  int    `json:"fields"`
	Version uint64 `json:"version"`
}

// NewService creates a Service over b.
func NewService(b *bank.Bank, opts ServiceOptions) *Service {
	if opts.Separator == 0 {
		opts.Separator = DefaultSeparator
	}
	return &Service{
		bank:    b,
		opts:    opts,
		store:   opts.Store,
		limiter: NewImportLimiter(opts.MaxConcurrentImports, opts.MaxImportWait),
		tables:  make(map[string]*tableState),
		pending: make(map[uuid.UUID]*PendingImport),
	}
}

// Bank returns the primary bank.
func (s *Service) Bank() *bank.Bank { return s.bank }

// Load fills every table of the bank from the store. It is a no-op without one.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	for _, name := range s.bank.Names() {
		st := s.state(name)
		st.mu.Lock()
		err := s.store.LoadTable(ctx, s.bank.Table(name))
		st.gen++
		st.mu.Unlock()
		if err != nil {
			return fmt.Errorf("load table %s: %w", name, err)
		}
	}
	return nil
}

// AcquireImport reserves an import slot. Callers parse the upload only after
// it succeeds and must call release when done.
func (s *Service) AcquireImport(ctx context.Context) (release func(), err error) {
	return s.limiter.Acquire(ctx)
}

// ImportStatus reports import limiter usage.
func (s *Service) ImportStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ListTables describes every table in registration order.
func (s *Service) ListTables() []TableInfo {
	names := s.bank.Names()
	infos := make([]TableInfo, 0, len(names))
	for _, name := range names {
		t := s.bank.Table(name)
		st := s.state(name)
		st.mu.RLock()
		rows := t.Len()
		st.mu.RUnlock()
		infos = append(infos, TableInfo{
			Name:    t.Name,
			Rows:    rows,
			Fields:  len(t.ValidFields()),
			Version: t.Version,
		})
	}
	return infos
}

// Labels returns the CSV header line of the named table.
func (s *Service) Labels(name string, sep rune) (string, error) {
	t, err := s.table(name)
	if err != nil {
		return "", err
	}
	return ColumnLabels(t.Schema, t.Version, s.sep(sep)), nil
}

// Export renders every row of the named table.
func (s *Service) Export(name string, sep rune) (string, error) {
	t, err := s.table(name)
	if err != nil {
		return "", err
	}
	st := s.state(name)
	st.mu.RLock()
	defer st.mu.RUnlock()
	return ExportTable(t, t.Rows(), s.sep(sep)), nil
}

// ExportField renders one column of the named table.
func (s *Service) ExportField(name, field string, sep rune) (string, error) {
	t, err := s.table(name)
	if err != nil {
		return "", err
	}
	st := s.state(name)
	st.mu.RLock()
	defer st.mu.RUnlock()
	return ExportField(t.Schema, t.Rows(), field, s.sep(sep))
}

// ImportCSV stages a full-table import. A rejected import is returned as is
// and not parked.
func (s *Service) ImportCSV(ctx context.Context, name, text string, opts TableImportOptions) Result {
	if opts.Separator == 0 {
		opts.Separator = s.opts.Separator
	}
	text = TrimBOM(text)
	res, gen := s.stage(name, func(t *table.Table) Result {
		return ImportTable(text, t, opts)
	})
	s.park(ctx, name, "", res, gen)
	return res
}

// ImportFieldCSV stages a single-field import. With OnlyAffectVanillaNames
// and no explicit Reference, the same-named table of the vanilla bank is used.
func (s *Service) ImportFieldCSV(ctx context.Context, name, field, text string, opts FieldImportOptions) Result {
	if opts.Separator == 0 {
		opts.Separator = s.opts.Separator
	}
	if opts.OnlyAffectVanillaNames && opts.Reference == nil && s.opts.Vanilla != nil {
		opts.Reference = s.opts.Vanilla.Table(name)
	}
	text = TrimBOM(text)
	res, gen := s.stage(name, func(t *table.Table) Result {
		return ImportField(text, t, field, opts)
	})
	s.park(ctx, name, field, res, gen)
	return res
}

// stage runs an import with the named table locked for reading and returns
// the table's generation. An unknown table is passed to run as nil.
func (s *Service) stage(name string, run func(t *table.Table) Result) (Result, uint64) {
	t := s.bank.Table(name)
	if t == nil {
		return run(nil), 0
	}
	st := s.state(name)
	st.mu.RLock()
	defer st.mu.RUnlock()
	return run(t), st.gen
}

func (s *Service) park(ctx context.Context, name, field string, res Result, gen uint64) {
	logger := logging.WithFields(ctx, "table", name)
	if field != "" {
		logger = logger.With("field", field)
	}

	if !res.OK() {
		logger.Warn("import rejected", "code", MapError(res.Err).Code, "error", res.Err)
		return
	}

	s.mu.Lock()
	s.pending[res.Batch.ID] = &PendingImport{
		ID:         res.Batch.ID,
		Table:      name,
		Field:      field,
		Result:     res,
		CreatedAt:  time.Now(),
		Generation: gen,
	}
	s.mu.Unlock()

	logger.Info("import staged",
		"batch_id", res.Batch.ID,
		"affected", res.Affected,
		"added", res.Added,
	)
}

// Pending returns the staged import with the given id.
func (s *Service) Pending(id uuid.UUID) (*PendingImport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	return p, ok
}

// PendingImports lists staged imports, oldest first.
func (s *Service) PendingImports() []*PendingImport {
	s.mu.Lock()
	list := make([]*PendingImport, 0, len(s.pending))
	for _, p := range s.pending {
		list = append(list, p)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// Discard drops a staged import. It reports whether the import existed.
func (s *Service) Discard(ctx context.Context, id uuid.UUID) bool {
	s.mu.Lock()
	p, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	if ok {
		logging.WithFields(ctx, "table", p.Table, "batch_id", id).Info("import discarded")
	}
	return ok
}

// Commit applies a staged import to its table and persists the table.
// If applying or persisting fails the table is left unchanged and the import
// stays pending. An import staged before the table last changed is dropped
// with ErrStaleImport.
func (s *Service) Commit(ctx context.Context, id uuid.UUID) (*PendingImport, error) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPendingNotFound, id)
	}

	logger := logging.WithFields(ctx, "table", p.Table, "batch_id", id)

	st := s.state(p.Table)
	st.mu.Lock()
	defer st.mu.Unlock()

	if p.Generation != st.gen {
		logger.Warn("stale import dropped", "staged_generation", p.Generation, "generation", st.gen)
		return nil, fmt.Errorf("%w: %s", ErrStaleImport, p.Table)
	}

	if err := st.history.Do(p.Result.Batch); err != nil {
		s.repark(p)
		return nil, fmt.Errorf("apply %s: %w", p.Result.Batch.Label, err)
	}
	st.gen++

	if err := s.save(ctx, p.Table); err != nil {
		if _, undoErr := st.history.Undo(); undoErr != nil {
			logger.Error("revert after failed save", "error", undoErr)
			return nil, err
		}
		st.gen++
		st.history.Forget()
		p.Generation = st.gen
		s.repark(p)
		return nil, err
	}

	stats := p.Result.Batch.Stats()
	logger.Info("import committed",
		"field_edits", stats.FieldEdits,
		"name_changes", stats.NameChanges,
		"rows_added", stats.RowsAdded,
	)
	return p, nil
}

// Undo reverts the last committed batch of the named table.
func (s *Service) Undo(ctx context.Context, name string) (*edit.Batch, error) {
	if _, err := s.table(name); err != nil {
		return nil, err
	}
	st := s.state(name)
	st.mu.Lock()
	defer st.mu.Unlock()

	b, err := st.history.Undo()
	if err != nil {
		return nil, err
	}
	st.gen++
	logging.WithFields(ctx, "table", name, "batch_id", b.ID).Info("batch undone")
	return b, s.save(ctx, name)
}

// Redo re-applies the last undone batch of the named table.
func (s *Service) Redo(ctx context.Context, name string) (*edit.Batch, error) {
	if _, err := s.table(name); err != nil {
		return nil, err
	}
	st := s.state(name)
	st.mu.Lock()
	defer st.mu.Unlock()

	b, err := st.history.Redo()
	if err != nil {
		return nil, err
	}
	st.gen++
	logging.WithFields(ctx, "table", name, "batch_id", b.ID).Info("batch redone")
	return b, s.save(ctx, name)
}

func (s *Service) save(ctx context.Context, name string) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveTable(ctx, s.bank.Table(name)); err != nil {
		return fmt.Errorf("save table %s: %w", name, err)
	}
	return nil
}

// repark returns an import to the pending set after a failed commit.
func (s *Service) repark(p *PendingImport) {
	s.mu.Lock()
	s.pending[p.ID] = p
	s.mu.Unlock()
}

func (s *Service) state(name string) *tableState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.tables[name]
	if !ok {
		st = &tableState{history: edit.NewHistory(s.opts.HistoryLimit)}
		s.tables[name] = st
	}
	return st
}

func (s *Service) table(name string) (*table.Table, error) {
	t := s.bank.Table(name)
	if t == nil {
		return nil, fmt.Errorf("table not found: %s", name)
	}
	return t, nil
}

func (s *Service) sep(sep rune) rune {
	if sep == 0 {
		return s.opts.Separator
	}
	return sep
}
