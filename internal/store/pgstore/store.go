// Package pgstore persists param tables in PostgreSQL.
//
// Each table is stored as ordered rows keyed by (param_table, position).
// Field values are kept as their CSV text in a JSONB object, so a schema
// change does not require a migration: unknown keys are ignored on load and
// missing keys keep the field's default.
//
// Fixed strings are stored Go-quoted with non-ASCII escaped, since JSONB
// rejects NUL and JSON cannot carry invalid UTF-8.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
	"github.com/JonMunkholm/paramcsv/internal/value"
)

// rowsTable is the storage table name.
const rowsTable = "param_rows"

const createSchema = `
CREATE TABLE IF NOT EXISTS param_rows (
	param_table TEXT    NOT NULL,
	position    INTEGER NOT NULL,
	row_id      INTEGER NOT NULL,
	name        TEXT,
	fields      JSONB   NOT NULL DEFAULT '{}'::jsonb,
	PRIMARY KEY (param_table, position)
)`

// DBTX is the subset of *pgxpool.Pool the store uses.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store saves and loads tables through a connection pool.
type Store struct {
	db DBTX
}

// New creates a Store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate creates the storage table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createSchema); err != nil {
		return fmt.Errorf("create %s: %w", rowsTable, err)
	}
	return nil
}

// LoadTable replaces the rows of t with the stored ones. A table that was
// never saved loads as empty.
func (s *Store) LoadTable(ctx context.Context, t *table.Table) error {
	rows, err := s.db.Query(ctx,
		`SELECT row_id, name, fields FROM param_rows WHERE param_table = $1 ORDER BY position`,
		t.Name)
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var loaded []*table.Row
	for rows.Next() {
		var (
			id     int32
			name   *string
			fields []byte
		)
		if err := rows.Scan(&id, &name, &fields); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		r, err := decodeRow(t.Schema, int(id), name, fields)
		if err != nil {
			return fmt.Errorf("row %d: %w", id, err)
		}
		loaded = append(loaded, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}

	t.Reset(loaded)
	return nil
}

// SaveTable overwrites the stored rows of t in one transaction.
func (s *Store) SaveTable(ctx context.Context, t *table.Table) error {
	records, err := encodeTable(t)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if _, err := tx.Exec(ctx, `DELETE FROM param_rows WHERE param_table = $1`, t.Name); err != nil {
		return fmt.Errorf("clear %s: %w", t.Name, err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{rowsTable},
		[]string{"param_table", "position", "row_id", "name", "fields"},
		pgx.CopyFromRows(records),
	)
	if err != nil {
		return fmt.Errorf("copy rows of %s: %w", t.Name, err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copy rows of %s: wrote %d of %d", t.Name, n, len(records))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// encodeTable builds one COPY record per row.
func encodeTable(t *table.Table) ([][]any, error) {
	records := make([][]any, 0, t.Len())
	for i, r := range t.Rows() {
		fields, err := encodeFields(r)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", r.ID(), err)
		}
		records = append(records, []any{t.Name, int32(i), int32(r.ID()), r.NamePtr(), fields})
	}
	return records, nil
}

// encodeFields renders every schema field of r as a JSON object of CSV text.
func encodeFields(r *table.Row) ([]byte, error) {
	m := make(map[string]string, len(r.Schema().Fields))
	for _, f := range r.Schema().Fields {
		text := value.Format(r.Get(f))
		if isString(f.Kind) {
			text = strconv.QuoteToASCII(text)
		}
		m[f.Name] = text
	}
	return json.Marshal(m)
}

func isString(k schema.Kind) bool {
	return k == schema.KindFixStr || k == schema.KindFixStrW
}

// decodeRow rebuilds a row from its stored columns.
func decodeRow(s *schema.Schema, id int, name *string, data []byte) (*table.Row, error) {
	var m map[string]string
	if len(data) > 0 {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}

	r := table.NewRow(s, id, name)
	for _, f := range s.Fields {
		raw, ok := m[f.Name]
		if !ok {
			continue
		}
		if isString(f.Kind) {
			unquoted, err := strconv.Unquote(raw)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			raw = unquoted
		}
		v, err := value.Parse(f, raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if _, err := r.Set(f, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}
