// Package bank groups the param tables of one project at one format version.
package bank

import (
	"fmt"
	"sync"

	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
)

// Bank is a named set of tables sharing a format version.
// Lookups are safe for concurrent use; the tables themselves are not.
type Bank struct {
	Version uint64

	mu     sync.RWMutex
	tables map[string]*table.Table
	order  []string
}

// New creates an empty bank.
func New(version uint64) *Bank {
	return &Bank{Version: version, tables: make(map[string]*table.Table)}
}

// Create adds an empty table for s, named after the schema.
func (b *Bank) Create(s *schema.Schema) (*table.Table, error) {
	t := table.New(s.Name, s, b.Version)
	if err := b.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Add registers t. Its version is aligned with the bank's.
func (b *Bank) Add(t *table.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.tables[t.Name]; exists {
		return fmt.Errorf("table %s already exists", t.Name)
	}
	t.Version = b.Version
	b.tables[t.Name] = t
	b.order = append(b.order, t.Name)
	return nil
}

// Table returns the named table, or nil.
func (b *Bank) Table(name string) *table.Table {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tables[name]
}

// Names returns table names in registration order.
func (b *Bank) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Len returns the number of tables.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// FromSchemas builds a bank with one empty table per schema.
func FromSchemas(version uint64, schemas []*schema.Schema) (*Bank, error) {
	b := New(version)
	for _, s := range schemas {
		if _, err := b.Create(s); err != nil {
			return nil, err
		}
	}
	return b, nil
}
