package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/paramcsv/internal/bank"
	"github.com/JonMunkholm/paramcsv/internal/edit"
	"github.com/JonMunkholm/paramcsv/internal/table"
)

// LoadSnapshot fills an empty table from a full export. Rows keep the file's
// order and duplicated ids.
func LoadSnapshot(t *table.Table, r io.Reader, sep rune) error {
	if t.Len() != 0 {
		return fmt.Errorf("load snapshot into %s: table is not empty", t.Name)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	res := ImportTable(TrimBOM(string(data)), t, TableImportOptions{Separator: sep, AppendOnly: true, Replace: true})
	if !res.OK() {
		return fmt.Errorf("load snapshot into %s: %w", t.Name, res.Err)
	}
	return edit.Apply(res.Batch)
}

// LoadSnapshotDir fills the tables of b from "<Name>.csv" files in dir.
// Tables without a file stay empty. It returns the number of files loaded.
func LoadSnapshotDir(b *bank.Bank, dir string, sep rune) (int, error) {
	loaded := 0
	for _, name := range b.Names() {
		f, err := os.Open(filepath.Join(dir, name+".csv"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return loaded, err
		}
		err = LoadSnapshot(b.Table(name), f, sep)
		f.Close()
		if err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}
