package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paramcsv/internal/bank"
	"github.com/JonMunkholm/paramcsv/internal/config"
	"github.com/JonMunkholm/paramcsv/internal/core"
	"github.com/JonMunkholm/paramcsv/internal/logging"
	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/table"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	schemaPath string
	version    uint64
	sep        string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "paramcsv",
		Short: "Export and import param tables as CSV",
		Long: `paramcsv converts param tables to and from CSV.

A table is read from a full CSV export (as written by "paramcsv export" or
the editor) and described by a YAML schema. Imports are applied in memory
and the updated table is written back as a full export.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), f.logLevel, "text"))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.schemaPath, "schema", "", "YAML schema of the table (required)")
	pf.Uint64Var(&f.version, "param-version", 0, "format version deciding which fields are exported")
	pf.StringVar(&f.sep, "sep", ",", `column separator ("tab" for tabs)`)
	pf.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	_ = cmd.MarkPersistentFlagRequired("schema")

	cmd.AddCommand(
		newLabelsCmd(f),
		newExportCmd(f),
		newImportCmd(f),
		newImportFieldCmd(f),
	)
	return cmd
}

func (f *rootFlags) separator() (rune, error) {
	sep, err := config.ParseRune(f.sep)
	if err != nil {
		return 0, fmt.Errorf("--sep %q: %w", f.sep, err)
	}
	return sep, nil
}

func (f *rootFlags) schema() (*schema.Schema, error) {
	return schema.LoadFile(f.schemaPath)
}

// openService loads the table at path into a one-table bank. vanillaPath,
// when set, loads the baseline copy used by vanilla-name imports.
func (f *rootFlags) openService(path, vanillaPath string) (*core.Service, *table.Table, error) {
	s, err := f.schema()
	if err != nil {
		return nil, nil, err
	}
	sep, err := f.separator()
	if err != nil {
		return nil, nil, err
	}

	primary, err := f.loadBank(s, path, sep)
	if err != nil {
		return nil, nil, err
	}
	opts := core.ServiceOptions{Separator: sep}
	if vanillaPath != "" {
		if opts.Vanilla, err = f.loadBank(s, vanillaPath, sep); err != nil {
			return nil, nil, err
		}
	}
	return core.NewService(primary, opts), primary.Table(s.Name), nil
}

func (f *rootFlags) loadBank(s *schema.Schema, path string, sep rune) (*bank.Bank, error) {
	b, err := bank.FromSchemas(f.version, []*schema.Schema{s})
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := core.LoadSnapshot(b.Table(s.Name), file, sep); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// writeOutput writes body to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path, body string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(w, body)
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}
