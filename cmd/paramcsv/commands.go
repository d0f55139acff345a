package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paramcsv/internal/core"
)

func newLabelsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Print the CSV header line of the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.schema()
			if err != nil {
				return err
			}
			sep, err := f.separator()
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), "", core.ColumnLabels(s, f.version, sep))
		},
	}
}

func newExportCmd(f *rootFlags) *cobra.Command {
	var (
		field  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <table.csv>",
		Short: "Re-export a table, or one column of it",
		Long: `Re-export a table with the current schema and separator.

With --field, only the ID column and the named column are written. The
field may be "Name" or any schema field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, t, err := f.openService(args[0], "")
			if err != nil {
				return err
			}

			var body string
			if field != "" {
				body, err = svc.ExportField(t.Name, field, 0)
			} else {
				body, err = svc.Export(t.Name, 0)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, body)
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "export only this column")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportCmd(f *rootFlags) *cobra.Command {
	var (
		opts   core.TableImportOptions
		output string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import <table.csv> <input.csv>",
		Short: "Apply a full-table CSV to a table",
		Long: `Apply a full-table CSV (ID, Name and every field per line) to a table.

Lines whose ID is not in the table add new rows. With --replace every line
adds a row that takes the place of the existing row with its ID. The import
is all or nothing: the first bad line rejects the whole file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, t, err := f.openService(args[0], "")
			if err != nil {
				return err
			}
			text, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			res := svc.ImportCSV(cmd.Context(), t.Name, string(text), opts)
			return commit(cmd, svc, t.Name, res, output, dryRun)
		},
	}

	cmd.Flags().BoolVar(&opts.AppendOnly, "append-only", false, "add new rows at the end instead of in ID order")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace rows instead of updating them")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

func newImportFieldCmd(f *rootFlags) *cobra.Command {
	var (
		opts    core.FieldImportOptions
		field   string
		vanilla string
		output  string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "import-field <table.csv> <input.csv>",
		Short: "Apply a single-column CSV to a table",
		Long: `Apply an "ID<sep>value" CSV to one column of a table.

An optional "ID<sep>..." header picks the column by name. Rows sharing an ID
are matched in order, so a column exported from a table with duplicated IDs
re-imports onto the same rows.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.OnlyAffectVanillaNames && vanilla == "" {
				return fmt.Errorf("--only-vanilla-names needs --vanilla")
			}
			svc, t, err := f.openService(args[0], vanilla)
			if err != nil {
				return err
			}
			text, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			res := svc.ImportFieldCSV(cmd.Context(), t.Name, field, string(text), opts)
			return commit(cmd, svc, t.Name, res, output, dryRun)
		},
	}

	cmd.Flags().StringVar(&field, "field", "", `column to import: "Name" or a schema field (required)`)
	cmd.Flags().StringVar(&vanilla, "vanilla", "", "unmodified export of the table, for --only-vanilla-names")
	cmd.Flags().BoolVar(&opts.IgnoreMissingRows, "ignore-missing", false, "skip IDs that match no row")
	cmd.Flags().BoolVar(&opts.OnlyAffectEmptyNames, "only-empty-names", false, "rename only rows without a name")
	cmd.Flags().BoolVar(&opts.OnlyAffectVanillaNames, "only-vanilla-names", false, "rename only rows still carrying their vanilla name")
	cmd.Flags().BoolVar(&opts.SkipInvalidLines, "skip-invalid", false, "skip lines with fewer than two columns")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

// commit applies a staged import and writes the updated table.
func commit(cmd *cobra.Command, svc *core.Service, name string, res core.Result, output string, dryRun bool) error {
	if !res.OK() {
		var ie *core.ImportError
		if errors.As(res.Err, &ie) && ie.Line > 0 {
			return fmt.Errorf("line %d: %s", ie.Line, core.FormatUserError(res.Err))
		}
		return errors.New(core.FormatUserError(res.Err))
	}

	fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
	if dryRun {
		svc.Discard(cmd.Context(), res.Batch.ID)
		return nil
	}

	if _, err := svc.Commit(cmd.Context(), res.Batch.ID); err != nil {
		return err
	}
	body, err := svc.Export(name, 0)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), output, body)
}
