package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/prodsync/internal/core"
)

type importOptions struct {
	file   string
	actor  string
	dryRun bool
	report string
}

func (c *cli) importCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Apply a product CSV or XLSX file to the catalog",
		Long: `Apply a product CSV or XLSX file to the catalog.

Only cells that differ from the stored product are written. Rows with
errors are listed in the error report; the rest of the file still applies.
Exits with status 3 when any row reported an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Product file to import (required)")
	cmd.Flags().StringVar(&opts.actor, "actor", defaultActor(), "Identity checked for edit permission")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and count changes without saving")
	cmd.Flags().StringVar(&opts.report, "report", "", "Write the error report to this path (default: next to the input)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func (c *cli) runImport(ctx context.Context, opts importOptions) error {
	if strings.TrimSpace(opts.actor) == "" {
		return withCode(exitUsage, fmt.Errorf("--actor must not be empty"))
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer f.Close()

	b, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	run, err := b.service.Import(ctx, core.ImportRequest{
		Actor:    opts.actor,
		FileName: filepath.Base(opts.file),
		DryRun:   opts.dryRun,
	}, bufio.NewReader(f))
	if err != nil {
		return withCode(exitFailure, err)
	}

	res := run.Result
	mode := "import"
	if run.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(c.stdout, "%s of %s: %d rows, %d updated, %d skipped, %d failed\n",
		mode, run.FileName, res.TotalRows, res.Updated, res.Skipped, res.Failed)

	if run.Report == nil {
		return nil
	}

	path := opts.report
	if path == "" {
		path = filepath.Join(filepath.Dir(opts.file), run.Report.FileName)
	}
	if err := os.WriteFile(path, run.Report.Content, 0o644); err != nil {
		return withCode(exitFailure, fmt.Errorf("write error report: %w", err))
	}
	fmt.Fprintf(c.stdout, "%d errors written to %s\n", len(res.Errors), path)
	return withCode(exitRowErrors, fmt.Errorf("%d rows reported errors", len(res.Errors)))
}

func (c *cli) exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog in the import layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			if out == "" || out == "-" {
				_, err := b.service.Export(cmd.Context(), c.stdout)
				if err != nil {
					return withCode(exitFailure, err)
				}
				return nil
			}

			f, err := os.Create(out)
			if err != nil {
				return withCode(exitUsage, err)
			}
			w := bufio.NewWriter(f)
			n, err := b.service.Export(cmd.Context(), w)
			if err == nil {
				err = w.Flush()
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return withCode(exitFailure, err)
			}
			fmt.Fprintf(c.stderr, "exported %d products to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output file, - for stdout")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.migrate(cmd.Context()); err != nil {
				return withCode(exitFailure, err)
			}
			fmt.Fprintln(c.stdout, "schema is up to date")
			return nil
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count the products an export would contain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			stats, err := b.service.Stats(cmd.Context())
			if err != nil {
				return withCode(exitFailure, err)
			}

			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "total\t%d\n", stats.Total)
			for _, typ := range []core.ProductType{core.TypeSimple, core.TypeVariable, core.TypeVariation, core.TypeGrouped, core.TypeExternal} {
				if n, ok := stats.ByType[typ]; ok {
					fmt.Fprintf(tw, "%s\t%d\n", typ, n)
				}
			}
			return tw.Flush()
		},
	}
}

func (c *cli) codesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List the error codes used in reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tMESSAGE\tSUGGESTION")
			for _, info := range core.Codes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Code, info.Message, info.Suggestion)
			}
			return tw.Flush()
		},
	}
}
