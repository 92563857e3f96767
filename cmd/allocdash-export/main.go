// Command allocdash-export computes dashboard downloads offline and
// inspects the configured workbooks.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"allocdash/internal/app"
	"allocdash/internal/config"
	"allocdash/internal/files"
	"allocdash/internal/infrastructure"
	"allocdash/internal/services"
	"allocdash/internal/validation"
	"allocdash/pkg/contracts"
)

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand works with once configuration is loaded
type env struct {
	cfg       *config.Config
	paths     *config.Paths
	logger    *slog.Logger
	service   *services.DashboardService
	validator *validation.FileValidator
	out       io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	e := &env{out: out}

	root := &cobra.Command{
		Use:           "allocdash-export",
		Short:         "Export dashboard views and inspect source workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
	}

	root.PersistentFlags().String("data-dir", "", "directory holding the source workbooks")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	root.SetOut(out)

	root.AddCommand(newExportCmd(e))
	root.AddCommand(newWorkbooksCmd(e))
	root.AddCommand(newCheckCmd(e))
	root.AddCommand(newVersionCmd(e))
	return root
}

func (e *env) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Data.Dir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	// Logs go to stderr so stdout stays clean for listings.
	cfg.Logging.Output = "console"

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.paths = paths
	e.logger = infrastructure.NewLogger(cfg.Logging, os.Stderr)
	e.validator = validation.NewFileValidator(e.logger)

	e.service, _, err = app.NewDashboardService(cmd.Context(), cfg, paths, e.logger)
	return err
}

func newWorkbooksCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "workbooks",
		Short: "List the workbooks found in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.validator.ValidateInputDirectory(e.paths.DataDir, "*.xlsx"); err != nil {
				return err
			}
			found, err := e.service.Workbooks(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
			for _, f := range found {
				fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.Size, f.ModTime.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newCheckCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and normalize every configured workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, loc := range e.localWorkbooks() {
				if err := e.validator.ValidateWorkbook(loc); err != nil {
					fmt.Fprintf(e.out, "FAIL %s: %v\n", loc, err)
					failed++
					continue
				}
				fmt.Fprintf(e.out, "ok   %s\n", loc)
			}
			if failed > 0 {
				return fmt.Errorf("workbook check failed: %d of the configured workbooks are unusable", failed)
			}

			// The files exist; loading them checks their sheets and columns.
			if err := e.service.Warm(cmd.Context()); err != nil {
				return fmt.Errorf("workbook check failed: %w", err)
			}
			fmt.Fprintln(e.out, "all workbooks loaded")
			return nil
		},
	}
}

// localWorkbooks resolves the configured workbooks that are not in S3
func (e *env) localWorkbooks() []string {
	d := e.cfg.Data
	var out []string
	for _, loc := range []string{d.CorrelationWorkbook, d.StressWorkbook, d.ExposureWorkbook, d.LegendWorkbook} {
		if loc == "" || files.IsS3Location(loc) {
			continue
		}
		out = append(out, files.NewLocalSource(e.paths.DataDir).Resolve(loc))
	}
	return out
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Printing the version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(e.out, contracts.GetFullVersionString(config.AppName+"-export"))
		},
	}
}
