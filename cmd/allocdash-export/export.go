package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"allocdash/internal/exporter"
	custommw "allocdash/internal/middleware"
	"allocdash/internal/services"
)

const (
	formatXLSX = "xlsx"
	formatCSV  = "csv"
)

type exportOptions struct {
	format  string
	outDir  string
	start   string
	end     string
	codes   []string
	date    string
	subject string
}

func newExportCmd(e *env) *cobra.Command {
	opts := &exportOptions{}

	kinds := make([]string, len(services.ExportKinds))
	for i, k := range services.ExportKinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:       "export <kind>",
		Short:     "Write a dashboard download to the export directory",
		Long:      "Kinds: " + strings.Join(kinds, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args[0], cmd.Flags().Changed("codes"))
			if err != nil {
				return err
			}

			dir := opts.outDir
			if dir == "" {
				dir = e.paths.ExportDir
			}
			if err := e.validator.ValidateOutputDirectory(dir); err != nil {
				return err
			}

			export, err := e.service.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			written, err := opts.write(e, dir, export)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(e.out, path)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", formatXLSX, "output format (xlsx, csv)")
	f.StringVar(&opts.outDir, "out", "", "output directory (default: configured export dir)")
	f.StringVar(&opts.start, "start", "", "first date of the correlation window (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "last date of the correlation window (YYYY-MM-DD)")
	f.StringSliceVar(&opts.codes, "codes", nil, "correlation series to include (default: all)")
	f.StringVar(&opts.date, "date", "", "comparison snapshot date (default: latest)")
	f.StringVar(&opts.subject, "subject", "", "portfolio compared against its bucket")
	return cmd
}

// request builds the export request. codesSet distinguishes an explicitly
// empty --codes from an absent one.
func (o *exportOptions) request(kind string, codesSet bool) (services.ExportRequest, error) {
	var req services.ExportRequest

	k, err := services.ParseExportKind(kind)
	if err != nil {
		return req, err
	}
	if o.format != formatXLSX && o.format != formatCSV {
		return req, fmt.Errorf("unsupported format %q", o.format)
	}

	start, err := parseDate("start", o.start)
	if err != nil {
		return req, err
	}
	end, err := parseDate("end", o.end)
	if err != nil {
		return req, err
	}
	date, err := parseDate("date", o.date)
	if err != nil {
		return req, err
	}

	req.Kind = k
	req.Correlation = services.CorrelationQuery{Start: start, End: end}
	if codesSet {
		req.Correlation.Codes = append([]string{}, o.codes...)
	}
	req.Comparison = services.ComparisonQuery{Date: date, Subject: o.subject}
	return req, nil
}

// write stores the export and returns the paths written. CSV holds one
// table per file, so multi-table exports become several files.
func (o *exportOptions) write(e *env, dir string, export *services.Export) ([]string, error) {
	base := strings.TrimSuffix(export.Filename, filepath.Ext(export.Filename))

	if o.format == formatXLSX {
		path := filepath.Join(dir, base+".xlsx")
		if err := exporter.NewXLSXWriter(e.logger).WriteFile(path, export.Tables...); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	writer := exporter.NewCSVWriter()
	writer.BOMPrefix = true
	paths := make([]string, 0, len(export.Tables))
	for _, table := range export.Tables {
		name := base
		if len(export.Tables) > 1 {
			name = base + "_" + strings.ToLower(strings.ReplaceAll(table.Name, " ", "_"))
		}
		path := filepath.Join(dir, name+".csv")
		if err := writer.WriteFile(path, table); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(custommw.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, value)
	}
	return t, nil
}
