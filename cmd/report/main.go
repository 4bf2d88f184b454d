// Command report prints the admissions dashboard for one selection to the
// terminal and optionally exports it.
//
//	report -year 2021 -term Fall
//	report -format json
//	report -view departments -format csv > departments.csv
//	report -xlsx dashboard.xlsx -save
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"unidash/internal/analytics"
	"unidash/internal/config"
	"unidash/internal/dashboard"
	"unidash/internal/dataset"
	"unidash/internal/exporter"
)

type options struct {
	data      string
	delimiter string
	sheet     string
	year      string
	term      string
	view      string
	format    string
	xlsx      string
	save      bool
	noColor   bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.data, "data", config.DefaultDatasetFile, "dataset file (.csv, .tsv or .xlsx); relative paths are also looked up under data/")
	fs.StringVar(&o.delimiter, "delimiter", ",", "field delimiter for delimited files")
	fs.StringVar(&o.sheet, "sheet", "", "workbook sheet (defaults to the first sheet)")
	fs.StringVar(&o.year, "year", analytics.All, "year to select, or All")
	fs.StringVar(&o.term, "term", analytics.All, "term to select, or All")
	fs.StringVar(&o.view, "view", "all", "section to print: all | kpis | enrollment | departments | retention")
	fs.StringVar(&o.format, "format", "table", "output format: table | json | csv")
	fs.StringVar(&o.xlsx, "xlsx", "", "also write the dashboard to this workbook")
	fs.BoolVar(&o.save, "save", false, "also save every section as CSV under data/exports")
	fs.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.format == "csv" && o.view == "all" {
		return o, fmt.Errorf("-format csv needs a single -view")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.noColor {
		color.NoColor = true
	}

	sel, err := analytics.ParseSelection(o.year, o.term)
	if err != nil {
		return err
	}

	views := exporter.Views
	if o.view != "all" {
		v, err := exporter.ParseView(o.view)
		if err != nil {
			return err
		}
		views = []exporter.View{v}
	}

	root, err := os.Getwd()
	if err != nil {
		return err
	}
	paths := config.NewPaths(root)

	delim := config.DatasetConfig{Delimiter: o.delimiter}.DelimiterRune()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	table, err := dataset.Load(ctx, paths.ResolveDataFile(o.data),
		dataset.WithDelimiter(delim),
		dataset.WithSheet(o.sheet),
		dataset.WithLogger(logger))
	if err != nil {
		return err
	}

	d := dashboard.Build(table, sel)

	switch o.format {
	case "table":
		err = printTables(stdout, d, views)
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(d)
	case "csv":
		err = exporter.WriteView(stdout, d, views[0], false)
	default:
		err = fmt.Errorf("unknown format %q", o.format)
	}
	if err != nil {
		return err
	}

	if o.xlsx != "" {
		if err := writeWorkbook(o.xlsx, d); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "workbook written to %s\n", o.xlsx)
	}

	if o.save {
		if err := paths.EnsureDirectories(); err != nil {
			return err
		}
		w := exporter.NewCSVWriter(paths)
		for _, v := range views {
			path, err := w.SaveView(d, v)
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "%s saved to %s\n", v.Title(), path)
		}
	}
	return nil
}

func printTables(w io.Writer, d *dashboard.Dashboard, views []exporter.View) error {
	heading := color.New(color.FgCyan, color.Bold)
	section := color.New(color.FgYellow)

	heading.Fprintf(w, "=== %s ===\n", d.Title)
	fmt.Fprintf(w, "Year: %s  Term: %s  (%s)\n", d.Selection.Year, d.Selection.Term, d.Mode)

	for _, v := range views {
		t, err := exporter.Tabulate(d, v)
		if err != nil {
			return err
		}

		section.Fprintf(w, "\n%s\n", v.Title())
		if len(t.Records) == 0 {
			fmt.Fprintln(w, "(no data)")
			continue
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader(t.Headers)
		table.SetAutoFormatHeaders(false)
		table.AppendBulk(t.Records)
		table.Render()
	}
	return nil
}

func writeWorkbook(path string, d *dashboard.Dashboard) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.WriteWorkbook(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
