package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"unidash/internal/config"
	"unidash/internal/dashboard"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter saves dashboard views under the exports directory.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, replacing any existing file.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return writeCSV(file, options)
}

// SaveView writes one view of d to "<view>.csv" in the exports directory and
// returns the full path.
func (w *CSVWriter) SaveView(d *dashboard.Dashboard, v View) (string, error) {
	t, err := Tabulate(d, v)
	if err != nil {
		return "", err
	}
	name := string(v) + ".csv"
	if err := w.WriteCSV(name, WriteOptions{Headers: t.Headers, Records: t.Records, BOMPrefix: true}); err != nil {
		return "", err
	}
	return w.resolvePath(name), nil
}

// WriteView streams one view of d to out.
func WriteView(out io.Writer, d *dashboard.Dashboard, v View, bom bool) error {
	t, err := Tabulate(d, v)
	if err != nil {
		return err
	}
	return writeCSV(out, WriteOptions{Headers: t.Headers, Records: t.Records, BOMPrefix: bom})
}

func writeCSV(out io.Writer, options WriteOptions) error {
	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// resolvePath keeps absolute paths and places relative ones in the exports
// directory.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return w.paths.GetExportPath(filePath)
}
