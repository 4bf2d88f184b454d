// Package exporter writes dashboard sections as CSV files and Excel
// workbooks.
//
// Each section maps to a View with a fixed header. CSVWriter saves views
// under the exports directory with a UTF-8 BOM for Excel, and WriteView
// streams a single view to any writer. WriteWorkbook puts every view on its
// own sheet.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths)
//	path, err := w.SaveView(d, exporter.ViewEnrollment)
//
//	err = exporter.WriteWorkbook(out, d)
package exporter
