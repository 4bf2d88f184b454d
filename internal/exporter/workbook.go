package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"unidash/internal/dashboard"
)

// numericColumns marks columns written as numbers instead of text, per view.
var numericColumns = map[View]map[int]bool{
	ViewKPIs:        {2: true, 3: true, 4: true},
	ViewEnrollment:  {0: true, 1: true},
	ViewDepartments: {1: true, 2: true},
	ViewRetention:   {2: true, 3: true, 4: true, 5: true},
}

// WriteWorkbook writes every view of d to its own sheet, preceded by a
// summary sheet describing the selection.
func WriteWorkbook(out io.Writer, d *dashboard.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Title", d.Title},
		{"Year", d.Selection.Year.String()},
		{"Term", d.Selection.Term.String()},
		{"Mode", d.Mode.String()},
		{"Retention", d.Retention.Subtitle},
	}
	if err := setRows(f, summary, rows); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for _, v := range Views {
		t, err := Tabulate(d, v)
		if err != nil {
			return err
		}
		sheet := v.Title()
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		rows := make([][]interface{}, 0, len(t.Records)+1)
		rows = append(rows, toCells(t.Headers, nil))
		for _, rec := range t.Records {
			rows = append(rows, toCells(rec, numericColumns[v]))
		}
		if err := setRows(f, sheet, rows); err != nil {
			return err
		}

		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("failed to style sheet %s: %w", sheet, err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func toCells(values []string, numeric map[int]bool) []interface{} {
	cells := make([]interface{}, len(values))
	for i, s := range values {
		cells[i] = s
		if numeric[i] {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				cells[i] = n
			}
		}
	}
	return cells
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
