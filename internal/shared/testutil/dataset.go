package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DatasetHeader is the raw CSV header of the admissions export.
const DatasetHeader = "Year,Term,Applications,Admitted,Enrolled,Retention Rate (%),Student Satisfaction (%)," +
	"Engineering Enrolled,Business Enrolled,Arts Enrolled,Science Enrolled"

// SampleRows covers two years with both terms, enough for every chart.
var SampleRows = []string{
	"2021,Spring,2500,1500,600,85,80,190,160,120,130",
	"2021,Fall,2600,1560,640,86,81,200,170,130,140",
	"2022,Spring,2700,1620,660,88,83,210,170,140,140",
	"2022,Fall,2800,1680,700,90,85,220,180,150,150",
}

// DatasetCSV joins the header and rows into CSV text.
func DatasetCSV(rows ...string) string {
	return DatasetHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

// WriteDataset writes rows (SampleRows when none are given) to dir/name
// and returns the full path.
func WriteDataset(t testing.TB, dir, name string, rows ...string) string {
	t.Helper()
	if len(rows) == 0 {
		rows = SampleRows
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create dataset dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(DatasetCSV(rows...)), 0644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}
