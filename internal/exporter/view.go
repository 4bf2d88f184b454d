package exporter

import (
	"fmt"
	"strings"

	"unidash/internal/dashboard"
)

// View names one exportable dashboard section.
type View string

const (
	ViewKPIs        View = "kpis"
	ViewEnrollment  View = "enrollment"
	ViewDepartments View = "departments"
	ViewRetention   View = "retention"
)

// Views lists every view in sheet order.
var Views = []View{ViewKPIs, ViewEnrollment, ViewDepartments, ViewRetention}

// ParseView resolves a view name case-insensitively.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown export view %q", s)
}

// Title is the display name used for workbook sheets.
func (v View) Title() string {
	switch v {
	case ViewKPIs:
		return "KPIs"
	case ViewEnrollment:
		return "Enrollment"
	case ViewDepartments:
		return "Departments"
	case ViewRetention:
		return "Retention"
	}
	return string(v)
}

// Table is a header plus string rows ready for tabular output.
type Table struct {
	Headers []string
	Records [][]string
}

// Tabulate flattens one section of d into rows.
func Tabulate(d *dashboard.Dashboard, v View) (Table, error) {
	switch v {
	case ViewKPIs:
		t := Table{Headers: []string{"Term", "Year", "Applications", "Admitted", "Enrolled"}}
		for _, b := range d.KPIs.Blocks {
			t.Records = append(t.Records, []string{
				b.Term, d.KPIs.YearLabel,
				formatInt(b.Applications), formatInt(b.Admitted), formatInt(b.Enrolled),
			})
		}
		return t, nil

	case ViewEnrollment:
		t := Table{Headers: []string{"Year", "Enrolled"}}
		for _, p := range d.Enrollment.Points {
			t.Records = append(t.Records, []string{formatInt(p.Year), formatInt(int(p.Value))})
		}
		return t, nil

	case ViewDepartments:
		t := Table{Headers: []string{"Department", "Enrolled", "Share (%)"}}
		for _, s := range d.Departments.Slices {
			t.Records = append(t.Records, []string{s.Department, formatInt(s.Enrolled), formatPercent(s.Share)})
		}
		return t, nil

	case ViewRetention:
		t := Table{Headers: []string{"Chart", "Term", "Year", "Rows", "Retention Rate (%)", "Student Satisfaction (%)"}}
		for _, c := range d.Retention.Charts {
			term := c.Term
			if term == "" {
				term = "All"
			}
			for _, p := range c.Points {
				t.Records = append(t.Records, []string{
					c.Title, term, formatInt(p.Year), formatInt(p.Count),
					formatPercent(p.RetentionRate), formatPercent(p.StudentSatisfaction),
				})
			}
		}
		return t, nil
	}
	return Table{}, fmt.Errorf("unknown export view %q", v)
}
