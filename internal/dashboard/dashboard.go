package dashboard

import (
	"fmt"
	"strconv"

	"unidash/internal/analytics"
	"unidash/internal/dataset"
)

// Display labels.
const (
	Title             = "Student Admissions Dashboard"
	KPITitle          = "Key Indicators"
	EnrollmentTitle   = "Student Enrollment Year-over-Year"
	DepartmentsTitle  = "Enrollment by Department"
	RetentionTitle    = "Student Retention"
	RetentionLabel    = "Retention Rate"
	SatisfactionLabel = "Student Satisfaction Rate"
	RateAxisLabel     = "Rate (%)"
	EnrolledAxisLabel = "Total Enrolled"
	allYearsLabel     = "All Years"
)

// ChartKind tells the renderer how to draw a trend chart.
type ChartKind string

const (
	LineChart ChartKind = "line"
	BarChart  ChartKind = "bar"
)

// Dashboard is the complete output of one render pass.
type Dashboard struct {
	Title       string              `json:"title"`
	Selection   analytics.Selection `json:"selection"`
	Mode        Mode                `json:"mode"`
	KPIs        KPISection          `json:"kpis"`
	Enrollment  EnrollmentSection   `json:"enrollment"`
	Departments DepartmentSection   `json:"departments"`
	Retention   RetentionSection    `json:"retention"`
}

// KPISection holds one block of headline totals per term.
type KPISection struct {
	Title     string     `json:"title"`
	YearLabel string     `json:"year_label"`
	Blocks    []KPIBlock `json:"blocks"`
}

// KPIBlock is the header and totals for one term.
type KPIBlock struct {
	Header string `json:"header"`
	analytics.TermKPI
}

// EnrollmentSection is the year-over-year enrollment series.
type EnrollmentSection struct {
	Title  string                `json:"title"`
	YLabel string                `json:"y_label"`
	Points []analytics.YearTotal `json:"points"`
	Total  int                   `json:"total"`
}

// DepartmentSection is the proportional department split.
type DepartmentSection struct {
	Title  string            `json:"title"`
	Slices []DepartmentSlice `json:"slices"`
	Total  int               `json:"total"`
}

// DepartmentSlice is one department with its share of the total. Share is
// 0 when the total is 0.
type DepartmentSlice struct {
	analytics.DepartmentTotal
	Share float64 `json:"share"`
}

// RetentionSection holds the retention and satisfaction trend charts.
type RetentionSection struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle"`
	YLabel   string       `json:"y_label"`
	Charts   []TrendChart `json:"charts"`
}

// TrendChart is one retention/satisfaction chart. Term is empty when the
// chart covers every term.
type TrendChart struct {
	Title  string       `json:"title"`
	Kind   ChartKind    `json:"kind"`
	Term   string       `json:"term,omitempty"`
	Points []TrendPoint `json:"points"`
}

// TrendPoint is the mean retention and satisfaction for one year.
type TrendPoint struct {
	Year                int     `json:"year"`
	Count               int     `json:"count"`
	RetentionRate       float64 `json:"retention_rate"`
	StudentSatisfaction float64 `json:"student_satisfaction"`
}

// Build runs one full render pass for sel over t. It never fails: empty
// subsets produce empty sections.
func Build(t *dataset.Table, sel analytics.Selection) *Dashboard {
	mode := ResolveMode(sel)
	return &Dashboard{
		Title:       Title,
		Selection:   sel,
		Mode:        mode,
		KPIs:        buildKPIs(t, sel),
		Enrollment:  buildEnrollment(t, sel),
		Departments: buildDepartments(t, sel),
		Retention:   buildRetention(t, sel, mode),
	}
}

// KPIs are restricted by year only; the term selector does not apply.
func buildKPIs(t *dataset.Table, sel analytics.Selection) KPISection {
	yearLabel := allYearsLabel
	if y, ok := sel.Year.Value(); ok {
		yearLabel = strconv.Itoa(y)
	}

	kpis := analytics.GroupByTermSum(analytics.ExactFilter(t, sel.Year, analytics.AllTerms()))
	blocks := make([]KPIBlock, len(kpis))
	for i, k := range kpis {
		blocks[i] = KPIBlock{Header: fmt.Sprintf("%s %s", k.Term, yearLabel), TermKPI: k}
	}
	return KPISection{Title: KPITitle, YearLabel: yearLabel, Blocks: blocks}
}

// Enrollment covers every year up to the selection, across all terms.
func buildEnrollment(t *dataset.Table, sel analytics.Selection) EnrollmentSection {
	points := analytics.GroupByYearSum(analytics.CumulativeFilter(t, sel.Year, analytics.AllTerms()), analytics.Enrolled)
	total := 0
	for _, p := range points {
		total += int(p.Value)
	}
	return EnrollmentSection{Title: EnrollmentTitle, YLabel: EnrolledAxisLabel, Points: points, Total: total}
}

func buildDepartments(t *dataset.Table, sel analytics.Selection) DepartmentSection {
	totals := analytics.DepartmentTotals(analytics.ExactFilter(t, sel.Year, sel.Term))
	sum := 0
	for _, d := range totals {
		sum += d.Enrolled
	}
	slices := make([]DepartmentSlice, len(totals))
	for i, d := range totals {
		slices[i] = DepartmentSlice{DepartmentTotal: d}
		if sum > 0 {
			slices[i].Share = float64(d.Enrolled) / float64(sum)
		}
	}
	return DepartmentSection{Title: DepartmentsTitle, Slices: slices, Total: sum}
}

func buildRetention(t *dataset.Table, sel analytics.Selection, mode Mode) RetentionSection {
	section := RetentionSection{Title: RetentionTitle, YLabel: RateAxisLabel}
	year, _ := sel.Year.Value()
	term, _ := sel.Term.Value()

	switch mode {
	case AllYearsAllTerms:
		section.Subtitle = "All Years, All Terms"
		section.Charts = append(section.Charts, trend("All Terms (Year over Year)", LineChart, "", t))
		for _, tm := range t.Terms() {
			subset := analytics.ExactFilter(t, analytics.AllYears(), analytics.Term(tm))
			section.Charts = append(section.Charts,
				trend(fmt.Sprintf("%s Term (Year over Year)", tm), LineChart, tm, subset))
		}

	case UpToYearAllTerms:
		section.Subtitle = fmt.Sprintf("Up to Year %d, All Terms", year)
		for _, tm := range t.Terms() {
			subset := analytics.CumulativeFilter(t, sel.Year, analytics.Term(tm))
			section.Charts = append(section.Charts,
				trend(fmt.Sprintf("%s Term up to %d", tm, year), BarChart, tm, subset))
		}

	case AllYearsSingleTerm:
		section.Subtitle = fmt.Sprintf("All Years, %s Term", term)
		subset := analytics.CumulativeFilter(t, analytics.AllYears(), sel.Term)
		section.Charts = append(section.Charts,
			trend(fmt.Sprintf("%s Term (All Years)", term), LineChart, term, subset))

	case UpToYearSingleTerm:
		section.Subtitle = fmt.Sprintf("Up to Year %d, %s Term Only", year, term)
		subset := analytics.CumulativeFilter(t, sel.Year, sel.Term)
		section.Charts = append(section.Charts,
			trend(fmt.Sprintf("%s Term up to Year %d", term, year), BarChart, term, subset))
	}

	if section.Charts == nil {
		section.Charts = []TrendChart{}
	}
	return section
}

func trend(title string, kind ChartKind, term string, subset *dataset.Table) TrendChart {
	means := analytics.GroupByYearMean(subset, analytics.RetentionRate, analytics.StudentSatisfaction)
	points := make([]TrendPoint, len(means))
	for i, m := range means {
		points[i] = TrendPoint{
			Year:                m.Year,
			Count:               m.Count,
			RetentionRate:       m.Mean(analytics.RetentionRate),
			StudentSatisfaction: m.Mean(analytics.StudentSatisfaction),
		}
	}
	return TrendChart{Title: title, Kind: kind, Term: term, Points: points}
}

// Options are the selector values offered to the user.
type Options struct {
	Years []string `json:"years"`
	Terms []string `json:"terms"`
}

// SelectorOptions lists "All" followed by every observed year and term.
func SelectorOptions(t *dataset.Table) Options {
	return Options{Years: analytics.YearOptions(t), Terms: analytics.TermOptions(t)}
}

// Summary describes the loaded dataset.
type Summary struct {
	Rows          int      `json:"rows"`
	FirstYear     int      `json:"first_year,omitempty"`
	LastYear      int      `json:"last_year,omitempty"`
	Terms         []string `json:"terms"`
	TotalEnrolled int      `json:"total_enrolled"`
}

// Summarize reports row count, year span and terms of t.
func Summarize(t *dataset.Table) Summary {
	s := Summary{Rows: t.Len(), Terms: t.Terms(), TotalEnrolled: int(analytics.Sum(t, analytics.Enrolled))}
	if years := t.Years(); len(years) > 0 {
		s.FirstYear = years[0]
		s.LastYear = years[len(years)-1]
	}
	return s
}
