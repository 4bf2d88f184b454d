package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidash/internal/analytics"
	"unidash/internal/dataset"
)

func twoFallRows() *dataset.Table {
	return dataset.NewTable([]dataset.Record{
		{Year: 2020, Term: "Fall", Applications: 100, Admitted: 50, Enrolled: 40,
			EngineeringEnrolled: 10, BusinessEnrolled: 10, ArtsEnrolled: 10, ScienceEnrolled: 10,
			RetentionRate: 0.80, StudentSatisfaction: 0.70},
		{Year: 2021, Term: "Fall", Applications: 120, Admitted: 60, Enrolled: 45,
			EngineeringEnrolled: 15, BusinessEnrolled: 10, ArtsEnrolled: 10, ScienceEnrolled: 10,
			RetentionRate: 0.90, StudentSatisfaction: 0.75},
	})
}

func mixedTerms() *dataset.Table {
	return dataset.NewTable([]dataset.Record{
		{Year: 2019, Term: "Spring", Enrolled: 20, EngineeringEnrolled: 20, RetentionRate: 0.60, StudentSatisfaction: 0.50},
		{Year: 2019, Term: "Fall", Enrolled: 30, BusinessEnrolled: 30, RetentionRate: 0.80, StudentSatisfaction: 0.70},
		{Year: 2020, Term: "Spring", Enrolled: 25, ArtsEnrolled: 25, RetentionRate: 0.70, StudentSatisfaction: 0.60},
		{Year: 2020, Term: "Fall", Enrolled: 35, ScienceEnrolled: 35, RetentionRate: 0.90, StudentSatisfaction: 0.80},
		{Year: 2021, Term: "Fall", Enrolled: 40, EngineeringEnrolled: 40, RetentionRate: 1.00, StudentSatisfaction: 0.90},
	})
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		sel  analytics.Selection
		want Mode
		name string
	}{
		{analytics.Selection{Year: analytics.AllYears(), Term: analytics.AllTerms()}, AllYearsAllTerms, "all_years_all_terms"},
		{analytics.Selection{Year: analytics.Year(2020), Term: analytics.AllTerms()}, UpToYearAllTerms, "up_to_year_all_terms"},
		{analytics.Selection{Year: analytics.AllYears(), Term: analytics.Term("Fall")}, AllYearsSingleTerm, "all_years_single_term"},
		{analytics.Selection{Year: analytics.Year(2020), Term: analytics.Term("Fall")}, UpToYearSingleTerm, "up_to_year_single_term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveMode(tt.sel)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestBuildAllAllKPIs(t *testing.T) {
	d := Build(twoFallRows(), analytics.Selection{})

	assert.Equal(t, AllYearsAllTerms, d.Mode)
	assert.Equal(t, "All Years", d.KPIs.YearLabel)
	require.Len(t, d.KPIs.Blocks, 1)
	block := d.KPIs.Blocks[0]
	assert.Equal(t, "Fall All Years", block.Header)
	assert.Equal(t, 220, block.Applications)
	assert.Equal(t, 110, block.Admitted)
	assert.Equal(t, 85, block.Enrolled)
}

func TestBuildUpToYearRestrictsEnrollment(t *testing.T) {
	sel, err := analytics.ParseSelection("2020", "All")
	require.NoError(t, err)

	d := Build(twoFallRows(), sel)

	assert.Equal(t, UpToYearAllTerms, d.Mode)
	assert.Equal(t, []analytics.YearTotal{{Year: 2020, Value: 40}}, d.Enrollment.Points)
	assert.Equal(t, 40, d.Enrollment.Total)
	assert.Equal(t, "Fall 2020", d.KPIs.Blocks[0].Header)
}

func TestBuildRetentionPerMode(t *testing.T) {
	table := mixedTerms()

	t.Run("all years all terms", func(t *testing.T) {
		r := Build(table, analytics.Selection{}).Retention
		assert.Equal(t, "All Years, All Terms", r.Subtitle)
		require.Len(t, r.Charts, 3)

		assert.Equal(t, "All Terms (Year over Year)", r.Charts[0].Title)
		assert.Equal(t, LineChart, r.Charts[0].Kind)
		assert.Empty(t, r.Charts[0].Term)
		require.Len(t, r.Charts[0].Points, 3)
		assert.Equal(t, 2, r.Charts[0].Points[0].Count)
		assert.InDelta(t, 0.70, r.Charts[0].Points[0].RetentionRate, 1e-9)
		assert.InDelta(t, 0.60, r.Charts[0].Points[0].StudentSatisfaction, 1e-9)

		assert.Equal(t, "Fall Term (Year over Year)", r.Charts[1].Title)
		assert.Len(t, r.Charts[1].Points, 3)
		assert.Equal(t, "Spring Term (Year over Year)", r.Charts[2].Title)
		assert.Len(t, r.Charts[2].Points, 2)
	})

	t.Run("up to year all terms", func(t *testing.T) {
		sel := analytics.Selection{Year: analytics.Year(2020), Term: analytics.AllTerms()}
		r := Build(table, sel).Retention
		assert.Equal(t, "Up to Year 2020, All Terms", r.Subtitle)
		require.Len(t, r.Charts, 2)
		assert.Equal(t, "Fall Term up to 2020", r.Charts[0].Title)
		assert.Equal(t, BarChart, r.Charts[0].Kind)
		assert.Equal(t, "Spring Term up to 2020", r.Charts[1].Title)
		for _, c := range r.Charts {
			require.Len(t, c.Points, 2)
			for _, p := range c.Points {
				assert.LessOrEqual(t, p.Year, 2020)
			}
		}
	})

	t.Run("all years single term", func(t *testing.T) {
		sel := analytics.Selection{Year: analytics.AllYears(), Term: analytics.Term("Spring")}
		r := Build(table, sel).Retention
		assert.Equal(t, "All Years, Spring Term", r.Subtitle)
		require.Len(t, r.Charts, 1)
		assert.Equal(t, "Spring Term (All Years)", r.Charts[0].Title)
		assert.Equal(t, LineChart, r.Charts[0].Kind)
		assert.Equal(t, "Spring", r.Charts[0].Term)
		assert.Len(t, r.Charts[0].Points, 2)
	})

	t.Run("up to year single term", func(t *testing.T) {
		sel := analytics.Selection{Year: analytics.Year(2020), Term: analytics.Term("Fall")}
		r := Build(table, sel).Retention
		assert.Equal(t, "Up to Year 2020, Fall Term Only", r.Subtitle)
		require.Len(t, r.Charts, 1)
		c := r.Charts[0]
		assert.Equal(t, "Fall Term up to Year 2020", c.Title)
		assert.Equal(t, BarChart, c.Kind)
		require.Len(t, c.Points, 2)
		assert.Equal(t, 2019, c.Points[0].Year)
		assert.InDelta(t, 0.80, c.Points[0].RetentionRate, 1e-9)
		assert.Equal(t, 2020, c.Points[1].Year)
		assert.InDelta(t, 0.90, c.Points[1].RetentionRate, 1e-9)
	})
}

func TestBuildDepartmentsUseExactFilter(t *testing.T) {
	table := mixedTerms()

	d := Build(table, analytics.Selection{Year: analytics.Year(2020), Term: analytics.Term("Fall")})
	require.Len(t, d.Departments.Slices, 4)
	assert.Equal(t, 35, d.Departments.Total)
	assert.Equal(t, "Science", d.Departments.Slices[3].Department)
	assert.Equal(t, 1.0, d.Departments.Slices[3].Share)
	assert.Equal(t, 0.0, d.Departments.Slices[0].Share)

	all := Build(table, analytics.Selection{})
	sum := 0.0
	for _, s := range all.Departments.Slices {
		sum += s.Share
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, int(analytics.Sum(table, analytics.Enrolled)), all.Departments.Total)
}

func TestBuildUnknownYearIsEmpty(t *testing.T) {
	d := Build(mixedTerms(), analytics.Selection{Year: analytics.Year(1999), Term: analytics.Term("Fall")})

	assert.Empty(t, d.KPIs.Blocks)
	assert.Empty(t, d.Enrollment.Points)
	assert.Equal(t, 0, d.Departments.Total)
	for _, s := range d.Departments.Slices {
		assert.Equal(t, 0.0, s.Share)
	}
	require.Len(t, d.Retention.Charts, 1)
	assert.Empty(t, d.Retention.Charts[0].Points)
}

func TestBuildEmptyTable(t *testing.T) {
	d := Build(dataset.NewTable(nil), analytics.Selection{})
	require.NotNil(t, d)
	assert.Equal(t, Title, d.Title)
	require.Len(t, d.Retention.Charts, 1)
	assert.Empty(t, d.Retention.Charts[0].Points)

	d = Build(dataset.NewTable(nil), analytics.Selection{Year: analytics.Year(2020), Term: analytics.AllTerms()})
	assert.NotNil(t, d.Retention.Charts)
	assert.Empty(t, d.Retention.Charts)
}

func TestDashboardJSON(t *testing.T) {
	sel, err := analytics.ParseSelection("2021", "Fall")
	require.NoError(t, err)

	data, err := json.Marshal(Build(twoFallRows(), sel))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "up_to_year_single_term", body["mode"])
	assert.Equal(t, map[string]interface{}{"year": "2021", "term": "Fall"}, body["selection"])

	kpis := body["kpis"].(map[string]interface{})
	block := kpis["blocks"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Fall", block["term"])
	assert.Equal(t, float64(120), block["applications"])
}

func TestSelectorOptionsAndSummary(t *testing.T) {
	table := mixedTerms()

	opts := SelectorOptions(table)
	assert.Equal(t, []string{"All", "2019", "2020", "2021"}, opts.Years)
	assert.Equal(t, []string{"All", "Fall", "Spring"}, opts.Terms)

	s := Summarize(table)
	assert.Equal(t, 5, s.Rows)
	assert.Equal(t, 2019, s.FirstYear)
	assert.Equal(t, 2021, s.LastYear)
	assert.Equal(t, 150, s.TotalEnrolled)

	empty := Summarize(dataset.NewTable(nil))
	assert.Equal(t, 0, empty.Rows)
	assert.Zero(t, empty.FirstYear)
}
