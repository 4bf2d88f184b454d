package charts

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"unidash/internal/dashboard"
)

// ErrNoData is returned when a section has nothing to draw.
var ErrNoData = errors.New("no chart data")

// Format is an output image format.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ParseFormat accepts "svg" or "png", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case SVG, PNG:
		return f, nil
	}
	return "", fmt.Errorf("unsupported chart format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) provider() chart.RendererProvider {
	if f == PNG {
		return chart.PNG
	}
	return chart.SVG
}

const (
	defaultWidth  = 800
	defaultHeight = 400
	rateAxisMax   = 100.0
)

var (
	retentionColor    = chart.ColorBlue
	satisfactionColor = chart.ColorGreen
	enrollmentColor   = drawing.ColorFromHex("4c78a8")

	departmentColors = []drawing.Color{
		drawing.ColorFromHex("4c78a8"),
		drawing.ColorFromHex("f58518"),
		drawing.ColorFromHex("54a24b"),
		drawing.ColorFromHex("e45756"),
	}

	chartPadding = chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 20}
)

// Enrollment draws the year-over-year enrollment totals as bars.
func Enrollment(w io.Writer, s dashboard.EnrollmentSection, f Format) error {
	if len(s.Points) == 0 || s.Total == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, len(s.Points))
	maxValue := 0.0
	for i, p := range s.Points {
		bars[i] = chart.Value{
			Label: strconv.Itoa(p.Year),
			Value: p.Value,
			Style: chart.Style{FillColor: enrollmentColor, StrokeColor: enrollmentColor},
		}
		if p.Value > maxValue {
			maxValue = p.Value
		}
	}

	bc := chart.BarChart{
		Title:      s.Title,
		Background: chart.Style{Padding: chartPadding},
		Width:      defaultWidth,
		Height:     defaultHeight,
		BarWidth:   barWidth(len(bars)),
		YAxis: chart.YAxis{
			Name:  s.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
		},
		Bars: bars,
	}
	return bc.Render(f.provider(), w)
}

// Departments draws the department split as a pie. A zero total has no
// meaningful proportions and yields ErrNoData.
func Departments(w io.Writer, s dashboard.DepartmentSection, f Format) error {
	if s.Total == 0 {
		return ErrNoData
	}

	var values []chart.Value
	for i, d := range s.Slices {
		if d.Enrolled == 0 {
			continue
		}
		col := departmentColors[i%len(departmentColors)]
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", d.Department, d.Share*100),
			Value: float64(d.Enrolled),
			Style: chart.Style{FillColor: col, StrokeColor: drawing.ColorWhite},
		})
	}

	pc := chart.PieChart{
		Title:      s.Title,
		Background: chart.Style{Padding: chartPadding},
		Width:      defaultHeight,
		Height:     defaultHeight,
		Values:     values,
	}
	return pc.Render(f.provider(), w)
}

// Trend draws one retention chart. Line charts plot both rates against the
// year; bar charts pair the two rates per year. Rates are shown as
// percentages on a fixed 0-100 axis.
func Trend(w io.Writer, c dashboard.TrendChart, f Format) error {
	if len(c.Points) == 0 {
		return ErrNoData
	}
	if c.Kind == dashboard.BarChart {
		return trendBars(w, c, f)
	}
	return trendLines(w, c, f)
}

func trendLines(w io.Writer, c dashboard.TrendChart, f Format) error {
	xs := make([]float64, len(c.Points))
	retention := make([]float64, len(c.Points))
	satisfaction := make([]float64, len(c.Points))
	ticks := make([]chart.Tick, len(c.Points))
	for i, p := range c.Points {
		xs[i] = float64(p.Year)
		retention[i] = p.RetentionRate * 100
		satisfaction[i] = p.StudentSatisfaction * 100
		ticks[i] = chart.Tick{Value: xs[i], Label: strconv.Itoa(p.Year)}
	}

	xAxis := chart.XAxis{Name: "Year", Ticks: ticks}
	// go-chart derives the x range from the ticks; one year would give it
	// zero width, so centre the point in a one-year window.
	if len(xs) == 1 {
		lo, hi := xs[0]-0.5, xs[0]+0.5
		xAxis.Range = &chart.ContinuousRange{Min: lo, Max: hi}
		xAxis.Ticks = []chart.Tick{{Value: lo}, ticks[0], {Value: hi}}
	}

	ch := chart.Chart{
		Title:      c.Title,
		Background: chart.Style{Padding: chartPadding},
		Width:      defaultWidth,
		Height:     defaultHeight,
		XAxis:      xAxis,
		YAxis: chart.YAxis{
			Name:  dashboard.RateAxisLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: rateAxisMax},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    dashboard.RetentionLabel,
				XValues: xs,
				YValues: retention,
				Style:   lineStyle(retentionColor),
			},
			chart.ContinuousSeries{
				Name:    dashboard.SatisfactionLabel,
				XValues: xs,
				YValues: satisfaction,
				Style:   lineStyle(satisfactionColor),
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(f.provider(), w)
}

func trendBars(w io.Writer, c dashboard.TrendChart, f Format) error {
	bars := make([]chart.Value, 0, 2*len(c.Points))
	for _, p := range c.Points {
		year := strconv.Itoa(p.Year)
		bars = append(bars,
			chart.Value{
				Label: year + " Retention",
				Value: p.RetentionRate * 100,
				Style: chart.Style{FillColor: retentionColor, StrokeColor: retentionColor},
			},
			chart.Value{
				Label: year + " Satisfaction",
				Value: p.StudentSatisfaction * 100,
				Style: chart.Style{FillColor: satisfactionColor, StrokeColor: satisfactionColor},
			})
	}

	bc := chart.BarChart{
		Title:      c.Title,
		Background: chart.Style{Padding: chartPadding},
		Width:      defaultWidth,
		Height:     defaultHeight,
		BarWidth:   barWidth(len(bars)),
		YAxis: chart.YAxis{
			Name:  dashboard.RateAxisLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: rateAxisMax},
		},
		Bars: bars,
	}
	return bc.Render(f.provider(), w)
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    4,
	}
}

func barWidth(n int) int {
	w := (defaultWidth - 120) / (n * 2)
	switch {
	case w > 60:
		return 60
	case w < 8:
		return 8
	}
	return w
}
