package analytics

import (
	"sort"
	"strconv"

	"unidash/internal/dataset"
)

// TermKPI holds the headline totals for one term.
type TermKPI struct {
	Term         string `json:"term"`
	Applications int    `json:"applications"`
	Admitted     int    `json:"admitted"`
	Enrolled     int    `json:"enrolled"`
}

// YearTotal is the sum of one measure for one year.
type YearTotal struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// YearMean holds the population mean of each requested measure for one
// year. Count is the number of rows averaged and is always positive.
type YearMean struct {
	Year   int                 `json:"year"`
	Count  int                 `json:"count"`
	Values map[Measure]float64 `json:"values"`
}

// Mean returns the mean of m, or 0 when m was not requested.
func (y YearMean) Mean(m Measure) float64 {
	return y.Values[m]
}

// DepartmentTotal is the enrollment of one department.
type DepartmentTotal struct {
	Department string `json:"department"`
	Enrolled   int    `json:"enrolled"`
}

// Departments lists the fixed department order.
var Departments = []struct {
	Name    string
	Measure Measure
}{
	{"Engineering", EngineeringEnrolled},
	{"Business", BusinessEnrolled},
	{"Arts", ArtsEnrolled},
	{"Science", ScienceEnrolled},
}

// GroupByTermSum partitions by Term and sums Applications, Admitted and
// Enrolled per partition. Terms are emitted in ascending order.
func GroupByTermSum(t *dataset.Table) []TermKPI {
	byTerm := make(map[string]*TermKPI)
	t.Each(func(r dataset.Record) {
		k, ok := byTerm[r.Term]
		if !ok {
			k = &TermKPI{Term: r.Term}
			byTerm[r.Term] = k
		}
		k.Applications += r.Applications
		k.Admitted += r.Admitted
		k.Enrolled += r.Enrolled
	})

	out := make([]TermKPI, 0, len(byTerm))
	for _, k := range byTerm {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}

// GroupByYearSum partitions by Year and sums m per partition. Years are
// emitted in ascending order.
func GroupByYearSum(t *dataset.Table, m Measure) []YearTotal {
	sums := make(map[int]float64)
	t.Each(func(r dataset.Record) {
		sums[r.Year] += m.Value(r)
	})

	out := make([]YearTotal, 0, len(sums))
	for year, v := range sums {
		out = append(out, YearTotal{Year: year, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// GroupByYearMean partitions by Year and computes the population mean of
// every measure per partition. Only years with at least one row appear, so
// a mean over zero rows is never produced.
func GroupByYearMean(t *dataset.Table, measures ...Measure) []YearMean {
	type acc struct {
		count int
		sums  []float64
	}
	groups := make(map[int]*acc)
	t.Each(func(r dataset.Record) {
		a, ok := groups[r.Year]
		if !ok {
			a = &acc{sums: make([]float64, len(measures))}
			groups[r.Year] = a
		}
		a.count++
		for i, m := range measures {
			a.sums[i] += m.Value(r)
		}
	})

	out := make([]YearMean, 0, len(groups))
	for year, a := range groups {
		values := make(map[Measure]float64, len(measures))
		for i, m := range measures {
			values[m] = a.sums[i] / float64(a.count)
		}
		out = append(out, YearMean{Year: year, Count: a.count, Values: values})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// DepartmentTotals sums the four department enrollment columns. The result
// always has four rows in Departments order.
func DepartmentTotals(t *dataset.Table) []DepartmentTotal {
	out := make([]DepartmentTotal, len(Departments))
	for i, d := range Departments {
		out[i] = DepartmentTotal{Department: d.Name, Enrolled: int(Sum(t, d.Measure))}
	}
	return out
}

// Sum totals m over every row.
func Sum(t *dataset.Table, m Measure) float64 {
	var total float64
	t.Each(func(r dataset.Record) {
		total += m.Value(r)
	})
	return total
}

// YearOptions returns the year selector values: All, then every distinct
// year ascending.
func YearOptions(t *dataset.Table) []string {
	years := t.Years()
	out := make([]string, 0, len(years)+1)
	out = append(out, All)
	for _, y := range years {
		out = append(out, strconv.Itoa(y))
	}
	return out
}

// TermOptions returns the term selector values: All, then every distinct
// term ascending. A stored term spelled like the sentinel is not offered
// separately since ParseTerm would read it back as All.
func TermOptions(t *dataset.Table) []string {
	out := []string{All}
	for _, term := range t.Terms() {
		if ParseTerm(term).IsAll() {
			continue
		}
		out = append(out, term)
	}
	return out
}
