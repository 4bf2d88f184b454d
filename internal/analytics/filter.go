package analytics

import "unidash/internal/dataset"

// ExactFilter keeps rows whose Year equals the selected year and whose Term
// equals the selected term. An All filter places no restriction; with both
// set to All the input table itself is returned.
func ExactFilter(t *dataset.Table, year YearFilter, term TermFilter) *dataset.Table {
	if year.IsAll() && term.IsAll() {
		return t
	}
	y, hasYear := year.Value()
	tm, hasTerm := term.Value()
	return t.Where(func(r dataset.Record) bool {
		if hasYear && r.Year != y {
			return false
		}
		if hasTerm && r.Term != tm {
			return false
		}
		return true
	})
}

// CumulativeFilter keeps rows with Year up to and including the selected
// year and, independently, Term equal to the selected term. With year All no
// upper bound is applied.
func CumulativeFilter(t *dataset.Table, year YearFilter, term TermFilter) *dataset.Table {
	if year.IsAll() && term.IsAll() {
		return t
	}
	y, hasYear := year.Value()
	tm, hasTerm := term.Value()
	return t.Where(func(r dataset.Record) bool {
		if hasYear && r.Year > y {
			return false
		}
		if hasTerm && r.Term != tm {
			return false
		}
		return true
	})
}
