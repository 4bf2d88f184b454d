package analytics

import (
	"fmt"
	"strconv"
	"strings"
)

// All is the selector label meaning "no restriction".
const All = "All"

// YearFilter is either All or one specific year. The zero value is All.
type YearFilter struct {
	year int
	set  bool
}

// AllYears returns the unrestricted year filter.
func AllYears() YearFilter { return YearFilter{} }

// Year returns a filter for one specific year.
func Year(y int) YearFilter { return YearFilter{year: y, set: true} }

// IsAll reports whether the filter places no restriction on Year.
func (f YearFilter) IsAll() bool { return !f.set }

// Value returns the selected year; ok is false for All.
func (f YearFilter) Value() (year int, ok bool) { return f.year, f.set }

func (f YearFilter) String() string {
	if !f.set {
		return All
	}
	return strconv.Itoa(f.year)
}

// MarshalText encodes the filter as "All" or the decimal year.
func (f YearFilter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts "All", an empty string, or a decimal year.
func (f *YearFilter) UnmarshalText(text []byte) error {
	parsed, err := ParseYear(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseYear parses a selector value. "" and "All" (any case) mean All.
func ParseYear(s string) (YearFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, All) {
		return AllYears(), nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return YearFilter{}, fmt.Errorf("invalid year %q: must be %q or a whole number", s, All)
	}
	return Year(y), nil
}

// TermFilter is either All or one specific term. The zero value is All.
type TermFilter struct {
	term string
	set  bool
}

// AllTerms returns the unrestricted term filter.
func AllTerms() TermFilter { return TermFilter{} }

// Term returns a filter for one specific term.
func Term(t string) TermFilter { return TermFilter{term: t, set: true} }

// IsAll reports whether the filter places no restriction on Term.
func (f TermFilter) IsAll() bool { return !f.set }

// Value returns the selected term; ok is false for All.
func (f TermFilter) Value() (term string, ok bool) { return f.term, f.set }

func (f TermFilter) String() string {
	if !f.set {
		return All
	}
	return f.term
}

// MarshalText encodes the filter as "All" or the term name.
func (f TermFilter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts "All", an empty string, or a term name.
func (f *TermFilter) UnmarshalText(text []byte) error {
	*f = ParseTerm(string(text))
	return nil
}

// ParseTerm parses a selector value. "" and "All" (any case) mean All.
func ParseTerm(s string) TermFilter {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, All) {
		return AllTerms()
	}
	return Term(s)
}

// Selection is the (year, term) pair chosen by the user. It is a value
// type and never changes during a render pass.
type Selection struct {
	Year YearFilter `json:"year"`
	Term TermFilter `json:"term"`
}

// ParseSelection parses raw selector values.
func ParseSelection(year, term string) (Selection, error) {
	y, err := ParseYear(year)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Year: y, Term: ParseTerm(term)}, nil
}

func (s Selection) String() string {
	return fmt.Sprintf("year=%s term=%s", s.Year, s.Term)
}
