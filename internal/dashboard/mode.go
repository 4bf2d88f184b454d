package dashboard

import (
	"fmt"

	"unidash/internal/analytics"
)

// Mode is one of the four fixed view combinations a selection resolves to.
type Mode int

const (
	AllYearsAllTerms Mode = iota
	UpToYearAllTerms
	AllYearsSingleTerm
	UpToYearSingleTerm
)

var modeNames = [...]string{
	AllYearsAllTerms:   "all_years_all_terms",
	UpToYearAllTerms:   "up_to_year_all_terms",
	AllYearsSingleTerm: "all_years_single_term",
	UpToYearSingleTerm: "up_to_year_single_term",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ResolveMode maps a selection onto its view combination.
func ResolveMode(sel analytics.Selection) Mode {
	switch yearAll, termAll := sel.Year.IsAll(), sel.Term.IsAll(); {
	case yearAll && termAll:
		return AllYearsAllTerms
	case !yearAll && termAll:
		return UpToYearAllTerms
	case yearAll && !termAll:
		return AllYearsSingleTerm
	default:
		return UpToYearSingleTerm
	}
}
