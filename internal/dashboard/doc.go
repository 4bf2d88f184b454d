// Package dashboard assembles every display section for one selection.
//
// A selection resolves to one of four modes, and each mode fixes which
// filter (exact or cumulative) and which aggregation feed the retention
// charts:
//
//	year  term  mode                   retention charts
//	All   All   AllYearsAllTerms       lines: all terms, then one per term
//	Y     All   UpToYearAllTerms       grouped bars per term, Year <= Y
//	All   T     AllYearsSingleTerm     one line for T
//	Y     T     UpToYearSingleTerm     one grouped bar for T, Year <= Y
//
// KPIs are filtered by year only, enrollment uses every year up to the
// selection across all terms, and the department split uses the exact
// year and term.
package dashboard
