// Package dataset loads the admissions table and exposes it as an immutable
// Table of typed records.
//
// Loading normalises header names (punctuation removed, whitespace runs
// replaced by a single underscore), maps the required columns, and rescales
// Retention_Rate and Student_Satisfaction from percentages to fractions.
// The rescale happens exactly once, here; nothing downstream divides again.
//
// Delimited text (.csv, .tsv, .txt) and Excel workbooks (.xlsx) are
// supported:
//
//	table, err := dataset.Load(ctx, "university_student_dashboard_data.csv")
//	if err != nil {
//	    return err // fatal: no partial table is ever returned
//	}
package dataset
