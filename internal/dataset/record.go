package dataset

import "sort"

// Canonical column names after normalisation.
const (
	ColYear                = "Year"
	ColTerm                = "Term"
	ColApplications        = "Applications"
	ColAdmitted            = "Admitted"
	ColEnrolled            = "Enrolled"
	ColEngineeringEnrolled = "Engineering_Enrolled"
	ColBusinessEnrolled    = "Business_Enrolled"
	ColArtsEnrolled        = "Arts_Enrolled"
	ColScienceEnrolled     = "Science_Enrolled"
	ColRetentionRate       = "Retention_Rate"
	ColStudentSatisfaction = "Student_Satisfaction"
)

// RequiredColumns lists every column a source must provide.
var RequiredColumns = []string{
	ColYear, ColTerm, ColApplications, ColAdmitted, ColEnrolled,
	ColEngineeringEnrolled, ColBusinessEnrolled, ColArtsEnrolled, ColScienceEnrolled,
	ColRetentionRate, ColStudentSatisfaction,
}

// Record is one row of the admissions table. RetentionRate and
// StudentSatisfaction are fractions in [0,1].
type Record struct {
	Year                int     `json:"Year"`
	Term                string  `json:"Term"`
	Applications        int     `json:"Applications"`
	Admitted            int     `json:"Admitted"`
	Enrolled            int     `json:"Enrolled"`
	EngineeringEnrolled int     `json:"Engineering_Enrolled"`
	BusinessEnrolled    int     `json:"Business_Enrolled"`
	ArtsEnrolled        int     `json:"Arts_Enrolled"`
	ScienceEnrolled     int     `json:"Science_Enrolled"`
	RetentionRate       float64 `json:"Retention_Rate"`
	StudentSatisfaction float64 `json:"Student_Satisfaction"`
}

// Table is an immutable, ordered set of records. The zero value is an empty
// table. Every method is safe for concurrent use.
type Table struct {
	records []Record
}

// NewTable copies records into a new Table.
func NewTable(records []Record) *Table {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Table{records: cp}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Records returns a copy of the records in source order.
func (t *Table) Records() []Record {
	if t == nil {
		return []Record{}
	}
	cp := make([]Record, len(t.records))
	copy(cp, t.records)
	return cp
}

// At returns the record at index i.
func (t *Table) At(i int) Record {
	return t.records[i]
}

// Each calls fn for every record in source order.
func (t *Table) Each(fn func(Record)) {
	if t == nil {
		return
	}
	for _, r := range t.records {
		fn(r)
	}
}

// Where returns a new table holding the records for which keep is true.
// The receiver is never modified.
func (t *Table) Where(keep func(Record) bool) *Table {
	out := &Table{records: make([]Record, 0, t.Len())}
	t.Each(func(r Record) {
		if keep(r) {
			out.records = append(out.records, r)
		}
	})
	return out
}

// Years returns the distinct years in ascending order.
func (t *Table) Years() []int {
	seen := make(map[int]struct{})
	years := []int{}
	t.Each(func(r Record) {
		if _, ok := seen[r.Year]; !ok {
			seen[r.Year] = struct{}{}
			years = append(years, r.Year)
		}
	})
	sort.Ints(years)
	return years
}

// Terms returns the distinct terms in ascending order.
func (t *Table) Terms() []string {
	seen := make(map[string]struct{})
	terms := []string{}
	t.Each(func(r Record) {
		if _, ok := seen[r.Term]; !ok {
			seen[r.Term] = struct{}{}
			terms = append(terms, r.Term)
		}
	})
	sort.Strings(terms)
	return terms
}
