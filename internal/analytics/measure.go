package analytics

import (
	"fmt"
	"strings"

	"unidash/internal/dataset"
)

// Measure identifies a numeric column of a record.
type Measure int

const (
	Applications Measure = iota
	Admitted
	Enrolled
	EngineeringEnrolled
	BusinessEnrolled
	ArtsEnrolled
	ScienceEnrolled
	RetentionRate
	StudentSatisfaction
)

var measureColumns = [...]string{
	Applications:        dataset.ColApplications,
	Admitted:            dataset.ColAdmitted,
	Enrolled:            dataset.ColEnrolled,
	EngineeringEnrolled: dataset.ColEngineeringEnrolled,
	BusinessEnrolled:    dataset.ColBusinessEnrolled,
	ArtsEnrolled:        dataset.ColArtsEnrolled,
	ScienceEnrolled:     dataset.ColScienceEnrolled,
	RetentionRate:       dataset.ColRetentionRate,
	StudentSatisfaction: dataset.ColStudentSatisfaction,
}

// Column returns the canonical column name of the measure.
func (m Measure) Column() string {
	if m < 0 || int(m) >= len(measureColumns) {
		return fmt.Sprintf("Measure(%d)", int(m))
	}
	return measureColumns[m]
}

func (m Measure) String() string { return m.Column() }

// MarshalText encodes the measure as its column name, which also makes it
// usable as a JSON object key.
func (m Measure) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(measureColumns) {
		return nil, fmt.Errorf("unknown measure %d", int(m))
	}
	return []byte(m.Column()), nil
}

// UnmarshalText parses a column name.
func (m *Measure) UnmarshalText(text []byte) error {
	parsed, err := ParseMeasure(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMeasure resolves a column name, normalised and case-insensitive.
func ParseMeasure(name string) (Measure, error) {
	canonical := dataset.NormalizeColumn(name)
	for i, col := range measureColumns {
		if strings.EqualFold(col, canonical) {
			return Measure(i), nil
		}
	}
	return 0, fmt.Errorf("unknown measure %q", name)
}

// Value extracts the measure from a record.
func (m Measure) Value(r dataset.Record) float64 {
	switch m {
	case Applications:
		return float64(r.Applications)
	case Admitted:
		return float64(r.Admitted)
	case Enrolled:
		return float64(r.Enrolled)
	case EngineeringEnrolled:
		return float64(r.EngineeringEnrolled)
	case BusinessEnrolled:
		return float64(r.BusinessEnrolled)
	case ArtsEnrolled:
		return float64(r.ArtsEnrolled)
	case ScienceEnrolled:
		return float64(r.ScienceEnrolled)
	case RetentionRate:
		return r.RetentionRate
	case StudentSatisfaction:
		return r.StudentSatisfaction
	}
	return 0
}
