package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "unidash/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// percentScale converts stored percentages into fractions.
const percentScale = 100.0

type loadOptions struct {
	delimiter rune
	sheet     string
	logger    *slog.Logger
}

// Option configures Load and Parse.
type Option func(*loadOptions)

// WithDelimiter sets the field delimiter for delimited sources.
func WithDelimiter(r rune) Option {
	return func(o *loadOptions) { o.delimiter = r }
}

// WithSheet selects a workbook sheet by name. The first sheet is used when
// unset.
func WithSheet(name string) Option {
	return func(o *loadOptions) { o.sheet = name }
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *loadOptions) { o.logger = l }
}

func buildOptions(path string, opts []Option) *loadOptions {
	o := &loadOptions{logger: slog.Default()}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		o.delimiter = '\t'
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.delimiter == 0 {
		o.delimiter = ','
	}
	return o
}

// IsWorkbook reports whether path names an Excel workbook.
func IsWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return true
	}
	return false
}

// Load reads the dataset at path. A missing or unreadable file yields a
// STORAGE error; malformed content yields a PARSING error. No partial table
// is returned on failure.
func Load(ctx context.Context, path string, opts ...Option) (*Table, error) {
	o := buildOptions(path, opts)

	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewStorageError("dataset not accessible", err).WithContext("path", path)
	}

	var (
		table *Table
		err   error
	)
	if IsWorkbook(path) {
		table, err = loadWorkbook(ctx, path, o)
	} else {
		table, err = loadDelimited(ctx, path, o)
	}
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "Dataset loaded",
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.Any("years", table.Years()),
		slog.Any("terms", table.Terms()))

	return table, nil
}

func loadDelimited(ctx context.Context, path string, o *loadOptions) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open dataset", err).WithContext("path", path)
	}
	defer file.Close()

	return parse(ctx, file, o)
}

// Parse reads a delimited dataset from r.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (*Table, error) {
	return parse(ctx, r, buildOptions("", opts))
}

func parse(ctx context.Context, r io.Reader, o *loadOptions) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = o.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewParsingError("dataset is empty", nil)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read header", err)
	}

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read row", err)
		}
		rows = append(rows, record)
	}

	return buildTable(header, rows)
}

func loadWorkbook(ctx context.Context, path string, o *loadOptions) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheet := o.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil).WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %q is empty", sheet), nil)
	}

	o.logger.DebugContext(ctx, "Reading workbook sheet",
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	return buildTable(rows[0], rows[1:])
}

// buildTable maps the normalised header onto the required columns and
// converts every non-blank row.
func buildTable(rawHeader []string, rows [][]string) (*Table, error) {
	header := NormalizeColumns(rawHeader)

	index := make(map[string]int, len(RequiredColumns))
	for _, want := range RequiredColumns {
		index[want] = -1
		for i, got := range header {
			if strings.EqualFold(got, want) {
				index[want] = i
				break
			}
		}
	}

	var missing []string
	for _, want := range RequiredColumns {
		if index[want] < 0 {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil).
			WithContext("header", header)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		rec, err := parseRecord(row, index)
		if err != nil {
			// +2: one for the header, one for 1-based line numbers
			return nil, apperrors.NewParsingError(fmt.Sprintf("invalid row %d", i+2), err).
				WithContext("row", i+2)
		}
		records = append(records, rec)
	}

	return &Table{records: records}, nil
}

func parseRecord(row []string, index map[string]int) (Record, error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		rec  Record
		errs []error
	)
	count := func(col string) int {
		v, err := parseCount(cell(col))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", col, err))
		}
		return v
	}
	rate := func(col string) float64 {
		v, err := strconv.ParseFloat(cell(col), 64)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", col, err))
		case math.IsNaN(v) || math.IsInf(v, 0):
			errs = append(errs, fmt.Errorf("%s: not a finite number: %q", col, cell(col)))
		}
		return v / percentScale
	}

	rec.Year = count(ColYear)
	rec.Term = cell(ColTerm)
	if rec.Term == "" {
		errs = append(errs, fmt.Errorf("%s: empty value", ColTerm))
	}
	rec.Applications = count(ColApplications)
	rec.Admitted = count(ColAdmitted)
	rec.Enrolled = count(ColEnrolled)
	rec.EngineeringEnrolled = count(ColEngineeringEnrolled)
	rec.BusinessEnrolled = count(ColBusinessEnrolled)
	rec.ArtsEnrolled = count(ColArtsEnrolled)
	rec.ScienceEnrolled = count(ColScienceEnrolled)
	rec.RetentionRate = rate(ColRetentionRate)
	rec.StudentSatisfaction = rate(ColStudentSatisfaction)

	return rec, errors.Join(errs...)
}

// parseCount accepts integers, including integral floats such as "120.0"
// that spreadsheet exports commonly produce.
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	// float64(math.MaxInt) rounds up to 2^63, so the upper bound is exclusive
	if f < math.MinInt || f >= math.MaxInt {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return int(f), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
