package table

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrColumnNotFound is returned when a selector matches no header and is not
// a valid column index.
var ErrColumnNotFound = errors.New("column not found")

// ErrEmptyTable is returned for a source with a header but no data rows.
var ErrEmptyTable = errors.New("table has no data rows")

// Table is a rectangular set of string cells under a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// ErrExtraCells is returned for a data row with non-empty cells beyond the
// last header column.
var ErrExtraCells = errors.New("row has more cells than the header")

// New builds a Table, padding short rows with empty cells and dropping empty
// cells past the last header column. Rows that still hold extra cells are
// kept as they are; readers reject them through fromRecords.
func New(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, fitRow(r, len(header)))
	}
	return t
}

// fromRecords builds a Table from rows read off disk and rejects rows with
// data beyond the header, since appended result columns would not line up.
func fromRecords(header []string, rows [][]string) (*Table, error) {
	t := New(header, rows)
	for i, row := range t.Rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d",
				ErrExtraCells, i+1, len(row), len(header))
		}
	}
	return t, nil
}

func fitRow(r []string, width int) []string {
	for len(r) > width && strings.TrimSpace(r[len(r)-1]) == "" {
		r = r[:len(r)-1]
	}
	if len(r) < width {
		padded := make([]string, width)
		copy(padded, r)
		r = padded
	}
	return r
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// Index resolves a header name, or failing that a zero-based index, to a
// column position. Header names take precedence so a column literally named
// "0" is found by name.
func (t *Table) Index(key string) (int, error) {
	key = strings.TrimSpace(key)
	for i, h := range t.Header {
		if strings.TrimSpace(h) == key {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(t.Header) {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %q (have %s)", ErrColumnNotFound, key, strings.Join(t.Header, ", "))
}

// Floats parses column idx as float64 values.
func (t *Table) Floats(idx int) ([]float64, error) {
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		v, err := ParseNumber(row[idx])
		if err != nil {
			return nil, &CellError{Row: r, Column: t.Header[idx], Value: row[idx], Err: err}
		}
		out[r] = v
	}
	return out, nil
}

// AppendColumn adds a column of formatted values. values must have one entry
// per row.
func (t *Table) AppendColumn(name string, values []float64) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("append column %s: %d values for %d rows", name, len(values), len(t.Rows))
	}
	width := len(t.Header)
	t.Header = append(t.Header, name)
	for i, row := range t.Rows {
		if len(row) != width {
			resized := make([]string, width)
			copy(resized, row)
			row = resized
		}
		t.Rows[i] = append(row, strconv.FormatFloat(values[i], 'g', -1, 64))
	}
	return nil
}

// thousands matches a number whose integer part is grouped with commas,
// such as 1,234,567.5.
var thousands = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?([eE][+-]?\d+)?$`)

// ParseNumber parses a numeric cell. Surrounding whitespace is ignored, and
// commas are accepted only as thousands separators; a decimal comma such as
// "1,5" is rejected rather than read as 15.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty cell")
	}
	if strings.Contains(s, ",") {
		if !thousands.MatchString(s) {
			return 0, fmt.Errorf("ambiguous comma in %q", s)
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	return strconv.ParseFloat(s, 64)
}

// CellError reports a cell that could not be read as a number.
type CellError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d column %q: cannot parse %q as number: %v", e.Row+1, e.Column, e.Value, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }
