// Package dataset reads labeled training data from CSV.
//
// Cells are kept as strings; typed accessors decide per call whether a cell
// is missing. The set of missing-value spellings matches what common
// dataframe libraries treat as NA, so files exported from spreadsheets and
// notebooks load the same way.
package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// DefaultFormulaColumn is the column holding chemical formulas.
const DefaultFormulaColumn = "Component"

// ErrNoDataset is returned when no training data has been uploaded yet.
var ErrNoDataset = errors.New("dataset: no dataset available")

var naValues = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"-nan": {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
	"#N/A": {},
	"#NA":  {},
}

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(cell string) bool {
	_, ok := naValues[strings.TrimSpace(cell)]
	return ok
}

// Dataset is a parsed CSV table with a header row.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// Parse reads a CSV document whose first record is the header. Short rows
// are padded with missing cells; rows longer than the header are an error.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewValueError("dataset.Parse", "empty CSV document")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read CSV header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	d := &Dataset{
		columns: header,
		index:   make(map[string]int, len(header)),
	}
	for i, c := range header {
		if _, dup := d.index[c]; !dup {
			d.index[c] = i
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read CSV line %d", line)
		}
		if len(rec) > len(header) {
			return nil, errors.NewDimensionError("dataset.Parse", len(header), len(rec), 1)
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		d.rows = append(d.rows, rec)
	}
	return d, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte) (*Dataset, error) {
	return Parse(bytes.NewReader(b))
}

// Columns returns the header in declared order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.rows) }

// HasColumn reports whether name is a header entry.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// String returns the trimmed cell, or false when it is missing or the
// column does not exist.
func (d *Dataset) String(row int, column string) (string, bool) {
	j, ok := d.index[column]
	if !ok || row < 0 || row >= len(d.rows) {
		return "", false
	}
	cell := d.rows[row][j]
	if IsMissing(cell) {
		return "", false
	}
	return strings.TrimSpace(cell), true
}

// Float returns the cell as a number. The second result is false when the
// cell is missing; err is non-nil when the cell is present but not a finite
// number ("inf" and "NAN" parse, but are rejected).
func (d *Dataset) Float(row int, column string) (float64, bool, error) {
	s, ok := d.String(row, column)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "column %q row %d", column, row)
	}
	if err := errors.CheckScalar("dataset.Float", v); err != nil {
		return 0, false, errors.Wrapf(err, "column %q row %d", column, row)
	}
	return v, true, nil
}

// ResolveColumn maps a requested target key onto a column name. An exact
// match wins; otherwise the first whitespace-separated token of key is
// looked up as a substring of each column in declared order.
func ResolveColumn(columns []string, key string) (string, bool) {
	for _, c := range columns {
		if c == key {
			return c, true
		}
	}
	fields := strings.Fields(key)
	if len(fields) == 0 {
		return "", false
	}
	for _, c := range columns {
		if strings.Contains(c, fields[0]) {
			return c, true
		}
	}
	return "", false
}
