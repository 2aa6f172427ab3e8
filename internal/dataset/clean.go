package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingColumn reports an input header without one of RequiredColumns.
var ErrMissingColumn = errors.New("missing required column")

// Record is one subscriber after cleaning. Column names follow the renamed
// form: default, housing, loan and y become has_default, has_housing,
// has_loan and target.
type Record struct {
	// RowID is the 1-based data row number in the raw file.
	RowID      int
	Age        int
	Job        string
	Marital    string
	Education  string
	HasDefault bool
	Balance    int64
	HasHousing bool
	HasLoan    bool
	Target     bool
}

// CleanColumns is the projected column order of a cleaned record.
var CleanColumns = []string{
	"age", "job", "marital", "education", "has_default", "balance", "has_housing", "has_loan", "target",
}

// RowError is a fatal parse failure on one raw row.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: invalid value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Clean keeps subscribers only and projects the raw table into Records.
// Any malformed field aborts the whole run.
func Clean(t *RawTable) ([]Record, error) {
	idx := make(map[string]int, len(RequiredColumns))
	var missing []string
	for _, c := range RequiredColumns {
		i, ok := t.Column(c)
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[c] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	out := make([]Record, 0, len(t.Rows)/8)
	for n, row := range t.Rows {
		rowID := n + 1
		field := func(col string) string { return strings.TrimSpace(row[idx[col]]) }

		target, err := parseFlag(field(ColTarget))
		if err != nil {
			return nil, &RowError{Row: rowID, Column: ColTarget, Value: field(ColTarget), Err: err}
		}
		if !target {
			continue
		}
		rec := Record{
			RowID:     rowID,
			Job:       field(ColJob),
			Marital:   field(ColMarital),
			Education: field(ColEducation),
			Target:    true,
		}
		if rec.Age, err = strconv.Atoi(field(ColAge)); err != nil {
			return nil, &RowError{Row: rowID, Column: ColAge, Value: field(ColAge), Err: err}
		}
		if rec.Balance, err = strconv.ParseInt(field(ColBalance), 10, 64); err != nil {
			return nil, &RowError{Row: rowID, Column: ColBalance, Value: field(ColBalance), Err: err}
		}
		flags := []struct {
			col string
			dst *bool
		}{
			{ColDefault, &rec.HasDefault},
			{ColHousing, &rec.HasHousing},
			{ColLoan, &rec.HasLoan},
		}
		for _, f := range flags {
			v, err := parseFlag(field(f.col))
			if err != nil {
				return nil, &RowError{Row: rowID, Column: f.col, Value: field(f.col), Err: err}
			}
			*f.dst = v
		}
		out = append(out, rec)
	}
	return out, nil
}

var errNotBoolean = errors.New("expected yes/no")

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	}
	return false, errNotBoolean
}

// FormatFlag renders a parsed boolean the way the raw file spells it.
func FormatFlag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ParseFlag is the inverse of FormatFlag, also accepting true/false and 1/0.
func ParseFlag(s string) (bool, error) { return parseFlag(strings.TrimSpace(s)) }
