// Package dataset implements the in-memory tabular model and the
// deterministic transform chain for the impulse-buying survey: load,
// summarize, clean, process, persist. Cells are strings; column types are
// inferred once at load time and drive per-column cleaning policy.
package dataset

import (
	"strconv"
	"strings"
)

// ColumnType classifies a column for cleaning and statistics.
type ColumnType string

const (
	Numeric     ColumnType = "numeric"
	Categorical ColumnType = "categorical"
	Text        ColumnType = "text"
)

// Columns with at most this many distinct non-missing values are treated as
// categorical rather than free text. Survey answer scales are 1-8.
const categoricalCardinality = 12

// Dataset is a table of named columns over string cells. Rows all have
// len(Columns) cells; missing values are represented by recognized missing
// tokens (see IsMissing).
type Dataset struct {
	Columns []string
	Types   []ColumnType
	Rows    [][]string
}

var missingTokens = map[string]struct{}{
	"":    {},
	"na":  {},
	"n/a": {},
	"null": {},
	"nan": {},
}

// IsMissing reports whether a cell counts as a missing value.
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

// ParseNumeric parses a cell as a float. Surrounding whitespace is ignored.
func ParseNumeric(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	return v, err == nil
}

// FormatNumeric renders a float in the canonical cell form used after
// coercion, so "1", "1.0" and " 1" all normalize to the same bytes.
func FormatNumeric(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone deep-copies the dataset so transforms can stay pure.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Columns: append([]string(nil), d.Columns...),
		Types:   append([]ColumnType(nil), d.Types...),
		Rows:    make([][]string, len(d.Rows)),
	}
	for i, row := range d.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// InferTypes classifies each column from its non-missing cells: numeric when
// every value parses as a number, categorical when the distinct-value count
// stays small, text otherwise. Columns with no observed values default to
// text.
func (d *Dataset) InferTypes() {
	d.Types = make([]ColumnType, len(d.Columns))
	for col := range d.Columns {
		numeric := true
		distinct := map[string]struct{}{}
		seen := 0
		for _, row := range d.Rows {
			cell := row[col]
			if IsMissing(cell) {
				continue
			}
			seen++
			distinct[strings.TrimSpace(cell)] = struct{}{}
			if _, ok := ParseNumeric(cell); !ok {
				numeric = false
			}
		}
		switch {
		case seen == 0:
			d.Types[col] = Text
		case numeric:
			d.Types[col] = Numeric
		case len(distinct) <= categoricalCardinality:
			d.Types[col] = Categorical
		default:
			d.Types[col] = Text
		}
	}
}
