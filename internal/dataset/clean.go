package dataset

import (
	"sort"
	"strings"
)

// Survey answers are bounded codes; anything outside [0, bound] is a data
// entry error, not a real response. Q3_SCHOOL has eight options, the rest of
// the numeric columns top out at 5.
const (
	defaultUpperBound = 5.0
	schoolColumn      = "Q3_SCHOOL"
	schoolUpperBound  = 8.0
)

// Clean applies the fixed cleaning sequence with the default outlier bounds.
func Clean(ds *Dataset) *Dataset {
	return CleanWithBounds(ds, nil)
}

// CleanWithBounds runs the deterministic cleaning sequence: coerce numeric
// cells to canonical form, impute missing values (numeric columns take the
// median, categorical the mode with a lexicographic tie-break, rows with
// missing text cells are dropped), drop exact duplicate rows, then drop rows
// whose numeric cells fall outside [0, upper bound]. bounds overrides the
// per-column upper bound; nil keeps the defaults. The input is not mutated
// and the sequence is idempotent.
func CleanWithBounds(ds *Dataset, bounds map[string]float64) *Dataset {
	out := ds.Clone()
	coerceNumeric(out)
	imputeMissing(out)
	dropMissingText(out)
	dropDuplicates(out)
	dropOutOfRange(out, bounds)
	return out
}

func coerceNumeric(ds *Dataset) {
	for col, typ := range ds.Types {
		if typ != Numeric {
			continue
		}
		for _, row := range ds.Rows {
			if IsMissing(row[col]) {
				continue
			}
			if v, ok := ParseNumeric(row[col]); ok {
				row[col] = FormatNumeric(v)
			}
		}
	}
}

// imputeMissing fills missing numeric cells with the column median and
// missing categorical cells with the column mode. Statistics come from the
// non-missing cells only, so a second pass sees no missing values and
// changes nothing.
func imputeMissing(ds *Dataset) {
	for col, typ := range ds.Types {
		switch typ {
		case Numeric:
			var values []float64
			for _, row := range ds.Rows {
				if v, ok := ParseNumeric(row[col]); ok && !IsMissing(row[col]) {
					values = append(values, v)
				}
			}
			if len(values) == 0 {
				continue
			}
			sort.Float64s(values)
			fill := FormatNumeric(percentile(values, 0.50))
			for _, row := range ds.Rows {
				if IsMissing(row[col]) {
					row[col] = fill
				}
			}
		case Categorical:
			counts := map[string]int{}
			for _, row := range ds.Rows {
				if !IsMissing(row[col]) {
					counts[row[col]]++
				}
			}
			fill := mode(counts)
			if fill == "" {
				continue
			}
			for _, row := range ds.Rows {
				if IsMissing(row[col]) {
					row[col] = fill
				}
			}
		}
	}
}

// dropMissingText removes rows that still have a missing cell after
// imputation, i.e. missing values in free-text columns.
func dropMissingText(ds *Dataset) {
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		complete := true
		for _, cell := range row {
			if IsMissing(cell) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		}
	}
	ds.Rows = kept
}

func rowKey(row []string) string {
	return strings.Join(row, "\x1f")
}

func dropDuplicates(ds *Dataset) {
	seen := map[string]struct{}{}
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		k := rowKey(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	ds.Rows = kept
}

func dropOutOfRange(ds *Dataset, bounds map[string]float64) {
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		ok := true
		for col, typ := range ds.Types {
			if typ != Numeric {
				continue
			}
			v, parsed := ParseNumeric(row[col])
			if !parsed {
				continue
			}
			if v < 0 || v > upperBound(ds.Columns[col], bounds) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, row)
		}
	}
	ds.Rows = kept
}

func upperBound(column string, bounds map[string]float64) float64 {
	if bounds != nil {
		if b, ok := bounds[column]; ok {
			return b
		}
	}
	if column == schoolColumn {
		return schoolUpperBound
	}
	return defaultUpperBound
}
