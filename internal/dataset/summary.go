package dataset

import (
	"math"
	"sort"
)

// ColumnSummary carries the per-column descriptive statistics. The numeric
// block (Min through IQR, Outliers) is only meaningful when Type == Numeric;
// HasStats marks that.
type ColumnSummary struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Count       int        `json:"count"`
	Missing     int        `json:"missing"`
	MissingPct  float64    `json:"missing_pct"`
	Cardinality int        `json:"cardinality"`
	Entropy     float64    `json:"entropy"`
	Mode        string     `json:"mode"`

	HasStats bool    `json:"has_stats"`
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Mean     float64 `json:"mean,omitempty"`
	Std      float64 `json:"std,omitempty"`
	Range    float64 `json:"range,omitempty"`
	Q1       float64 `json:"q1,omitempty"`
	Median   float64 `json:"median,omitempty"`
	Q3       float64 `json:"q3,omitempty"`
	IQR      float64 `json:"iqr,omitempty"`
	Outliers int     `json:"outliers,omitempty"`
}

// Summary describes the dataset shape without mutating it.
type Summary struct {
	RowCount      int             `json:"row_count"`
	ColumnCount   int             `json:"column_count"`
	DuplicateRows int             `json:"duplicate_rows"`
	Columns       []ColumnSummary `json:"columns"`
	Head          [][]string      `json:"head"`
}

const headPreviewRows = 3

// Summarize computes shape, missing-value counts, cardinality, entropy,
// mode and numeric descriptive statistics per column, plus a short head
// preview. Read-only.
func Summarize(ds *Dataset) *Summary {
	s := &Summary{
		RowCount:      len(ds.Rows),
		ColumnCount:   len(ds.Columns),
		DuplicateRows: duplicateRowCount(ds.Rows),
	}
	for i := 0; i < headPreviewRows && i < len(ds.Rows); i++ {
		s.Head = append(s.Head, append([]string(nil), ds.Rows[i]...))
	}

	for col, name := range ds.Columns {
		cs := ColumnSummary{Name: name, Type: ds.Types[col]}
		counts := map[string]int{}
		var values []float64
		for _, row := range ds.Rows {
			cell := row[col]
			if IsMissing(cell) {
				cs.Missing++
				continue
			}
			cs.Count++
			counts[cell]++
			if ds.Types[col] == Numeric {
				if v, ok := ParseNumeric(cell); ok {
					values = append(values, v)
				}
			}
		}
		if n := len(ds.Rows); n > 0 {
			cs.MissingPct = float64(cs.Missing) / float64(n) * 100
		}
		cs.Cardinality = len(counts)
		cs.Entropy = entropy(counts, cs.Count)
		cs.Mode = mode(counts)

		if len(values) > 0 {
			sort.Float64s(values)
			cs.HasStats = true
			cs.Min = values[0]
			cs.Max = values[len(values)-1]
			cs.Mean = mean(values)
			cs.Std = std(values, cs.Mean)
			cs.Range = cs.Max - cs.Min
			cs.Q1 = percentile(values, 0.25)
			cs.Median = percentile(values, 0.50)
			cs.Q3 = percentile(values, 0.75)
			cs.IQR = cs.Q3 - cs.Q1
			lo, hi := cs.Q1-1.5*cs.IQR, cs.Q3+1.5*cs.IQR
			for _, v := range values {
				if v < lo || v > hi {
					cs.Outliers++
				}
			}
		}
		s.Columns = append(s.Columns, cs)
	}
	return s
}

func duplicateRowCount(rows [][]string) int {
	seen := map[string]struct{}{}
	dups := 0
	for _, row := range rows {
		k := rowKey(row)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

func mean(sorted []float64) float64 {
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

// std is the sample standard deviation (n-1 denominator), matching the
// describe() convention. A single value yields 0.
func std(sorted []float64, m float64) float64 {
	if len(sorted) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range sorted {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(sorted)-1))
}

// percentile uses linear interpolation between closest ranks over a sorted
// slice, the same scheme describe() uses for quartiles.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// entropy is -sum(p*log2(p)) over the distribution of non-missing values.
func entropy(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	e := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		e -= p * math.Log2(p)
	}
	return e
}

// mode returns the most frequent non-missing value; ties break to the
// lexicographically smallest so the result is stable across runs.
func mode(counts map[string]int) string {
	best, bestCount := "", -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	if bestCount <= 0 {
		return ""
	}
	return best
}
