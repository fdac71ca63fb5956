package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surveyDataset() *Dataset {
	ds := &Dataset{
		Columns: []string{"Q2_GENDER", "Q3_SCHOOL", "SC1", "COMMENT"},
		Rows: [][]string{
			{"0", "1", "4", "great"},
			{"1", "2", "5", "ok"},
			{"0", "1", "4", "great"}, // duplicate of row 0
			{"1", "NA", "3", "fine"},
			{"0", "2", "", "meh"},
		},
	}
	ds.InferTypes()
	return ds
}

func TestInferTypes(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"num", "cat", "txt", "empty"},
		Rows: [][]string{
			{"1", "yes", "the quick brown fox", ""},
			{"2.5", "no", "jumps over the lazy dog", "NA"},
			{"3", "yes", "survey feedback text one", "null"},
			{"4", "maybe", "survey feedback text two", "n/a"},
			{"", "no", "survey feedback text three", "NaN"},
			{"6", "yes", "survey feedback text four", ""},
			{"7", "no", "survey feedback text five", ""},
			{"8", "yes", "survey feedback text six", ""},
			{"9", "no", "survey feedback text seven", ""},
			{"10", "yes", "survey feedback text eight", ""},
			{"11", "no", "survey feedback text nine", ""},
			{"12", "yes", "survey feedback text ten", ""},
			{"13", "no", "survey feedback text eleven", ""},
			{"14", "yes", "survey feedback text twelve", ""},
		},
	}
	ds.InferTypes()
	assert.Equal(t, []ColumnType{Numeric, Categorical, Text, Text}, ds.Types)
}

func TestIsMissing(t *testing.T) {
	for _, tok := range []string{"", "NA", "na", "N/A", "null", "NaN", "  nan "} {
		assert.True(t, IsMissing(tok), tok)
	}
	for _, tok := range []string{"0", "none", "-", "5"} {
		assert.False(t, IsMissing(tok), tok)
	}
}

func TestCleanDedupeAndImpute(t *testing.T) {
	ds := surveyDataset()
	cleaned := Clean(ds)

	// One exact duplicate removed, nothing else dropped.
	assert.Len(t, cleaned.Rows, 4)
	assert.Equal(t, 0, duplicateRowCount(cleaned.Rows))

	for _, row := range cleaned.Rows {
		for _, cell := range row {
			assert.False(t, IsMissing(cell), "no missing values remain")
		}
	}

	// Missing Q3_SCHOOL imputed with the median of {1,2,1,2}.
	school := cleaned.ColumnIndex("Q3_SCHOOL")
	assert.Equal(t, "1.5", cleaned.Rows[2][school])
	// Missing SC1 imputed with the median of {4,5,3}.
	sc1 := cleaned.ColumnIndex("SC1")
	assert.Equal(t, "4", cleaned.Rows[3][sc1])

	// Input untouched.
	assert.Len(t, ds.Rows, 5)
	assert.Equal(t, "NA", ds.Rows[3][1])
}

func TestCleanIdempotent(t *testing.T) {
	ds := surveyDataset()
	once := Clean(ds)
	twice := Clean(once)
	assert.Equal(t, once, twice)
}

func TestCleanDropsOutOfRangeRows(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"Q3_SCHOOL", "SC1"},
		Rows: [][]string{
			{"8", "5"},  // school bound is 8, kept
			{"9", "3"},  // above the school bound
			{"2", "6"},  // above the default bound
			{"1", "-1"}, // negative
			{"3", "2"},
		},
	}
	ds.InferTypes()
	cleaned := Clean(ds)
	require.Len(t, cleaned.Rows, 2)
	assert.Equal(t, "8", cleaned.Rows[0][0])
	assert.Equal(t, "3", cleaned.Rows[1][0])

	custom := CleanWithBounds(ds, map[string]float64{"SC1": 6})
	assert.Len(t, custom.Rows, 3)
}

func TestCleanDropsRowsWithMissingText(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"SC1", "COMMENT"},
		Types:   []ColumnType{Numeric, Text},
		Rows: [][]string{
			{"1", "kept"},
			{"2", ""},
			{"3", "also kept"},
		},
	}
	cleaned := Clean(ds)
	require.Len(t, cleaned.Rows, 2)
	assert.Equal(t, "kept", cleaned.Rows[0][1])
	assert.Equal(t, "also kept", cleaned.Rows[1][1])
}

func TestSummarize(t *testing.T) {
	ds := surveyDataset()
	s := Summarize(ds)

	assert.Equal(t, 5, s.RowCount)
	assert.Equal(t, 4, s.ColumnCount)
	assert.Equal(t, 1, s.DuplicateRows)
	require.Len(t, s.Head, 3)
	require.Len(t, s.Columns, 4)

	gender := s.Columns[0]
	assert.Equal(t, "Q2_GENDER", gender.Name)
	assert.Equal(t, Numeric, gender.Type)
	assert.Equal(t, 0, gender.Missing)
	assert.Equal(t, 2, gender.Cardinality)
	require.True(t, gender.HasStats)
	assert.Equal(t, 0.0, gender.Min)
	assert.Equal(t, 1.0, gender.Max)
	assert.InDelta(t, 0.4, gender.Mean, 1e-9)
	assert.Equal(t, "0", gender.Mode)

	school := s.Columns[1]
	assert.Equal(t, 1, school.Missing)
	assert.InDelta(t, 20.0, school.MissingPct, 1e-9)
	assert.Equal(t, 4, school.Count)

	comment := s.Columns[3]
	assert.False(t, comment.HasStats)
	assert.Equal(t, "great", comment.Mode)
}

func TestSummarizeEntropy(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"flip"},
		Types:   []ColumnType{Categorical},
		Rows:    [][]string{{"h"}, {"t"}, {"h"}, {"t"}},
	}
	s := Summarize(ds)
	assert.InDelta(t, 1.0, s.Columns[0].Entropy, 1e-9, "a fair coin has one bit of entropy")
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, percentile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 2.5, percentile(sorted, 0.50), 1e-9)
	assert.InDelta(t, 3.25, percentile(sorted, 0.75), 1e-9)
	assert.Equal(t, 7.0, percentile([]float64{7}, 0.5))
}

func TestProcessDerivesLabels(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"Q2_GENDER", "Q4_INCOME", "SC1", "OIB3", "COMMENT"},
		Types:   []ColumnType{Numeric, Numeric, Numeric, Numeric, Text},
		Rows: [][]string{
			{"0", "1", "4", "5", "hello"},
			{"1", "4", "2", "9", "world"},
		},
	}
	out := Process(ds)

	assert.Equal(t, []string{
		"Q2_GENDER", "Q4_INCOME", "SC1", "OIB3", "COMMENT",
		"Q2_GENDER_LABEL", "Q4_INCOME_LABEL", "SC1_LABEL", "OIB3_LABEL",
	}, out.Columns)

	assert.Equal(t, []string{"0", "1", "4", "5", "hello",
		"Female", "Under 3 million", "Agree", "Very agree"}, out.Rows[0])
	// Unknown code passes through unchanged.
	assert.Equal(t, "9", out.Rows[1][8])

	// Pure: input shape unchanged.
	assert.Len(t, ds.Columns, 5)
	assert.Len(t, ds.Rows[0], 5)
}

func TestProcessMapsFloatCodes(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"Q2_GENDER"},
		Types:   []ColumnType{Numeric},
		Rows:    [][]string{{"1.0"}},
	}
	out := Process(ds)
	assert.Equal(t, "Male", out.Rows[0][1])
}

func TestPersistStableAndAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "cleaned_data.csv")
	ds := surveyDataset()

	require.NoError(t, Persist(ds, path))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, Persist(ds, path))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same input writes identical bytes")

	r := csv.NewReader(strings.NewReader(string(first)))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 6) // header + 5 rows

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.csv")
	content := "Q2_GENDER,SC1,COMMENT\n0,4,great\n1,5,ok\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q2_GENDER", "SC1", "COMMENT"}, ds.Columns)
	assert.Len(t, ds.Rows, 2)
	assert.Equal(t, Numeric, ds.Types[0])
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PipelineError")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("only,header\n"), 0o644))
	_, err = Load(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")

	_, err = Load(filepath.Join(dir, "raw.parquet"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported dataset format")
}
