package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shoplytics/shoplytics/internal/apperrors"
)

// Load reads a raw tabular file into a Dataset and infers column types. The
// format is chosen by extension: .xlsx (the survey workbook as downloaded)
// or .csv. The first row is the header; an absent or unparsable file and a
// table with no data rows are pipeline errors.
func Load(path string) (*Dataset, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = loadXLSX(path)
	case ".csv":
		rows, err = loadCSV(path)
	default:
		return nil, apperrors.NewPipelineError(path, "Unsupported dataset format (expected .xlsx or .csv).", nil)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, apperrors.NewPipelineError(path, "Dataset contains no data rows.", nil)
	}

	header := rows[0]
	ds := &Dataset{Columns: make([]string, len(header))}
	for i, h := range header {
		ds.Columns[i] = strings.TrimSpace(h)
	}
	for _, raw := range rows[1:] {
		// Trailing empty cells are dropped by the xlsx reader; pad back out.
		row := make([]string, len(header))
		copy(row, raw)
		ds.Rows = append(ds.Rows, row)
	}
	ds.InferTypes()
	return ds, nil
}

func loadXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewPipelineError(path, "Failed to open the dataset workbook.", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewPipelineError(path, "Dataset workbook has no sheets.", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewPipelineError(path, "Failed to read the dataset sheet.", err)
	}
	return rows, nil
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewPipelineError(path, "Failed to open the dataset file.", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.NewPipelineError(path, "Failed to parse the dataset file.", err)
	}
	return rows, nil
}
