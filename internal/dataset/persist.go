package dataset

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/shoplytics/shoplytics/internal/apperrors"
)

// Persist writes the dataset as CSV with the in-memory column and row order,
// so the same input yields byte-identical output. The file is written to a
// temp file and renamed into place, and only after the encode fully
// succeeded, so readers never observe a partial table.
func Persist(ds *Dataset, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ds.Columns); err != nil {
		return apperrors.NewPipelineError(path, "Failed to encode the dataset header.", err)
	}
	if err := w.WriteAll(ds.Rows); err != nil {
		return apperrors.NewPipelineError(path, "Failed to encode the dataset rows.", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.NewPipelineError(path, "Failed to encode the dataset.", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewPipelineError(path, "Failed to create the output directory.", err)
	}
	tmp, err := os.CreateTemp(dir, ".dataset-*.csv")
	if err != nil {
		return apperrors.NewPipelineError(path, "Failed to create a temporary output file.", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return apperrors.NewPipelineError(path, "Failed to write the dataset output.", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewPipelineError(path, "Failed to write the dataset output.", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return apperrors.NewPipelineError(path, "Failed to replace the output file.", err)
	}
	return nil
}
