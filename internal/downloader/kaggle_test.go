package downloader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range entries {
		e, err := w.Create(name)
		require.NoError(t, err)
		_, err = e.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestUnzip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "archive.zip")
	writeZip(t, zipPath, map[string]string{
		"impulse_buying_data.xlsx": "workbook bytes",
		"docs/readme.txt":          "notes",
	})

	dest := filepath.Join(dir, "data")
	require.NoError(t, Unzip(zipPath, dest))

	got, err := os.ReadFile(filepath.Join(dest, "impulse_buying_data.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "workbook bytes", string(got))

	got, err = os.ReadFile(filepath.Join(dest, "docs", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "notes", string(got))

	_, err = os.Stat(zipPath)
	assert.True(t, os.IsNotExist(err), "archive is removed after extraction")
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{
		"../outside.txt": "nope",
	})

	err := Unzip(zipPath, filepath.Join(dir, "data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")
	_, statErr := os.Stat(filepath.Join(dir, "outside.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnzipMissingFile(t *testing.T) {
	err := Unzip(filepath.Join(t.TempDir(), "absent.zip"), t.TempDir())
	assert.Error(t, err)
}
