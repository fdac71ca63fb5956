package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplytics/shoplytics/internal/apperrors"
)

func writeRaw(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "impulse_buying_data.csv")
	content := "Q2_GENDER,Q3_SCHOOL,SC1\n" +
		"0,1,4\n" +
		"1,2,5\n" +
		"0,1,4\n" + // duplicate
		"1,NA,3\n" +
		"0,9,2\n" // Q3_SCHOOL above its bound
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		RawPath:       writeRaw(t, dir),
		CleanedPath:   filepath.Join(dir, "cleaned_data.csv"),
		ProcessedPath: filepath.Join(dir, "processed_data.csv"),
	}
	return NewRunner(cfg, nil), dir
}

func TestRunProducesBothOutputs(t *testing.T) {
	r, _ := newTestRunner(t)

	require.NoError(t, r.Run(context.Background()))

	st := r.Status()
	assert.Equal(t, StagePersisted, st.Stage)
	assert.False(t, st.Running)
	assert.Equal(t, 5, st.RawRows)
	assert.Equal(t, 3, st.CleanRows)
	assert.Empty(t, st.Error)

	cleaned, err := os.ReadFile(r.cfg.CleanedPath)
	require.NoError(t, err)
	assert.Contains(t, string(cleaned), "Q2_GENDER,Q3_SCHOOL,SC1")

	processed, err := os.ReadFile(r.cfg.ProcessedPath)
	require.NoError(t, err)
	assert.Contains(t, string(processed), "Q2_GENDER_LABEL")
	assert.Contains(t, string(processed), "Female")

	require.NotNil(t, r.Summary())
	assert.Equal(t, 5, r.Summary().RowCount)
	require.NotNil(t, r.Cleaned())
	assert.Len(t, r.Cleaned().Rows, 3)
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(Config{
		RawPath:       filepath.Join(dir, "absent.csv"),
		CleanedPath:   filepath.Join(dir, "cleaned_data.csv"),
		ProcessedPath: filepath.Join(dir, "processed_data.csv"),
	}, nil)

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPipeline))

	st := r.Status()
	assert.Equal(t, StageFailed, st.Stage)
	assert.NotEmpty(t, st.Error)

	// No stage completed, so no output was written.
	_, statErr := os.Stat(filepath.Join(dir, "cleaned_data.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStartRunsInBackground(t *testing.T) {
	r, _ := newTestRunner(t)

	done := make(chan error, 1)
	require.NoError(t, r.Start(context.Background(), func(err error) { done <- err }))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish")
	}
	assert.Equal(t, StagePersisted, r.Status().Stage)
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	r, _ := newTestRunner(t)

	started := make(chan error, 1)
	require.NoError(t, r.Start(context.Background(), func(err error) { started <- err }))
	// Second start must fail whether or not the first already finished;
	// only probe while it is still running.
	if r.Status().Running {
		assert.Error(t, r.Start(context.Background(), nil))
	}
	<-started
}

func TestCancelledContextAbortsRun(t *testing.T) {
	r, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StageFailed, r.Status().Stage)
}
