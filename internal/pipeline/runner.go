// Package pipeline drives the preprocessing stages over the raw survey file:
// load, summarize, clean, process, persist. A Runner executes one run at a
// time, in the background with cancellation, and exposes the last status and
// summary for the dashboard endpoints.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"

	"github.com/shoplytics/shoplytics/internal/dataset"
	"github.com/shoplytics/shoplytics/pkg/helpers"
)

// Stage names the last completed step of a run.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageRawLoaded  Stage = "raw_loaded"
	StageSummarized Stage = "summarized"
	StageCleaned    Stage = "cleaned"
	StageProcessed  Stage = "processed"
	StagePersisted  Stage = "persisted"
	StageFailed     Stage = "failed"
)

// Config fixes the input and output paths for a Runner. GCS is optional;
// when set, both output CSVs are archived to the bucket after a run.
type Config struct {
	RawPath       string
	CleanedPath   string
	ProcessedPath string
	Bounds        map[string]float64
	GCS           *storage.Client
	GCSBucket     string
}

// Status is a snapshot of the current or last run.
type Status struct {
	Stage      Stage     `json:"stage"`
	Running    bool      `json:"running"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
	RawRows    int       `json:"raw_rows,omitempty"`
	CleanRows  int       `json:"clean_rows,omitempty"`
}

// Runner owns all transformation state. At most one run is active; a second
// Start while running is rejected.
type Runner struct {
	cfg    Config
	logger *logrus.Logger

	mu      sync.Mutex
	status  Status
	cancel  context.CancelFunc
	summary *dataset.Summary
	cleaned *dataset.Dataset
}

func NewRunner(cfg Config, logger *logrus.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger, status: Status{Stage: StageIdle}}
}

// Status returns a copy of the current run state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Summary returns the summary computed by the last successful run, or nil.
func (r *Runner) Summary() *dataset.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Cleaned returns the cleaned dataset from the last successful run, or nil.
// Callers treat it as read-only.
func (r *Runner) Cleaned() *dataset.Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleaned
}

var errAlreadyRunning = &runError{"a pipeline run is already in progress"}

type runError struct{ msg string }

func (e *runError) Error() string { return e.msg }

// Start launches a run in the background. onDone, if non-nil, is invoked
// with the run's result once it finishes or is cancelled.
func (r *Runner) Start(ctx context.Context, onDone func(error)) error {
	r.mu.Lock()
	if r.status.Running {
		r.mu.Unlock()
		return errAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.status = Status{Stage: StageIdle, Running: true, StartedAt: time.Now().UTC()}
	r.mu.Unlock()

	go func() {
		err := r.run(runCtx)
		cancel()
		r.mu.Lock()
		r.status.Running = false
		r.status.FinishedAt = time.Now().UTC()
		if err != nil {
			r.status.Stage = StageFailed
			r.status.Error = err.Error()
		}
		r.mu.Unlock()
		if err != nil && r.logger != nil {
			r.logger.WithError(err).Error("pipeline run failed")
		}
		if onDone != nil {
			onDone(err)
		}
	}()
	return nil
}

// Cancel abandons the active run, if any. Outputs are written atomically per
// stage, so cancellation never leaves a partially written file.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil && r.status.Running {
		r.cancel()
	}
}

// Run executes the pipeline synchronously. Used by the CLI entrypoint; the
// HTTP surface goes through Start.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.status.Running {
		r.mu.Unlock()
		return errAlreadyRunning
	}
	r.status = Status{Stage: StageIdle, Running: true, StartedAt: time.Now().UTC()}
	r.mu.Unlock()

	err := r.run(ctx)
	r.mu.Lock()
	r.status.Running = false
	r.status.FinishedAt = time.Now().UTC()
	if err != nil {
		r.status.Stage = StageFailed
		r.status.Error = err.Error()
	}
	r.mu.Unlock()
	return err
}

func (r *Runner) setStage(stage Stage) {
	r.mu.Lock()
	r.status.Stage = stage
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context) error {
	raw, err := dataset.Load(r.cfg.RawPath)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.status.Stage = StageRawLoaded
	r.status.RawRows = len(raw.Rows)
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	summary := dataset.Summarize(raw)
	r.mu.Lock()
	r.summary = summary
	r.status.Stage = StageSummarized
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	cleaned := dataset.CleanWithBounds(raw, r.cfg.Bounds)
	r.mu.Lock()
	r.cleaned = cleaned
	r.status.Stage = StageCleaned
	r.status.CleanRows = len(cleaned.Rows)
	r.mu.Unlock()
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"raw_rows":   len(raw.Rows),
			"clean_rows": len(cleaned.Rows),
		}).Info("dataset cleaned")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	processed := dataset.Process(cleaned)
	r.setStage(StageProcessed)
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := dataset.Persist(cleaned, r.cfg.CleanedPath); err != nil {
		return err
	}
	if err := dataset.Persist(processed, r.cfg.ProcessedPath); err != nil {
		return err
	}
	r.setStage(StagePersisted)

	r.archiveOutputs(ctx)
	return nil
}

// archiveOutputs copies the two CSVs to GCS. Archival is best effort and
// never fails the run.
func (r *Runner) archiveOutputs(ctx context.Context) {
	if r.cfg.GCS == nil || r.cfg.GCSBucket == "" {
		return
	}
	stamp := time.Now().UTC().Format("20060102T150405Z")
	for _, path := range []string{r.cfg.CleanedPath, r.cfg.ProcessedPath} {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		object := filepath.ToSlash(filepath.Join("pipeline", stamp, filepath.Base(path)))
		if _, err := helpers.UploadObject(ctx, r.cfg.GCS, r.cfg.GCSBucket, object, "text/csv", f); err != nil && r.logger != nil {
			r.logger.WithError(err).WithField("object", object).Warn("gcs archive failed")
		}
		_ = f.Close()
	}
}
