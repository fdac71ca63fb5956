package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shoplytics/shoplytics/internal/pipeline"
	"github.com/shoplytics/shoplytics/pkg/response"
)

// DatasetHandler serves the dashboard endpoints over the preprocessing
// pipeline: summary, preview, grouped chart data and run control.
type DatasetHandler struct {
	Runner *pipeline.Runner
	Logger *logrus.Logger
}

func NewDatasetHandler(runner *pipeline.Runner, logger *logrus.Logger) *DatasetHandler {
	return &DatasetHandler{Runner: runner, Logger: logger}
}

// Run POST /api/dataset/pipeline/run launches a background run.
func (h *DatasetHandler) Run(c *gin.Context) {
	// Detached from the request context so the run outlives the HTTP call.
	if err := h.Runner.Start(context.Background(), nil); err != nil {
		response.Error[any](c, http.StatusConflict, err.Error(), nil)
		return
	}
	response.Success[any](c, http.StatusAccepted, gin.H{"started": true}, "pipeline started", nil)
}

// Status GET /api/dataset/pipeline/status
func (h *DatasetHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.Runner.Status(), "pipeline status", nil)
}

// Cancel POST /api/dataset/pipeline/cancel
func (h *DatasetHandler) Cancel(c *gin.Context) {
	h.Runner.Cancel()
	response.Success[any](c, http.StatusOK, gin.H{"cancelled": true}, "pipeline cancelled", nil)
}

// Summary GET /api/dataset/summary returns the last run's statistics.
func (h *DatasetHandler) Summary(c *gin.Context) {
	s := h.Runner.Summary()
	if s == nil {
		response.Error[any](c, http.StatusNotFound, "no pipeline run completed yet", nil)
		return
	}
	response.Success(c, http.StatusOK, s, "dataset summary", nil)
}

// Preview GET /api/dataset/preview?rows=10 returns the head of the cleaned
// table.
func (h *DatasetHandler) Preview(c *gin.Context) {
	ds := h.Runner.Cleaned()
	if ds == nil {
		response.Error[any](c, http.StatusNotFound, "no pipeline run completed yet", nil)
		return
	}
	n, _ := strconv.Atoi(c.DefaultQuery("rows", "10"))
	if n <= 0 || n > 100 {
		n = 10
	}
	if n > len(ds.Rows) {
		n = len(ds.Rows)
	}
	response.Success(c, http.StatusOK, gin.H{
		"columns": ds.Columns,
		"rows":    ds.Rows[:n],
	}, "dataset preview", map[string]any{"total_rows": len(ds.Rows)})
}

// ChartData GET /api/dataset/chart-data?column=SC1&gender=Male returns the
// value counts for one column, optionally filtered by gender, for the chart
// front end.
func (h *DatasetHandler) ChartData(c *gin.Context) {
	ds := h.Runner.Cleaned()
	if ds == nil {
		response.Error[any](c, http.StatusNotFound, "no pipeline run completed yet", nil)
		return
	}
	column := c.Query("column")
	col := ds.ColumnIndex(column)
	if col < 0 {
		response.Error[any](c, http.StatusBadRequest, "unknown column", gin.H{"column": column})
		return
	}

	genderFilter := c.Query("gender")
	genderCol := ds.ColumnIndex("Q2_GENDER")
	if genderFilter != "" && genderFilter != "Male" && genderFilter != "Female" {
		response.Error[any](c, http.StatusBadRequest, "gender must be Male or Female", nil)
		return
	}
	if genderFilter != "" && genderCol < 0 {
		response.Error[any](c, http.StatusBadRequest, "dataset has no gender column", nil)
		return
	}
	// The cleaned table stores gender as its numeric code.
	genderCode := map[string]string{"Female": "0", "Male": "1"}[genderFilter]

	counts := map[string]int{}
	total := 0
	for _, row := range ds.Rows {
		if genderFilter != "" && row[genderCol] != genderCode {
			continue
		}
		counts[row[col]]++
		total++
	}
	response.Success(c, http.StatusOK, gin.H{
		"column": column,
		"counts": counts,
	}, "chart data", map[string]any{"total": total, "gender": genderFilter})
}
