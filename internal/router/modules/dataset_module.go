package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/shoplytics/shoplytics/internal/interface/http"
	"github.com/shoplytics/shoplytics/internal/interface/middleware"
	"github.com/shoplytics/shoplytics/pkg/helpers"
)

// DatasetModule wires the dashboard endpoints over the preprocessing
// pipeline. Everything requires a session; run control gets a tighter limit
// than the read endpoints.
type DatasetModule struct {
	Handler *handlers.DatasetHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
}

func NewDatasetModule(h *handlers.DatasetHandler, jwt *helpers.JWTManager, rdb *redis.Client) *DatasetModule {
	return &DatasetModule{Handler: h, JWT: jwt, Redis: rdb}
}

func (m *DatasetModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/dataset")
	auth.Use(middleware.Auth(m.Redis, m.JWT))
	auth.Use(middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUsername(), nil))
	{
		auth.GET("/summary", m.Handler.Summary)
		auth.GET("/preview", m.Handler.Preview)
		auth.GET("/chart-data", m.Handler.ChartData)
		auth.GET("/pipeline/status", m.Handler.Status)

		runLimiter := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByUsername(), nil)
		auth.POST("/pipeline/run", runLimiter, m.Handler.Run)
		auth.POST("/pipeline/cancel", runLimiter, m.Handler.Cancel)
	}
}
