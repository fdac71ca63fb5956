package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/shoplytics/shoplytics/internal/interface/http"
	"github.com/shoplytics/shoplytics/internal/interface/middleware"
	"github.com/shoplytics/shoplytics/pkg/helpers"
)

type EmailModule struct {
	Handler *handlers.EmailHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
}

func NewEmailModule(h *handlers.EmailHandler, jwt *helpers.JWTManager, rdb *redis.Client) *EmailModule {
	return &EmailModule{Handler: h, JWT: jwt, Redis: rdb}
}

func (m *EmailModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Redis, m.JWT))
	auth.Use(
		middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByUsername(), nil),
	)
	{
		auth.POST("/email/send", m.Handler.Send)
	}
}
