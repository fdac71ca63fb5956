package router

import (
	"github.com/shoplytics/shoplytics/internal/application"
	"github.com/shoplytics/shoplytics/internal/container"
	handlers "github.com/shoplytics/shoplytics/internal/interface/http"
	"github.com/shoplytics/shoplytics/internal/router/modules"
)

// InitModules builds the handlers from the container and registers every
// feature module with the registry. Called once during startup.
func InitModules(r *Registry, c *container.Container) {
	authHandler := handlers.NewAuthHandler(c.Service, c.Logger)
	userHandler := handlers.NewUserHandler(c.Service, c.JWT, c.Logger, c.Cfg.CookieDomain, c.Cfg.CookieSecure)
	datasetHandler := handlers.NewDatasetHandler(c.Runner, c.Logger)
	var pub application.EmailPublisher
	if c.Rabbit != nil {
		pub = c.Rabbit
	}
	emailHandler := handlers.NewEmailHandler(pub, c.Logger, c.Cfg)

	r.Add(modules.NewAuthModule(authHandler, c.Redis))
	r.Add(modules.NewUserModule(userHandler, c.JWT, c.Redis))
	r.Add(modules.NewDatasetModule(datasetHandler, c.JWT, c.Redis))
	r.Add(modules.NewEmailModule(emailHandler, c.JWT, c.Redis))
	r.Add(modules.NewDebugModule(c.Redis))
}
