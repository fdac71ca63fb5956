package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/shoplytics/shoplytics/config"
	"github.com/shoplytics/shoplytics/internal/application"
	"github.com/shoplytics/shoplytics/internal/apperrors"
	"github.com/shoplytics/shoplytics/internal/container"
	"github.com/shoplytics/shoplytics/pkg/helpers"
	"github.com/shoplytics/shoplytics/pkg/validation"
)

// Seeds demo accounts into whichever user store the config selects, so a
// fresh checkout has something to log in with.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	validation.Init()

	ctx := context.Background()
	c, err := container.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("container build failed: %v", err)
	}
	defer c.Close()

	demos := []application.RegisterInput{
		{Username: "demo_user", Email: "demo@shoplytics.dev", Password: "Demo1234!", ConfirmPassword: "Demo1234!"},
		{Username: "analyst_01", Email: "analyst@shoplytics.dev", Password: "Analyst1!", ConfirmPassword: "Analyst1!"},
	}

	for _, in := range demos {
		u, err := c.Service.Register(ctx, in)
		if err != nil {
			if apperrors.IsKind(err, apperrors.KindValidation) {
				logger.Infof("skipping %s: %v", in.Username, err)
				continue
			}
			log.Fatalf("failed to seed %s: %v", in.Username, err)
		}
		fmt.Printf("seeded user: username=%s email=%s password=%s\n", u.Username, u.Email, in.Password)
	}
}
