// Package container builds the shared application components once at startup
// and hands them to the router and entrypoints explicitly. Optional backends
// (Postgres, Redis, GCS, RabbitMQ, Elasticsearch) stay nil when unavailable;
// consumers nil-guard.
package container

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/shoplytics/shoplytics/config"
	"github.com/shoplytics/shoplytics/internal/application"
	"github.com/shoplytics/shoplytics/internal/domain/repository"
	"github.com/shoplytics/shoplytics/internal/infrastructure/postgres"
	"github.com/shoplytics/shoplytics/internal/infrastructure/userfile"
	"github.com/shoplytics/shoplytics/internal/pipeline"
	"github.com/shoplytics/shoplytics/pkg/helpers"
)

// Container holds every constructed component for one process.
type Container struct {
	Cfg    *config.Config
	Logger *logrus.Logger

	Repo   repository.UserRepository
	PGPool *pgxpool.Pool
	Redis  *redis.Client
	GCS    *storage.Client
	ES     *elasticsearch.Client
	JWT    *helpers.JWTManager
	Rabbit *helpers.RabbitPublisher

	Service *application.Service
	Runner  *pipeline.Runner
}

// Build wires the user store, credential service and pipeline runner from
// config. Failures on required components (the user store itself) return an
// error; optional backends log and stay nil.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{
		Cfg:    cfg,
		Logger: logger,
		JWT:    helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
	}

	switch cfg.StoreDriver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, err
		}
		c.PGPool = pool
		c.Repo = postgres.NewUserRepository(pool)
	default:
		store, err := userfile.NewStore(cfg.UsersFilePath)
		if err != nil {
			return nil, err
		}
		c.Repo = store
	}

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable, sessions and rate limits disabled")
		c.Redis = nil
	}

	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("gcs unavailable, output archival disabled")
		} else {
			c.GCS = gcs
		}
	}

	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, reset emails disabled")
		} else {
			c.Rabbit = pub
		}
	}

	if len(cfg.ESAddrs()) > 0 {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch unavailable, user search disabled")
		} else {
			c.ES = es
		}
	}

	var tokens application.TokenStore
	if c.Redis != nil {
		tokens = application.NewRedisTokenStore(c.Redis)
	} else {
		tokens = application.NewMemoryTokenStore()
	}

	var mail application.EmailPublisher
	if c.Rabbit != nil {
		mail = c.Rabbit
	}

	c.Service = &application.Service{
		Repo:             c.Repo,
		JWT:              c.JWT,
		Tokens:           tokens,
		Mail:             mail,
		Redis:            c.Redis,
		Logger:           logger,
		ES:               c.ES,
		ESUsersIndex:     cfg.ESUsersIndex,
		BcryptCost:       cfg.BcryptCost,
		ResetPasswordURL: cfg.ResetPasswordURL,
		ResetTokenTTL:    cfg.ResetTokenTTL,
		MailSendEnabled:  cfg.MailSendEnabled,
	}

	c.Runner = pipeline.NewRunner(pipeline.Config{
		RawPath:       cfg.RawDatasetPath,
		CleanedPath:   cfg.CleanedCSVPath,
		ProcessedPath: cfg.ProcessedCSVPath,
		GCS:           c.GCS,
		GCSBucket:     cfg.GCSBucket,
	}, logger)

	return c, nil
}

// Close releases held connections.
func (c *Container) Close() {
	if c.Rabbit != nil {
		c.Rabbit.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
	if c.GCS != nil {
		_ = c.GCS.Close()
	}
}
