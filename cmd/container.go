// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis) and composes
// bounded-context containers. This is the only place that knows about ALL modules.
package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/flagforge/flagforge/pkg/config"
	"github.com/flagforge/flagforge/pkg/flags/flagsapi"
	"github.com/flagforge/flagforge/pkg/flags/flagsinfra"
	"github.com/flagforge/flagforge/pkg/iam/iamcontainer"
	"github.com/flagforge/flagforge/pkg/logx"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB    *sqlx.DB
	Redis *redis.Client

	// Bounded-context containers
	IAM *iamcontainer.Container

	// Public read surface
	FlagHandlers *flagsapi.FlagHandlers
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("initializing application container")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("database connected")

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("failed to connect to redis: %v", err)
	}
	logx.Info("redis connected")
}

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	c.IAM = iamcontainer.New(iamcontainer.Deps{
		DB:    c.DB,
		Redis: c.Redis,
		Cfg:   c.Config,
	})

	flagProvider := flagsinfra.NewPostgresFlagProvider(c.DB)
	c.FlagHandlers = flagsapi.NewFlagHandlers(flagProvider)
}

// Cleanup releases infrastructure handles on shutdown.
func (c *Container) Cleanup() {
	if c.IAM != nil && c.IAM.CleanupService != nil {
		c.IAM.CleanupService.Stop()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.WithError(err).Warn("redis close failed")
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.WithError(err).Warn("database close failed")
		}
	}
	logx.Info("application container cleaned up")
}
