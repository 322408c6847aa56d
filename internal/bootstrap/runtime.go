// Package bootstrap opens the runtime dependencies shared by the server and the
// maintenance commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"campusfeed/internal/cache"
	"campusfeed/internal/config"
	"campusfeed/internal/database"
	"campusfeed/internal/middleware"
	"campusfeed/internal/models"
	"campusfeed/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Redis connects to REDIS_URL. An unreachable Redis is logged and left nil.
	Redis bool
	// SeedDemo fills an empty development database with demo data.
	SeedDemo bool
}

// Runtime holds opened connections. Redis may be nil.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// Close releases every connection.
func (r *Runtime) Close() error {
	var err error
	if r.Redis != nil {
		err = r.Redis.Close()
	}
	if dbErr := database.Close(r.DB); dbErr != nil {
		err = dbErr
	}
	return err
}

// InitRuntime connects to the database and, when asked, Redis and demo seeding.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db}

	if opts.Redis {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "redis unavailable, continuing without cache and realtime push",
				slog.String("error", err.Error()))
		} else {
			rt.Redis = rdb
		}
	}

	if opts.SeedDemo {
		if err := EnsureDemoData(ctx, cfg, db); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return rt, nil
}

// EnsureDemoData seeds a development database that has no users yet. It is a no-op
// anywhere else, and never touches a database that already has accounts.
func EnsureDemoData(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || cfg.Env != "development" {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.ShouldClean = false
	summary, err := seed.Seed(ctx, db, opts)
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "seeded empty development database",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.String("password", seed.DefaultPassword),
	)
	return nil
}
