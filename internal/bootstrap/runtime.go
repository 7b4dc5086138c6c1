// Package bootstrap wires the process-wide runtime shared by the server and CLI tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"microblog/internal/auth"
	"microblog/internal/cache"
	"microblog/internal/config"
	"microblog/internal/database"
	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Seed fills an empty database with demo data.
	Seed bool
}

// InitRuntime connects to the database and Redis and optionally seeds demo data.
// A nil Redis client means the process runs without caching, rate limits or live feed.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.Seed {
		if err := seedIfEmpty(context.Background(), cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		middleware.Logger.Info("skipping seed, users already present", slog.Int64("users", users))
		return nil
	}

	_, err := seed.NewSeeder(db, seed.DefaultOptions(), auth.NewPasswordHasher(cfg.BcryptCost)).Run(ctx)
	return err
}
