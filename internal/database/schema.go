package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"microblog/internal/config"
	"microblog/internal/middleware"
	"microblog/internal/models"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and which migrations are outstanding.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// PersistentModels lists the gorm models owned by the schema, parents before
// the tables that reference them.
func PersistentModels() []interface{} {
	return []interface{}{&models.User{}, &models.Post{}, &models.Comment{}, &models.Follow{}}
}

// schemaPlan is the resolved DB_SCHEMA_MODE for one environment.
type schemaPlan struct {
	mode   string
	sql    bool
	auto   bool
	unsafe bool // auto mode forced on in a production-like env
}

var prodLikeEnvs = map[string]bool{
	"production": true,
	"prod":       true,
	"staging":    true,
	"stage":      true,
}

// normalizedSchemaMode is DB_SCHEMA_MODE lowercased, hybrid when unset.
func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := normalizedSchemaMode(cfg)
	prodLike := prodLikeEnvs[strings.ToLower(strings.TrimSpace(cfg.Env))]

	p := schemaPlan{mode: mode}
	switch mode {
	case SchemaModeSQL:
		p.sql = true
	case SchemaModeHybrid:
		// SQL migrations own the schema; AutoMigrate only fills gaps in dev.
		p.sql, p.auto = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return p, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		p.auto, p.unsafe = true, prodLike
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return p, nil
}

// ApplySchema brings the microblog tables up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.auto {
		return nil
	}

	if plan.unsafe {
		middleware.Logger.WarnContext(ctx, "AutoMigrate enabled in a production-like environment",
			slog.String("env", cfg.Env))
	}
	middleware.Logger.InfoContext(ctx, "running gorm AutoMigrate",
		slog.String("mode", plan.mode),
		slog.Int("models", len(PersistentModels())),
	)
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema plan and pending migrations without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.auto,
	}
	if !plan.sql {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.PendingMigrations = pendingMigrations(applied, GetMigrations())
	return status, nil
}
