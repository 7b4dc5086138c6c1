package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"microblog/internal/middleware"

	"gorm.io/gorm"
)

// MigrationStore records which migrations have been applied.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
	ApplyMigration(ctx context.Context, m Migration) error
	RevertMigration(ctx context.Context, m Migration) error
}

// MigrationLog is one row of migration_logs.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string { return "migration_logs" }

const createMigrationLogs = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type gormMigrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &gormMigrationStore{db: db}
}

// GetAppliedMigrations treats a missing migration_logs table as a fresh database.
func (s *gormMigrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	versions := []int{}
	err := s.db.WithContext(ctx).Model(&MigrationLog{}).Order("version").Pluck("version", &versions).Error
	switch {
	case err == nil:
		return versions, nil
	case isMissingTableError(err):
		return []int{}, nil
	default:
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

func (s *gormMigrationStore) ApplyMigration(ctx context.Context, m Migration) error {
	return s.inTx(ctx, "apply", m, m.UpScript, func(tx *gorm.DB) error {
		return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
	})
}

func (s *gormMigrationStore) RevertMigration(ctx context.Context, m Migration) error {
	return s.inTx(ctx, "revert", m, m.DownScript, func(tx *gorm.DB) error {
		return tx.Delete(&MigrationLog{}, "version = ?", m.Version).Error
	})
}

// inTx runs script and the matching migration_logs change atomically.
func (s *gormMigrationStore) inTx(ctx context.Context, op string, m Migration, script string, record func(*gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(script).Error; err != nil {
			return err
		}
		return record(tx)
	})
	if err != nil {
		return fmt.Errorf("%s migration %s: %w", op, m.String(), err)
	}
	middleware.Logger.InfoContext(ctx, "migration "+op,
		slog.Int("version", m.Version),
		slog.String("name", m.Name),
	)
	return nil
}

// RunMigrations applies every embedded migration not yet in migration_logs.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, db, NewMigrationStore(db), migrations)
}

func runMigrations(ctx context.Context, db *gorm.DB, store MigrationStore, registered []Migration) error {
	if err := db.WithContext(ctx).Exec(createMigrationLogs).Error; err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}

	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, registered); err != nil {
		return err
	}
	for _, m := range pendingMigrations(applied, registered) {
		if err := store.ApplyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func pendingMigrations(applied []int, registered []Migration) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}

// validateAppliedVersions fails when the database is ahead of this binary,
// e.g. after rolling back a deploy that added a migration.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range slices.Sorted(slices.Values(applied)) {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("migration_logs has versions this build does not know: %s (cmd/reset rebuilds a dev database)",
		strings.Join(unknown, ", "))
}

// RollbackMigration reverts one applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}
	return store.RevertMigration(ctx, *m)
}
