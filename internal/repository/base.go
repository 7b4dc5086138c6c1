package repository

import (
	"errors"
	"strings"

	"microblog/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	// DefaultPageSize applies when a caller pages with an offset but no limit.
	DefaultPageSize = 50
	// MaxPageSize caps every list query.
	MaxPageSize = 100
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// normalizePage clamps a requested window. A non-positive limit without an
// offset selects every row and comes back as -1, which gorm leaves out of the
// query.
func normalizePage(limit, offset int) (int, int) {
	offset = max(offset, 0)
	if limit <= 0 {
		if offset == 0 {
			return -1, 0
		}
		limit = DefaultPageSize
	}
	return min(limit, MaxPageSize), offset
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
