// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"microblog/internal/cache"
	"microblog/internal/models"
	"microblog/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByEmail and GetByUsername return (nil, nil) when no row matches.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.TableLog
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewTableLog("users")}
}

// GetByID is cached. The cached copy never carries the password digest.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(ctx, "email", strings.ToLower(email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findBy(ctx, "username", username)
}

// findBy looks a user up by a unique column, uncached so login always sees
// the current password digest.
func (r *userRepository) findBy(ctx context.Context, column, value string) (*models.User, error) {
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		Limit(1).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// Create inserts user. A unique violation on username or email becomes a
// Conflict; the message names the column when the driver reports it.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(conflictMessage(err))
		}
		r.log.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Wrote(ctx, "create", slog.Uint64("user_id", uint64(user.ID)))
	return nil
}

func conflictMessage(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "email"):
		return "Email already registered"
	case strings.Contains(msg, "username"):
		return "Username already taken"
	default:
		return "User already exists"
	}
}
