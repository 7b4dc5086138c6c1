package repository

import (
	"context"
	"errors"
	"log/slog"

	"microblog/internal/models"
	"microblog/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository manages directed follow edges.
type FollowRepository interface {
	// Create inserts the edge atomically. created is false when it already existed.
	Create(ctx context.Context, followerID, followedID uint) (created bool, err error)
	// Delete removes the edge. deleted is false when there was none.
	Delete(ctx context.Context, followerID, followedID uint) (deleted bool, err error)
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	FollowerIDs(ctx context.Context, followedID uint) ([]uint, error)
}

type followRepository struct {
	db  *gorm.DB
	log *observability.TableLog
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, log: observability.NewTableLog("follows")}
}

// Create uses INSERT ... ON CONFLICT DO NOTHING so concurrent follows of the
// same pair cannot race past a read.
func (r *followRepository) Create(ctx context.Context, followerID, followedID uint) (bool, error) {
	edge := &models.Follow{FollowerID: followerID, FollowedID: followedID}
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edge)
	if result.Error != nil {
		if errors.Is(result.Error, models.ErrSelfFollow) {
			return false, models.NewValidationError("You cannot follow yourself")
		}
		r.log.Failed(ctx, "create", result.Error)
		return false, models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	r.log.Wrote(ctx, "create", edgeAttrs(followerID, followedID)...)
	return true, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if result.Error != nil {
		r.log.Failed(ctx, "delete", result.Error)
		return false, models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	r.log.Wrote(ctx, "delete", edgeAttrs(followerID, followedID)...)
	return true, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// FollowerIDs lists who receives followedID's posts.
func (r *followRepository) FollowerIDs(ctx context.Context, followedID uint) ([]uint, error) {
	var ids []uint
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("followed_id = ?", followedID).
		Order("follower_id ASC").
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func edgeAttrs(followerID, followedID uint) []slog.Attr {
	return []slog.Attr{
		slog.Uint64("follower_id", uint64(followerID)),
		slog.Uint64("followed_id", uint64(followedID)),
	}
}
