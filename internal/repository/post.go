package repository

import (
	"context"
	"errors"
	"log/slog"

	"microblog/internal/cache"
	"microblog/internal/models"
	"microblog/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	// Feed returns posts authored by the users userID follows, newest first.
	Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.TableLog
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewTableLog("posts")}
}

// newestFirst orders by creation time with id as the tiebreaker so equal
// timestamps still page deterministically.
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Table: "posts", Name: "created_at"}, Desc: true},
		{Column: clause.Column{Table: "posts", Name: "id"}, Desc: true},
	}})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	// The owner is set by the caller for the response; never upsert it.
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		r.log.Failed(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Wrote(ctx, "create",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Uint64("user_id", uint64(post.UserID)),
		slog.String("sentiment", string(post.Sentiment)),
	)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	err := cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	limit, offset = normalizePage(limit, offset)

	var posts []*models.Post
	err := newestFirst(readDB(r.db).WithContext(ctx).Preload("User")).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = normalizePage(limit, offset)
	db := readDB(r.db).WithContext(ctx)

	followed := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Follow{}).
		Select("followed_id").
		Where("follower_id = ?", userID)

	var posts []*models.Post
	err := newestFirst(db.Preload("User")).
		Where("posts.user_id IN (?)", followed).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Update writes the content and sentiment columns only.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(post).
		Select("content", "sentiment", "updated_at").
		Updates(post).Error
	if err != nil {
		r.log.Failed(ctx, "update", err)
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	r.log.Wrote(ctx, "update", slog.Uint64("post_id", uint64(post.ID)))
	return nil
}

// Delete removes the row permanently and buries its cache entry, so a
// GetByID racing the delete cannot cache the post again.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		r.log.Failed(ctx, "delete", result.Error)
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.Bury(ctx, cache.PostKey(id), cache.PostTTL)
	r.log.Wrote(ctx, "delete", slog.Uint64("post_id", uint64(id)))
	return nil
}
