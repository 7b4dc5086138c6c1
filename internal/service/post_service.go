package service

import (
	"context"
	"log/slog"

	"microblog/internal/featureflags"
	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/observability"
	"microblog/internal/repository"
	"microblog/internal/sentiment"
	"microblog/internal/validation"
)

// FeedPublisher pushes new posts to followers' live connections.
// *notifications.Notifier satisfies it.
type FeedPublisher interface {
	PublishNewPost(ctx context.Context, followerIDs []uint, post models.PostResponse) error
}

type PostService struct {
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	classifier sentiment.Classifier
	publisher  FeedPublisher
	flags      *featureflags.Manager
}

type CreatePostInput struct {
	Author  *models.User
	Content string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// NewPostService wires the post rules. publisher and flags may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	classifier sentiment.Classifier,
	publisher FeedPublisher,
	flags *featureflags.Manager,
) *PostService {
	return &PostService{
		postRepo:   postRepo,
		followRepo: followRepo,
		classifier: classifier,
		publisher:  publisher,
		flags:      flags,
	}
}

// CreatePost classifies the content, stores the post and notifies followers.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Author == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := validation.ValidatePostContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	ctx, span := observability.StartRepoSpan(ctx, "PostRepository", "Create")
	defer span.End()

	post := &models.Post{
		Content:   in.Content,
		UserID:    in.Author.ID,
		Sentiment: models.Sentiment(s.classifier.Classify(in.Content)),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	post.User = *in.Author
	observability.PostsCreated.WithLabelValues(string(post.Sentiment)).Inc()

	s.notifyFollowers(ctx, post)
	return post, nil
}

// notifyFollowers is best effort: the post is already committed.
func (s *PostService) notifyFollowers(ctx context.Context, post *models.Post) {
	if s.publisher == nil || s.followRepo == nil {
		return
	}
	followerIDs, err := s.followRepo.FollowerIDs(ctx, post.UserID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load followers for notification",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.publisher.PublishNewPost(ctx, followerIDs, post.ToResponse()); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish new post",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	ctx, span := observability.StartRepoSpan(ctx, "PostRepository", "List")
	defer span.End()
	return s.postRepo.List(ctx, limit, offset)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	ctx, span := observability.StartRepoSpan(ctx, "PostRepository", "GetByID")
	defer span.End()
	return s.postRepo.GetByID(ctx, id)
}

// Feed returns posts from the users userID follows, newest first.
func (s *PostService) Feed(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	ctx, span := observability.StartRepoSpan(ctx, "PostRepository", "Feed")
	defer span.End()
	return s.postRepo.Feed(ctx, userID, limit, offset)
}

// UpdatePost replaces the content of a post the caller owns. The sentiment
// label is kept unless the sentiment_on_edit flag is on for the caller.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := validation.ValidatePostContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	ctx, span := observability.StartRepoSpan(ctx, "PostRepository", "Update")
	defer span.End()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You do not have permission to update this post")
	}

	post.Content = in.Content
	if s.flags.Enabled(featureflags.SentimentOnEdit, in.UserID) {
		post.Sentiment = models.Sentiment(s.classifier.Classify(in.Content))
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	return post, nil
}

// DeletePost permanently removes a post the caller owns.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	ctx, span := observability.StartRepoSpan(ctx, "PostRepository", "Delete")
	defer span.End()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if post.UserID != in.UserID {
		return models.NewForbiddenError("You do not have permission to delete this post")
	}

	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		observability.RecordError(ctx, err)
		return err
	}
	return nil
}
