package service

import (
	"context"

	"microblog/internal/models"
	"microblog/internal/observability"
	"microblog/internal/repository"
)

// Labels for the follow_actions_total metric.
const (
	followActionFollow   = "follow"
	followActionUnfollow = "unfollow"
)

type FollowService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func NewFollowService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *FollowService {
	return &FollowService{userRepo: userRepo, followRepo: followRepo}
}

// Follow makes followerID follow the user named username and returns that user.
// Missing target is 404; following yourself or someone already followed is 400.
func (s *FollowService) Follow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	ctx, span := observability.StartRepoSpan(ctx, "FollowRepository", "Create")
	defer span.End()

	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		recordFollow(followActionFollow, "not_found")
		return nil, models.NewNotFoundError("User", username)
	}
	if target.ID == followerID {
		recordFollow(followActionFollow, "self")
		return nil, models.NewValidationError("You cannot follow yourself")
	}

	created, err := s.followRepo.Create(ctx, followerID, target.ID)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	if !created {
		recordFollow(followActionFollow, "duplicate")
		return nil, models.NewValidationError("You already follow this user")
	}

	recordFollow(followActionFollow, "ok")
	return target, nil
}

// Unfollow removes the edge. Both a missing target and a missing edge are 400.
func (s *FollowService) Unfollow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	ctx, span := observability.StartRepoSpan(ctx, "FollowRepository", "Delete")
	defer span.End()

	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		recordFollow(followActionUnfollow, "not_found")
		return nil, models.NewValidationError("User not found")
	}

	deleted, err := s.followRepo.Delete(ctx, followerID, target.ID)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	if !deleted {
		recordFollow(followActionUnfollow, "not_following")
		return nil, models.NewValidationError("You do not follow this user")
	}

	recordFollow(followActionUnfollow, "ok")
	return target, nil
}

func recordFollow(action, result string) {
	observability.FollowActions.WithLabelValues(action, result).Inc()
}
