// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"
	"strings"

	"microblog/internal/models"
	"microblog/internal/observability"
	"microblog/internal/repository"
	"microblog/internal/validation"
)

// PasswordHasher hashes and checks passwords. *auth.PasswordHasher satisfies it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type UserService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func NewUserService(userRepo repository.UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{userRepo: userRepo, hasher: hasher}
}

// Register validates the input, rejects a taken email or username and
// stores the account with a bcrypt digest. The unique indexes still decide
// concurrent registrations; the lookups only give a friendlier message.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	ctx, span := observability.StartRepoSpan(ctx, "UserRepository", "Create")
	defer span.End()

	username := strings.TrimSpace(in.Username)
	email := validation.NormalizeEmail(in.Email)

	if err := validation.ValidateRegistration(validation.Registration{
		Username: username,
		Email:    email,
		Password: in.Password,
	}); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}

	existing, err = s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: digest,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetUserByUsername returns a NotFound error when no such user exists.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}
