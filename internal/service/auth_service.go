package service

import (
	"context"
	"strings"
	"time"

	"microblog/internal/models"
	"microblog/internal/repository"
)

// loginFailed is deliberately identical for unknown users and bad passwords.
const loginFailed = "Incorrect username or password"

// TokenIssuer signs access tokens for a subject. *auth.TokenService satisfies it.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// TokenResponse is the OAuth2-style body returned by /login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
}

func NewAuthService(userRepo repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, hasher: hasher, tokens: tokens}
}

// Login checks the credentials and issues a bearer token whose subject is the username.
// The username is trimmed the same way Register trims it.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.NewUnauthorizedError(loginFailed)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !s.hasher.Verify(password, user.Password) {
		return nil, models.NewUnauthorizedError(loginFailed)
	}

	token, expiresAt, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}
