// Package middleware provides authentication, logging, rate limiting and
// telemetry middleware for the HTTP server.
package middleware

import (
	"context"
	"strings"

	"microblog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth.
const (
	LocalUser   = "user"
	LocalUserID = "userID"
)

// credentialsError is the only body an auth failure ever returns.
const credentialsError = "Could not validate credentials"

// TokenValidator resolves a bearer token to its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// UserLookup finds the account a token subject refers to.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Authenticator turns bearer tokens into request-scoped users.
type Authenticator struct {
	tokens TokenValidator
	users  UserLookup
}

// NewAuthenticator wires the token validator and user lookup.
func NewAuthenticator(tokens TokenValidator, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// RequireAuth rejects the request with 401 unless a valid bearer token for an
// existing user is present. On success the user is stored in Locals and its id
// is added to the request context for logging.
func (a *Authenticator) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := a.authenticate(c)
		if !ok {
			return Unauthorized(c)
		}

		c.Locals(LocalUser, user)
		c.Locals(LocalUserID, user.ID)
		c.SetUserContext(WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// Authenticate resolves the caller without writing a response. Used by
// handlers that accept credentials outside the Authorization header.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.User, bool) {
	subject, err := a.tokens.Validate(token)
	if err != nil {
		return nil, false
	}

	user, err := a.users.GetByUsername(ctx, subject)
	if err != nil || user == nil {
		return nil, false
	}
	return user, true
}

func (a *Authenticator) authenticate(c *fiber.Ctx) (*models.User, bool) {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil, false
	}
	return a.Authenticate(c.UserContext(), token)
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Unauthorized writes the generic credentials failure.
func Unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: credentialsError,
		Code:  models.CodeUnauthorized,
	})
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(LocalUser).(*models.User)
	return user, ok && user != nil
}

// CurrentUserID returns the id stored by RequireAuth.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok
}
