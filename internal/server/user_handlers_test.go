package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"microblog/internal/models"
	"microblog/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestGetUserProfile(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s := &Server{
		userRepo:    mockRepo,
		userService: service.NewUserService(mockRepo, nil),
	}

	app := fiber.New()
	app.Get("/users/:username", s.GetUserProfile)

	mockRepo.On("GetByUsername", mock.Anything, "alice").
		Return(&models.User{ID: 7, Username: "alice", Email: "alice@example.com", Password: "digest", IsActive: true}, nil)
	mockRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, nil)

	tests := []struct {
		name           string
		username       string
		expectedStatus int
	}{
		{"Found", "alice", http.StatusOK},
		{"Missing", "ghost", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/"+tt.username, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var body map[string]any
			decode(t, resp, &body)
			assert.Equal(t, "alice", body["username"])
			assert.NotContains(t, body, "password")
		})
	}

	mockRepo.AssertExpectations(t)
}

func TestFollowUser(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.signup(t, "alice")
	env.signup(t, "bob")

	resp := env.do(t, http.MethodPost, "/users/bob/follow", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "You are now following bob", body["message"])

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedError  string
	}{
		{"Already Following", "bob", http.StatusBadRequest, "You already follow this user"},
		{"Self", "alice", http.StatusBadRequest, "You cannot follow yourself"},
		{"Unknown", "nobody", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/users/"+tt.target+"/follow", nil, token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedError != "" {
				var body models.ErrorResponse
				decode(t, resp, &body)
				assert.Equal(t, tt.expectedError, body.Error)
			}
		})
	}

	resp = env.do(t, http.MethodPost, "/users/bob/follow", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnfollowUser(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.signup(t, "alice")
	env.signup(t, "bob")

	resp := env.do(t, http.MethodDelete, "/users/bob/follow", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody models.ErrorResponse
	decode(t, resp, &errBody)
	assert.Equal(t, "You do not follow this user", errBody.Error)

	resp = env.do(t, http.MethodPost, "/users/bob/follow", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/users/bob/follow", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "You no longer follow bob", body["message"])

	resp = env.do(t, http.MethodDelete, "/users/nobody/follow", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
