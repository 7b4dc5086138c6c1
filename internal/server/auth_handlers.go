package server

import (
	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/service"
	"microblog/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// registerRequest carries the sign-up rules as validate tags.
type registerRequest validation.Registration

// loginRequest accepts both the OAuth2 password form and JSON.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Register handles POST /users
// @Summary Register a user
// @Description Create an account. Email and username must be unused.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user.ToResponse())
}

// Login handles POST /login
// @Summary Log in
// @Description Exchange username and password for a bearer token.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} service.TokenResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	token, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if models.HasCode(err, models.CodeUnauthorized) {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}
		return respondServiceError(c, err)
	}
	return c.JSON(token)
}

// GetMyProfile handles GET /users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	return c.JSON(user.ToResponse())
}
