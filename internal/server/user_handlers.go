package server

import (
	"fmt"

	"microblog/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /users/:username
// @Summary Public profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user.ToResponse())
}

// FollowUser handles POST /users/:username/follow
// @Summary Follow a user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username to follow"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	target, err := s.followService.Follow(c.UserContext(), userID, c.Params("username"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("You are now following %s", target.Username)})
}

// UnfollowUser handles DELETE /users/:username/follow
// @Summary Unfollow a user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username to unfollow"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/{username}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	target, err := s.followService.Unfollow(c.UserContext(), userID, c.Params("username"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("You no longer follow %s", target.Username)})
}
