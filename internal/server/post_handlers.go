package server

import (
	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/service"
	"microblog/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type postContentRequest validation.PostContent

// GetPosts handles GET /posts
// @Summary List all posts
// @Description Every post, newest first.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (max 100); omit with offset for every post"
// @Param offset query int false "Offset"
// @Success 200 {array} models.PostResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := pageParams(c)

	posts, err := s.postService.ListPosts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(models.PostResponses(posts))
}

// GetFeed handles GET /posts/feed
// @Summary Feed
// @Description Posts by the users the caller follows, newest first.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100); omit with offset for every post"
// @Param offset query int false "Offset"
// @Success 200 {array} models.PostResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts/feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	page := pageParams(c)

	posts, err := s.postService.Feed(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(models.PostResponses(posts))
}

// GetPost handles GET /posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post.ToResponse())
}

// CreatePost handles POST /posts
// @Summary Create a post
// @Description The sentiment label is computed from the content.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postContentRequest true "Post"
// @Success 201 {object} models.PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return middleware.Unauthorized(c)
	}

	var req postContentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Author:  user,
		Content: req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post.ToResponse())
}

// UpdatePost handles PUT /posts/:id
// @Summary Edit a post
// @Description Only the owner may edit. The sentiment label is kept.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body postContentRequest true "New content"
// @Success 200 {object} models.PostResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	var req postContentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  userID,
		PostID:  id,
		Content: req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post.ToResponse())
}

// DeletePost handles DELETE /posts/:id
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{UserID: userID, PostID: id}); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}
