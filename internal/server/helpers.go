package server

import (
	"errors"
	"log/slog"

	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// page is a parsed limit/offset window. The zero page selects every row.
type page struct {
	Limit  int
	Offset int
}

// pageParams reads ?limit and ?offset. Without either the listing is
// unbounded; out-of-range values fall back to the default window rather than
// failing the request.
func pageParams(c *fiber.Ctx) page {
	if c.Query("limit") == "" && c.Query("offset") == "" {
		return page{}
	}
	p := page{
		Limit:  c.QueryInt("limit", repository.DefaultPageSize),
		Offset: max(c.QueryInt("offset", 0), 0),
	}
	if p.Limit <= 0 {
		p.Limit = repository.DefaultPageSize
	}
	p.Limit = min(p.Limit, repository.MaxPageSize)
	return p
}

// pathID reads a positive integer route parameter.
func pathID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid ID")
	}
	return uint(id), nil
}

// respondServiceError writes err with the status its AppError code implies.
// Anything that is not an AppError is an internal error.
func respondServiceError(c *fiber.Ctx, err error) error {
	status, err := mapServiceError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed with internal error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

func mapServiceError(err error) (int, error) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Status(), err
	}
	return fiber.StatusInternalServerError, models.NewInternalError(err)
}

// ErrorHandler is the Fiber fallback for errors a handler returned instead of writing.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondServiceError(c, err)
}
