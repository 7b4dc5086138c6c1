package server

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"microblog/internal/featureflags"
	"microblog/internal/middleware"
	"microblog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	wsTicketPrefix = "ws_ticket:"
	wsTicketTTL    = 30 * time.Second
)

var errFeedUnavailable = errors.New("live feed unavailable")

// IssueWSTicket handles POST /ws/ticket
// @Summary Issue a WebSocket ticket
// @Description Single-use ticket for GET /ws/feed, valid for 30 seconds.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{Error: errFeedUnavailable.Error()})
	}

	ticket := uuid.NewString()
	key := wsTicketPrefix + ticket
	if err := s.redis.Set(c.UserContext(), key, strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// requireFeedStream rejects the upgrade when there is no Redis to carry events.
func (s *Server) requireFeedStream(c *fiber.Ctx) error {
	if s.redis == nil || s.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{Error: errFeedUnavailable.Error()})
	}
	return c.Next()
}

// requireWSTicket consumes the ?ticket= query parameter and loads its user.
// Browsers cannot set headers on a WebSocket handshake, hence the ticket.
func (s *Server) requireWSTicket(c *fiber.Ctx) error {
	ticket := c.Query("ticket")
	if ticket == "" {
		return middleware.Unauthorized(c)
	}

	ctx := c.UserContext()
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "ws ticket lookup failed", slog.String("error", err.Error()))
		}
		return middleware.Unauthorized(c)
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return middleware.Unauthorized(c)
	}
	user, err := s.userRepo.GetByID(ctx, uint(id))
	if err != nil || !user.IsActive {
		return middleware.Unauthorized(c)
	}

	if !s.featureFlags.Enabled(featureflags.FeedStream, user.ID) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{Error: errFeedUnavailable.Error()})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	c.Locals(middleware.LocalUser, user)
	c.Locals(middleware.LocalUserID, user.ID)
	return c.Next()
}

// FeedStreamHandler handles GET /ws/feed. The server only writes; anything the
// client sends is discarded.
func (s *Server) FeedStreamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals(middleware.LocalUserID).(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("feed stream registration refused",
				slog.Uint64("user_id", uint64(uid)),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		client.Serve()
	})
}
