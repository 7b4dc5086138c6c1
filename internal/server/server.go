// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "microblog/docs" // swagger docs
	"microblog/internal/auth"
	"microblog/internal/cache"
	"microblog/internal/config"
	"microblog/internal/database"
	"microblog/internal/featureflags"
	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/notifications"
	"microblog/internal/repository"
	"microblog/internal/sentiment"
	"microblog/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Per-route limits. Counting happens in Redis and is skipped in test and development.
var (
	registerQuota = middleware.Quota{Name: "register", Limit: 3, Window: 10 * time.Minute}
	loginQuota    = middleware.Quota{Name: "login", Limit: 10, Window: 5 * time.Minute}
	postQuota     = middleware.Quota{Name: "create_post", Limit: 10, Window: time.Minute}
	followQuota   = middleware.Quota{Name: "follow", Limit: 30, Window: time.Minute}
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository

	tokens        *auth.TokenService
	authenticator *middleware.Authenticator
	notifier      *notifications.Notifier
	hub           *notifications.Hub
	featureFlags  *featureflags.Manager

	userService   *service.UserService
	authService   *service.AuthService
	postService   *service.PostService
	followService *service.FollowService
}

// NewServer connects to the database and Redis and builds a Server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding. redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	models.IncludeErrorDetails = !cfg.IsProduction()

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("microblog-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		tokens:         tokens,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.authenticator = middleware.NewAuthenticator(tokens, s.userRepo)

	// Initialize notifier and hub if Redis is available
	var publisher service.FeedPublisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		publisher = s.notifier
	}

	s.userService = service.NewUserService(s.userRepo, hasher)
	s.authService = service.NewAuthService(s.userRepo, hasher, tokens)
	s.postService = service.NewPostService(s.postRepo, s.followRepo, sentiment.Default(), publisher, s.featureFlags)
	s.followService = service.NewFollowService(s.userRepo, s.followRepo)

	middleware.Logger.Info("server configured",
		slog.String("env", cfg.Env),
		slog.Bool("redis", redisClient != nil),
		slog.String("feature_flags", s.featureFlags.String()),
	)
	return s, nil
}

// App builds the Fiber application with middleware and routes. It is called
// once by Start and directly by tests.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Microblog API",
		ErrorHandler: ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Request id into the request context for log records
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	requireAuth := s.authenticator.RequireAuth()

	app.Get("/", s.Welcome)

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		middleware.RegisterMetricsRoute(app, s.promMiddleware)
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Post("/login", middleware.RateLimit(s.redis, loginQuota, s.config.Env), s.Login)

	// /users/me must be registered before /users/:username
	users := app.Group("/users")
	users.Post("/", middleware.RateLimit(s.redis, registerQuota, s.config.Env), s.Register)
	users.Get("/me", requireAuth, s.GetMyProfile)
	users.Post("/:username/follow", requireAuth,
		middleware.RateLimit(s.redis, followQuota, s.config.Env), s.FollowUser)
	users.Delete("/:username/follow", requireAuth,
		middleware.RateLimit(s.redis, followQuota, s.config.Env), s.UnfollowUser)
	users.Get("/:username", s.GetUserProfile)

	// /posts/feed must be registered before /posts/:id
	posts := app.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/feed", requireAuth, s.GetFeed)
	posts.Post("/", requireAuth, middleware.RateLimit(s.redis, postQuota, s.config.Env), s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", requireAuth, s.UpdatePost)
	posts.Delete("/:id", requireAuth, s.DeletePost)

	app.Get("/feature-flags", requireAuth, s.GetFeatureFlags)

	ws := app.Group("/ws")
	ws.Post("/ticket", requireAuth, s.IssueWSTicket)
	ws.Get("/feed", s.requireFeedStream, s.requireWSTicket, s.FeedStreamHandler())
}

// Welcome handles GET /
// @Summary Welcome message
// @Tags meta
// @Produce json
// @Success 200 {object} object{message=string}
// @Router / [get]
func (s *Server) Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the microblog API"})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// a database failure makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the feed hub to Redis and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the wiring goroutine
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
