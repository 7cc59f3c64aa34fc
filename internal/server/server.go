// Package server contains the HTTP and WebSocket handlers of the blog API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "folio/docs" // swagger docs
	"folio/internal/cache"
	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/events"
	"folio/internal/media"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/repository"
	"folio/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const eventHandlerTimeout = 10 * time.Second

var (
	promOnce     sync.Once
	promInstance *fiberprometheus.FiberPrometheus
)

// httpMetrics registers the HTTP collectors once per process.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInstance = middleware.InitMetrics("folio-api")
	})
	return promInstance
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	media    media.Store
	bus      *events.Bus
	notifier *notifications.Notifier
	hub      *notifications.Hub

	authService         *service.AuthService
	postService         *service.PostService
	commentService      *service.CommentService
	categoryService     *service.CategoryService
	notificationService *service.NotificationService
	analyticsService    *service.AnalyticsService
}

// NewServer connects to the database, Redis and the media store named by
// cfg and builds a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ConnectReadReplica(cfg); err != nil {
		middleware.Logger.Warn("read replica unavailable, reads use the primary", slog.String("error", err.Error()))
	}

	store, err := media.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL), store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case caching, rate limiting and
// cross-instance pub/sub are disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store media.Store) (*Server, error) {
	if db == nil {
		return nil, errors.New("server: nil database")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	invalidator := cache.NewInvalidator(redisClient)
	bus := events.NewBus(eventHandlerTimeout)
	notifier := notifications.NewNotifier(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: httpMetrics(),
		media:          store,
		bus:            bus,
		notifier:       notifier,
		hub:            notifications.NewHub(),
	}

	s.categoryService = service.NewCategoryService(repository.NewCategoryRepository(db), redisClient, invalidator)
	s.authService = service.NewAuthService(userRepo, redisClient, invalidator, cfg.JWTSecret)
	s.postService = service.NewPostService(postRepo, s.categoryService, store, bus, invalidator)
	s.commentService = service.NewCommentService(repository.NewCommentRepository(db), postRepo, bus, invalidator)
	s.notificationService = service.NewNotificationService(repository.NewNotificationRepository(db), userRepo, notifier)
	s.analyticsService = service.NewAnalyticsService(repository.NewAnalyticsRepository(db))

	s.notificationService.Subscribe(bus)
	return s, nil
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Folio API",
		ErrorHandler: s.errorHandler,
		BodyLimit:    (s.config.MediaMaxUploadMB + 2) * 1024 * 1024,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		appErr := &models.AppError{Code: codeForStatus(fe.Code), Message: fe.Message}
		return models.RespondWithError(c, fe.Code, appErr)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func codeForStatus(status int) string {
	switch {
	case status == fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case status == fiber.StatusForbidden:
		return models.CodeForbidden
	case status == fiber.StatusNotFound:
		return models.CodeNotFound
	case status == fiber.StatusConflict:
		return models.CodeConflict
	case status >= 400 && status < 500:
		return models.CodeValidation
	default:
		return models.CodeInternal
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Cache-Control, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				&models.AppError{Code: "RATE_LIMITED", Message: "Too many requests, please try again later."})
		},
	}))

	app.Use(s.Identify())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if local, ok := s.media.(*media.LocalStore); ok && s.config.MediaPublicURL != "" {
		app.Static(s.config.MediaPublicURL, local.Dir())
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/metrics/dashboard", s.AuthRequired(), s.AdminRequired(), monitor.New(monitor.Config{
		Title: "Folio API Metrics",
	}))

	responses := cache.ResponseCache(s.redis, time.Duration(s.config.ResponseCacheTTLSeconds)*time.Second)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", s.AuthRequired(), s.Me)

	categories := api.Group("/categories")
	categories.Get("/", responses, s.ListCategories)
	categories.Post("/", s.CreateCategory)
	categories.Get("/:ref", responses, s.GetCategory)

	// Specific routes before the generic /:id ones.
	posts := api.Group("/posts")
	posts.Get("/", responses, s.ListPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/featured", responses, s.FeaturedPosts)
	posts.Get("/popular", responses, s.PopularPosts)
	posts.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), responses, s.SearchPosts)
	posts.Get("/slug/:slug", responses, s.GetPostBySlug)
	posts.Get("/:id/related", responses, s.RelatedPosts)
	posts.Get("/:id/comments", responses, s.ListComments)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/view", middleware.RateLimit(s.redis, 60, time.Minute, "post_view"), s.RecordView)
	posts.Post("/:id/archive", s.ArchivePost)
	posts.Post("/:id/unarchive", s.UnarchivePost)
	posts.Get("/:id", responses, s.GetPost)
	posts.Patch("/:id", s.UpdatePost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	api.Delete("/comments/:id", s.DeleteComment)

	users := api.Group("/users")
	users.Get("/:id/posts", responses, s.PostsByAuthor)
	users.Get("/:id/analytics", s.AuthorAnalytics)

	notes := api.Group("/notifications", s.AuthRequired())
	notes.Get("/", s.ListNotifications)
	notes.Post("/read-all", s.MarkAllNotificationsRead)
	notes.Post("/:id/read", s.MarkNotificationRead)

	api.Post("/uploads", s.AuthRequired(), s.AuthorRequired(),
		middleware.RateLimit(s.redis, 20, time.Minute, "upload"), s.UploadImage)

	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	admin := api.Group("/admin")
	admin.Get("/posts", s.ModerationQueue)
	admin.Post("/posts/:id/offensive", s.MarkOffensive)
	admin.Delete("/posts/:id/offensive", s.RemoveOffense)
	admin.Put("/posts/:id/featured", s.SetFeatured)
	admin.Put("/users/:id/role", s.ChangeRole)
	admin.Get("/analytics", s.PlatformAnalytics)
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: its
// absence degrades the service but does not make it unready.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string}
// @Failure 503 {object} object{status=string}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	switch {
	case dbStatus != "healthy":
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start wires realtime delivery and serves HTTP until Shutdown.
func (s *Server) Start() error {
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	app := s.App()

	if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
		middleware.Logger.Warn("notification fan-out unavailable", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, drains event handlers and closes
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.bus.Close(ctx); err != nil {
		middleware.Logger.Warn("event handlers did not drain", slog.String("error", err.Error()))
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Warn("error closing websockets", slog.String("error", err.Error()))
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
