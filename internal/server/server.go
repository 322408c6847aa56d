// Package server contains the HTTP and websocket handlers of the campus feed API.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	_ "campusfeed/docs" // swagger docs
	"campusfeed/internal/auth"
	"campusfeed/internal/bootstrap"
	"campusfeed/internal/cache"
	"campusfeed/internal/config"
	"campusfeed/internal/database"
	"campusfeed/internal/featureflags"
	"campusfeed/internal/middleware"
	"campusfeed/internal/models"
	"campusfeed/internal/notifications"
	"campusfeed/internal/observability"
	"campusfeed/internal/repository"
	"campusfeed/internal/security"
	"campusfeed/internal/service"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	app         *fiber.App
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc

	tokens       *auth.TokenManager
	limiter      *middleware.RateLimiter
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	authService    *service.AuthService
	userService    *service.UserService
	postService    *service.PostService
	messageService *service.MessageService
}

// NewServer connects to the database and Redis described by cfg and builds a Server.
// Redis is optional: without it caching, rate limiting and realtime push are disabled.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Redis: true, SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	tokens := auth.NewTokenManager(auth.Options{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	s := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		tokens:       tokens,
		limiter:      middleware.NewRateLimiter(redisClient, cfg.Env),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		hub:          notifications.NewHub(),
	}

	var events service.EventPublisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		events = s.notifier
	}

	s.authService = service.NewAuthService(userRepo, security.NewPasswordHasher(security.DefaultCost), tokens)
	s.userService = service.NewUserService(userRepo, cache.NewStore(redisClient))
	s.postService = service.NewPostService(postRepo, commentRepo, service.NewImageStore(cfg))
	s.messageService = service.NewMessageService(messageRepo, userRepo, events, s.featureFlags)

	if bad := s.featureFlags.Invalid(); len(bad) > 0 {
		middleware.Logger.Warn("ignoring malformed feature flags", slog.Any("entries", bad))
	}
	middleware.Logger.Info("feature flags loaded", slog.String("flags", s.featureFlags.Describe()))

	return s, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "campusfeed-api",
		// Leave room for multipart framing around the largest accepted image.
		BodyLimit: int(s.config.MaxUploadBytes) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.Response{
					Code: models.EnvelopeFailure,
					Msg:  fe.Message,
				})
			}
			return s.respondError(c, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(observability.HTTPMetrics().Middleware)
	app.Use(middleware.TracingMiddleware())

	// Uploaded images are embedded cross-origin by the web client.
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep their headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		MaxAge:       86400,
	}))

	// Coarse per-IP guard in front of the Redis limits on individual routes.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, models.NewRateLimitError())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	observability.HTTPMetrics().RegisterAt(app, "/metrics")
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Static("/uploads", s.config.UploadDir)
	app.Static("/images", s.config.PublicDir+"/images")

	authRequired := middleware.AuthRequired(s.tokens)

	users := app.Group("/user")
	users.Post("/register", s.limiter.Limit("register", 5, 10*time.Minute, middleware.FailOpen), s.Register)
	users.Post("/login", s.limiter.Limit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	users.Post("/refresh", s.Refresh)
	users.Put("/update", authRequired, s.UpdateProfile)
	users.Get("/profile", authRequired, s.Profile)

	posts := app.Group("/post", authRequired)
	posts.Get("/list", s.ListPosts)
	posts.Get("/detail/:id", s.PostDetail)
	posts.Get("/likes/:id", s.LikesInfo)
	posts.Post("/likes", s.ToggleLike)
	posts.Get("/comments/:id", s.Comments)
	posts.Post("/comments", s.limiter.Limit("comment", 20, time.Minute, middleware.FailOpen), s.AddComment)
	posts.Post("/publish", s.limiter.Limit("publish", 5, time.Minute, middleware.FailOpen), s.Publish)
	posts.Get("/user/:userId", s.UserPosts)
	posts.Get("/favorites", s.Favorites)

	messages := app.Group("/message", authRequired)
	messages.Get("/list", s.ChatList)
	messages.Get("/chat/:userId", s.ChatMessages)
	messages.Post("/send", s.limiter.Limit("send_message", 30, time.Minute, middleware.FailOpen), s.SendMessage)
	messages.Post("/read", s.MarkRead)

	app.Get("/ws", middleware.WebSocketAuthRequired(s.tokens), s.WebsocketHandler())
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports database and Redis reachability.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis only backs optional features, so it never fails readiness.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
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

// Start wires realtime delivery and listens on the configured port. It blocks until
// the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Warn("realtime wiring failed, push disabled", "error", err)
		}
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down websocket hub", "error", err)
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
