package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/fitcheck/backend/config"
	"github.com/pageza/fitcheck/backend/internal/api"
	"github.com/pageza/fitcheck/backend/internal/cache"
	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/middleware"
	"github.com/pageza/fitcheck/backend/internal/router"
	"github.com/pageza/fitcheck/backend/internal/service"
)

// Dependencies are the connections the server is built on. Redis and Photos are optional.
type Dependencies struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Photos service.PhotoStore
	Logger logrus.FieldLogger
}

// Server represents the HTTP server
type Server struct {
	router   *gin.Engine
	http     *http.Server
	auth     *service.AuthService
	profiles *service.ProfileService
	log      logrus.FieldLogger
}

// New wires services, handlers and middleware into a server listening on cfg.Addr()
func New(cfg *config.Config, deps Dependencies) *Server {
	log := logging.Component(deps.Logger, "server")

	auth := service.NewAuthService(deps.DB, cfg.JWTSecret, cfg.TokenTTL, deps.Logger)

	opts := []service.ProfileOption{service.WithLogger(deps.Logger)}
	if deps.Photos != nil {
		opts = append(opts, service.WithPhotoStore(deps.Photos))
	}

	var (
		limiter     *middleware.RateLimiter
		healthRedis redis.Cmdable
	)
	if deps.Redis != nil {
		opts = append(opts, service.WithCache(cache.NewProfileCache(deps.Redis, cfg.CacheTTL)))
		limiter = middleware.NewPerMinuteRateLimiter(deps.Redis, cfg.RateLimitPerMinute, deps.Logger)
		healthRedis = deps.Redis
	} else {
		log.Warn("Redis not configured; profile cache and rate limiting are disabled")
	}
	if deps.Photos == nil {
		log.Warn("S3 bucket not configured; photo uploads are disabled")
	}

	profiles := service.NewProfileService(deps.DB, opts...)

	engine := router.SetupRouter(router.Options{
		Auth:        api.NewAuthHandler(auth, deps.Logger),
		Profiles:    api.NewProfileHandler(profiles, deps.Logger),
		Health:      api.NewHealthHandler(deps.DB, healthRedis),
		Tokens:      auth,
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      deps.Logger,
	})

	return &Server{
		router: engine,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		auth:     auth,
		profiles: profiles,
		log:      log,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Auth returns the auth service the server validates tokens with
func (s *Server) Auth() *service.AuthService {
	return s.auth
}

// Start serves until Shutdown is called. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
