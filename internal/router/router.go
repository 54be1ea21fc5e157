package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/internal/api"
	"github.com/pageza/fitcheck/backend/internal/middleware"
)

// Options carries the handlers and middleware dependencies of the router
type Options struct {
	Auth     *api.AuthHandler
	Profiles *api.ProfileHandler
	Health   *api.HealthHandler

	// Tokens validates bearer tokens on protected routes
	Tokens middleware.TokenValidator
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter *middleware.RateLimiter

	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// SetupRouter configures the application routes
func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(middleware.CORS(opts.CORSOrigins))
	router.NoRoute(middleware.NotFound())

	opts.Health.RegisterRoutes(router)

	v1 := router.Group("/api/v1")

	// Token exchange is public but still rate limited per caller address
	public := v1.Group("")
	if opts.RateLimiter != nil {
		public.Use(opts.RateLimiter.RateLimitMiddleware())
	}
	opts.Auth.RegisterRoutes(public)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(opts.Tokens))
	if opts.RateLimiter != nil {
		protected.Use(opts.RateLimiter.RateLimitMiddleware())
	}
	opts.Profiles.RegisterRoutes(protected)

	return router
}
