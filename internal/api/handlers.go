package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/fitcheck/backend/internal/database"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports whether the service can reach its backing stores
type HealthHandler struct {
	db    *gorm.DB
	redis redis.Cmdable
}

// NewHealthHandler creates a HealthHandler. redisClient may be nil when Redis is not configured.
func NewHealthHandler(db *gorm.DB, redisClient redis.Cmdable) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

func (h *HealthHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/health", h.Health)
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "disabled"}

	if err := database.HealthCheck(ctx, h.db); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = err.Error()
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status = http.StatusServiceUnavailable
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
