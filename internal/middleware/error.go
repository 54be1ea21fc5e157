package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/internal/logging"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Recovery turns a panic in a handler into a logged 500 JSON response
func Recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	log := logging.Component(logger, "http")
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"panic":  err,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				}).Error("recovered from panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			}
		}()
		c.Next()
	}
}

// NotFound answers unknown routes with the JSON error shape
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found"})
	}
}
