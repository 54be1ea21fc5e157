// Package api holds the HTTP handlers of the profile service.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/internal/middleware"
	"github.com/pageza/fitcheck/backend/internal/service"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as a generic 500.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, service.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNoPhoto):
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPhotoTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, middleware.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnsupportedPhotoType):
		c.JSON(http.StatusUnsupportedMediaType, middleware.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPhotosDisabled):
		c.JSON(http.StatusServiceUnavailable, middleware.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, middleware.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrClientExists):
		c.JSON(http.StatusConflict, middleware.ErrorResponse{Error: err.Error()})
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: msg})
}
