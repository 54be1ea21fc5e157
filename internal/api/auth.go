package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/service"
	"github.com/pageza/fitcheck/backend/internal/types"
)

// AuthHandler exchanges API client credentials for access tokens
type AuthHandler struct {
	auth service.IAuthService
	log  logrus.FieldLogger
}

func NewAuthHandler(auth service.IAuthService, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  logging.Component(logger, "api"),
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/token", h.Token)
	}
}

// Token handles POST /auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req types.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "client_id and client_secret are required")
		return
	}

	token, err := h.auth.IssueToken(c.Request.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, types.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.auth.TokenTTL().Seconds()),
	})
}
