package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims represents the claims in a service access token
type TokenClaims struct {
	jwt.RegisteredClaims
	ClientID   uuid.UUID `json:"client_id"`
	ClientName string    `json:"client_name"`
}

// TokenRequest exchanges client credentials for an access token
type TokenRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

// TokenResponse is returned by the token endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
