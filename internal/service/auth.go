package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/internal/types"
)

const (
	tokenIssuer     = "fitcheck"
	clientSecretLen = 32
)

// AuthService issues and validates access tokens for API clients
type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	log       logrus.FieldLogger
}

var _ IAuthService = (*AuthService)(nil)

// NewAuthService creates a new AuthService instance
func NewAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, logger logrus.FieldLogger) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       logging.Component(logger, "auth"),
	}
}

// TokenTTL returns how long issued tokens stay valid
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// CreateClient registers a new API client and returns it with its plaintext secret.
// Only a bcrypt hash of the secret is stored.
func (s *AuthService) CreateClient(ctx context.Context, name string) (*models.APIClient, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", errors.New("client name is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.APIClient{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, "", fmt.Errorf("failed to check existing clients: %w", err)
	}
	if count > 0 {
		return nil, "", ErrClientExists
	}

	raw := make([]byte, clientSecretLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate client secret: %w", err)
	}
	secret := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash client secret: %w", err)
	}

	client := &models.APIClient{
		ID:         uuid.New(),
		Name:       name,
		SecretHash: string(hash),
	}
	if err := s.insertClient(ctx, client); err != nil {
		return nil, "", err
	}

	s.log.WithFields(logrus.Fields{"client_id": client.ID, "client_name": name}).Info("created API client")
	return client, secret, nil
}

// insertClient stores a new client. The unique index on name decides
// between two creators that both passed the existence check.
func (s *AuthService) insertClient(ctx context.Context, client *models.APIClient) error {
	err := s.db.WithContext(ctx).Create(client).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrClientExists
	}
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// IssueToken exchanges client credentials for a signed access token
func (s *AuthService) IssueToken(ctx context.Context, clientID, secret string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(clientID))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	var client models.APIClient
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load client: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
		s.log.WithField("client_id", id).Warn("rejected client credentials")
		return "", ErrInvalidCredentials
	}

	return s.GenerateToken(&client)
}

// GenerateToken signs an access token for client
func (s *AuthService) GenerateToken(client *models.APIClient) (string, error) {
	now := time.Now()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   client.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		ClientID:   client.ID,
		ClientName: client.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken parses and verifies an access token
func (s *AuthService) ValidateToken(tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ClientID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
