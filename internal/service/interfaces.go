package service

import (
	"context"
	"io"
	"time"

	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/internal/types"
)

// IProfileService defines the interface for user profile operations
type IProfileService interface {
	CreateProfile(ctx context.Context, req *types.CreateProfileRequest) (*models.UserProfile, error)
	GetProfile(ctx context.Context, id uint) (*models.UserProfile, error)
	ListProfiles(ctx context.Context, filter types.ProfileFilter) ([]models.UserProfile, int64, error)
	UpdateProfile(ctx context.Context, id uint, req *types.UpdateProfileRequest) (*models.UserProfile, error)
	DeleteProfile(ctx context.Context, id uint) error
	UploadProfilePhoto(ctx context.Context, id uint, photo io.Reader) (*models.UserProfile, error)
	RemoveProfilePhoto(ctx context.Context, id uint) (*models.UserProfile, error)
	PhotoURL(ctx context.Context, id uint, ttl time.Duration) (string, error)
}

// IAuthService defines the interface for service client authentication
type IAuthService interface {
	CreateClient(ctx context.Context, name string) (*models.APIClient, string, error)
	IssueToken(ctx context.Context, clientID, secret string) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
	TokenTTL() time.Duration
}

// ProfileCache is the cache consulted by ProfileService.GetProfile
type ProfileCache interface {
	Get(ctx context.Context, id uint) (*models.UserProfile, error)
	Set(ctx context.Context, profile *models.UserProfile) error
	Invalidate(ctx context.Context, id uint) error
}

// PhotoStore persists profile photo bytes and hands back their URL
type PhotoStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
	PresignGet(ctx context.Context, url string, ttl time.Duration) (string, error)
}
