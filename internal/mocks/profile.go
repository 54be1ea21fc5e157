package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/internal/service"
	"github.com/pageza/fitcheck/backend/internal/types"
)

// MockProfileService is a mock implementation of the ProfileService interface
type MockProfileService struct {
	mock.Mock
}

var _ service.IProfileService = (*MockProfileService)(nil)

func (m *MockProfileService) CreateProfile(ctx context.Context, req *types.CreateProfileRequest) (*models.UserProfile, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileService) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileService) ListProfiles(ctx context.Context, filter types.ProfileFilter) ([]models.UserProfile, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.UserProfile), args.Get(1).(int64), args.Error(2)
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, id uint, req *types.UpdateProfileRequest) (*models.UserProfile, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileService) DeleteProfile(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProfileService) UploadProfilePhoto(ctx context.Context, id uint, photo io.Reader) (*models.UserProfile, error) {
	args := m.Called(ctx, id, photo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileService) RemoveProfilePhoto(ctx context.Context, id uint) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileService) PhotoURL(ctx context.Context, id uint, ttl time.Duration) (string, error) {
	args := m.Called(ctx, id, ttl)
	return args.String(0), args.Error(1)
}
