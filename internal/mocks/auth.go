package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/internal/service"
	"github.com/pageza/fitcheck/backend/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

var _ service.IAuthService = (*MockAuthService)(nil)

func (m *MockAuthService) CreateClient(ctx context.Context, name string) (*models.APIClient, string, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.APIClient), args.String(1), args.Error(2)
}

func (m *MockAuthService) IssueToken(ctx context.Context, clientID, secret string) (string, error) {
	args := m.Called(ctx, clientID, secret)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

func (m *MockAuthService) TokenTTL() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}
