package deploy

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/greenbits/opsworks-interactor/internal/model"
)

// mockService implements the Service interface for testing.
type mockService struct {
	mock.Mock
}

func (m *mockService) CreateDeployment(ctx context.Context, req model.DeploymentRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockService) DeploymentStatus(ctx context.Context, deploymentID string) (string, error) {
	args := m.Called(ctx, deploymentID)
	return args.String(0), args.Error(1)
}
