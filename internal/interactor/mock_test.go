package interactor

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/greenbits/opsworks-interactor/internal/deploylock"
	"github.com/greenbits/opsworks-interactor/internal/model"
)

// mockCompute implements the InstanceLister interface for testing.
type mockCompute struct {
	mock.Mock
}

func (m *mockCompute) ListInstances(ctx context.Context, layerID string) ([]model.Instance, error) {
	args := m.Called(ctx, layerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Instance), args.Error(1)
}

// mockLBManager implements the LoadBalancerManager interface for testing.
type mockLBManager struct {
	mock.Mock
}

func (m *mockLBManager) Detach(ctx context.Context, instances []model.Instance) ([]model.LoadBalancer, error) {
	args := m.Called(ctx, instances)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LoadBalancer), args.Error(1)
}

func (m *mockLBManager) Attach(ctx context.Context, instances []model.Instance, lbs []model.LoadBalancer) (map[string]string, error) {
	args := m.Called(ctx, instances, lbs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// mockDeployer implements the Deployer interface for testing.
type mockDeployer struct {
	mock.Mock
}

func (m *mockDeployer) Deploy(ctx context.Context, stackID, appID string, instanceIDs []string, timeout time.Duration) (*model.DeploymentResult, error) {
	args := m.Called(ctx, stackID, appID, instanceIDs, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeploymentResult), args.Error(1)
}

// passLocker runs bodies directly and records that the lock was exercised.
type passLocker struct {
	calls int
}

func (l *passLocker) WithLock(ctx context.Context, body func(ctx context.Context) error) error {
	l.calls++
	return body(ctx)
}

// timeoutLocker fails every acquisition without running the body.
type timeoutLocker struct{}

func (l *timeoutLocker) WithLock(ctx context.Context, body func(ctx context.Context) error) error {
	return &deploylock.LockTimeoutError{Name: "deploy", Wait: time.Second}
}
