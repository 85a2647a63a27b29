package lbmanager

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/greenbits/opsworks-interactor/internal/model"
)

// mockService implements the Service interface for testing.
type mockService struct {
	mock.Mock
}

func (m *mockService) ListLoadBalancers(ctx context.Context) ([]model.LoadBalancer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LoadBalancer), args.Error(1)
}

func (m *mockService) DeregisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	args := m.Called(ctx, lbName, ec2InstanceIDs)
	return args.Error(0)
}

func (m *mockService) RegisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	args := m.Called(ctx, lbName, ec2InstanceIDs)
	return args.Error(0)
}

func (m *mockService) InstanceStates(ctx context.Context, lbName string) (map[string]string, error) {
	args := m.Called(ctx, lbName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// fakeELB is a stateful in-memory Service used for round-trip tests.
// Registered instances report InService immediately.
type fakeELB struct {
	membership map[string][]string
}

func newFakeELB(membership map[string][]string) *fakeELB {
	copied := make(map[string][]string, len(membership))
	for name, ids := range membership {
		copied[name] = append([]string(nil), ids...)
	}
	return &fakeELB{membership: copied}
}

func (f *fakeELB) ListLoadBalancers(ctx context.Context) ([]model.LoadBalancer, error) {
	var lbs []model.LoadBalancer
	for name, ids := range f.membership {
		lbs = append(lbs, model.LoadBalancer{Name: name, InstanceIDs: append([]string(nil), ids...)})
	}
	return lbs, nil
}

func (f *fakeELB) DeregisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	remove := make(map[string]bool, len(ec2InstanceIDs))
	for _, id := range ec2InstanceIDs {
		remove[id] = true
	}
	var remaining []string
	for _, id := range f.membership[lbName] {
		if !remove[id] {
			remaining = append(remaining, id)
		}
	}
	f.membership[lbName] = remaining
	return nil
}

func (f *fakeELB) RegisterInstances(ctx context.Context, lbName string, ec2InstanceIDs []string) error {
	for _, id := range ec2InstanceIDs {
		attached := false
		for _, existing := range f.membership[lbName] {
			if existing == id {
				attached = true
				break
			}
		}
		if !attached {
			f.membership[lbName] = append(f.membership[lbName], id)
		}
	}
	return nil
}

func (f *fakeELB) InstanceStates(ctx context.Context, lbName string) (map[string]string, error) {
	states := make(map[string]string)
	for _, id := range f.membership[lbName] {
		states[id] = model.LBInstanceStateInService
	}
	return states, nil
}
