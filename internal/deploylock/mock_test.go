package deploylock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// mockBackend implements the Backend interface for testing.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Acquire(ctx context.Context, name string, maxWait time.Duration) (Lease, error) {
	args := m.Called(ctx, name, maxWait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Lease), args.Error(1)
}

// mockLease implements the Lease interface for testing.
type mockLease struct {
	mock.Mock
}

func (m *mockLease) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// memoryBackend is an in-process Backend backed by a semaphore channel. Used
// to exercise real contention between concurrent lockers.
type memoryBackend struct {
	sem chan struct{}
}

func newMemoryBackend() *memoryBackend {
	sem := make(chan struct{}, 1)
	sem <- struct{}{}
	return &memoryBackend{sem: sem}
}

func (b *memoryBackend) Acquire(ctx context.Context, name string, maxWait time.Duration) (Lease, error) {
	select {
	case <-b.sem:
		return &memoryLease{sem: b.sem}, nil
	case <-time.After(maxWait):
		return nil, &LockTimeoutError{Name: name, Wait: maxWait}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memoryLease struct {
	sem chan struct{}
}

func (l *memoryLease) Release(ctx context.Context) error {
	l.sem <- struct{}{}
	return nil
}
