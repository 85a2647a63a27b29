// Package deploylock provides cluster-wide mutual exclusion for deploy runs.
// Separate orchestrator invocations, possibly on different hosts, contend on
// a named lock so that only one of them sequences load-balancer membership
// changes at a time.
package deploylock

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxWait is how long an invocation waits for the deploy lock before
// giving up.
const DefaultMaxWait = 600 * time.Second

// LockTimeoutError indicates the lock could not be acquired within the wait
// window. The protected body never ran and no instance was touched.
type LockTimeoutError struct {
	Name string
	Wait time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("deploy lock %q not acquired within %s", e.Name, e.Wait)
}

// Lease is a held lock. Release must be called exactly once.
type Lease interface {
	Release(ctx context.Context) error
}

// Backend acquires named locks. Acquire blocks up to maxWait and returns a
// *LockTimeoutError when the lock stays held by someone else for the whole
// window.
type Backend interface {
	Acquire(ctx context.Context, name string, maxWait time.Duration) (Lease, error)
}

// Locker runs bodies under a named cluster-wide lock. A nil backend is an
// explicit opt-out: bodies run immediately, unlocked, with a warning.
type Locker struct {
	backend Backend
	logger  zerolog.Logger
	name    string
	maxWait time.Duration
}

// NewLocker creates a Locker for the given lock name. backend may be nil to
// disable locking. A maxWait of zero falls back to DefaultMaxWait.
func NewLocker(logger zerolog.Logger, backend Backend, name string, maxWait time.Duration) *Locker {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Locker{
		backend: backend,
		logger:  logger.With().Str("component", "deploy-lock").Str("lock", name).Logger(),
		name:    name,
		maxWait: maxWait,
	}
}

// WithLock acquires the lock, runs body, and releases the lock on every exit
// path. If acquisition times out, body never runs and the *LockTimeoutError
// is returned. Errors from body propagate after the lock is released.
func (l *Locker) WithLock(ctx context.Context, body func(ctx context.Context) error) error {
	if l.backend == nil {
		l.logger.Warn().Str("event", "lock-disabled").Msg("no lock backend configured, running unlocked")
		return body(ctx)
	}

	l.logger.Info().Str("event", "lock-waiting").Dur("max_wait", l.maxWait).Msg("waiting for deploy lock")
	lease, err := l.backend.Acquire(ctx, l.name, l.maxWait)
	if err != nil {
		l.logger.Error().Str("event", "lock-timeout").Err(err).Msg("deploy lock not acquired")
		return err
	}
	l.logger.Info().Str("event", "lock-acquired").Msg("deploy lock acquired")

	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			l.logger.Error().Err(releaseErr).Msg("failed to release deploy lock")
			return
		}
		l.logger.Info().Str("event", "lock-released").Msg("deploy lock released")
	}()

	return body(ctx)
}
