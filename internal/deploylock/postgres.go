package deploylock

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const acquirePollInterval = 1 * time.Second

var errLockHeld = errors.New("advisory lock held elsewhere")

// PostgresBackend implements Backend on top of Postgres session-scoped
// advisory locks. Lock names are hashed to the 64-bit advisory key space.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresBackend creates a backend over an existing connection pool.
func NewPostgresBackend(logger zerolog.Logger, pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{
		pool:   pool,
		logger: logger.With().Str("component", "pg-lock-backend").Logger(),
	}
}

// Acquire pins a pool connection and polls pg_try_advisory_lock on it until
// the lock is obtained or maxWait elapses. The lease keeps the connection
// pinned; advisory locks are session-scoped, so releasing must happen on the
// same connection.
func (b *PostgresBackend) Acquire(ctx context.Context, name string, maxWait time.Duration) (Lease, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	key := lockKey(name)
	holder := uuid.New().String()

	backoff := retry.WithMaxDuration(maxWait, retry.NewConstant(acquirePollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var locked bool
		if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&locked); err != nil {
			return fmt.Errorf("try advisory lock %q: %w", name, err)
		}
		if !locked {
			return retry.RetryableError(errLockHeld)
		}
		return nil
	})
	if err != nil {
		conn.Release()
		if errors.Is(err, errLockHeld) {
			return nil, &LockTimeoutError{Name: name, Wait: maxWait}
		}
		return nil, err
	}

	b.logger.Debug().Str("lock", name).Str("holder", holder).Int64("key", key).Msg("advisory lock acquired")
	return &postgresLease{conn: conn, key: key, name: name}, nil
}

type postgresLease struct {
	conn *pgxpool.Conn
	key  int64
	name string
}

func (l *postgresLease) Release(ctx context.Context) error {
	defer l.conn.Release()
	var unlocked bool
	if err := l.conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", l.key).Scan(&unlocked); err != nil {
		return fmt.Errorf("release advisory lock %q: %w", l.name, err)
	}
	if !unlocked {
		return fmt.Errorf("advisory lock %q was not held by this session", l.name)
	}
	return nil
}

// lockKey maps a lock name onto the advisory-lock key space.
func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
