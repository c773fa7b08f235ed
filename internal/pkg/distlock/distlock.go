// Package distlock keeps cron work (launches, dispatch ticks) to one replica.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is not safe for concurrent use; create one lock per run.
type DistLock interface {
	// Acquire reports whether the lock was taken. It never blocks.
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Expiring is implemented by locks that free themselves once their TTL runs
// out.
type Expiring interface {
	ExpiresWithTTL() bool
}

// Finish ends a run. A lock that expires on its own is kept until its TTL so
// later contenders for the same key are still refused; any other lock is
// released.
func Finish(ctx context.Context, lock DistLock) error {
	if e, ok := lock.(Expiring); ok && e.ExpiresWithTTL() {
		return nil
	}
	return lock.Release(ctx)
}

// Factory builds a lock for a key.
type Factory func(key string, ttl time.Duration) DistLock

// NewFactory prefers Redis and falls back to Postgres advisory locks. With
// neither configured every lock is granted.
func NewFactory(redisClient *redis.Client, db *sql.DB) Factory {
	return func(key string, ttl time.Duration) DistLock {
		switch {
		case redisClient != nil:
			return NewRedisLock(redisClient, key, ttl)
		case db != nil:
			return NewPGAdvisoryLock(db, key)
		default:
			return noopLock{}
		}
	}
}

// PGAdvisoryLock uses session-scoped pg_try_advisory_lock, released when the
// connection drops.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// Acquire pins a connection so Release unlocks on the same session.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }
