// Package redislock serializes balance recalculation for a fiscal period
// across processes with a redsync mutex.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/SscSPs/commerce_ledger/internal/apperrors"
	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

const keyPrefix = "ledger:lock:balances:"

// ErrLockNotHeld is returned by release when the lock expired first.
var ErrLockNotHeld = errors.New("period lock was not held or already expired")

// Options tune the underlying mutex.
type Options struct {
	// Expiry must exceed the longest recalculation.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// DefaultOptions waits up to roughly a minute for a busy period.
func DefaultOptions() Options {
	return Options{
		Expiry:     2 * time.Minute,
		Tries:      120,
		RetryDelay: 500 * time.Millisecond,
	}
}

// PeriodLocker implements portsrepo.PeriodLocker.
type PeriodLocker struct {
	rs   *redsync.Redsync
	opts Options
}

var _ portsrepo.PeriodLocker = (*PeriodLocker)(nil)

// New creates a locker on client. Zero option fields take the defaults.
func New(client redis.UniversalClient, opts Options) *PeriodLocker {
	defaults := DefaultOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = defaults.Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = defaults.Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}
	return &PeriodLocker{rs: redsync.New(goredis.NewPool(client)), opts: opts}
}

// Key returns the redis key guarding period.
func Key(period domain.PeriodRef) string {
	return keyPrefix + period.String()
}

func (l *PeriodLocker) Acquire(ctx context.Context, period domain.PeriodRef) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(Key(period),
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, apperrors.NewConflictError("PERIOD_LOCK_BUSY", "balances for %s are being calculated by another process", period)
		}
		return nil, apperrors.NewExternalError(fmt.Sprintf("failed to acquire lock for %s", period), err)
	}

	release := func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to release lock for %s: %w", period, err)
		}
		if !ok {
			return ErrLockNotHeld
		}
		return nil
	}
	return release, nil
}
