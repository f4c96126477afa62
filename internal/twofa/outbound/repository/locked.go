package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
)

// DefaultCallTimeout bounds a single backend call when none is configured.
const DefaultCallTimeout = 3 * time.Second

// Locked serializes every call to one backend instance: at most one read or
// write is in flight at a time.
//
// This guards backend clients that are not safe for concurrent use and makes
// each WithLock block atomic within the process. It also serializes unrelated
// users, so throughput is bounded by one backend round trip at a time. Scaling
// out means sharding the lock by user id or relying on the store's own row
// locking; the storage unique constraints stay authoritative either way.
//
// Waiting for the lock honours ctx. Each backend call runs under its own
// timeout and a missed deadline surfaces as ErrTimeout.
type Locked struct {
	inner   Repository
	sem     chan struct{}
	timeout time.Duration
}

// NewLocked wraps inner. A non-positive timeout uses DefaultCallTimeout.
func NewLocked(inner Repository, timeout time.Duration) *Locked {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Locked{inner: inner, sem: make(chan struct{}, 1), timeout: timeout}
}

func (l *Locked) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: waiting for repository lock", ErrTimeout)
		}
		return ctx.Err()
	}
}

func (l *Locked) release() { <-l.sem }

// WithLock runs fn while holding the lock. The Repository handed to fn must
// only be used inside fn; its calls keep the per-call timeout but do not
// take the lock again.
func (l *Locked) WithLock(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()

	return fn(ctx, held{l})
}

func (l *Locked) FindByCustomField(ctx context.Context, field entity.Field, value string) (u *entity.User, err error) {
	err = l.WithLock(ctx, func(ctx context.Context, repo Repository) error {
		u, err = repo.FindByCustomField(ctx, field, value)
		return err
	})
	return u, err
}

func (l *Locked) FindByEmail(ctx context.Context, email string) (u *entity.User, err error) {
	err = l.WithLock(ctx, func(ctx context.Context, repo Repository) error {
		u, err = repo.FindByEmail(ctx, email)
		return err
	})
	return u, err
}

func (l *Locked) RegisterByEmail(ctx context.Context, reg entity.Registration) error {
	return l.WithLock(ctx, func(ctx context.Context, repo Repository) error {
		return repo.RegisterByEmail(ctx, reg)
	})
}

func (l *Locked) UpdateOTP(ctx context.Context, id string, otp entity.OTP, updatedAt time.Time) (u *entity.User, err error) {
	err = l.WithLock(ctx, func(ctx context.Context, repo Repository) error {
		u, err = repo.UpdateOTP(ctx, id, otp, updatedAt)
		return err
	})
	return u, err
}

func (l *Locked) Ping(ctx context.Context) error {
	return l.WithLock(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Ping(ctx)
	})
}

// Close waits for the in-flight call, then closes the backend.
func (l *Locked) Close(ctx context.Context) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()

	return l.inner.Close(ctx)
}

// held is the view of the backend given to WithLock callbacks.
type held struct{ l *Locked }

func (h held) call(ctx context.Context, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, h.l.timeout)
	defer cancel()

	err := fn(cctx)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return unavailable(err)
}

func (h held) FindByCustomField(ctx context.Context, field entity.Field, value string) (u *entity.User, err error) {
	err = h.call(ctx, func(ctx context.Context) error {
		u, err = h.l.inner.FindByCustomField(ctx, field, value)
		return err
	})
	return u, err
}

func (h held) FindByEmail(ctx context.Context, email string) (u *entity.User, err error) {
	err = h.call(ctx, func(ctx context.Context) error {
		u, err = h.l.inner.FindByEmail(ctx, email)
		return err
	})
	return u, err
}

func (h held) RegisterByEmail(ctx context.Context, reg entity.Registration) error {
	return h.call(ctx, func(ctx context.Context) error {
		return h.l.inner.RegisterByEmail(ctx, reg)
	})
}

func (h held) UpdateOTP(ctx context.Context, id string, otp entity.OTP, updatedAt time.Time) (u *entity.User, err error) {
	err = h.call(ctx, func(ctx context.Context) error {
		u, err = h.l.inner.UpdateOTP(ctx, id, otp, updatedAt)
		return err
	})
	return u, err
}

func (h held) Ping(ctx context.Context) error {
	return h.call(ctx, h.l.inner.Ping)
}

// Close is a no-op inside a locked section; use Locked.Close.
func (h held) Close(context.Context) error { return nil }
