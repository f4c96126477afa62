package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

// ErrUnknownDriver indicates an unsupported repository driver.
var ErrUnknownDriver = errors.New("repository: unknown driver")

// FactoryOptions groups config for the supported backends.
type FactoryOptions struct {
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig

	// ConnectRetries is how many extra connection attempts are made after the
	// first one fails. ConnectBackoff is the initial Fibonacci step.
	ConnectRetries uint64
	ConnectBackoff time.Duration

	Instrument instrument.Instrumentation
}

// NewFromDriver constructs the backend named by driver. An empty driver is
// treated as DriverMemory. Network backends are retried with a capped
// Fibonacci backoff until ctx ends or the retries run out.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Repository, error) {
	if opts.Instrument == nil {
		opts.Instrument = instrument.NewNoop()
	}

	var connect func(ctx context.Context) (Repository, error)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverPostgres:
		connect = func(ctx context.Context) (Repository, error) { return NewPostgres(ctx, opts.Postgres, opts.Instrument) }
	case DriverMongo:
		connect = func(ctx context.Context) (Repository, error) { return NewMongo(ctx, opts.Mongo, opts.Instrument) }
	case DriverRedis:
		connect = func(ctx context.Context) (Repository, error) { return NewRedis(ctx, opts.Redis, opts.Instrument) }
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	backoff := opts.ConnectBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	b := retry.NewFibonacci(backoff)
	b = retry.WithMaxRetries(opts.ConnectRetries, b)
	b = retry.WithCappedDuration(5*time.Second, b)

	var repo Repository
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		r, err := connect(ctx)
		if err != nil {
			slog.WarnContext(ctx, "repository connect failed", "driver", driver, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		repo = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return repo, nil
}
