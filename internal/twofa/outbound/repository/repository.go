// Package repository holds the storage contract for user credentials and its
// backends: in-memory, PostgreSQL, MongoDB and Redis. One backend is chosen at
// startup (NewFromDriver) and wrapped in Locked before anything else sees it.
//
// Every backend reports outcomes with the same sentinels: goerror.ErrNotFound,
// goerror.ErrConflict, ErrUnsupportedField, ErrUnavailable and ErrTimeout.
// Driver errors never cross this boundary unwrapped.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnavailable wraps any backend failure that is not a domain outcome.
	ErrUnavailable = errors.New("repository: backend unavailable")
	// ErrTimeout is returned when a call outlives its deadline. It is retryable.
	ErrTimeout = errors.New("repository: call timed out")
	// ErrUnsupportedField is returned for lookups on a field outside entity.Field.
	ErrUnsupportedField = errors.New("repository: unsupported lookup field")
)

// Repository is the contract every storage backend satisfies.
type Repository interface {
	// FindByCustomField returns the first user whose field equals value.
	FindByCustomField(ctx context.Context, field entity.Field, value string) (*entity.User, error)
	// FindByEmail looks a user up by normalized email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// RegisterByEmail inserts a new user. A taken email yields goerror.ErrConflict
	// and leaves storage untouched.
	RegisterByEmail(ctx context.Context, reg entity.Registration) error
	// UpdateOTP overwrites all OTP fields of user id in one write and returns
	// the stored record.
	UpdateOTP(ctx context.Context, id string, otp entity.OTP, updatedAt time.Time) (*entity.User, error)
	// Ping checks that the backend answers.
	Ping(ctx context.Context) error
	// Close releases the backend connection.
	Close(ctx context.Context) error
}

// unavailable wraps err as ErrUnavailable unless it already is a known outcome.
func unavailable(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, goerror.ErrNotFound),
		errors.Is(err, goerror.ErrConflict),
		errors.Is(err, ErrUnsupportedField),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func cloneUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	out := *u
	if u.OTPSecret != nil {
		s := *u.OTPSecret
		out.OTPSecret = &s
	}
	if u.OTPAuthURL != nil {
		s := *u.OTPAuthURL
		out.OTPAuthURL = &s
	}
	return &out
}

type tracing struct {
	ins     instrument.Instrumentation
	backend string
}

func (t tracing) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return t.ins.Tracer("twofa.outbound.repository").Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", t.backend)),
	)
}

func (t tracing) end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
