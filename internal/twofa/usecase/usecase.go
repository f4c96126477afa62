package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/qrcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
	"go.opentelemetry.io/otel/trace"
)

// DefaultIssuer labels provisioning URIs when none is configured.
const DefaultIssuer = "PSAR"

type UserRegisteredEvent struct {
	UserID    string
	Email     string
	Name      string
	CreatedAt time.Time
}

type OTPLifecycleEvent struct {
	UserID     string
	Email      string
	OccurredAt time.Time
}

type repoMessaging interface {
	PublishUserRegistered(ctx context.Context, msg UserRegisteredEvent) error
	PublishOTPEnabled(ctx context.Context, msg OTPLifecycleEvent) error
	PublishOTPDisabled(ctx context.Context, msg OTPLifecycleEvent) error
}

// repoUser is a serialized repository handle; see repository.Locked.
type repoUser interface {
	repository.Repository
	WithLock(ctx context.Context, fn func(ctx context.Context, repo repository.Repository) error) error
}

type secretGenerator interface {
	Generate() (string, error)
}

type totpEngine interface {
	VerifyCode(secret, code string, at time.Time) (bool, error)
	ProvisioningURI(issuer, email, secret string) string
}

type Usecase struct {
	repoUser      repoUser
	repoMessaging repoMessaging
	validator     validator.Validator
	bcrypt        hash.Hash
	uuid          uid.StringID
	secrets       secretGenerator
	totp          totpEngine
	qr            qrcode.Renderer
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
	issuer        string
}

type Dependency struct {
	RepoUser      repoUser
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Bcrypt        hash.Hash
	UUID          uid.StringID
	Secrets       secretGenerator
	Totp          totpEngine
	QRCode        qrcode.Renderer
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
	Issuer        string
}

func New(dep Dependency) *Usecase {
	issuer := dep.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return &Usecase{
		repoUser:      dep.RepoUser,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		bcrypt:        dep.Bcrypt,
		uuid:          dep.UUID,
		secrets:       dep.Secrets,
		totp:          dep.Totp,
		qr:            dep.QRCode,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
		issuer:        issuer,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofa.usecase").Start(ctx, name)
}

func userNotFound(id string) error {
	return goerror.NewBusinessWrap(entity.ErrUserNotFound, fmt.Sprintf("No user with Id: %s found", id), goerror.CodeNotFound)
}

func tokenInvalid() error {
	return goerror.NewBusinessWrap(entity.ErrTokenInvalid, "Token is invalid or user doesn't exist", goerror.CodeForbidden)
}

// repoFailure classifies a repository error that is not a domain outcome.
func repoFailure(ctx context.Context, msg string, err error, args ...any) error {
	slog.ErrorContext(ctx, msg, append(args, "error", err)...)

	switch {
	case errors.Is(err, repository.ErrTimeout):
		return goerror.NewServerCode(err, "Storage did not respond in time", goerror.CodeTimeout)
	case errors.Is(err, repository.ErrUnavailable):
		return goerror.NewServerCode(err, "Storage unavailable", goerror.CodeUnavailable)
	default:
		return goerror.NewServer(err)
	}
}

// findUser loads id or reports the 404 business error.
func findUser(ctx context.Context, repo repository.Repository, id string) (*entity.User, error) {
	user, err := repo.FindByCustomField(ctx, entity.FieldID, id)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user not found", "user_id", id)
		return nil, userNotFound(id)
	}
	if err != nil {
		return nil, repoFailure(ctx, "failed to repo find user by id", err, "user_id", id)
	}

	return user, nil
}
