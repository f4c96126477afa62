package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/qrcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
	"github.com/shandysiswandi/otpgate/internal/twofa/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func (r *recorder) PublishUserRegistered(context.Context, usecase.UserRegisteredEvent) error {
	r.add("user.registered")
	return nil
}

func (r *recorder) PublishOTPEnabled(context.Context, usecase.OTPLifecycleEvent) error {
	r.add("otp.enabled")
	return nil
}

func (r *recorder) PublishOTPDisabled(context.Context, usecase.OTPLifecycleEvent) error {
	r.add("otp.disabled")
	return nil
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	uc     *usecase.Usecase
	repo   *repository.Locked
	clock  *clock.Manual
	engine *otp.Engine
	events *recorder
	tasks  *goroutine.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		repo:   repository.NewLocked(repository.NewMemory(), time.Second),
		clock:  clock.NewManual(start),
		engine: otp.NewEngine(),
		events: &recorder{},
		tasks:  goroutine.NewManager(10),
	}
	f.uc = usecase.New(usecase.Dependency{
		RepoUser:      f.repo,
		RepoMessaging: f.events,
		Validator:     v,
		Bcrypt:        hash.NewBcrypt(bcrypt.MinCost, ""),
		UUID:          uid.NewUUID(),
		Secrets:       otp.NewSecretGenerator(),
		Totp:          f.engine,
		QRCode:        qrcode.NewPNG(64),
		Clock:         f.clock,
		Instrument:    instrument.NewNoop(),
		Goroutine:     f.tasks,
	})

	return f
}

// register creates a user and returns its id.
func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.uc.Register(ctx, usecase.RegisterInput{Name: "Ann", Email: email, Password: "secret-pass"}))
	u, err := f.repo.FindByEmail(ctx, email)
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) code(t *testing.T, secret string) string {
	t.Helper()
	c, err := f.engine.ComputeCode(secret, f.clock.Now())
	require.NoError(t, err)
	return c
}

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	var gerr *goerror.Error
	require.True(t, errors.As(err, &gerr), "want *goerror.Error, got %v", err)
	assert.Equal(t, code, gerr.Code(), gerr.String())
}

func TestRegister(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.register(t, "  Ann@X.com ")

	u, err := f.repo.FindByCustomField(ctx, entity.FieldID, id)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.True(t, uid.Valid(u.ID))
	assert.NotEqual(t, "secret-pass", u.PasswordHash)
	assert.Equal(t, entity.StateNoOTP, u.State())
	assert.True(t, u.CreatedAt.Equal(start))

	err = f.uc.Register(ctx, usecase.RegisterInput{Name: "Other", Email: "ANN@x.com", Password: "pw"})
	assertCode(t, err, goerror.CodeConflict)
	assert.ErrorIs(t, err, entity.ErrUserExists)
	assert.Contains(t, err.Error(), "ann@x.com")

	require.NoError(t, f.tasks.Wait(ctx))
	assert.Equal(t, []string{"user.registered"}, f.events.Events())
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.uc.Register(context.Background(), usecase.RegisterInput{Name: "  ", Email: "not-an-email", Password: ""})
	assertCode(t, err, goerror.CodeInvalidInput)

	var verr validator.V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "name")
	assert.Contains(t, verr, "email")
	assert.Contains(t, verr, "password")
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Go(func() {
			errs[i] = f.uc.Register(ctx, usecase.RegisterInput{Name: "Ann", Email: "race@x.com", Password: "pw"})
		})
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assertCode(t, err, goerror.CodeConflict)
	}
	assert.Equal(t, 1, ok)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "ann@x.com")

	u, err := f.uc.Login(ctx, usecase.LoginInput{Email: "ANN@x.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	_, err = f.uc.Login(ctx, usecase.LoginInput{Email: "ann@x.com", Password: "wrong"})
	assertCode(t, err, goerror.CodeBadRequest)
	assert.ErrorIs(t, err, entity.ErrInvalidCredential)

	_, err = f.uc.Login(ctx, usecase.LoginInput{Email: "bob@x.com", Password: "secret-pass"})
	assertCode(t, err, goerror.CodeBadRequest)
}

func TestOTPWorkflow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "ann@x.com")

	gen, err := f.uc.OTPGenerate(ctx, usecase.OTPGenerateInput{UserID: id, Email: "Ann@x.com"})
	require.NoError(t, err)
	assert.Len(t, gen.Base32, 32)
	assert.Equal(t, "otpauth://totp/PSAR:ann@x.com?secret="+gen.Base32+"&issuer=PSAR", gen.AuthURL)
	assert.Contains(t, gen.QRCode, "data:image/png;base64,")

	u, err := f.repo.FindByCustomField(ctx, entity.FieldID, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StateOTPGenerated, u.State())
	assert.False(t, u.OTPEnabled)

	// validate before enrollment is confirmed
	err = f.uc.OTPValidate(ctx, usecase.OTPValidateInput{UserID: id, Token: f.code(t, gen.Base32)})
	assertCode(t, err, goerror.CodeForbidden)
	assert.ErrorIs(t, err, entity.ErrOTPNotEnabled)

	f.clock.Advance(10 * time.Second)
	verified, err := f.uc.OTPVerify(ctx, usecase.OTPVerifyInput{UserID: id, Token: f.code(t, gen.Base32)})
	require.NoError(t, err)
	assert.True(t, verified.OTPEnabled)
	assert.True(t, verified.OTPVerified)
	assert.Equal(t, gen.Base32, *verified.OTPSecret)
	assert.True(t, verified.UpdatedAt.Equal(start.Add(10*time.Second)))

	f.clock.Advance(time.Minute)
	require.NoError(t, f.uc.OTPValidate(ctx, usecase.OTPValidateInput{UserID: id, Token: f.code(t, gen.Base32)}))

	// a confirmed factor is not silently replaced
	_, err = f.uc.OTPGenerate(ctx, usecase.OTPGenerateInput{UserID: id})
	assertCode(t, err, goerror.CodeConflict)
	assert.ErrorIs(t, err, entity.ErrOTPAlreadyVerified)
	kept, err := f.repo.FindByCustomField(ctx, entity.FieldID, id)
	require.NoError(t, err)
	assert.Equal(t, gen.Base32, *kept.OTPSecret)
	assert.True(t, kept.OTPVerified)

	disabled, err := f.uc.OTPDisable(ctx, usecase.OTPDisableInput{UserID: id})
	require.NoError(t, err)
	assert.Equal(t, entity.StateNoOTP, disabled.State())
	assert.Nil(t, disabled.OTPSecret)
	assert.Nil(t, disabled.OTPAuthURL)

	// disable is idempotent
	again, err := f.uc.OTPDisable(ctx, usecase.OTPDisableInput{UserID: id})
	require.NoError(t, err)
	assert.Equal(t, entity.StateNoOTP, again.State())

	err = f.uc.OTPValidate(ctx, usecase.OTPValidateInput{UserID: id, Token: "123456"})
	assert.ErrorIs(t, err, entity.ErrOTPNotEnabled)

	require.NoError(t, f.tasks.Wait(ctx))
	assert.ElementsMatch(t, []string{"user.registered", "otp.enabled", "otp.disabled"}, f.events.Events())
}

func TestOTPGenerate_UsesStoredEmailAndReplacesPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "ann@x.com")

	first, err := f.uc.OTPGenerate(ctx, usecase.OTPGenerateInput{UserID: id})
	require.NoError(t, err)
	assert.Contains(t, first.AuthURL, "PSAR:ann@x.com")

	second, err := f.uc.OTPGenerate(ctx, usecase.OTPGenerateInput{UserID: id})
	require.NoError(t, err)
	assert.NotEqual(t, first.Base32, second.Base32)

	// the first secret is gone
	_, err = f.uc.OTPVerify(ctx, usecase.OTPVerifyInput{UserID: id, Token: f.code(t, first.Base32)})
	assert.ErrorIs(t, err, entity.ErrTokenInvalid)
}

func TestOTPVerify_Failures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "ann@x.com")
	missing := uid.NewUUID().Generate()

	_, err := f.uc.OTPVerify(ctx, usecase.OTPVerifyInput{UserID: missing, Token: "123456"})
	assertCode(t, err, goerror.CodeNotFound)
	assert.Equal(t, "No user with Id: "+missing+" found", err.(*goerror.Error).Msg())

	_, err = f.uc.OTPVerify(ctx, usecase.OTPVerifyInput{UserID: id, Token: "123456"})
	assertCode(t, err, goerror.CodeForbidden)
	assert.ErrorIs(t, err, entity.ErrOTPMissing)

	_, err = f.uc.OTPVerify(ctx, usecase.OTPVerifyInput{UserID: "42", Token: "123456"})
	assertCode(t, err, goerror.CodeNotFound)

	gen, err := f.uc.OTPGenerate(ctx, usecase.OTPGenerateInput{UserID: id})
	require.NoError(t, err)
	before, err := f.repo.FindByCustomField(ctx, entity.FieldID, id)
	require.NoError(t, err)

	stale := f.code(t, gen.Base32)
	f.clock.Advance(2 * time.Minute)
	_, err = f.uc.OTPVerify(ctx, usecase.OTPVerifyInput{UserID: id, Token: stale})
	assertCode(t, err, goerror.CodeForbidden)
	assert.ErrorIs(t, err, entity.ErrTokenInvalid)

	_, err = f.uc.OTPVerify(ctx, usecase.OTPVerifyInput{UserID: id, Token: "12ab56"})
	assertCode(t, err, goerror.CodeForbidden)
	assert.ErrorIs(t, err, entity.ErrTokenInvalid)

	after, err := f.repo.FindByCustomField(ctx, entity.FieldID, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOTPDisable_UnknownUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.uc.OTPDisable(context.Background(), usecase.OTPDisableInput{UserID: uid.NewUUID().Generate()})
	assertCode(t, err, goerror.CodeNotFound)
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.Health(ctx))

	require.NoError(t, f.repo.Close(ctx))
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err := f.uc.Health(canceled)
	assertCode(t, err, goerror.CodeUnavailable)
}
