package inbound_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/qrcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/inbound"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
	"github.com/shandysiswandi/otpgate/internal/twofa/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type server struct {
	h      http.Handler
	clock  *clock.Manual
	engine *otp.Engine
	events *messaging.Memory
	tasks  *goroutine.Manager
}

func setup(t *testing.T, inner repository.Repository) *server {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app: {name: otpgate}"))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	s := &server{
		clock:  clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		engine: otp.NewEngine(),
		events: messaging.NewMemory(),
		tasks:  goroutine.NewManager(10),
	}

	ins := instrument.NewNoop()
	uc := usecase.New(usecase.Dependency{
		RepoUser:      repository.NewLocked(inner, time.Second),
		RepoMessaging: mq.NewMessaging(s.events, ins),
		Validator:     v,
		Bcrypt:        hash.NewBcrypt(bcrypt.MinCost, ""),
		UUID:          uid.NewUUID(),
		Secrets:       otp.NewSecretGenerator(),
		Totp:          s.engine,
		QRCode:        qrcode.NewPNG(64),
		Clock:         s.clock,
		Instrument:    ins,
		Goroutine:     s.tasks,
	})

	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), Instrument: ins})
	inbound.RegisterHTTPEndpoint(r, uc)
	s.h = r

	return s
}

func (s *server) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var rd *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	} else {
		rd = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (s *server) code(t *testing.T, secret string) string {
	t.Helper()
	c, err := s.engine.ComputeCode(secret, s.clock.Now())
	require.NoError(t, err)
	return c
}

// wrongCode returns a well-formed code outside the current acceptance band.
func (s *server) wrongCode(t *testing.T, secret string) string {
	t.Helper()
	now := s.clock.Now()
	band := map[string]bool{}
	for _, d := range []time.Duration{-otp.Period * time.Second, 0, otp.Period * time.Second} {
		c, err := s.engine.ComputeCode(secret, now.Add(d))
		require.NoError(t, err)
		band[c] = true
	}
	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if !band[c] {
			return c
		}
	}
	t.Fatal("no wrong code available")
	return ""
}

func TestHTTP_Scenario(t *testing.T) {
	t.Parallel()
	s := setup(t, repository.NewMemory())

	code, body := s.do(t, http.MethodGet, "/api/healthchecker", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])

	code, body = s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ann", "email": "Ann@x.com", "password": "p4ssword",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Registered successfully, please login", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ann", "email": "ann@X.com", "password": "p4ssword",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "User with email: ann@x.com already exists", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ann@x.com", "password": "p4ssword"})
	require.Equal(t, http.StatusOK, code, body)
	user := body["user"].(map[string]any)
	id := user["id"].(string)
	assert.Equal(t, "ann@x.com", user["email"])
	assert.Equal(t, false, user["otp_enabled"])
	assert.Nil(t, user["otp_base32"])
	assert.NotContains(t, user, "password")
	assert.Contains(t, user, "createdAt")

	code, body = s.do(t, http.MethodPost, "/api/auth/otp/generate", map[string]string{"user_id": id, "email": "ann@x.com"})
	require.Equal(t, http.StatusOK, code, body)
	secret := body["base32"].(string)
	assert.Len(t, secret, 32)
	assert.Equal(t, "otpauth://totp/PSAR:ann@x.com?secret="+secret+"&issuer=PSAR", body["otpauth_url"])
	assert.True(t, strings.HasPrefix(body["qr_code"].(string), "data:image/png;base64,"))

	code, body = s.do(t, http.MethodPost, "/api/auth/otp/verify", map[string]string{"user_id": id, "token": s.wrongCode(t, secret)})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Token is invalid or user doesn't exist", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/otp/verify", map[string]string{"user_id": id, "token": s.code(t, secret)})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["otp_verified"])
	user = body["user"].(map[string]any)
	assert.Equal(t, true, user["otp_enabled"])
	assert.Equal(t, true, user["otp_verified"])
	assert.Equal(t, secret, user["otp_base32"])

	s.clock.Advance(30 * time.Second)
	code, body = s.do(t, http.MethodPost, "/api/auth/otp/validate", map[string]string{"user_id": id, "token": s.code(t, secret)})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, map[string]any{"otp_valid": true}, body)

	code, body = s.do(t, http.MethodPost, "/api/auth/otp/disable", map[string]string{"user_id": id})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["otp_disabled"])
	user = body["user"].(map[string]any)
	assert.Equal(t, false, user["otp_enabled"])
	assert.Nil(t, user["otp_base32"])
	assert.Nil(t, user["otp_auth_url"])

	code, body = s.do(t, http.MethodPost, "/api/auth/otp/validate", map[string]string{"user_id": id, "token": s.code(t, secret)})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "2FA not enabled", body["message"])

	require.NoError(t, s.tasks.Wait(context.Background()))
	var destinations []string
	for _, m := range s.events.Messages() {
		destinations = append(destinations, m.Destination)
	}
	assert.ElementsMatch(t, []string{"twofa.user.registered", "twofa.otp.enabled", "twofa.otp.disabled"}, destinations)
}

func TestHTTP_Errors(t *testing.T) {
	t.Parallel()
	s := setup(t, repository.NewMemory())
	missing := uid.NewUUID().Generate()

	tests := []struct {
		name    string
		path    string
		body    any
		code    int
		status  string
		message string
	}{
		{
			name: "unknown user", path: "/api/auth/otp/generate",
			body: map[string]string{"user_id": missing},
			code: http.StatusNotFound, status: "fail", message: "No user with Id: " + missing + " found",
		},
		{
			name: "unknown field", path: "/api/auth/otp/disable",
			body: map[string]string{"user_id": missing, "admin": "yes"},
			code: http.StatusBadRequest, status: "fail",
		},
		{
			name: "opaque id that does not resolve", path: "/api/auth/otp/disable",
			body: map[string]string{"user_id": "42"},
			code: http.StatusNotFound, status: "fail", message: "No user with Id: 42 found",
		},
		{
			name: "unknown user on validate", path: "/api/auth/otp/validate",
			body: map[string]string{"user_id": "no-such-user", "token": "123456"},
			code: http.StatusNotFound, status: "fail", message: "No user with Id: no-such-user found",
		},
		{
			name: "missing user id", path: "/api/auth/otp/verify",
			body: map[string]string{"token": "123456"},
			code: http.StatusUnprocessableEntity, status: "fail",
		},
		{
			name: "bad login", path: "/api/auth/login",
			body: map[string]string{"email": "nobody@x.com", "password": "x"},
			code: http.StatusBadRequest, status: "fail", message: "Invalid email or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.code, code, body)
			assert.Equal(t, tt.status, body["status"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}

	code, body := s.do(t, http.MethodPost, "/api/auth/otp/verify", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	fields := body["error"].(map[string]any)
	assert.Contains(t, fields, "user_id")
	assert.Contains(t, fields, "token")
}

func TestHTTP_MalformedTokenIsForbidden(t *testing.T) {
	t.Parallel()
	s := setup(t, repository.NewMemory())

	code, body := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Bob", "email": "bob@x.com", "password": "p4ssword",
	})
	require.Equal(t, http.StatusOK, code, body)
	code, body = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "bob@x.com", "password": "p4ssword"})
	require.Equal(t, http.StatusOK, code, body)
	id := body["user"].(map[string]any)["id"].(string)

	code, body = s.do(t, http.MethodPost, "/api/auth/otp/generate", map[string]string{"user_id": id})
	require.Equal(t, http.StatusOK, code, body)

	for _, token := range []string{"12345", "1234567", "abcdef", "12 456"} {
		code, body = s.do(t, http.MethodPost, "/api/auth/otp/verify", map[string]string{"user_id": id, "token": token})
		assert.Equal(t, http.StatusForbidden, code, token)
		assert.Equal(t, "Token is invalid or user doesn't exist", body["message"], token)
	}
}

// down is a backend whose every call fails.
type down struct{ *repository.Memory }

var errDown = errors.New("connection refused")

func (down) Ping(context.Context) error { return errDown }

func (down) FindByCustomField(context.Context, entity.Field, string) (*entity.User, error) {
	return nil, errDown
}

func TestHTTP_BackendDown(t *testing.T) {
	t.Parallel()
	s := setup(t, down{repository.NewMemory()})

	code, body := s.do(t, http.MethodGet, "/api/healthchecker", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body["status"])

	code, body = s.do(t, http.MethodPost, "/api/auth/otp/disable", map[string]string{"user_id": uid.NewUUID().Generate()})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body["status"])
	assert.NotContains(t, body["message"], "connection refused")
}
