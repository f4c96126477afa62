package otp

import (
	"crypto/subtle"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Digits is the length of every code.
	Digits = 6
	// Period is the time step in seconds.
	Period = 30
	// Skew is the number of steps accepted before and after the current one.
	Skew = 1
)

var (
	// ErrInvalidSecretEncoding is returned when a secret is not valid base32.
	ErrInvalidSecretEncoding = errors.New("otp: invalid secret encoding")

	// ErrMalformedToken is returned when a submitted code is not exactly six digits.
	ErrMalformedToken = errors.New("otp: malformed token")
)

var opts = totp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Engine computes and verifies TOTP codes.
type Engine struct{}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ComputeCode returns the code for the time step containing at.
func (e *Engine) ComputeCode(secret string, at time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrInvalidSecretEncoding
	}

	code, err := totp.GenerateCodeCustom(secret, at, opts)
	if err != nil {
		return "", ErrInvalidSecretEncoding
	}

	return code, nil
}

// VerifyCode reports whether code matches the step containing at or one of its
// neighbours. Every candidate is compared in constant time and no candidate is
// skipped after a match.
func (e *Engine) VerifyCode(secret, code string, at time.Time) (bool, error) {
	if !wellFormed(code) {
		return false, ErrMalformedToken
	}

	counter := at.Unix() / Period
	match := 0
	for offset := int64(-Skew); offset <= Skew; offset++ {
		step := counter + offset
		if step < 0 {
			continue
		}

		want, err := e.ComputeCode(secret, time.Unix(step*Period, 0))
		if err != nil {
			return false, err
		}

		match |= subtle.ConstantTimeCompare([]byte(want), []byte(code))
	}

	return match == 1, nil
}

// ProvisioningURI builds the otpauth:// URI consumed by authenticator apps.
// Label parts are path escaped and query values are query escaped.
func (e *Engine) ProvisioningURI(issuer, email, secret string) string {
	var sb strings.Builder
	sb.WriteString("otpauth://totp/")
	sb.WriteString(url.PathEscape(issuer))
	sb.WriteByte(':')
	sb.WriteString(url.PathEscape(email))
	sb.WriteString("?secret=")
	sb.WriteString(url.QueryEscape(secret))
	sb.WriteString("&issuer=")
	sb.WriteString(url.QueryEscape(issuer))

	return sb.String()
}

func wellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
