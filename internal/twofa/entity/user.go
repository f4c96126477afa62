package entity

import (
	"fmt"
	"strings"
	"time"
)

// Field names a user attribute that repositories can look up by.
type Field string

const (
	FieldID    Field = "id"
	FieldEmail Field = "email"
	FieldName  Field = "name"
)

// Valid reports whether f is a supported lookup field.
func (f Field) Valid() bool {
	switch f {
	case FieldID, FieldEmail, FieldName:
		return true
	default:
		return false
	}
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	OTPEnabled   bool
	OTPVerified  bool
	OTPSecret    *string
	OTPAuthURL   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registration is what a repository needs to insert a new user.
type Registration struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// User returns the record created by r, with OTP off.
func (r Registration) User() *User {
	return &User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.CreatedAt,
	}
}

// OTP is the mutable second-factor part of a User, always written as a whole.
type OTP struct {
	Enabled  bool
	Verified bool
	Secret   *string
	AuthURL  *string
}

// NormalizeEmail trims and lowercases an address so that lookups and the
// unique index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OTP returns the current second-factor fields of u.
func (u *User) OTP() OTP {
	return OTP{
		Enabled:  u.OTPEnabled,
		Verified: u.OTPVerified,
		Secret:   u.OTPSecret,
		AuthURL:  u.OTPAuthURL,
	}
}

// Apply returns a copy of u carrying o and stamped with at.
func (u *User) Apply(o OTP, at time.Time) *User {
	out := *u
	out.OTPEnabled = o.Enabled
	out.OTPVerified = o.Verified
	out.OTPSecret = o.Secret
	out.OTPAuthURL = o.AuthURL
	if at.After(out.UpdatedAt) {
		out.UpdatedAt = at
	}
	return &out
}

// State derives the workflow position from the stored fields.
func (u *User) State() State {
	switch {
	case u.OTPVerified:
		return StateOTPVerified
	case u.OTPSecret != nil:
		return StateOTPGenerated
	default:
		return StateNoOTP
	}
}

// Validate checks the record invariants.
func (u *User) Validate() error {
	if err := u.OTP().Validate(); err != nil {
		return err
	}
	if u.UpdatedAt.Before(u.CreatedAt) {
		return fmt.Errorf("%w: updated before created", ErrInvariant)
	}
	return nil
}

// Validate checks that the OTP fields agree with each other.
func (o OTP) Validate() error {
	if (o.Secret == nil) != (o.AuthURL == nil) {
		return fmt.Errorf("%w: secret and auth url must be set together", ErrInvariant)
	}
	if o.Verified && !o.Enabled {
		return fmt.Errorf("%w: verified without enabled", ErrInvariant)
	}
	if o.Enabled && o.Secret == nil {
		return fmt.Errorf("%w: enabled without secret", ErrInvariant)
	}
	return nil
}

// GeneratedOTP is the state right after a secret is issued: stored but not
// yet confirmed by a code.
func GeneratedOTP(secret, authURL string) OTP {
	return OTP{Secret: &secret, AuthURL: &authURL}
}

// VerifiedOTP returns o with both flags raised. The secret is kept.
func (o OTP) VerifiedOTP() OTP {
	o.Enabled = true
	o.Verified = true
	return o
}

// DisabledOTP is the fully reset state.
func DisabledOTP() OTP {
	return OTP{}
}
