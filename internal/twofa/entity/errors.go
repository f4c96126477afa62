package entity

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredential  = errors.New("invalid email or password")
	ErrOTPMissing         = errors.New("otp secret missing")
	ErrOTPNotEnabled      = errors.New("otp not enabled")
	ErrOTPAlreadyVerified = errors.New("otp already verified")
	ErrTokenInvalid       = errors.New("otp token invalid")

	// ErrInvariant marks a record whose OTP fields contradict each other.
	ErrInvariant = errors.New("user record invariant violated")
)
