package inbound

import (
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
)

const healthMessage = "Two-Factor Authentication (2FA) with TOTP is up"

// MessageResponse is the {status, message} body used by health and register.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UserView is the public shape of a user. It never carries the password hash.
type UserView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	OTPEnabled  bool      `json:"otp_enabled"`
	OTPVerified bool      `json:"otp_verified"`
	OTPBase32   *string   `json:"otp_base32"`
	OTPAuthURL  *string   `json:"otp_auth_url"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newUserView(u *entity.User) UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		OTPEnabled:  u.OTPEnabled,
		OTPVerified: u.OTPVerified,
		OTPBase32:   u.OTPSecret,
		OTPAuthURL:  u.OTPAuthURL,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func registeredResponse() MessageResponse {
	return MessageResponse{Status: router.StatusSuccess, Message: "Registered successfully, please login"}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status string   `json:"status"`
	User   UserView `json:"user"`
}

type OTPGenerateRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type OTPGenerateResponse struct {
	Base32     string `json:"base32"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code,omitempty"`
}

type OTPTokenRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type OTPVerifyResponse struct {
	OTPVerified bool     `json:"otp_verified"`
	User        UserView `json:"user"`
}

type OTPValidateResponse struct {
	OTPValid bool `json:"otp_valid"`
}

type OTPDisableRequest struct {
	UserID string `json:"user_id"`
}

type OTPDisableResponse struct {
	User        UserView `json:"user"`
	OTPDisabled bool     `json:"otp_disabled"`
}
