package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/twofa/usecase"
)

// HTTPEndpoint exposes the registration, login and OTP handlers.
type HTTPEndpoint struct {
	uc uc
}

// Health answers 200 while the storage backend responds and 503 otherwise.
func (h *HTTPEndpoint) Health(r *router.Request) (any, error) {
	if err := h.uc.Health(r.Context()); err != nil {
		return nil, err
	}

	return MessageResponse{Status: router.StatusSuccess, Message: healthMessage}, nil
}

func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return registeredResponse(), nil
}

// Login checks the password and returns the user, whose otp_enabled flag
// tells the client whether to ask for a code next.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	user, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{Status: router.StatusSuccess, User: newUserView(user)}, nil
}

func (h *HTTPEndpoint) OTPGenerate(r *router.Request) (any, error) {
	var req OTPGenerateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPGenerate(r.Context(), usecase.OTPGenerateInput{
		UserID: req.UserID,
		Email:  req.Email,
	})
	if err != nil {
		return nil, err
	}

	return OTPGenerateResponse{
		Base32:     resp.Base32,
		OTPAuthURL: resp.AuthURL,
		QRCode:     resp.QRCode,
	}, nil
}

func (h *HTTPEndpoint) OTPVerify(r *router.Request) (any, error) {
	var req OTPTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	user, err := h.uc.OTPVerify(r.Context(), usecase.OTPVerifyInput{
		UserID: req.UserID,
		Token:  req.Token,
	})
	if err != nil {
		return nil, err
	}

	return OTPVerifyResponse{OTPVerified: true, User: newUserView(user)}, nil
}

func (h *HTTPEndpoint) OTPValidate(r *router.Request) (any, error) {
	var req OTPTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	err := h.uc.OTPValidate(r.Context(), usecase.OTPValidateInput{
		UserID: req.UserID,
		Token:  req.Token,
	})
	if err != nil {
		return nil, err
	}

	return OTPValidateResponse{OTPValid: true}, nil
}

func (h *HTTPEndpoint) OTPDisable(r *router.Request) (any, error) {
	var req OTPDisableRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	user, err := h.uc.OTPDisable(r.Context(), usecase.OTPDisableInput{UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	return OTPDisableResponse{User: newUserView(user), OTPDisabled: true}, nil
}
