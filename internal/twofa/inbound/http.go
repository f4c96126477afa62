package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/usecase"
)

type uc interface {
	Health(ctx context.Context) error

	Register(ctx context.Context, in usecase.RegisterInput) error
	Login(ctx context.Context, in usecase.LoginInput) (*entity.User, error)

	OTPGenerate(ctx context.Context, in usecase.OTPGenerateInput) (*usecase.OTPGenerateOutput, error)
	OTPVerify(ctx context.Context, in usecase.OTPVerifyInput) (*entity.User, error)
	OTPValidate(ctx context.Context, in usecase.OTPValidateInput) error
	OTPDisable(ctx context.Context, in usecase.OTPDisableInput) (*entity.User, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET(router.HealthPath, end.Health)

	r.POST("/api/auth/register", end.Register)
	r.POST("/api/auth/login", end.Login)

	r.POST("/api/auth/otp/generate", end.OTPGenerate)
	r.POST("/api/auth/otp/verify", end.OTPVerify)
	r.POST("/api/auth/otp/validate", end.OTPValidate)
	r.POST("/api/auth/otp/disable", end.OTPDisable)
}
