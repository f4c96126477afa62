package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
)

type OTPValidateInput struct {
	UserID string `validate:"required"`
	Token  string `validate:"required"`
}

// OTPValidate checks a login-time code. It never writes.
func (s *Usecase) OTPValidate(ctx context.Context, in OTPValidateInput) error {
	ctx, span := s.startSpan(ctx, "OTPValidate")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	user, err := findUser(ctx, s.repoUser, in.UserID)
	if err != nil {
		return err
	}

	if !user.OTPEnabled {
		slog.WarnContext(ctx, "otp not enabled", "user_id", user.ID)
		return goerror.NewBusinessWrap(entity.ErrOTPNotEnabled, "2FA not enabled", goerror.CodeForbidden)
	}

	if user.OTPSecret == nil {
		// enabled without a secret breaks the record invariants
		slog.ErrorContext(ctx, "otp enabled without secret", "user_id", user.ID)
		return goerror.NewServer(entity.ErrInvariant)
	}

	return s.checkToken(ctx, user, in.Token, s.clock.Now())
}
