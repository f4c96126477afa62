package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
)

type OTPGenerateInput struct {
	UserID string `validate:"required"`
	// Email labels the authenticator entry. The stored address is used when
	// it is empty.
	Email string `validate:"omitempty,email"`
}

type OTPGenerateOutput struct {
	Base32  string
	AuthURL string
	QRCode  string
}

// OTPGenerate issues a fresh secret for the user. An unconfirmed secret is
// replaced. A confirmed factor is never overwritten: generate answers 409
// "2FA already enabled, disable it first" until OTPDisable clears it.
func (s *Usecase) OTPGenerate(ctx context.Context, in OTPGenerateInput) (*OTPGenerateOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPGenerate")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	secret, err := s.secrets.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp secret", "user_id", in.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	var out OTPGenerateOutput
	err = s.repoUser.WithLock(ctx, func(ctx context.Context, repo repository.Repository) error {
		user, err := findUser(ctx, repo, in.UserID)
		if err != nil {
			return err
		}

		if user.State() == entity.StateOTPVerified {
			slog.WarnContext(ctx, "otp already verified", "user_id", user.ID)
			return goerror.NewBusinessWrap(entity.ErrOTPAlreadyVerified, "2FA already enabled, disable it first", goerror.CodeConflict)
		}

		email := in.Email
		if email == "" {
			email = user.Email
		}
		authURL := s.totp.ProvisioningURI(s.issuer, email, secret)

		if _, err := repo.UpdateOTP(ctx, user.ID, entity.GeneratedOTP(secret, authURL), s.clock.Now()); err != nil {
			return repoFailure(ctx, "failed to repo update otp", err, "user_id", user.ID)
		}

		out = OTPGenerateOutput{Base32: secret, AuthURL: authURL}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.qr != nil {
		out.QRCode, err = s.qr.DataURI(out.AuthURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to render otp qr code", "user_id", in.UserID, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	return &out, nil
}
