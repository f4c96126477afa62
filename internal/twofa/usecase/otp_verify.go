package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
)

type OTPVerifyInput struct {
	UserID string `validate:"required"`
	Token  string `validate:"required"`
}

// OTPVerify confirms enrollment: a matching code turns the second factor on.
// A wrong code leaves the record untouched.
func (s *Usecase) OTPVerify(ctx context.Context, in OTPVerifyInput) (*entity.User, error) {
	ctx, span := s.startSpan(ctx, "OTPVerify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var (
		updated *entity.User
		newlyOn bool
	)
	err := s.repoUser.WithLock(ctx, func(ctx context.Context, repo repository.Repository) error {
		user, err := findUser(ctx, repo, in.UserID)
		if err != nil {
			return err
		}

		if user.OTPSecret == nil {
			slog.WarnContext(ctx, "otp secret missing", "user_id", user.ID)
			return goerror.NewBusinessWrap(entity.ErrOTPMissing, "OTP base32 is missing", goerror.CodeForbidden)
		}

		now := s.clock.Now()
		if err := s.checkToken(ctx, user, in.Token, now); err != nil {
			return err
		}

		newlyOn = !user.OTPEnabled
		updated, err = repo.UpdateOTP(ctx, user.ID, user.OTP().VerifiedOTP(), now)
		if err != nil {
			return repoFailure(ctx, "failed to repo update otp", err, "user_id", user.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if newlyOn {
		slog.InfoContext(ctx, "otp enabled", "user_id", updated.ID)
		s.goroutine.Go(ctx, "publish_otp_enabled", func(ctx context.Context) error {
			return s.repoMessaging.PublishOTPEnabled(ctx, OTPLifecycleEvent{
				UserID:     updated.ID,
				Email:      updated.Email,
				OccurredAt: updated.UpdatedAt,
			})
		})
	}

	return updated, nil
}

// checkToken matches token against the stored secret at now.
func (s *Usecase) checkToken(ctx context.Context, user *entity.User, token string, now time.Time) error {
	ok, err := s.totp.VerifyCode(*user.OTPSecret, token, now)
	switch {
	case errors.Is(err, otp.ErrMalformedToken):
		return tokenInvalid()
	case err != nil:
		slog.ErrorContext(ctx, "failed to verify otp code", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	case !ok:
		slog.WarnContext(ctx, "invalid otp code", "user_id", user.ID)
		return tokenInvalid()
	default:
		return nil
	}
}
