package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
)

type OTPDisableInput struct {
	UserID string `validate:"required"`
}

// OTPDisable clears every OTP field in one write. Disabling a user that has
// no second factor succeeds and changes nothing but UpdatedAt.
func (s *Usecase) OTPDisable(ctx context.Context, in OTPDisableInput) (*entity.User, error) {
	ctx, span := s.startSpan(ctx, "OTPDisable")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var (
		updated *entity.User
		wasOn   bool
	)
	err := s.repoUser.WithLock(ctx, func(ctx context.Context, repo repository.Repository) error {
		user, err := findUser(ctx, repo, in.UserID)
		if err != nil {
			return err
		}

		wasOn = user.OTPEnabled
		updated, err = repo.UpdateOTP(ctx, user.ID, entity.DisabledOTP(), s.clock.Now())
		if err != nil {
			return repoFailure(ctx, "failed to repo update otp", err, "user_id", user.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if wasOn {
		slog.InfoContext(ctx, "otp disabled", "user_id", updated.ID)
		s.goroutine.Go(ctx, "publish_otp_disabled", func(ctx context.Context) error {
			return s.repoMessaging.PublishOTPDisabled(ctx, OTPLifecycleEvent{
				UserID:     updated.ID,
				Email:      updated.Email,
				OccurredAt: updated.UpdatedAt,
			})
		})
	}

	return updated, nil
}
