package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
)

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,max=72"`
}

func invalidCredential() error {
	return goerror.NewBusinessWrap(entity.ErrInvalidCredential, "Invalid email or password", goerror.CodeBadRequest)
}

// Login checks the password only. The caller decides whether a second
// factor is required by looking at the returned user's OTP flags.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*entity.User, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.repoUser.FindByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "login for unknown email", "email", in.Email)
		return nil, invalidCredential()
	}
	if err != nil {
		return nil, repoFailure(ctx, "failed to repo find user by email", err, "email", in.Email)
	}

	if !s.bcrypt.Verify(user.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		return nil, invalidCredential()
	}

	return user, nil
}
