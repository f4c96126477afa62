package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
)

type RegisterInput struct {
	Name     string `validate:"required,notblank,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,max=72"`
}

func userExists(email string) error {
	return goerror.NewBusinessWrap(entity.ErrUserExists, fmt.Sprintf("User with email: %s already exists", email), goerror.CodeConflict)
}

func (s *Usecase) Register(ctx context.Context, in RegisterInput) error {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	// hash outside the lock
	hashedPassword, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return goerror.NewServer(err)
	}

	reg := entity.Registration{
		ID:           s.uuid.Generate(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.clock.Now(),
	}

	err = s.repoUser.WithLock(ctx, func(ctx context.Context, repo repository.Repository) error {
		_, err := repo.FindByEmail(ctx, reg.Email)
		if err == nil {
			slog.WarnContext(ctx, "email already registered", "email", reg.Email)
			return userExists(reg.Email)
		}
		if !errors.Is(err, goerror.ErrNotFound) {
			return repoFailure(ctx, "failed to repo find user by email", err, "email", reg.Email)
		}

		err = repo.RegisterByEmail(ctx, reg)
		if errors.Is(err, goerror.ErrConflict) {
			slog.WarnContext(ctx, "email claimed concurrently", "email", reg.Email)
			return userExists(reg.Email)
		}
		if err != nil {
			return repoFailure(ctx, "failed to repo register user", err, "email", reg.Email)
		}

		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "user registered", "user_id", reg.ID, "email", reg.Email)

	s.goroutine.Go(ctx, "publish_user_registered", func(ctx context.Context) error {
		return s.repoMessaging.PublishUserRegistered(ctx, UserRegisteredEvent{
			UserID:    reg.ID,
			Email:     reg.Email,
			Name:      reg.Name,
			CreatedAt: reg.CreatedAt,
		})
	})

	return nil
}
