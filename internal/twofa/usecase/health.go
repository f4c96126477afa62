package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// Health reports whether the storage backend answers. Any failure, timeouts
// included, is reported as unavailable.
func (s *Usecase) Health(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Health")
	defer span.End()

	if err := s.repoUser.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "storage ping failed", "error", err)
		return goerror.NewServerCode(err, "Storage unavailable", goerror.CodeUnavailable)
	}

	return nil
}
