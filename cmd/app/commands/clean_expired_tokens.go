package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// RunCleanExpiredTokens deletes every token record whose expiry is before now,
// across all vaults. With dryRun it only counts them.
func RunCleanExpiredTokens(
	ctx context.Context,
	tokenizationUseCase vaultUseCase.TokenizationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	now time.Time,
	dryRun bool,
	format string,
) error {
	logger.Info("cleaning expired tokens", slog.Time("before", now), slog.Bool("dry_run", dryRun))

	count, err := tokenizationUseCase.CleanupExpired(ctx, now, dryRun)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"count": count, "dry_run": dryRun}); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d expired token(s)\n", count)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d expired token(s)\n", count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count), slog.Bool("dry_run", dryRun))
	return nil
}
