package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// RunRewrapVaultKeys rewraps every vault key and MAC key with the active master
// key. Run it after rotate-master-key; it is safe to run again.
func RunRewrapVaultKeys(
	ctx context.Context,
	vaultUseCase vaultUseCase.VaultUseCase,
	logger *slog.Logger,
	writer io.Writer,
	activeMasterKeyID string,
	format string,
) error {
	count, err := vaultUseCase.RewrapKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to rewrap vault keys: %w", err)
	}

	logger.Info("vault keys rewrapped",
		slog.Int("count", count),
		slog.String("master_key_id", activeMasterKeyID),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"rewrapped":     count,
			"master_key_id": activeMasterKeyID,
		})
	}
	_, _ = fmt.Fprintf(writer, "Rewrapped %d key(s) with master key %s\n", count, activeMasterKeyID)
	return nil
}
