package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// RunRotateVaultKey creates the next key version of a vault and makes it
// active. Records sealed under older versions stay readable.
func RunRotateVaultKey(
	ctx context.Context,
	vaultUseCase vaultUseCase.VaultUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
	format string,
) error {
	vault, err := vaultUseCase.RotateKey(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to rotate vault key: %w", err)
	}

	logger.Info("vault key rotated",
		slog.String("vault", vault.Name),
		slog.Int("active_key_version", vault.ActiveKeyVersion),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"vault":              vault.Name,
			"active_key_version": vault.ActiveKeyVersion,
		})
	}
	_, _ = fmt.Fprintf(writer, "Vault %s now seals with key version %d\n", vault.Name, vault.ActiveKeyVersion)
	return nil
}
