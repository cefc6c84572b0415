package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	vaultDTO "github.com/allisson/token-rest/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// RunCreateVault validates the vault parameters the same way the API does and
// creates the vault with its first key version.
func RunCreateVault(
	ctx context.Context,
	vaultUseCase vaultUseCase.VaultUseCase,
	logger *slog.Logger,
	writer io.Writer,
	req vaultDTO.CreateVaultRequest,
	format string,
) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid vault parameters: %w", err)
	}

	vault, err := vaultUseCase.Create(ctx, req.ToInput())
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	logger.Info("vault created",
		slog.String("vault", vault.Name),
		slog.String("classification", string(vault.Classification)),
		slog.String("format", string(vault.Format)),
	)

	if format == "json" {
		return writeJSON(writer, vaultDTO.MapVaultToResponse(vault))
	}

	_, _ = fmt.Fprintln(writer, "Vault created successfully!")
	writeVaultText(writer, vaultDTO.MapVaultToResponse(vault))
	return nil
}

func writeVaultText(writer io.Writer, v vaultDTO.VaultResponse) {
	_, _ = fmt.Fprintf(writer, "Name:               %s\n", v.Name)
	_, _ = fmt.Fprintf(writer, "ID:                 %s\n", v.ID)
	_, _ = fmt.Fprintf(writer, "Classification:     %s\n", v.Classification)
	_, _ = fmt.Fprintf(writer, "Format:             %s\n", v.FormatType)
	_, _ = fmt.Fprintf(writer, "Token length:       %d\n", v.TokenLength)
	_, _ = fmt.Fprintf(writer, "Algorithm:          %s\n", v.Algorithm)
	_, _ = fmt.Fprintf(writer, "Active key version: %d\n", v.ActiveKeyVersion)
	_, _ = fmt.Fprintf(writer, "Token TTL (s):      %d\n", v.TokenTTLSeconds)
}
