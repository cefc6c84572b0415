package commands

import (
	"context"
	"fmt"
	"io"

	vaultDTO "github.com/allisson/token-rest/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// RunListVaults prints a page of vaults.
func RunListVaults(
	ctx context.Context,
	vaultUseCase vaultUseCase.VaultUseCase,
	writer io.Writer,
	offset, limit int,
	format string,
) error {
	if offset < 0 || limit < 1 || limit > 1000 {
		return fmt.Errorf("offset must be >= 0 and limit between 1 and 1000")
	}

	vaults, err := vaultUseCase.List(ctx, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to list vaults: %w", err)
	}

	response := vaultDTO.MapVaultsToListResponse(vaults)
	if format == "json" {
		return writeJSON(writer, response)
	}

	if len(response.Data) == 0 {
		_, _ = fmt.Fprintln(writer, "No vaults found")
		return nil
	}
	_, _ = fmt.Fprintf(writer, "%-24s %-10s %-14s %-18s %s\n", "NAME", "CLASS", "FORMAT", "ALGORITHM", "KEY")
	for _, v := range response.Data {
		_, _ = fmt.Fprintf(writer, "%-24s %-10s %-14s %-18s v%d\n",
			v.Name, v.Classification, v.FormatType, v.Algorithm, v.ActiveKeyVersion)
	}
	return nil
}
