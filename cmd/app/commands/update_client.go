package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	authUseCase "github.com/allisson/token-rest/internal/auth/usecase"
)

// RunUpdateClient replaces the name, active flag and policies of a client. The
// client id and secret never change; deactivating a client revokes access on
// its next request.
func RunUpdateClient(
	ctx context.Context,
	clientUseCase authUseCase.ClientUseCase,
	logger *slog.Logger,
	io IOTuple,
	clientIDStr string,
	name string,
	isActive bool,
	policiesJSON string,
	format string,
) error {
	logger.Info("updating client", slog.String("client_id", clientIDStr))

	clientID, err := uuid.Parse(clientIDStr)
	if err != nil {
		return fmt.Errorf("invalid client ID format: %w", err)
	}

	existing, err := clientUseCase.Get(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to get existing client: %w", err)
	}

	policies, err := readPolicies(io, policiesJSON, existing.Policies)
	if err != nil {
		return err
	}

	if err := clientUseCase.Update(ctx, clientID, &authDomain.UpdateClientInput{
		Name:     name,
		IsActive: isActive,
		Policies: policies,
	}); err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	if format == "json" {
		if err := writeJSON(io.Writer, map[string]any{
			"client_id": clientID.String(),
			"name":      name,
			"is_active": isActive,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(io.Writer, "\nClient updated successfully!")
		_, _ = fmt.Fprintf(io.Writer, "Client ID: %s\n", clientID.String())
		_, _ = fmt.Fprintf(io.Writer, "Name: %s\n", name)
		_, _ = fmt.Fprintf(io.Writer, "Active: %t\n", isActive)
	}

	logger.Info("client updated successfully",
		slog.String("client_id", clientID.String()),
		slog.String("name", name),
		slog.Bool("is_active", isActive),
	)
	return nil
}
