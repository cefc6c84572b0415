package commands

import (
	"context"
	"fmt"
	"log/slog"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	authUseCase "github.com/allisson/token-rest/internal/auth/usecase"
)

// RunCreateClient creates an API client. Policies come from policiesJSON, or
// are prompted for when it is empty. The generated secret is printed once.
func RunCreateClient(
	ctx context.Context,
	clientUseCase authUseCase.ClientUseCase,
	logger *slog.Logger,
	name string,
	isActive bool,
	policiesJSON string,
	format string,
	io IOTuple,
) error {
	logger.Info("creating new client", slog.String("name", name))

	policies, err := readPolicies(io, policiesJSON, nil)
	if err != nil {
		return err
	}

	output, err := clientUseCase.Create(ctx, &authDomain.CreateClientInput{
		Name:     name,
		IsActive: isActive,
		Policies: policies,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if format == "json" {
		if err := writeJSON(io.Writer, map[string]string{
			"client_id": output.ID.String(),
			"secret":    output.PlainSecret,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(io.Writer, "\nClient created successfully!")
		_, _ = fmt.Fprintf(io.Writer, "Client ID: %s\n", output.ID.String())
		_, _ = fmt.Fprintf(io.Writer, "Secret: %s\n", output.PlainSecret)
		_, _ = fmt.Fprintln(io.Writer, "\nIMPORTANT: The secret is shown only once. Store it securely.")
	}

	logger.Info("client created successfully",
		slog.String("client_id", output.ID.String()),
		slog.String("name", name),
		slog.Bool("is_active", isActive),
	)
	return nil
}
