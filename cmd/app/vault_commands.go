package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/token-rest/cmd/app/commands"
	"github.com/allisson/token-rest/internal/app"
	"github.com/allisson/token-rest/internal/config"
	vaultDTO "github.com/allisson/token-rest/internal/vault/http/dto"
)

func getVaultCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-vault",
			Usage: "Create a vault with its first key version",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Vault name (lowercase letters, digits, '-' and '_')",
				},
				&cli.StringFlag{
					Name:     "classification",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Data classification: 'PAN' or 'generic'",
				},
				&cli.StringFlag{
					Name:     "token-format",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Token format: numeric, pan, alphanumeric or uuid",
				},
				&cli.IntFlag{
					Name:  "token-length",
					Value: 0,
					Usage: "Token length; 0 uses the format default",
				},
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "aes-gcm",
					Usage:   "Encryption algorithm (aes-gcm or chacha20-poly1305)",
				},
				&cli.DurationFlag{
					Name:  "ttl",
					Value: 0,
					Usage: "Default token lifetime (e.g. 720h); 0 keeps records until deleted",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				vaultUseCase, err := container.VaultUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateVault(
					ctx,
					vaultUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					vaultDTO.CreateVaultRequest{
						Name:            cmd.String("name"),
						Classification:  cmd.String("classification"),
						FormatType:      cmd.String("token-format"),
						TokenLength:     int(cmd.Int("token-length")),
						Algorithm:       cmd.String("algorithm"),
						TokenTTLSeconds: int64(cmd.Duration("ttl").Seconds()),
					},
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-vaults",
			Usage: "List vaults",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of vaults to skip",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
					Usage: "Maximum number of vaults to print (1-1000)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				vaultUseCase, err := container.VaultUseCase()
				if err != nil {
					return err
				}

				return commands.RunListVaults(
					ctx,
					vaultUseCase,
					commands.DefaultIO().Writer,
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-vault-key",
			Usage: "Create the next key version of a vault and make it active",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Vault name",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				vaultUseCase, err := container.VaultUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateVaultKey(
					ctx,
					vaultUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("format"),
				)
			},
		},
	}
}
