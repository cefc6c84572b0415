package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/token-rest/cmd/app/commands"
	"github.com/allisson/token-rest/internal/app"
	"github.com/allisson/token-rest/internal/config"
)

func getKeyCommands() []*cli.Command {
	kmsKeyURIFlag := &cli.StringFlag{
		Name:  "kms-key-uri",
		Value: "",
		Usage: "KMS key URI used to encrypt the master key (base64key://, gcpkms://, awskms://, azurekeyvault://, hashivault://); " +
			"omit to print a plaintext key for development",
	}

	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key for wrapping vault keys",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Master key ID (e.g., prod-master-key-2026)",
				},
				kmsKeyURIFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "rotate-master-key",
			Usage: "Generate a new master key and append it to MASTER_KEYS",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "New master key ID",
				},
				kmsKeyURIFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				kmsKeyURI := cmd.String("kms-key-uri")
				if kmsKeyURI == "" {
					kmsKeyURI = cfg.KMSKeyURI
				}

				return commands.RunRotateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					kmsKeyURI,
					cfg.MasterKeys,
					cfg.ActiveMasterKeyID,
				)
			},
		},
		{
			Name:  "rewrap-vault-keys",
			Usage: "Rewrap every vault key and MAC key with the active master key",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				vaultUseCase, err := container.VaultUseCase()
				if err != nil {
					return err
				}

				return commands.RunRewrapVaultKeys(
					ctx,
					vaultUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cfg.ActiveMasterKeyID,
					cmd.String("format"),
				)
			},
		},
	}
}
