package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/token-rest/cmd/app/commands"
	"github.com/allisson/token-rest/internal/app"
	"github.com/allisson/token-rest/internal/config"
)

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Aliases:  []string{"n"},
			Required: true,
			Usage:    "Human-readable client name",
		},
		&cli.BoolFlag{
			Name:    "active",
			Aliases: []string{"a"},
			Value:   true,
			Usage:   "Whether the client can authenticate",
		},
		&cli.StringFlag{
			Name:    "policies",
			Aliases: []string{"p"},
			Usage:   "JSON array of policy documents (omit for interactive mode)",
		},
		formatFlag(),
	}
}

func getAuthCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-client",
			Usage: "Create an API client with policies",
			Flags: clientFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				clientUseCase, err := container.ClientUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateClient(
					ctx,
					clientUseCase,
					container.Logger(),
					cmd.String("name"),
					cmd.Bool("active"),
					cmd.String("policies"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
		{
			Name:  "update-client",
			Usage: "Replace the name, active flag and policies of a client",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Client ID (UUID)",
				},
			}, clientFlags()...),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				clientUseCase, err := container.ClientUseCase()
				if err != nil {
					return err
				}

				return commands.RunUpdateClient(
					ctx,
					clientUseCase,
					container.Logger(),
					commands.DefaultIO(),
					cmd.String("id"),
					cmd.String("name"),
					cmd.Bool("active"),
					cmd.String("policies"),
					cmd.String("format"),
				)
			},
		},
	}
}
