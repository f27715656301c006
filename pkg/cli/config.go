package cli

import (
	"context"

	urfave "github.com/urfave/cli/v3"
)

func configCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*urfave.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: cmdConfigShow,
			},
		},
	}
}

func cmdConfigShow(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(ctx)
	return encode(writer(cmd), cfg.Format, cfg.Config)
}
