package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/cli/config"
	"github.com/secmon-lab/proxima/pkg/repository/memory"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.AppConfig

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the configuration file",
		Flags:   appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			settings, err := appCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			// dry-run the seed against an in-memory store
			repo := memory.New()
			defer func() { _ = repo.Close() }()
			if err := settings.Seed(ctx, repo); err != nil {
				return goerr.Wrap(err, "failed to seed configuration")
			}

			for _, g := range settings.Groups {
				logger.Info("Group validated",
					"name", g.Name,
					"accounts", len(g.Accounts),
					"members", len(g.Members),
				)
			}
			logger.Info("Configuration validation passed",
				"group_count", len(settings.Groups),
				"sweep_interval", settings.Proxy.SweepInterval(),
			)
			return nil
		},
	}
}
