package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/cli/config"
	"github.com/secmon-lab/proxima/pkg/controller/gateway"
	httpctrl "github.com/secmon-lab/proxima/pkg/controller/http"
	"github.com/secmon-lab/proxima/pkg/service/worker"
	"github.com/secmon-lab/proxima/pkg/usecase"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var discordCfg config.Discord
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("PROXIMA_ADDR"),
			Destination: &addr,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, discordCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Connect to the Discord gateway and start the HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Serve configuration", "discord", discordCfg, "sentry", sentryCfg)

			settings, err := appCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			if err := settings.Seed(ctx, repo); err != nil {
				return goerr.Wrap(err, "failed to seed configuration")
			}

			publicKey, err := discordCfg.PublicKey()
			if err != nil {
				return err
			}

			session, err := discordCfg.Session(gateway.Intents)
			if err != nil {
				return err
			}
			svc, err := discordCfg.Service(ctx, session, settings.Proxy.DiscordOptions()...)
			if err != nil {
				return err
			}

			uc := usecase.New(repo, svc, settings.Proxy.UseCaseOptions()...)
			defer uc.Close()

			removeHandlers := gateway.New(ctx, uc).Register(session)
			defer removeHandlers()

			if err := session.Open(); err != nil {
				return goerr.Wrap(err, "failed to open discord gateway")
			}
			defer func() {
				if err := session.Close(); err != nil {
					logger.Error("failed to close discord gateway", "error", err.Error())
				}
			}()
			logger.Info("Connected to Discord gateway",
				"bot_user_id", svc.BotUserID(),
				"application_id", svc.ApplicationID(),
			)

			var httpOpts []httpctrl.Options
			if publicKey != nil {
				if _, err := session.ApplicationCommandBulkOverwrite(svc.ApplicationID(), discordCfg.CommandGuildID(), httpctrl.Commands); err != nil {
					return goerr.Wrap(err, "failed to register application commands",
						goerr.V("guild_id", discordCfg.CommandGuildID()))
				}
				httpOpts = append(httpOpts, httpctrl.WithInteractions(httpctrl.NewInteractionHandler(uc), publicKey))
				logger.Info("Discord interactions endpoint enabled", "commands", len(httpctrl.Commands))
			} else {
				logger.Info("Discord public key not configured, slash commands are disabled")
			}

			sweeper := worker.NewProxiedMessageSweeper(repo, settings.Proxy.SweepInterval())
			if err := sweeper.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start proxied message sweeper")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				sweeper.Stop()
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				sweeper.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
