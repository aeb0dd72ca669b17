package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/cli/config"
	"github.com/secmon-lab/proxima/pkg/controller/gateway"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"github.com/secmon-lab/proxima/pkg/domain/types"
	"github.com/secmon-lab/proxima/pkg/usecase"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdDebug() *cli.Command {
	var channelID string
	var messageID string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var discordCfg config.Discord

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "channel",
			Usage:       "Channel (or thread) ID of the message",
			Required:    true,
			Destination: &channelID,
		},
		&cli.StringFlag{
			Name:        "message",
			Usage:       "Message ID to diagnose",
			Required:    true,
			Destination: &messageID,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, discordCfg.Flags()...)

	return &cli.Command{
		Name:    "debug",
		Aliases: []string{"d"},
		Usage:   "Explain why a message would or would not be proxied",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			settings, err := appCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()
			if err := settings.Seed(ctx, repo); err != nil {
				return goerr.Wrap(err, "failed to seed configuration")
			}

			// REST only; the gateway is never opened
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

			msg, err := svc.Message(ctx, channelID, messageID)
			if err != nil {
				return goerr.Wrap(err, "failed to fetch message",
					goerr.V("channel_id", channelID), goerr.V("message_id", messageID))
			}

			trace, err := uc.Proxy.Diagnose(ctx, msg)
			if err != nil {
				return goerr.Wrap(err, "failed to diagnose message", goerr.V("message_id", messageID))
			}

			printTrace(os.Stdout, messageID, trace)
			return nil
		},
	}
}

var (
	traceOK      = color.New(color.FgGreen, color.Bold)
	traceFailure = color.New(color.FgRed, color.Bold)
	traceInfo    = color.New(color.FgCyan)
	traceDetail  = color.New(color.FgHiBlack)
)

func printTrace(w io.Writer, messageID string, trace *model.Trace) {
	_, _ = fmt.Fprintf(w, "message %s\n", messageID)

	for _, e := range trace.Entries {
		c := traceInfo
		switch {
		case e.Event == types.TraceSuccess:
			c = traceOK
		case e.Event.IsFailure():
			c = traceFailure
		}

		_, _ = c.Fprintf(w, "  %-26s", e.Event)
		_, _ = fmt.Fprintf(w, " %s", e.Event.Description())
		if e.Detail != "" {
			_, _ = traceDetail.Fprintf(w, " (%s)", e.Detail)
		}
		_, _ = fmt.Fprintln(w)
	}
}
