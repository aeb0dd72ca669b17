package config

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/urfave/cli/v3"
)

// Discord holds CLI flags for the bot connection
type Discord struct {
	token          string
	publicKey      string
	applicationID  string
	guildID        string
	requestTimeout time.Duration
}

// Flags returns CLI flags for Discord configuration
func (d *Discord) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "discord-token",
			Usage:       "Discord bot token",
			Category:    "Discord",
			Required:    true,
			Sources:     cli.EnvVars("PROXIMA_DISCORD_TOKEN"),
			Destination: &d.token,
		},
		&cli.StringFlag{
			Name:        "discord-public-key",
			Usage:       "Hex encoded application public key used to verify interactions. Interactions endpoint is disabled when empty",
			Category:    "Discord",
			Sources:     cli.EnvVars("PROXIMA_DISCORD_PUBLIC_KEY"),
			Destination: &d.publicKey,
		},
		&cli.StringFlag{
			Name:        "discord-application-id",
			Usage:       "Application ID (looked up from the token when empty)",
			Category:    "Discord",
			Sources:     cli.EnvVars("PROXIMA_DISCORD_APPLICATION_ID"),
			Destination: &d.applicationID,
		},
		&cli.StringFlag{
			Name:        "discord-command-guild-id",
			Usage:       "Register slash commands in this guild only instead of globally",
			Category:    "Discord",
			Sources:     cli.EnvVars("PROXIMA_DISCORD_COMMAND_GUILD_ID"),
			Destination: &d.guildID,
		},
		&cli.DurationFlag{
			Name:        "discord-request-timeout",
			Usage:       "Timeout of a single Discord REST request",
			Category:    "Discord",
			Value:       discord.DefaultRequestTimeout,
			Sources:     cli.EnvVars("PROXIMA_DISCORD_REQUEST_TIMEOUT"),
			Destination: &d.requestTimeout,
		},
	}
}

// LogValue implements slog.LogValuer. The token is never logged.
func (d Discord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("token_set", d.token != ""),
		slog.Bool("interactions", d.publicKey != ""),
		slog.String("application_id", d.applicationID),
		slog.String("command_guild_id", d.guildID),
		slog.Duration("request_timeout", d.requestTimeout),
	)
}

// CommandGuildID returns the guild slash commands are registered in, or ""
// for global registration
func (d *Discord) CommandGuildID() string {
	return d.guildID
}

// PublicKey decodes the interactions public key. It returns nil when none
// was configured.
func (d *Discord) PublicKey() (ed25519.PublicKey, error) {
	if d.publicKey == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(d.publicKey)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidPublicKey, "public key is not hex", goerr.V("error", err.Error()))
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, goerr.Wrap(ErrInvalidPublicKey, "unexpected public key size", goerr.V("size", len(raw)))
	}
	return ed25519.PublicKey(raw), nil
}

// Session creates a gateway session with the given intents. It is not
// opened.
func (d *Discord) Session(intents discordgo.Intent) (*discordgo.Session, error) {
	if d.token == "" {
		return nil, goerr.New("discord-token is required")
	}
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create discord session")
	}
	session.Identify.Intents = intents
	session.Client.Timeout = d.requestTimeout
	return session, nil
}

// Service builds the REST service on top of session. extra options are
// applied after the flag values.
func (d *Discord) Service(ctx context.Context, session *discordgo.Session, extra ...discord.Option) (discord.Service, error) {
	opts := []discord.Option{discord.WithRequestTimeout(d.requestTimeout)}
	if d.applicationID != "" {
		// the bot user is still looked up
		opts = append(opts, discord.WithIdentity("", d.applicationID))
	}

	svc, err := discord.New(ctx, session, append(opts, extra...)...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize discord service")
	}
	return svc, nil
}
