package discord

import (
	"context"

	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
)

// Service provides the Discord REST operations the proxy depends on. Every
// call is bounded by the client's request timeout.
type Service interface {
	// BotUserID is the user ID of the bot account
	BotUserID() string

	// ApplicationID is the application the bot belongs to. Webhooks and
	// application emoji created by the proxy are owned by it.
	ApplicationID() string

	Guild(ctx context.Context, guildID string) (*discordmodel.Guild, error)
	Roles(ctx context.Context, guildID string) ([]*discordmodel.Role, error)
	Member(ctx context.Context, guildID, userID string) (*discordmodel.Member, error)
	Channel(ctx context.Context, channelID string) (*discordmodel.Channel, error)
	Message(ctx context.Context, channelID, messageID string) (*discordmodel.Message, error)

	ChannelWebhooks(ctx context.Context, channelID string) ([]*discordmodel.Webhook, error)

	// CreateWebhook creates a webhook in channelID, recording reason in the
	// audit log
	CreateWebhook(ctx context.Context, channelID, name, reason string) (*discordmodel.Webhook, error)

	// ExecuteWebhook sends msg and waits for the created message
	ExecuteWebhook(ctx context.Context, webhookID, token string, msg *discordmodel.WebhookMessage) (*discordmodel.Message, error)

	DeleteWebhookMessage(ctx context.Context, webhookID, token, messageID, threadID string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// SendNotice replies to messageID without pinging its author
	SendNotice(ctx context.Context, channelID, messageID, content string) (*discordmodel.Message, error)
	DeleteNotice(ctx context.Context, channelID, messageID string) error

	CreateApplicationEmoji(ctx context.Context, name string, image *discordmodel.File) (*discordmodel.Emoji, error)
	DeleteApplicationEmoji(ctx context.Context, emojiID string) error

	// Download fetches a CDN asset, refusing anything larger than limit bytes
	Download(ctx context.Context, url string, limit int64) (*discordmodel.File, error)
}
