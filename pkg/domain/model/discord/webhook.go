package discord

import "github.com/bwmarrin/discordgo"

// Webhook is an incoming webhook of a channel
type Webhook struct {
	ID            string
	Token         string
	ChannelID     string
	GuildID       string
	Name          string
	ApplicationID string
}

// NewWebhook converts a discordgo webhook
func NewWebhook(w *discordgo.Webhook) *Webhook {
	return &Webhook{
		ID:            w.ID,
		Token:         w.Token,
		ChannelID:     w.ChannelID,
		GuildID:       w.GuildID,
		Name:          w.Name,
		ApplicationID: w.ApplicationID,
	}
}

// File is an upload attached to an outgoing message
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// WebhookMessage is the payload sent through a webhook
type WebhookMessage struct {
	Content   string
	Username  string
	AvatarURL string
	Files     []File

	// ThreadID targets a thread of the webhook's channel
	ThreadID string

	// MentionUsers restricts user pings to these IDs; roles and @everyone are
	// parsed normally
	MentionUsers []string

	Poll *Poll
}
