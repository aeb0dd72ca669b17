package model

import "fmt"

// Endpoint maps a channel to the webhook used to proxy messages into it
type Endpoint struct {
	ChannelID string
	GuildID   string
	WebhookID string
	Token     string
}

// URL returns the webhook execute URL
func (e *Endpoint) URL() string {
	return fmt.Sprintf("https://discord.com/api/webhooks/%s/%s", e.WebhookID, e.Token)
}
