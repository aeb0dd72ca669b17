package model

import "time"

// ProxiedMessageTTL is how long the link between an original message and
// its proxy is kept
const ProxiedMessageTTL = 24 * time.Hour

// ProxiedMessage links a deleted original message to the webhook message
// that replaced it
type ProxiedMessage struct {
	OriginalID string
	ProxyID    string
	AuthorID   string
	MemberID   MemberID
	ChannelID  string
	GuildID    string
	WebhookID  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the record is past its TTL at now
func (m *ProxiedMessage) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}
