package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	// MessageLimit is the maximum length of a message body
	MessageLimit = 2000
)

// User is the author of a message
type User struct {
	ID         string
	Username   string
	GlobalName string
	Bot        bool
}

// DisplayName returns the global display name, or the username if unset
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Attachment is a file attached to a message
type Attachment struct {
	ID          string
	URL         string
	Filename    string
	ContentType string
	Size        int
}

// MessageType is the kind of a message. Only user authored kinds are
// proxied.
type MessageType int

const (
	MessageTypeDefault = MessageType(discordgo.MessageTypeDefault)
	MessageTypeReply   = MessageType(discordgo.MessageTypeReply)
)

// UserAuthored reports whether the type is a plain message or a reply.
// System messages such as thread creation notices are not.
func (t MessageType) UserAuthored() bool {
	return t == MessageTypeDefault || t == MessageTypeReply
}

// Message is a guild or DM message as seen by the proxy
type Message struct {
	ID          string
	Type        MessageType
	ChannelID   string
	GuildID     string
	WebhookID   string
	Author      User
	Content     string
	Attachments []Attachment
	Stickers    []StickerItem
	Mentions    []string

	// Poll is set when the message carries a poll
	Poll *Poll

	// Reference is the message this one replies to, if any
	Reference *Message
}

// NewMessage converts a discordgo message. It returns nil for nil input.
func NewMessage(m *discordgo.Message) *Message {
	if m == nil {
		return nil
	}

	msg := &Message{
		ID:        m.ID,
		Type:      MessageType(m.Type),
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		WebhookID: m.WebhookID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.Author = User{
			ID:         m.Author.ID,
			Username:   m.Author.Username,
			GlobalName: m.Author.GlobalName,
			Bot:        m.Author.Bot,
		}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			ID:          a.ID,
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	for _, s := range m.StickerItems {
		if s == nil {
			continue
		}
		msg.Stickers = append(msg.Stickers, StickerItem{
			ID:     s.ID,
			Name:   s.Name,
			Format: StickerFormat(s.FormatType),
		})
	}
	for _, u := range m.Mentions {
		if u != nil {
			msg.Mentions = append(msg.Mentions, u.ID)
		}
	}
	if m.ReferencedMessage != nil {
		msg.Reference = NewMessage(m.ReferencedMessage)
		if msg.Reference.GuildID == "" {
			msg.Reference.GuildID = m.GuildID
		}
	}

	return msg
}

// JumpURL returns the link that opens the message in a client
func (m *Message) JumpURL() string {
	guild := m.GuildID
	if guild == "" {
		guild = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, m.ChannelID, m.ID)
}

// IsFromWebhook reports whether the message was sent through a webhook
func (m *Message) IsFromWebhook() bool {
	return m.WebhookID != ""
}

// InGuild reports whether the message was sent in a guild channel
func (m *Message) InGuild() bool {
	return m.GuildID != ""
}

// HasContent reports whether there is anything to re-emit
func (m *Message) HasContent() bool {
	return m.Content != "" || len(m.Attachments) > 0 || len(m.Stickers) > 0 || m.Poll != nil
}

// AttachmentSize returns the summed size of all attachments in bytes
func (m *Message) AttachmentSize() int {
	total := 0
	for _, a := range m.Attachments {
		total += a.Size
	}
	return total
}

// Mentioned reports whether userID was mentioned
func (m *Message) Mentioned(userID string) bool {
	for _, id := range m.Mentions {
		if id == userID {
			return true
		}
	}
	return false
}
