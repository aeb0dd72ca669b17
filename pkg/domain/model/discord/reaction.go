package discord

import "github.com/bwmarrin/discordgo"

// DeleteReaction is the emoji that deletes a proxied message
const DeleteReaction = "❌"

// Reaction is a reaction added to a message
type Reaction struct {
	UserID    string
	MessageID string
	ChannelID string
	GuildID   string
	Emoji     string
	Bot       bool
}

// NewReaction converts a gateway reaction event
func NewReaction(r *discordgo.MessageReactionAdd) *Reaction {
	if r == nil || r.MessageReaction == nil {
		return nil
	}

	reaction := &Reaction{
		UserID:    r.UserID,
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		Emoji:     r.Emoji.Name,
	}
	if r.Member != nil && r.Member.User != nil {
		reaction.Bot = r.Member.User.Bot
	}
	return reaction
}
