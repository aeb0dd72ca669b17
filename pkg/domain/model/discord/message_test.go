package discord_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/model/discord"
)

func TestNewMessage(t *testing.T) {
	src := &discordgo.Message{
		ID:        "10",
		ChannelID: "20",
		GuildID:   "30",
		Content:   "hello",
		Author:    &discordgo.User{ID: "40", Username: "bob"},
		Attachments: []*discordgo.MessageAttachment{
			{ID: "a1", Filename: "x.png", Size: 10},
			{ID: "a2", Filename: "y.png", Size: 15},
		},
		Mentions: []*discordgo.User{{ID: "50"}},
		ReferencedMessage: &discordgo.Message{
			ID:        "11",
			ChannelID: "20",
			Content:   "earlier",
			Author:    &discordgo.User{ID: "50"},
		},
	}

	msg := discord.NewMessage(src)
	gt.Value(t, msg.ID).Equal("10")
	gt.Value(t, msg.Author.ID).Equal("40")
	gt.Value(t, msg.AttachmentSize()).Equal(25)
	gt.Bool(t, msg.InGuild()).True()
	gt.Bool(t, msg.HasContent()).True()
	gt.Bool(t, msg.Mentioned("50")).True()
	gt.Bool(t, msg.Mentioned("40")).False()
	gt.Value(t, msg.Reference).NotNil()
	gt.Value(t, msg.Reference.GuildID).Equal("30")
	gt.Value(t, msg.Reference.JumpURL()).Equal("https://discord.com/channels/30/20/11")

	gt.Value(t, discord.NewMessage(nil)).Nil()
}

func TestGuild_FileSizeLimit(t *testing.T) {
	gt.Value(t, (&discord.Guild{PremiumTier: 0}).FileSizeLimit()).Equal(25 * 1024 * 1024)
	gt.Value(t, (&discord.Guild{PremiumTier: 2}).FileSizeLimit()).Equal(50 * 1024 * 1024)
	gt.Value(t, (&discord.Guild{PremiumTier: 3}).FileSizeLimit()).Equal(100 * 1024 * 1024)
}

func TestMessageType_UserAuthored(t *testing.T) {
	gt.Bool(t, discord.NewMessage(&discordgo.Message{Type: discordgo.MessageTypeDefault}).Type.UserAuthored()).True()
	gt.Bool(t, discord.NewMessage(&discordgo.Message{Type: discordgo.MessageTypeReply}).Type.UserAuthored()).True()
	gt.Bool(t, discord.NewMessage(&discordgo.Message{Type: discordgo.MessageTypeThreadCreated}).Type.UserAuthored()).False()
	gt.Bool(t, discord.NewMessage(&discordgo.Message{Type: discordgo.MessageTypeChannelPinnedMessage}).Type.UserAuthored()).False()
	gt.Bool(t, discord.NewMessage(&discordgo.Message{Type: discordgo.MessageTypeChatInputCommand}).Type.UserAuthored()).False()
}

func TestMessage_HasContentWithPollOnly(t *testing.T) {
	msg := &discord.Message{ID: "1"}
	gt.Bool(t, msg.HasContent()).False()

	msg.Poll = &discord.Poll{Question: "lunch?", Answers: []discord.PollAnswer{{Text: "yes"}, {Text: "no"}}}
	gt.Bool(t, msg.HasContent()).True()
}
