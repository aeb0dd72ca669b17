package discord_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/model/discord"
)

func TestFindEmojis(t *testing.T) {
	emojis := discord.FindEmojis("hi <:wave:123> and <a:spin:456> again <:wave:123> <:x:1>")

	gt.Array(t, emojis).Length(2)
	gt.Value(t, emojis[0]).Equal(discord.Emoji{ID: "123", Name: "wave"})
	gt.Value(t, emojis[1]).Equal(discord.Emoji{ID: "456", Name: "spin", Animated: true})

	gt.Value(t, emojis[0].String()).Equal("<:wave:123>")
	gt.Value(t, emojis[1].String()).Equal("<a:spin:456>")
	gt.Value(t, emojis[0].URL()).Equal("https://cdn.discordapp.com/emojis/123.png")
	gt.Value(t, emojis[1].URL()).Equal("https://cdn.discordapp.com/emojis/456.gif")
}

func TestStickerItem(t *testing.T) {
	png := discord.StickerItem{ID: "1", Name: "cat", Format: discord.StickerFormatPNG}
	apng := discord.StickerItem{ID: "2", Name: "dog", Format: discord.StickerFormatAPNG}
	lottie := discord.StickerItem{ID: "3", Name: "wumpus", Format: discord.StickerFormatLottie}

	gt.Bool(t, png.Convertible()).True()
	gt.Bool(t, lottie.Convertible()).False()
	gt.Value(t, png.Filename()).Equal("cat.png")
	gt.Value(t, apng.Filename()).Equal("dog.gif")
	gt.Value(t, apng.URL()).Equal("https://media.discordapp.net/stickers/2.png")
}
