package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/gif"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/service/discord/discordtest"
	"github.com/secmon-lab/proxima/pkg/usecase"
)

func TestContentPipeline_EmojiSuffixRotates(t *testing.T) {
	p := usecase.NewContentPipeline(discordtest.New(testBotID, testAppID), time.Second)

	first := usecase.NextEmojiSuffix(p)
	gt.Value(t, len(first)).Equal(3)

	seen := map[string]struct{}{first: {}}
	for range 999 {
		s := usecase.NextEmojiSuffix(p)
		gt.Value(t, len(s)).Equal(3)
		seen[s] = struct{}{}
	}
	gt.Value(t, len(seen)).Equal(1000)
	gt.Value(t, usecase.NextEmojiSuffix(p)).Equal(first)
}

func TestContentPipeline_UploadEmojis(t *testing.T) {
	svc := discordtest.New(testBotID, testAppID)
	p := usecase.NewContentPipeline(svc, time.Second)
	ctx := context.Background()

	long := discordmodel.Emoji{ID: "11", Name: strings.Repeat("n", 32), Animated: true}
	svc.AddAsset(long.URL(), &discordmodel.File{Data: []byte("GIF89a")})

	t.Run("long names are truncated", func(t *testing.T) {
		assets, body := p.UploadEmojis(ctx, "x "+long.String()+" "+long.String())
		gt.Array(t, assets).Length(1).Required()
		gt.Bool(t, assets[0].Animated).True()
		gt.String(t, assets[0].Name).HasPrefix(strings.Repeat("n", 28) + "_")
		gt.Value(t, len(assets[0].Name)).Equal(32)
		gt.Value(t, body).Equal("x " + assets[0].String() + " " + assets[0].String())
	})

	t.Run("failed upload keeps original", func(t *testing.T) {
		svc.ErrCreateEmoji = errors.New("maximum emoji reached")
		defer func() { svc.ErrCreateEmoji = nil }()

		assets, body := p.UploadEmojis(ctx, long.String())
		gt.Array(t, assets).Length(0)
		gt.Value(t, body).Equal(long.String())
	})

	t.Run("plain text is untouched", func(t *testing.T) {
		assets, body := p.UploadEmojis(ctx, "no emoji :smile:")
		gt.Array(t, assets).Length(0)
		gt.Value(t, body).Equal("no emoji :smile:")
	})
}

func TestContentPipeline_Notice(t *testing.T) {
	svc := discordtest.New(testBotID, testAppID)
	p := usecase.NewContentPipeline(svc, 10*time.Millisecond)

	msg := &discordmodel.Message{ID: "1", ChannelID: testChannelID, GuildID: testGuildID}
	gt.NoError(t, p.Notice(context.Background(), msg, "nope")).Required()

	notices := svc.Notices()
	gt.Array(t, notices).Length(1).Required()
	gt.Value(t, notices[0]).Equal(discordtest.Notice{ChannelID: testChannelID, ReplyTo: "1", Content: "nope"})

	eventually(t, func() bool { return len(svc.DeletedNotices()) == 1 })
}

func TestAPNGToGIF(t *testing.T) {
	t.Run("still png", func(t *testing.T) {
		data, err := usecase.APNGToGIF(pngImage(t))
		gt.NoError(t, err).Required()

		anim, err := gif.DecodeAll(bytes.NewReader(data))
		gt.NoError(t, err).Required()
		gt.Value(t, len(anim.Image)).Equal(1)
		gt.Value(t, anim.Config.Width).Equal(2)
	})

	t.Run("every frame is kept", func(t *testing.T) {
		red := color.RGBA{R: 255, A: 255}
		blue := color.RGBA{B: 255, A: 255}
		src := apngImage(t, 15, red, color.RGBA{G: 255, A: 255}, blue)

		data, err := usecase.APNGToGIF(src)
		gt.NoError(t, err).Required()

		anim, err := gif.DecodeAll(bytes.NewReader(data))
		gt.NoError(t, err).Required()
		gt.Value(t, len(anim.Image)).Equal(3)
		gt.Array(t, anim.Delay).Equal([]int{15, 15, 15})
		gt.Value(t, anim.LoopCount).Equal(0)

		first := color.RGBAModel.Convert(anim.Image[0].At(1, 1)).(color.RGBA)
		last := color.RGBAModel.Convert(anim.Image[2].At(1, 1)).(color.RGBA)
		gt.Value(t, first.R).Equal(uint8(255))
		gt.Value(t, first.B).Equal(uint8(0))
		gt.Value(t, last.B).Equal(uint8(255))
		gt.Value(t, last.R).Equal(uint8(0))
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := usecase.APNGToGIF([]byte("not an image"))
		gt.Error(t, err)
	})
}

func TestIsAbort(t *testing.T) {
	gt.Bool(t, usecase.IsAbort(usecase.ErrPermissionDenied)).True()
	gt.Bool(t, usecase.IsAbort(usecase.ErrContentRejected)).True()
	gt.Bool(t, usecase.IsAbort(usecase.ErrIncompatibleSticker)).True()
	gt.Bool(t, usecase.IsAbort(usecase.ErrUnavailable)).False()
}
