package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/kettek/apng"
	"github.com/m-mizutani/goerr/v2"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/secmon-lab/proxima/pkg/utils/async"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultNoticeTTL is how long a rejection notice stays visible
	DefaultNoticeTTL = 10 * time.Second

	// emojiAssetLimit is the largest emoji image accepted for upload
	emojiAssetLimit = 256 * 1024

	// stickerAssetLimit is the largest sticker image accepted
	stickerAssetLimit = 8 * 1024 * 1024

	// emojiNameLength is how much of the source name is kept in front of the
	// rotating suffix
	emojiNameLength = 28
)

// Notices shown when a message cannot be proxied
const (
	NoticeOverTextLimit  = "i cannot proxy message over 1980 characters"
	NoticeOverFileLimit  = "attachments are above the file size limit"
	NoticeOverEmojiLimit = "this message was over 2000 characters after processing emotes. proxy failed"
)

// ContentPipeline prepares message content and files for re-emission
type ContentPipeline struct {
	svc       discord.Service
	noticeTTL time.Duration

	mu         sync.Mutex
	emojiIndex int
}

// NewContentPipeline creates a ContentPipeline
func NewContentPipeline(svc discord.Service, noticeTTL time.Duration) *ContentPipeline {
	if noticeTTL <= 0 {
		noticeTTL = DefaultNoticeTTL
	}
	return &ContentPipeline{
		svc:        svc,
		noticeTTL:  noticeTTL,
		emojiIndex: rand.IntN(1000),
	}
}

// nextEmojiSuffix returns the rotating three digit suffix used to keep
// application emoji names unique
func (p *ContentPipeline) nextEmojiSuffix() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emojiIndex = (p.emojiIndex + 1) % 1000
	return fmt.Sprintf("%03d", p.emojiIndex)
}

// Notice replies to msg with text and deletes the reply after the notice TTL
func (p *ContentPipeline) Notice(ctx context.Context, msg *discordmodel.Message, text string) error {
	notice, err := p.svc.SendNotice(ctx, msg.ChannelID, msg.ID, text)
	if err != nil {
		return goerr.Wrap(err, "failed to send notice", goerr.V("channel_id", msg.ChannelID))
	}

	async.After(ctx, p.noticeTTL, "delete notice", func(ctx context.Context) error {
		return p.svc.DeleteNotice(ctx, notice.ChannelID, notice.ID)
	})
	return nil
}

// UploadEmojis copies every custom emoji in body to the application and
// rewrites the references. An emoji that fails to copy keeps its original
// reference. The uploaded emoji are returned for cleanup.
func (p *ContentPipeline) UploadEmojis(ctx context.Context, body string) ([]discordmodel.Emoji, string) {
	found := discordmodel.FindEmojis(body)
	if len(found) == 0 {
		return nil, body
	}

	uploaded := make([]*discordmodel.Emoji, len(found))
	var eg errgroup.Group
	for i, src := range found {
		eg.Go(func() error {
			file, err := p.svc.Download(ctx, src.URL(), emojiAssetLimit)
			if err != nil {
				logging.From(ctx).Warn("failed to download emoji", "emoji", src.String(), "error", err)
				return nil
			}

			name := src.Name
			if len(name) > emojiNameLength {
				name = name[:emojiNameLength]
			}
			if file.ContentType == "" {
				file.ContentType = "image/png"
				if src.Animated {
					file.ContentType = "image/gif"
				}
			}

			emoji, err := p.svc.CreateApplicationEmoji(ctx, name+"_"+p.nextEmojiSuffix(), file)
			if err != nil {
				logging.From(ctx).Warn("failed to create application emoji", "emoji", src.String(), "error", err)
				return nil
			}
			emoji.Animated = src.Animated
			uploaded[i] = emoji
			return nil
		})
	}
	_ = eg.Wait()

	var assets []discordmodel.Emoji
	for i, src := range found {
		if uploaded[i] == nil {
			continue
		}
		body = strings.ReplaceAll(body, src.String(), uploaded[i].String())
		assets = append(assets, *uploaded[i])
	}
	return assets, body
}

// CleanupEmojis deletes uploaded application emoji in the background
func (p *ContentPipeline) CleanupEmojis(ctx context.Context, emojis []discordmodel.Emoji) {
	if len(emojis) == 0 {
		return
	}

	async.Dispatch(ctx, "cleanup emojis", func(ctx context.Context) error {
		var eg errgroup.Group
		for _, e := range emojis {
			eg.Go(func() error {
				return p.svc.DeleteApplicationEmoji(ctx, e.ID)
			})
		}
		return eg.Wait()
	})
}

// Attachments downloads every attachment of msg, keeping file names so
// spoilers survive
func (p *ContentPipeline) Attachments(ctx context.Context, msg *discordmodel.Message, limit int) ([]discordmodel.File, error) {
	files := make([]discordmodel.File, len(msg.Attachments))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, a := range msg.Attachments {
		eg.Go(func() error {
			file, err := p.svc.Download(egCtx, a.URL, int64(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to download attachment", goerr.V("attachment_id", a.ID))
			}
			file.Name = a.Filename
			if a.ContentType != "" {
				file.ContentType = a.ContentType
			}
			files[i] = *file
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// ErrIncompatibleSticker is returned for stickers that cannot be re-sent
// as images
var ErrIncompatibleSticker = goerr.New("incompatible sticker")

// Stickers downloads the stickers of msg as image files. Animated PNG
// stickers are re-encoded as animated GIF.
func (p *ContentPipeline) Stickers(ctx context.Context, msg *discordmodel.Message) ([]discordmodel.File, error) {
	for _, s := range msg.Stickers {
		if !s.Convertible() {
			return nil, goerr.Wrap(ErrIncompatibleSticker, "sticker cannot be converted",
				goerr.V("sticker_id", s.ID), goerr.V("format", s.Format))
		}
	}

	files := make([]discordmodel.File, 0, len(msg.Stickers))
	for _, s := range msg.Stickers {
		file, err := p.svc.Download(ctx, s.URL(), stickerAssetLimit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to download sticker", goerr.V("sticker_id", s.ID))
		}

		file.Name = s.Filename()
		switch s.Format {
		case discordmodel.StickerFormatAPNG:
			data, err := apngToGIF(file.Data)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert sticker", goerr.V("sticker_id", s.ID))
			}
			file.Data = data
			file.ContentType = "image/gif"
		case discordmodel.StickerFormatGIF:
			file.ContentType = "image/gif"
		default:
			file.ContentType = "image/png"
		}
		files = append(files, *file)
	}
	return files, nil
}

// apngToGIF renders every frame of an APNG onto a canvas and encodes the
// result as an animated GIF. A still PNG becomes a single frame GIF.
func apngToGIF(data []byte) ([]byte, error) {
	anim, err := apng.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode apng")
	}
	if len(anim.Frames) == 0 || anim.Frames[0].Image == nil {
		return nil, goerr.New("apng has no frames")
	}

	// the default image is only a fallback when it is not animated
	frames := anim.Frames
	if frames[0].IsDefault && len(frames) > 1 {
		frames = frames[1:]
	}

	bounds := anim.Frames[0].Image.Bounds()
	canvas := image.NewRGBA(bounds)
	pal := append(color.Palette{color.Transparent}, palette.WebSafe...)

	// zero loops forever in both formats
	out := &gif.GIF{LoopCount: int(anim.LoopCount)}
	for _, f := range frames {
		if f.Image == nil {
			continue
		}
		src := f.Image.Bounds()
		area := image.Rectangle{Max: src.Size()}.Add(bounds.Min).Add(image.Pt(f.XOffset, f.YOffset))

		var previous *image.RGBA
		if f.DisposeOp == apng.DISPOSE_OP_PREVIOUS {
			previous = image.NewRGBA(bounds)
			draw.Draw(previous, bounds, canvas, bounds.Min, draw.Src)
		}

		op := draw.Over
		if f.BlendOp == apng.BLEND_OP_SOURCE {
			op = draw.Src
		}
		draw.Draw(canvas, area, f.Image, src.Min, op)

		frame := image.NewPaletted(bounds, pal)
		draw.FloydSteinberg.Draw(frame, bounds, canvas, bounds.Min)
		out.Image = append(out.Image, frame)
		out.Delay = append(out.Delay, int(math.Round(f.GetDelay()*100)))
		out.Disposal = append(out.Disposal, gif.DisposalNone)

		switch f.DisposeOp {
		case apng.DISPOSE_OP_BACKGROUND:
			draw.Draw(canvas, area, image.Transparent, image.Point{}, draw.Src)
		case apng.DISPOSE_OP_PREVIOUS:
			canvas = previous
		}
	}
	if len(out.Image) == 0 {
		return nil, goerr.New("apng has no drawable frames")
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, goerr.Wrap(err, "failed to encode gif")
	}
	return buf.Bytes(), nil
}
