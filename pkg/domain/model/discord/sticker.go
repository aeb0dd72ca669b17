package discord

import "fmt"

// StickerFormat is the image format of a sticker
type StickerFormat int

const (
	StickerFormatPNG    StickerFormat = 1
	StickerFormatAPNG   StickerFormat = 2
	StickerFormatLottie StickerFormat = 3
	StickerFormatGIF    StickerFormat = 4
)

// StickerItem is a sticker attached to a message
type StickerItem struct {
	ID     string
	Name   string
	Format StickerFormat
}

// Convertible reports whether the sticker can be re-sent as a file
func (s StickerItem) Convertible() bool {
	switch s.Format {
	case StickerFormatPNG, StickerFormatAPNG, StickerFormatGIF:
		return true
	default:
		return false
	}
}

func (s StickerItem) sourceExtension() string {
	if s.Format == StickerFormatGIF {
		return "gif"
	}
	return "png"
}

// URL returns the CDN location of the sticker image
func (s StickerItem) URL() string {
	return fmt.Sprintf("https://media.discordapp.net/stickers/%s.%s", s.ID, s.sourceExtension())
}

// Filename is the name the sticker is uploaded under. Animated PNG stickers
// are converted to GIF before upload.
func (s StickerItem) Filename() string {
	ext := s.sourceExtension()
	if s.Format == StickerFormatAPNG {
		ext = "gif"
	}
	return s.Name + "." + ext
}
