package discord

import (
	"fmt"
	"regexp"
)

var emojiPattern = regexp.MustCompile(`<(a)?:(\w{2,32}):(\d+)>`)

// Emoji is a custom emoji reference
type Emoji struct {
	ID       string
	Name     string
	Animated bool
}

// String renders the emoji in message markup
func (e Emoji) String() string {
	if e.Animated {
		return fmt.Sprintf("<a:%s:%s>", e.Name, e.ID)
	}
	return fmt.Sprintf("<:%s:%s>", e.Name, e.ID)
}

// URL returns the CDN location of the emoji image
func (e Emoji) URL() string {
	ext := "png"
	if e.Animated {
		ext = "gif"
	}
	return fmt.Sprintf("https://cdn.discordapp.com/emojis/%s.%s", e.ID, ext)
}

// FindEmojis returns every distinct custom emoji reference in text, in order
// of first appearance
func FindEmojis(text string) []Emoji {
	seen := make(map[string]struct{})
	var out []Emoji
	for _, m := range emojiPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[0]]; ok {
			continue
		}
		seen[m[0]] = struct{}{}
		out = append(out, Emoji{
			ID:       m[3],
			Name:     m[2],
			Animated: m[1] != "",
		})
	}
	return out
}
