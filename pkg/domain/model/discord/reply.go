package discord

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	replySnippetLength = 75
	zeroWidthSpace     = "\u200b"
)

var replyHeaderPattern = regexp.MustCompile(`^-# \[↪\]\(<https://discord\.com/channels/\d+/\d+/\d+>\)`)

// FoldReply prepends a one-line quote of ref to body. When the result would
// not fit in a single message the header is dropped and body is returned
// unchanged.
func FoldReply(body string, ref *Message) string {
	header := ReplyHeader(ref)
	folded := header + "\n" + body
	if len([]rune(folded)) > MessageLimit {
		return body
	}
	return folded
}

// ReplyHeader renders the quote line for ref
func ReplyHeader(ref *Message) string {
	jump := ref.JumpURL()

	mention := "<@" + ref.Author.ID + ">"
	if ref.IsFromWebhook() {
		mention = "`@" + ref.Author.DisplayName() + "`"
	}

	snippet := ref.Content
	if replyHeaderPattern.MatchString(snippet) {
		// the referenced message was itself a folded reply
		if idx := strings.IndexByte(snippet, '\n'); idx >= 0 {
			snippet = snippet[idx+1:]
		} else {
			snippet = ""
		}
	}
	snippet = strings.ReplaceAll(NeutralizeMarkdown(snippet), "\n", " ")

	if runes := []rune(snippet); len(runes) > replySnippetLength {
		snippet = strings.TrimSpace(string(runes[:replySnippetLength])) + "…"
	}
	snippet = strings.ReplaceAll(snippet, "://", ":/"+zeroWidthSpace+"/")

	if snippet == "" {
		if len(ref.Attachments) > 0 {
			snippet = fmt.Sprintf("[*Click to see attachment*](<%s>)", jump)
		} else {
			snippet = fmt.Sprintf("[*Click to see message*](<%s>)", jump)
		}
	}

	return fmt.Sprintf("-# [↪](<%s>) %s %s", jump, mention, snippet)
}
