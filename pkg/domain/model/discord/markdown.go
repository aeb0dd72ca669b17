package discord

import (
	"regexp"
	"strings"
)

// Longer markers come first so that "**x**" is unwrapped as bold instead of
// leaving a stray pair of asterisks behind.
var markdownPairs = []*regexp.Regexp{
	regexp.MustCompile("```([\\s\\S]+?)```"),
	regexp.MustCompile(`\*\*([^*]+)\*\*`),
	regexp.MustCompile(`__([^_]+)__`),
	regexp.MustCompile(`~~([^~]+)~~`),
	regexp.MustCompile(`\*([^*]+)\*`),
	regexp.MustCompile(`_([^_]+)_`),
	regexp.MustCompile("`([^`]+)`"),
}

const markdownSpecials = "*_~`"

// NeutralizeMarkdown unwraps matched emphasis and code markers and escapes
// whatever markers remain, so the result cannot open formatting that spills
// into surrounding text.
func NeutralizeMarkdown(text string) string {
	for _, re := range markdownPairs {
		text = re.ReplaceAllString(text, "$1")
	}

	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	for _, r := range text {
		if strings.ContainsRune(markdownSpecials, r) && prev != '\\' {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
