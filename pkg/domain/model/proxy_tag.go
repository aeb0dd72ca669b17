package model

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// ProxyTag is a prefix/suffix pair marking a message for a member
type ProxyTag struct {
	Prefix        string
	Suffix        string
	Regex         bool
	CaseSensitive bool
}

// mentionPattern matches mentions, channel links, custom emoji, slash
// command references and angle-bracketed URLs
var mentionPattern = regexp.MustCompile(`<(?:(?:[@#]|sound:|:[\S_]+|/(?:\w+ ?){1,3}:)\d+|https?://[^\s]+)>`)

// IsEmpty reports whether the tag has neither prefix nor suffix
func (t ProxyTag) IsEmpty() bool {
	return t.Prefix == "" && t.Suffix == ""
}

// Validate compiles the tag to make sure it can be matched
func (t ProxyTag) Validate() error {
	_, err := t.compile()
	return err
}

func (t ProxyTag) compile() (*regexp.Regexp, error) {
	prefix, suffix := t.Prefix, t.Suffix
	if !t.Regex {
		prefix, suffix = regexp.QuoteMeta(prefix), regexp.QuoteMeta(suffix)
	}

	expr := `^(` + prefix + `)([\s\S]+)(` + suffix + `)$`
	if !t.CaseSensitive {
		expr = `(?i)` + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile proxy tag",
			goerr.V("prefix", t.Prefix), goerr.V("suffix", t.Suffix), goerr.V("regex", t.Regex))
	}
	return re, nil
}

// Match tries the tag against text and returns the body between prefix and
// suffix. A match is refused when a mention or link overlaps the prefix or
// suffix, so a tag like "<" cannot eat part of "<@123>".
func (t ProxyTag) Match(text string) (string, bool) {
	if t.IsEmpty() {
		return "", false
	}

	re, err := t.compile()
	if err != nil {
		return "", false
	}

	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", false
	}

	prefixEnd, suffixStart := loc[3], loc[6]
	hasPrefix := prefixEnd > 0
	hasSuffix := suffixStart < len(text)

	for _, span := range mentionPattern.FindAllStringIndex(text, -1) {
		if hasPrefix && span[0] < prefixEnd {
			return "", false
		}
		if hasSuffix && span[1] > suffixStart {
			return "", false
		}
	}

	return text[loc[4]:loc[5]], true
}
