package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

func TestProxyTag_Match(t *testing.T) {
	testCases := []struct {
		name  string
		tag   model.ProxyTag
		text  string
		body  string
		match bool
	}{
		{
			name:  "prefix only",
			tag:   model.ProxyTag{Prefix: "a:"},
			text:  "a:hello",
			body:  "hello",
			match: true,
		},
		{
			name:  "prefix and suffix",
			tag:   model.ProxyTag{Prefix: "[", Suffix: "]"},
			text:  "[hello world]",
			body:  "hello world",
			match: true,
		},
		{
			name:  "case insensitive by default",
			tag:   model.ProxyTag{Prefix: "A:"},
			text:  "a:hi",
			body:  "hi",
			match: true,
		},
		{
			name:  "case sensitive",
			tag:   model.ProxyTag{Prefix: "A:", CaseSensitive: true},
			text:  "a:hi",
			match: false,
		},
		{
			name:  "literal tags are escaped",
			tag:   model.ProxyTag{Prefix: ".*"},
			text:  "hello",
			match: false,
		},
		{
			name:  "regex tag",
			tag:   model.ProxyTag{Prefix: `\d+>`, Regex: true},
			text:  "42>hi",
			body:  "hi",
			match: true,
		},
		{
			name:  "body must not be empty",
			tag:   model.ProxyTag{Prefix: "a:"},
			text:  "a:",
			match: false,
		},
		{
			name:  "multiline body",
			tag:   model.ProxyTag{Prefix: "a:"},
			text:  "a:line1\nline2",
			body:  "line1\nline2",
			match: true,
		},
		{
			name:  "empty tag never matches",
			tag:   model.ProxyTag{},
			text:  "hello",
			match: false,
		},
		{
			name:  "prefix overlapping a mention is rejected",
			tag:   model.ProxyTag{Prefix: "<"},
			text:  "<@123> hi",
			match: false,
		},
		{
			name:  "suffix overlapping a mention is rejected",
			tag:   model.ProxyTag{Suffix: ">"},
			text:  "hi <@123>",
			match: false,
		},
		{
			name:  "mention inside the body is fine",
			tag:   model.ProxyTag{Prefix: "a:"},
			text:  "a:hi <@123>",
			body:  "hi <@123>",
			match: true,
		},
		{
			name:  "prefix straddling the start of a mention is rejected",
			tag:   model.ProxyTag{Prefix: "<@1"},
			text:  "<@123>text<@456>",
			match: false,
		},
		{
			name:  "suffix straddling the end of a mention is rejected",
			tag:   model.ProxyTag{Suffix: "56>"},
			text:  "<@123>text<@456>",
			match: false,
		},
		{
			name:  "longer literal prefix does not match a shorter one",
			tag:   model.ProxyTag{Prefix: "a:"},
			text:  "ab:hi",
			match: false,
		},
		{
			name:  "short prefix matches a longer looking tag",
			tag:   model.ProxyTag{Prefix: "a"},
			text:  "ab:hi",
			body:  "b:hi",
			match: true,
		},
		{
			name:  "suffix overlapping an angle link is rejected",
			tag:   model.ProxyTag{Suffix: ">"},
			text:  "see <https://example.com>",
			match: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body, ok := tc.tag.Match(tc.text)
			gt.Value(t, ok).Equal(tc.match)
			if tc.match {
				gt.Value(t, body).Equal(tc.body)
			}
		})
	}
}

func TestProxyTag_Validate(t *testing.T) {
	gt.NoError(t, model.ProxyTag{Prefix: "a:"}.Validate())
	gt.Error(t, model.ProxyTag{Prefix: "(", Regex: true}.Validate())
}
