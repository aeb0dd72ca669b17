package discord

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	// PollMinHours and PollMaxHours bound the duration of a new poll
	PollMinHours = 1
	PollMaxHours = 32 * 24

	// PollDefaultHours is used when the expiry is unknown
	PollDefaultHours = 24
)

// PollAnswer is one choice of a poll
type PollAnswer struct {
	Text      string
	EmojiID   string
	EmojiName string
}

// Poll is a message poll. discordgo does not model polls, so they are read
// from the raw event payload.
type Poll struct {
	Question         string
	Answers          []PollAnswer
	AllowMultiselect bool
	LayoutType       int
	Expiry           *time.Time
}

type pollEmoji struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type pollMedia struct {
	Text  string     `json:"text,omitempty"`
	Emoji *pollEmoji `json:"emoji,omitempty"`
}

type pollAnswer struct {
	Media pollMedia `json:"poll_media"`
}

type pollObject struct {
	Question         pollMedia    `json:"question"`
	Answers          []pollAnswer `json:"answers"`
	Expiry           *time.Time   `json:"expiry,omitempty"`
	AllowMultiselect bool         `json:"allow_multiselect"`
	LayoutType       int          `json:"layout_type,omitempty"`
}

// PollRequest is the poll object of a create message request
type PollRequest struct {
	Question         pollMedia    `json:"question"`
	Answers          []pollAnswer `json:"answers"`
	Duration         int          `json:"duration"`
	AllowMultiselect bool         `json:"allow_multiselect"`
	LayoutType       int          `json:"layout_type,omitempty"`
}

// ParsePoll reads the poll of a raw message payload. It returns nil when
// the message has none.
func ParsePoll(raw []byte) (*Poll, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var payload struct {
		Poll *pollObject `json:"poll"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, goerr.Wrap(err, "failed to parse poll")
	}
	if payload.Poll == nil {
		return nil, nil
	}

	p := &Poll{
		Question:         payload.Poll.Question.Text,
		AllowMultiselect: payload.Poll.AllowMultiselect,
		LayoutType:       payload.Poll.LayoutType,
		Expiry:           payload.Poll.Expiry,
	}
	for _, a := range payload.Poll.Answers {
		answer := PollAnswer{Text: a.Media.Text}
		if a.Media.Emoji != nil {
			answer.EmojiID = a.Media.Emoji.ID
			answer.EmojiName = a.Media.Emoji.Name
		}
		p.Answers = append(p.Answers, answer)
	}
	return p, nil
}

// DurationHours returns the hours left until expiry, rounded up and clamped
// to what a new poll accepts
func (p *Poll) DurationHours(now time.Time) int {
	if p.Expiry == nil {
		return PollDefaultHours
	}
	left := p.Expiry.Sub(now)
	hours := int(left / time.Hour)
	if left%time.Hour > 0 {
		hours++
	}
	return min(max(hours, PollMinHours), PollMaxHours)
}

// Request builds the poll object for re-sending the poll at now
func (p *Poll) Request(now time.Time) *PollRequest {
	req := &PollRequest{
		Question:         pollMedia{Text: p.Question},
		Duration:         p.DurationHours(now),
		AllowMultiselect: p.AllowMultiselect,
		LayoutType:       p.LayoutType,
	}
	for _, a := range p.Answers {
		media := pollMedia{Text: a.Text}
		if a.EmojiID != "" || a.EmojiName != "" {
			media.Emoji = &pollEmoji{ID: a.EmojiID, Name: a.EmojiName}
		}
		req.Answers = append(req.Answers, pollAnswer{Media: media})
	}
	return req
}
