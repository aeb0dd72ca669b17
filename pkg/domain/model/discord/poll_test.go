package discord_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/model/discord"
)

const rawPollMessage = `{
	"id": "10",
	"content": "",
	"poll": {
		"question": {"text": "Where to?"},
		"answers": [
			{"answer_id": 1, "poll_media": {"text": "Beach", "emoji": {"name": "🏖"}}},
			{"answer_id": 2, "poll_media": {"text": "Hills", "emoji": {"id": "900", "name": "hill"}}}
		],
		"expiry": "2026-01-02T03:30:00Z",
		"allow_multiselect": true,
		"layout_type": 1,
		"results": {"is_finalized": false, "answer_counts": []}
	}
}`

func TestParsePoll(t *testing.T) {
	poll, err := discord.ParsePoll([]byte(rawPollMessage))
	gt.NoError(t, err).Required()
	gt.Value(t, poll).NotNil().Required()

	gt.Value(t, poll.Question).Equal("Where to?")
	gt.Bool(t, poll.AllowMultiselect).True()
	gt.Value(t, poll.LayoutType).Equal(1)
	gt.Value(t, len(poll.Answers)).Equal(2)
	gt.Value(t, poll.Answers[0]).Equal(discord.PollAnswer{Text: "Beach", EmojiName: "🏖"})
	gt.Value(t, poll.Answers[1]).Equal(discord.PollAnswer{Text: "Hills", EmojiID: "900", EmojiName: "hill"})

	t.Run("no poll", func(t *testing.T) {
		poll, err := discord.ParsePoll([]byte(`{"id": "10", "content": "hi"}`))
		gt.NoError(t, err)
		gt.Value(t, poll).Nil()

		poll, err = discord.ParsePoll(nil)
		gt.NoError(t, err)
		gt.Value(t, poll).Nil()
	})

	t.Run("broken payload", func(t *testing.T) {
		_, err := discord.ParsePoll([]byte(`{"poll": [`))
		gt.Error(t, err)
	})
}

func TestPoll_DurationHours(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *discord.Poll {
		expiry := now.Add(d)
		return &discord.Poll{Expiry: &expiry}
	}

	gt.Value(t, at(5*time.Hour).DurationHours(now)).Equal(5)
	gt.Value(t, at(5*time.Hour+time.Minute).DurationHours(now)).Equal(6)
	gt.Value(t, at(10*time.Minute).DurationHours(now)).Equal(discord.PollMinHours)
	gt.Value(t, at(-time.Hour).DurationHours(now)).Equal(discord.PollMinHours)
	gt.Value(t, at(60*24*time.Hour).DurationHours(now)).Equal(discord.PollMaxHours)
	gt.Value(t, (&discord.Poll{}).DurationHours(now)).Equal(discord.PollDefaultHours)
}

func TestPoll_Request(t *testing.T) {
	poll, err := discord.ParsePoll([]byte(rawPollMessage))
	gt.NoError(t, err).Required()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(poll.Request(now))
	gt.NoError(t, err).Required()

	var got map[string]any
	gt.NoError(t, json.Unmarshal(raw, &got)).Required()
	gt.Value(t, got["duration"]).Equal(float64(28))
	gt.Value(t, got["allow_multiselect"]).Equal(true)
	gt.Value(t, got["question"]).Equal(map[string]any{"text": "Where to?"})

	answers, ok := got["answers"].([]any)
	gt.Bool(t, ok).True().Required()
	gt.Value(t, len(answers)).Equal(2)
	gt.Value(t, answers[1]).Equal(map[string]any{
		"poll_media": map[string]any{"text": "Hills", "emoji": map[string]any{"id": "900", "name": "hill"}},
	})
}
