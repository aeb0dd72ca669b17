package discord

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/utils/safe"
)

const (
	// DefaultRequestTimeout bounds every REST call
	DefaultRequestTimeout = 10 * time.Second
)

// client implements Service on top of a discordgo session
type client struct {
	session       *discordgo.Session
	timeout       time.Duration
	botUserID     string
	applicationID string
}

var _ Service = &client{}

// Option is a functional option for client configuration
type Option func(*client)

// WithRequestTimeout sets the per-request timeout
func WithRequestTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithIdentity sets the bot user and application IDs instead of looking
// them up
func WithIdentity(botUserID, applicationID string) Option {
	return func(c *client) {
		c.botUserID = botUserID
		c.applicationID = applicationID
	}
}

// New creates a Discord service backed by session. The bot user and its
// application are resolved once unless WithIdentity is given.
func New(ctx context.Context, session *discordgo.Session, opts ...Option) (Service, error) {
	if session == nil {
		return nil, goerr.New("discord session is required")
	}

	c := &client{
		session: session,
		timeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.botUserID == "" {
		user, err := c.session.User("@me", c.with(ctx)...)
		if err != nil {
			return nil, classify(err, "failed to get bot user")
		}
		c.botUserID = user.ID
	}

	if c.applicationID == "" {
		app, err := c.session.Application("@me", c.with(ctx)...)
		if err != nil {
			return nil, classify(err, "failed to get application")
		}
		c.applicationID = app.ID
	}

	return c, nil
}

// with returns the request options binding ctx. The timeout is applied by
// the caller through call.
func (c *client) with(ctx context.Context, extra ...discordgo.RequestOption) []discordgo.RequestOption {
	return append([]discordgo.RequestOption{discordgo.WithContext(ctx)}, extra...)
}

// call runs fn with a context bounded by the request timeout
func call[T any](ctx context.Context, c *client, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(ctx)
}

func (c *client) BotUserID() string {
	return c.botUserID
}

func (c *client) ApplicationID() string {
	return c.applicationID
}

func (c *client) Guild(ctx context.Context, guildID string) (*discordmodel.Guild, error) {
	g, err := call(ctx, c, func(ctx context.Context) (*discordgo.Guild, error) {
		return c.session.Guild(guildID, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to get guild", goerr.V("guild_id", guildID))
	}
	return discordmodel.NewGuild(g), nil
}

func (c *client) Roles(ctx context.Context, guildID string) ([]*discordmodel.Role, error) {
	roles, err := call(ctx, c, func(ctx context.Context) ([]*discordgo.Role, error) {
		return c.session.GuildRoles(guildID, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to get roles", goerr.V("guild_id", guildID))
	}
	return discordmodel.NewRoles(roles), nil
}

func (c *client) Member(ctx context.Context, guildID, userID string) (*discordmodel.Member, error) {
	m, err := call(ctx, c, func(ctx context.Context) (*discordgo.Member, error) {
		return c.session.GuildMember(guildID, userID, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to get member", goerr.V("guild_id", guildID), goerr.V("user_id", userID))
	}

	member := discordmodel.NewMember(m)
	if member.UserID == "" {
		member.UserID = userID
	}
	return member, nil
}

func (c *client) Channel(ctx context.Context, channelID string) (*discordmodel.Channel, error) {
	ch, err := call(ctx, c, func(ctx context.Context) (*discordgo.Channel, error) {
		return c.session.Channel(channelID, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to get channel", goerr.V("channel_id", channelID))
	}
	return discordmodel.NewChannel(ch), nil
}

func (c *client) Message(ctx context.Context, channelID, messageID string) (*discordmodel.Message, error) {
	// fetched raw so the poll, unknown to discordgo, survives
	raw, err := call(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.session.RequestWithBucketID(http.MethodGet,
			discordgo.EndpointChannelMessage(channelID, messageID), nil,
			discordgo.EndpointChannelMessage(channelID, ""), c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to get message", goerr.V("channel_id", channelID), goerr.V("message_id", messageID))
	}

	var msg discordgo.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode message", goerr.V("channel_id", channelID), goerr.V("message_id", messageID))
	}
	m := discordmodel.NewMessage(&msg)
	if m.Poll, err = discordmodel.ParsePoll(raw); err != nil {
		return nil, goerr.Wrap(err, "failed to decode poll", goerr.V("channel_id", channelID), goerr.V("message_id", messageID))
	}
	if m.GuildID == "" {
		if ch, err := c.Channel(ctx, channelID); err == nil {
			m.GuildID = ch.GuildID
			if m.Reference != nil && m.Reference.GuildID == "" {
				m.Reference.GuildID = ch.GuildID
			}
		}
	}
	return m, nil
}

func (c *client) ChannelWebhooks(ctx context.Context, channelID string) ([]*discordmodel.Webhook, error) {
	hooks, err := call(ctx, c, func(ctx context.Context) ([]*discordgo.Webhook, error) {
		return c.session.ChannelWebhooks(channelID, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to list webhooks", goerr.V("channel_id", channelID))
	}

	out := make([]*discordmodel.Webhook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, discordmodel.NewWebhook(h))
		}
	}
	return out, nil
}

func (c *client) CreateWebhook(ctx context.Context, channelID, name, reason string) (*discordmodel.Webhook, error) {
	hook, err := call(ctx, c, func(ctx context.Context) (*discordgo.Webhook, error) {
		return c.session.WebhookCreate(channelID, name, "", c.with(ctx, discordgo.WithAuditLogReason(reason))...)
	})
	if err != nil {
		return nil, classify(err, "failed to create webhook", goerr.V("channel_id", channelID))
	}
	return discordmodel.NewWebhook(hook), nil
}

func (c *client) ExecuteWebhook(ctx context.Context, webhookID, token string, msg *discordmodel.WebhookMessage) (*discordmodel.Message, error) {
	params := &discordgo.WebhookParams{
		Content:   msg.Content,
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{
				discordgo.AllowedMentionTypeRoles,
				discordgo.AllowedMentionTypeEveryone,
			},
			Users: msg.MentionUsers,
		},
	}
	for _, f := range msg.Files {
		params.Files = append(params.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}

	sent, err := call(ctx, c, func(ctx context.Context) (*discordgo.Message, error) {
		if msg.Poll != nil {
			return c.executeWithPoll(ctx, webhookID, token, msg.ThreadID, params, msg.Poll.Request(time.Now()))
		}
		return c.session.WebhookThreadExecute(webhookID, token, true, msg.ThreadID, params, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to execute webhook", goerr.V("webhook_id", webhookID), goerr.V("thread_id", msg.ThreadID))
	}
	if sent == nil {
		return nil, goerr.New("webhook returned no message", goerr.V("webhook_id", webhookID))
	}
	return discordmodel.NewMessage(sent), nil
}

// pollWebhookParams adds the poll object discordgo's WebhookParams lacks
type pollWebhookParams struct {
	*discordgo.WebhookParams
	Poll *discordmodel.PollRequest `json:"poll"`
}

// executeWithPoll sends a webhook message carrying a poll. It builds the
// same request as WebhookThreadExecute with the extra field.
func (c *client) executeWithPoll(ctx context.Context, webhookID, token, threadID string, params *discordgo.WebhookParams, poll *discordmodel.PollRequest) (*discordgo.Message, error) {
	uri := discordgo.EndpointWebhookToken(webhookID, token)
	query := neturl.Values{"wait": []string{"true"}}
	if threadID != "" {
		query.Set("thread_id", threadID)
	}
	uri += "?" + query.Encode()

	data := &pollWebhookParams{WebhookParams: params, Poll: poll}

	var (
		response []byte
		err      error
	)
	if len(params.Files) > 0 {
		contentType, body, encodeErr := discordgo.MultipartBodyWithJSON(data, params.Files)
		if encodeErr != nil {
			return nil, goerr.Wrap(encodeErr, "failed to encode multipart body")
		}
		response, err = c.session.RequestWithLockedBucket(http.MethodPost, uri, contentType, body,
			c.session.Ratelimiter.LockBucket(uri), 0, c.with(ctx)...)
	} else {
		response, err = c.session.RequestWithBucketID(http.MethodPost, uri, data, uri, c.with(ctx)...)
	}
	if err != nil {
		return nil, err
	}

	var sent discordgo.Message
	if err := json.Unmarshal(response, &sent); err != nil {
		return nil, goerr.Wrap(err, "failed to decode webhook response")
	}
	return &sent, nil
}

func (c *client) DeleteWebhookMessage(ctx context.Context, webhookID, token, messageID, threadID string) error {
	uri := discordgo.EndpointWebhookMessage(webhookID, token, messageID)
	if threadID != "" {
		uri += "?thread_id=" + threadID
	}

	_, err := call(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.session.RequestWithBucketID(http.MethodDelete, uri, nil, discordgo.EndpointWebhookToken("", ""), c.with(ctx)...)
	})
	if err != nil {
		return classify(err, "failed to delete webhook message", goerr.V("webhook_id", webhookID), goerr.V("message_id", messageID))
	}
	return nil
}

func (c *client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, err := call(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.session.ChannelMessageDelete(channelID, messageID, c.with(ctx)...)
	})
	if err != nil {
		return classify(err, "failed to delete message", goerr.V("channel_id", channelID), goerr.V("message_id", messageID))
	}
	return nil
}

func (c *client) SendNotice(ctx context.Context, channelID, messageID, content string) (*discordmodel.Message, error) {
	failIfNotExists := false
	data := &discordgo.MessageSend{
		Content: content,
		Reference: &discordgo.MessageReference{
			MessageID:       messageID,
			ChannelID:       channelID,
			FailIfNotExists: &failIfNotExists,
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse:       []discordgo.AllowedMentionType{},
			RepliedUser: false,
		},
	}

	sent, err := call(ctx, c, func(ctx context.Context) (*discordgo.Message, error) {
		return c.session.ChannelMessageSendComplex(channelID, data, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to send notice", goerr.V("channel_id", channelID), goerr.V("reply_to", messageID))
	}
	return discordmodel.NewMessage(sent), nil
}

func (c *client) DeleteNotice(ctx context.Context, channelID, messageID string) error {
	return c.DeleteMessage(ctx, channelID, messageID)
}

type applicationEmojiCreate struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (c *client) CreateApplicationEmoji(ctx context.Context, name string, image *discordmodel.File) (*discordmodel.Emoji, error) {
	uri := discordgo.EndpointApplication(c.applicationID) + "/emojis"
	data := &applicationEmojiCreate{
		Name:  name,
		Image: fmt.Sprintf("data:%s;base64,%s", image.ContentType, base64.StdEncoding.EncodeToString(image.Data)),
	}

	body, err := call(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.session.RequestWithBucketID(http.MethodPost, uri, data, uri, c.with(ctx)...)
	})
	if err != nil {
		return nil, classify(err, "failed to create application emoji", goerr.V("name", name))
	}

	var emoji discordgo.Emoji
	if err := discordgo.Unmarshal(body, &emoji); err != nil {
		return nil, goerr.Wrap(err, "failed to decode application emoji", goerr.V("name", name))
	}
	return &discordmodel.Emoji{ID: emoji.ID, Name: emoji.Name, Animated: emoji.Animated}, nil
}

func (c *client) DeleteApplicationEmoji(ctx context.Context, emojiID string) error {
	base := discordgo.EndpointApplication(c.applicationID) + "/emojis"
	_, err := call(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.session.RequestWithBucketID(http.MethodDelete, base+"/"+emojiID, nil, base, c.with(ctx)...)
	})
	if err != nil {
		return classify(err, "failed to delete application emoji", goerr.V("emoji_id", emojiID))
	}
	return nil
}

func (c *client) Download(ctx context.Context, url string, limit int64) (*discordmodel.File, error) {
	return call(ctx, c, func(ctx context.Context) (*discordmodel.File, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to build download request", goerr.V("url", url))
		}

		resp, err := c.session.Client.Do(req)
		if err != nil {
			return nil, classify(err, "failed to download", goerr.V("url", url))
		}
		defer safe.Close(ctx, resp.Body)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, goerr.Wrap(ErrNotFound, "asset not found", goerr.V("url", url))
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, goerr.Wrap(ErrUnavailable, "cdn error", goerr.V("url", url), goerr.V("status", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return nil, goerr.New("unexpected download status", goerr.V("url", url), goerr.V("status", resp.StatusCode))
		}

		data, err := safe.ReadAll(resp.Body, limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read download", goerr.V("url", url))
		}

		return &discordmodel.File{
			Name:        fileName(url),
			ContentType: resp.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	})
}

// fileName returns the last path element of rawURL without the query
func fileName(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path[strings.LastIndex(u.Path, "/")+1:]
}
