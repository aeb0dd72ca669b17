// Package discordtest provides an in-memory discord.Service for tests.
package discordtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/service/discord"
)

// ExecuteCall is a recorded ExecuteWebhook call
type ExecuteCall struct {
	WebhookID string
	Token     string
	Message   *discordmodel.WebhookMessage
}

// WebhookMessageDeletion is a recorded DeleteWebhookMessage call
type WebhookMessageDeletion struct {
	WebhookID string
	MessageID string
	ThreadID  string
}

// Notice is a recorded SendNotice call
type Notice struct {
	ChannelID string
	ReplyTo   string
	Content   string
}

// Service is a fake Discord holding guilds, channels and messages in
// memory. Fields may be populated directly before use; recorded calls are
// read through the accessor methods.
type Service struct {
	BotID string
	AppID string

	mu       sync.Mutex
	guilds   map[string]*discordmodel.Guild
	roles    map[string][]*discordmodel.Role
	members  map[string]*discordmodel.Member
	channels map[string]*discordmodel.Channel
	messages map[string]*discordmodel.Message
	webhooks map[string][]*discordmodel.Webhook
	assets   map[string]*discordmodel.File

	// Err* inject failures into the matching call
	ErrExecuteWebhook error
	ErrDeleteMessage  error
	ErrCreateEmoji    error

	seq atomic.Int64

	executed        []ExecuteCall
	deletedMessages []string
	deletedProxies  []WebhookMessageDeletion
	notices         []Notice
	deletedNotices  []string
	createdHooks    []*discordmodel.Webhook
	createdEmojis   []*discordmodel.Emoji
	deletedEmojis   []string
	apiCalls        map[string]int
}

var _ discord.Service = &Service{}

// New creates an empty fake for the given bot user
func New(botID, appID string) *Service {
	return &Service{
		BotID:    botID,
		AppID:    appID,
		guilds:   make(map[string]*discordmodel.Guild),
		roles:    make(map[string][]*discordmodel.Role),
		members:  make(map[string]*discordmodel.Member),
		channels: make(map[string]*discordmodel.Channel),
		messages: make(map[string]*discordmodel.Message),
		webhooks: make(map[string][]*discordmodel.Webhook),
		assets:   make(map[string]*discordmodel.File),
		apiCalls: make(map[string]int),
	}
}

func (s *Service) nextID() string {
	return fmt.Sprintf("9%08d", s.seq.Add(1))
}

func (s *Service) count(name string) {
	s.apiCalls[name]++
}

func notFound(kind, id string) error {
	return goerr.Wrap(discord.ErrNotFound, "unknown "+kind, goerr.V("id", id))
}

// AddGuild registers a guild with its roles
func (s *Service) AddGuild(g *discordmodel.Guild, roles ...*discordmodel.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[g.ID] = g
	s.roles[g.ID] = roles
}

// AddMember registers a guild member
func (s *Service) AddMember(guildID string, m *discordmodel.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[guildID+":"+m.UserID] = m
}

// AddChannel registers a channel
func (s *Service) AddChannel(c *discordmodel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[c.ID] = c
}

// RemoveChannel forgets a channel
func (s *Service) RemoveChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
}

// AddMessage registers a message that can be fetched
func (s *Service) AddMessage(m *discordmodel.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ChannelID+":"+m.ID] = m
}

// AddWebhook registers an existing webhook
func (s *Service) AddWebhook(w *discordmodel.Webhook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks[w.ChannelID] = append(s.webhooks[w.ChannelID], w)
}

// RemoveWebhooks deletes every webhook of channelID, as a moderator would
func (s *Service) RemoveWebhooks(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.webhooks, channelID)
}

// AddAsset registers a downloadable file under url
func (s *Service) AddAsset(url string, f *discordmodel.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[url] = f
}

func (s *Service) BotUserID() string     { return s.BotID }
func (s *Service) ApplicationID() string { return s.AppID }

func (s *Service) Guild(ctx context.Context, guildID string) (*discordmodel.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("guild")
	g, ok := s.guilds[guildID]
	if !ok {
		return nil, notFound("guild", guildID)
	}
	return g, nil
}

func (s *Service) Roles(ctx context.Context, guildID string) ([]*discordmodel.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("roles")
	roles, ok := s.roles[guildID]
	if !ok {
		return nil, notFound("guild", guildID)
	}
	return roles, nil
}

func (s *Service) Member(ctx context.Context, guildID, userID string) (*discordmodel.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("member")
	m, ok := s.members[guildID+":"+userID]
	if !ok {
		return nil, notFound("member", userID)
	}
	return m, nil
}

func (s *Service) Channel(ctx context.Context, channelID string) (*discordmodel.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("channel")
	c, ok := s.channels[channelID]
	if !ok {
		return nil, notFound("channel", channelID)
	}
	return c, nil
}

func (s *Service) Message(ctx context.Context, channelID, messageID string) (*discordmodel.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[channelID+":"+messageID]
	if !ok {
		return nil, notFound("message", messageID)
	}
	return m, nil
}

func (s *Service) ChannelWebhooks(ctx context.Context, channelID string) ([]*discordmodel.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*discordmodel.Webhook(nil), s.webhooks[channelID]...), nil
}

func (s *Service) CreateWebhook(ctx context.Context, channelID, name, reason string) (*discordmodel.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.channels[channelID]
	if !ok {
		return nil, notFound("channel", channelID)
	}
	w := &discordmodel.Webhook{
		ID:            s.nextID(),
		Token:         "token-" + channelID,
		ChannelID:     channelID,
		GuildID:       c.GuildID,
		Name:          name,
		ApplicationID: s.AppID,
	}
	s.webhooks[channelID] = append(s.webhooks[channelID], w)
	s.createdHooks = append(s.createdHooks, w)
	return w, nil
}

func (s *Service) findWebhook(webhookID string) *discordmodel.Webhook {
	for _, hooks := range s.webhooks {
		for _, w := range hooks {
			if w.ID == webhookID {
				return w
			}
		}
	}
	return nil
}

func (s *Service) ExecuteWebhook(ctx context.Context, webhookID, token string, msg *discordmodel.WebhookMessage) (*discordmodel.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrExecuteWebhook != nil {
		return nil, s.ErrExecuteWebhook
	}
	w := s.findWebhook(webhookID)
	if w == nil || w.Token != token {
		return nil, goerr.Wrap(discord.ErrUnknownWebhook, "webhook is gone", goerr.V("webhook_id", webhookID))
	}

	s.executed = append(s.executed, ExecuteCall{WebhookID: webhookID, Token: token, Message: msg})
	channelID := w.ChannelID
	if msg.ThreadID != "" {
		channelID = msg.ThreadID
	}
	out := &discordmodel.Message{
		ID:        s.nextID(),
		ChannelID: channelID,
		GuildID:   w.GuildID,
		WebhookID: webhookID,
		Author:    discordmodel.User{ID: webhookID, Username: msg.Username, Bot: true},
		Content:   msg.Content,
		Poll:      msg.Poll,
	}
	s.messages[out.ChannelID+":"+out.ID] = out
	return out, nil
}

func (s *Service) DeleteWebhookMessage(ctx context.Context, webhookID, token, messageID, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.findWebhook(webhookID); w == nil || w.Token != token {
		return goerr.Wrap(discord.ErrUnknownWebhook, "webhook is gone", goerr.V("webhook_id", webhookID))
	}
	s.deletedProxies = append(s.deletedProxies, WebhookMessageDeletion{WebhookID: webhookID, MessageID: messageID, ThreadID: threadID})
	return nil
}

func (s *Service) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrDeleteMessage != nil {
		return s.ErrDeleteMessage
	}
	s.deletedMessages = append(s.deletedMessages, messageID)
	delete(s.messages, channelID+":"+messageID)
	return nil
}

func (s *Service) SendNotice(ctx context.Context, channelID, messageID, content string) (*discordmodel.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, Notice{ChannelID: channelID, ReplyTo: messageID, Content: content})
	return &discordmodel.Message{
		ID:        s.nextID(),
		ChannelID: channelID,
		Author:    discordmodel.User{ID: s.BotID, Bot: true},
		Content:   content,
	}, nil
}

func (s *Service) DeleteNotice(ctx context.Context, channelID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedNotices = append(s.deletedNotices, messageID)
	return nil
}

func (s *Service) CreateApplicationEmoji(ctx context.Context, name string, image *discordmodel.File) (*discordmodel.Emoji, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrCreateEmoji != nil {
		return nil, s.ErrCreateEmoji
	}
	e := &discordmodel.Emoji{ID: s.nextID(), Name: name}
	s.createdEmojis = append(s.createdEmojis, e)
	return e, nil
}

func (s *Service) DeleteApplicationEmoji(ctx context.Context, emojiID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedEmojis = append(s.deletedEmojis, emojiID)
	return nil
}

func (s *Service) Download(ctx context.Context, url string, limit int64) (*discordmodel.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.assets[url]
	if !ok {
		return nil, notFound("asset", url)
	}
	if int64(len(f.Data)) > limit {
		return nil, goerr.New("asset exceeds limit", goerr.V("url", url), goerr.V("limit", limit))
	}
	out := *f
	out.Data = append([]byte(nil), f.Data...)
	return &out, nil
}

// Executed returns every webhook execution so far
func (s *Service) Executed() []ExecuteCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExecuteCall(nil), s.executed...)
}

// DeletedMessages returns the IDs passed to DeleteMessage
func (s *Service) DeletedMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedMessages...)
}

// DeletedProxies returns every DeleteWebhookMessage call
func (s *Service) DeletedProxies() []WebhookMessageDeletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WebhookMessageDeletion(nil), s.deletedProxies...)
}

// Notices returns every notice sent
func (s *Service) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notice(nil), s.notices...)
}

// DeletedNotices returns the IDs passed to DeleteNotice
func (s *Service) DeletedNotices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedNotices...)
}

// CreatedWebhooks returns the webhooks created through CreateWebhook
func (s *Service) CreatedWebhooks() []*discordmodel.Webhook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*discordmodel.Webhook(nil), s.createdHooks...)
}

// CreatedEmojis returns the application emoji created
func (s *Service) CreatedEmojis() []*discordmodel.Emoji {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*discordmodel.Emoji(nil), s.createdEmojis...)
}

// DeletedEmojis returns the application emoji IDs deleted
func (s *Service) DeletedEmojis() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedEmojis...)
}

// Calls returns how often the named read endpoint (guild, roles, member,
// channel) was hit
func (s *Service) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiCalls[name]
}
