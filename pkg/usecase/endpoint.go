package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
)

const (
	// DefaultWebhookName is the name of webhooks owned by the proxy
	DefaultWebhookName = "proxima proxy"

	webhookReason = "required for proxima to function"
)

// EndpointRegistry maps channels to the webhook used to proxy into them
type EndpointRegistry struct {
	repo  interfaces.Repository
	svc   discord.Service
	perms *PermissionResolver
	name  string
}

// NewEndpointRegistry creates an EndpointRegistry that adopts or creates
// webhooks called name
func NewEndpointRegistry(repo interfaces.Repository, svc discord.Service, perms *PermissionResolver, name string) *EndpointRegistry {
	if name == "" {
		name = DefaultWebhookName
	}
	return &EndpointRegistry{repo: repo, svc: svc, perms: perms, name: name}
}

// Resolve returns the endpoint for channel. Threads use their parent's
// webhook. A stored mapping wins; otherwise an existing webhook of ours is
// adopted or a new one is created, and the mapping is stored.
func (r *EndpointRegistry) Resolve(ctx context.Context, channel *discordmodel.Channel) (*model.Endpoint, error) {
	if channel.IsThread() {
		if channel.ParentID == "" {
			return nil, goerr.New("thread has no parent", goerr.V("channel_id", channel.ID))
		}
		parent, err := r.perms.Channel(ctx, channel.ParentID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get thread parent", goerr.V("channel_id", channel.ID))
		}
		channel = parent
	}
	if channel.GuildID == "" {
		return nil, goerr.New("channel is not in a guild", goerr.V("channel_id", channel.ID))
	}

	ep, err := r.repo.Endpoint().Get(ctx, channel.ID)
	if err == nil {
		return ep, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to get endpoint", goerr.V("channel_id", channel.ID))
	}

	hook, err := r.findWebhook(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	if hook == nil {
		hook, err = r.svc.CreateWebhook(ctx, channel.ID, r.name, webhookReason)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create webhook", goerr.V("channel_id", channel.ID))
		}
		logging.From(ctx).Info("created webhook", "channel_id", channel.ID, "webhook_id", hook.ID)
	}

	ep = &model.Endpoint{
		ChannelID: channel.ID,
		GuildID:   channel.GuildID,
		WebhookID: hook.ID,
		Token:     hook.Token,
	}
	if err := r.repo.Endpoint().Put(ctx, ep); err != nil {
		return nil, goerr.Wrap(err, "failed to save endpoint", goerr.V("channel_id", channel.ID))
	}
	return ep, nil
}

func (r *EndpointRegistry) findWebhook(ctx context.Context, channelID string) (*discordmodel.Webhook, error) {
	hooks, err := r.svc.ChannelWebhooks(ctx, channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list webhooks", goerr.V("channel_id", channelID))
	}

	for _, h := range hooks {
		if h.Name == r.name && h.Token != "" && h.ApplicationID == r.svc.ApplicationID() {
			return h, nil
		}
	}
	return nil, nil
}

// Invalidate drops the stored mapping of channelID, typically after Discord
// reported its webhook as unknown
func (r *EndpointRegistry) Invalidate(ctx context.Context, channelID string) error {
	if err := r.repo.Endpoint().Delete(ctx, channelID); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(err, "failed to delete endpoint", goerr.V("channel_id", channelID))
	}
	return nil
}

// ThreadID returns the thread to target when sending into channel
func ThreadID(channel *discordmodel.Channel) string {
	if channel.IsThread() {
		return channel.ID
	}
	return ""
}
