package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
)

// ReactionUseCase handles reactions on proxied messages
type ReactionUseCase struct {
	repo     interfaces.Repository
	svc      discord.Service
	perms    *PermissionResolver
	registry *EndpointRegistry
}

// NewReactionUseCase creates a ReactionUseCase
func NewReactionUseCase(repo interfaces.Repository, svc discord.Service, perms *PermissionResolver, registry *EndpointRegistry) *ReactionUseCase {
	return &ReactionUseCase{repo: repo, svc: svc, perms: perms, registry: registry}
}

// HandleReactionAdd deletes a proxied message when its original author
// reacts with the delete emoji. It reports whether a message was deleted.
func (uc *ReactionUseCase) HandleReactionAdd(ctx context.Context, r *discordmodel.Reaction) (bool, error) {
	if r == nil ||
		r.UserID == uc.svc.BotUserID() ||
		r.GuildID == "" ||
		r.Bot ||
		r.Emoji != discordmodel.DeleteReaction {
		return false, nil
	}

	record, err := uc.repo.ProxiedMessage().Get(ctx, r.MessageID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to get proxied message", goerr.V("message_id", r.MessageID))
	}
	if record.AuthorID != r.UserID {
		return false, nil
	}

	channel, err := uc.perms.Channel(ctx, r.ChannelID)
	if err != nil {
		return false, goerr.Wrap(err, "failed to get channel", goerr.V("channel_id", r.ChannelID))
	}

	endpoint, err := uc.registry.Resolve(ctx, channel)
	if err != nil {
		return false, goerr.Wrap(err, "failed to resolve endpoint", goerr.V("channel_id", r.ChannelID))
	}

	if err := uc.svc.DeleteWebhookMessage(ctx, endpoint.WebhookID, endpoint.Token, r.MessageID, ThreadID(channel)); err != nil {
		if errors.Is(err, discord.ErrUnknownWebhook) {
			_ = uc.registry.Invalidate(ctx, endpoint.ChannelID)
		}
		return false, goerr.Wrap(err, "failed to delete proxied message", goerr.V("message_id", r.MessageID))
	}

	if err := uc.repo.ProxiedMessage().Delete(ctx, r.MessageID); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return true, goerr.Wrap(err, "failed to delete proxied message record", goerr.V("message_id", r.MessageID))
	}

	logging.From(ctx).Info("deleted proxied message by reaction", "message_id", r.MessageID, "user_id", r.UserID)
	return true, nil
}
