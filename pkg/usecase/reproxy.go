package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/secmon-lab/proxima/pkg/utils/errutil"
	"golang.org/x/sync/errgroup"
)

// ReproxyUseCase re-sends a user's last proxied message as another member
type ReproxyUseCase struct {
	repo     interfaces.Repository
	svc      discord.Service
	perms    *PermissionResolver
	latch    *LatchUseCase
	content  *ContentPipeline
	registry *EndpointRegistry
	now      func() time.Time
}

// NewReproxyUseCase creates a ReproxyUseCase
func NewReproxyUseCase(
	repo interfaces.Repository,
	svc discord.Service,
	perms *PermissionResolver,
	latch *LatchUseCase,
	content *ContentPipeline,
	registry *EndpointRegistry,
	now func() time.Time,
) *ReproxyUseCase {
	if now == nil {
		now = time.Now
	}
	return &ReproxyUseCase{
		repo:     repo,
		svc:      svc,
		perms:    perms,
		latch:    latch,
		content:  content,
		registry: registry,
		now:      now,
	}
}

// Reproxy replaces the latest message userID proxied in channelID with the
// same content sent as memberName
func (uc *ReproxyUseCase) Reproxy(ctx context.Context, userID, guildID, channelID, memberName string) (*model.ProxiedMessage, error) {
	record, err := uc.repo.ProxiedMessage().Latest(ctx, userID, channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "no proxied message to reproxy", goerr.V("user_id", userID), goerr.V("channel_id", channelID))
	}

	member, group, err := uc.latch.FindMember(ctx, userID, memberName)
	if err != nil {
		return nil, err
	}

	chain, err := uc.perms.ChannelChain(ctx, channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve channel", goerr.V("channel_id", channelID))
	}
	chainIDs := make([]string, len(chain))
	for i, ch := range chain {
		chainIDs[i] = ch.ID
	}
	if !group.AllowsChannel(chainIDs) {
		return nil, goerr.Wrap(ErrPermissionDenied, "group is restricted in this channel",
			goerr.V("group_id", group.ID), goerr.V("channel_id", channelID))
	}

	ok, err := uc.perms.HasSendCapability(ctx, guildID, channelID, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check user permissions", goerr.V("user_id", userID))
	}
	if !ok {
		return nil, goerr.Wrap(ErrPermissionDenied, "user cannot send in channel", goerr.V("user_id", userID), goerr.V("channel_id", channelID))
	}

	old, err := uc.svc.Message(ctx, channelID, record.ProxyID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch proxied message", goerr.V("proxy_id", record.ProxyID))
	}

	guild, err := uc.perms.Guild(ctx, guildID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get guild", goerr.V("guild_id", guildID))
	}
	files, err := uc.content.Attachments(ctx, old, guild.FileSizeLimit())
	if err != nil {
		return nil, err
	}

	endpoint, err := uc.registry.Resolve(ctx, chain[0])
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve endpoint", goerr.V("channel_id", channelID))
	}

	out := &discordmodel.WebhookMessage{
		Content:      old.Content,
		Username:     member.WebhookName(group),
		AvatarURL:    member.Avatar(group),
		Files:        files,
		ThreadID:     ThreadID(chain[0]),
		MentionUsers: old.Mentions,
		Poll:         old.Poll,
	}

	var (
		eg    errgroup.Group
		proxy *discordmodel.Message
	)
	eg.Go(func() error {
		var err error
		proxy, err = uc.svc.ExecuteWebhook(ctx, endpoint.WebhookID, endpoint.Token, out)
		return err
	})
	eg.Go(func() error {
		return uc.svc.DeleteWebhookMessage(ctx, endpoint.WebhookID, endpoint.Token, record.ProxyID, ThreadID(chain[0]))
	})
	if err := eg.Wait(); err != nil && proxy == nil {
		return nil, goerr.Wrap(err, "failed to reproxy message", goerr.V("proxy_id", record.ProxyID))
	} else if err != nil {
		_ = errutil.Handle(ctx, err, "failed to delete previous proxy")
	}

	now := uc.now().UTC()
	next := &model.ProxiedMessage{
		OriginalID: record.OriginalID,
		ProxyID:    proxy.ID,
		AuthorID:   userID,
		MemberID:   member.ID,
		ChannelID:  channelID,
		GuildID:    guildID,
		WebhookID:  endpoint.WebhookID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(model.ProxiedMessageTTL),
	}
	if err := uc.repo.ProxiedMessage().Put(ctx, next); err != nil {
		return nil, goerr.Wrap(err, "failed to save proxied message", goerr.V("proxy_id", proxy.ID))
	}
	if err := uc.repo.ProxiedMessage().Delete(ctx, record.ProxyID); err != nil {
		_ = errutil.Handle(ctx, err, "failed to delete previous proxied message record")
	}

	return next, nil
}
