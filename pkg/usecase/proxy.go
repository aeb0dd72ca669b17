package usecase

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/domain/types"
	"github.com/secmon-lab/proxima/pkg/service/discord"
	"github.com/secmon-lab/proxima/pkg/utils/errutil"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// ProxyTextLimit is the longest body accepted before emoji and reply
// processing
const ProxyTextLimit = 1980

// ProxyResult is the outcome of a proxy attempt
type ProxyResult struct {
	Proxied bool

	// Emojis are the application emoji uploaded for this message. They are
	// already scheduled for deletion.
	Emojis []discordmodel.Emoji

	Member *model.Member
	Proxy  *discordmodel.Message
}

// ProxyUseCase decides whether and how a message is re-emitted
type ProxyUseCase struct {
	repo     interfaces.Repository
	svc      discord.Service
	perms    *PermissionResolver
	identity *IdentityResolver
	latch    *LatchUseCase
	content  *ContentPipeline
	registry *EndpointRegistry
	now      func() time.Time
}

// NewProxyUseCase creates a ProxyUseCase
func NewProxyUseCase(
	repo interfaces.Repository,
	svc discord.Service,
	perms *PermissionResolver,
	identity *IdentityResolver,
	latch *LatchUseCase,
	content *ContentPipeline,
	registry *EndpointRegistry,
	now func() time.Time,
) *ProxyUseCase {
	if now == nil {
		now = time.Now
	}
	return &ProxyUseCase{
		repo:     repo,
		svc:      svc,
		perms:    perms,
		identity: identity,
		latch:    latch,
		content:  content,
		registry: registry,
		now:      now,
	}
}

// Process proxies msg when it matches a member. Any failure leaves the
// original message in place and returns Proxied false with the cause.
func (uc *ProxyUseCase) Process(ctx context.Context, msg *discordmodel.Message) (result *ProxyResult, err error) {
	result = &ProxyResult{}
	defer func() {
		if r := recover(); r != nil {
			result = &ProxyResult{}
			err = goerr.New("panic while proxying", goerr.V("panic", r), goerr.V("message_id", msg.ID))
		}
	}()

	result, err = uc.run(ctx, msg, nil)
	if result == nil {
		result = &ProxyResult{}
	}
	uc.content.CleanupEmojis(ctx, result.Emojis)
	return result, err
}

// Diagnose runs every check of Process without sending, deleting or
// uploading anything and returns the decisions taken
func (uc *ProxyUseCase) Diagnose(ctx context.Context, msg *discordmodel.Message) (*model.Trace, error) {
	trace := model.NewTrace()
	if _, err := uc.run(ctx, msg, trace); err != nil && !isAbort(err) {
		return trace, err
	}
	return trace, nil
}

// isAbort reports whether err is an expected reason not to proxy
func isAbort(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrContentRejected) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrIncompatibleSticker)
}

// notice sends a rejection notice unless diagnosing. Failure to notify is
// logged only.
func (uc *ProxyUseCase) notice(ctx context.Context, msg *discordmodel.Message, trace *model.Trace, text string) {
	if trace.Enabled() {
		return
	}
	if err := uc.content.Notice(ctx, msg, text); err != nil {
		_ = errutil.Handle(ctx, err, "failed to send notice")
	}
}

func (uc *ProxyUseCase) run(ctx context.Context, msg *discordmodel.Message, trace *model.Trace) (*ProxyResult, error) {
	result := &ProxyResult{}
	diagnose := trace.Enabled()
	logger := logging.From(ctx).With("message_id", msg.ID, "channel_id", msg.ChannelID)

	eligible := true
	if msg.Author.Bot || msg.IsFromWebhook() {
		trace.Add(types.TraceAuthorIsBot)
		eligible = false
	}
	if !msg.InGuild() {
		trace.Add(types.TraceNotInGuild)
		eligible = false
	}
	if !msg.Type.UserAuthored() {
		trace.Add(types.TraceSystemMessage)
		eligible = false
	}
	if !msg.HasContent() {
		trace.Add(types.TraceNoContent)
		eligible = false
	}
	if len(msg.Attachments) > 0 && len(msg.Stickers) > 0 {
		trace.Add(types.TraceAttachmentsAndStickers)
		eligible = false
	}
	if !eligible {
		return result, nil
	}

	chain, err := uc.perms.ChannelChain(ctx, msg.ChannelID)
	if err != nil {
		trace.Add(types.TracePermNotFound, "channel", msg.ChannelID)
		return result, goerr.Wrap(err, "failed to resolve channel", goerr.V("channel_id", msg.ChannelID))
	}
	chainIDs := make([]string, len(chain))
	for i, ch := range chain {
		chainIDs[i] = ch.ID
	}

	identity, err := uc.identity.Resolve(ctx, msg, chainIDs, trace)
	if err != nil {
		return result, err
	}
	if identity == nil {
		return result, nil
	}
	result.Member = identity.Member

	if identity.Latch != nil {
		if skip, reset := identity.Latch.Bypass(msg.Content); skip {
			if reset && !diagnose {
				if err := uc.latch.ClearMember(ctx, identity.Latch); err != nil {
					return result, err
				}
			}
			trace.Add(types.TraceAutoproxyBypassed)
			return result, nil
		}
	}

	if err := uc.checkSelfPermissions(ctx, msg, trace); err != nil {
		return result, err
	}

	body := identity.Body
	if utf8.RuneCountInString(body) > ProxyTextLimit {
		uc.notice(ctx, msg, trace, NoticeOverTextLimit)
		trace.Add(types.TraceOverTextLimit)
		return result, goerr.Wrap(ErrContentRejected, "message too long", goerr.V("length", utf8.RuneCountInString(body)))
	}

	guild, err := uc.perms.Guild(ctx, msg.GuildID)
	if err != nil {
		trace.Add(types.TracePermNotFound, "guild", msg.GuildID)
		return result, goerr.Wrap(err, "failed to get guild", goerr.V("guild_id", msg.GuildID))
	}
	if size := msg.AttachmentSize(); size > guild.FileSizeLimit() {
		uc.notice(ctx, msg, trace, NoticeOverFileLimit)
		trace.Add(types.TraceOverFileLimit)
		return result, goerr.Wrap(ErrContentRejected, "attachments too large",
			goerr.V("size", size), goerr.V("limit", guild.FileSizeLimit()))
	}

	endpoint, err := uc.registry.Resolve(ctx, chain[0])
	if err != nil {
		trace.Add(types.TraceEndpointUnavailable)
		return result, goerr.Wrap(err, "failed to resolve endpoint", goerr.V("channel_id", msg.ChannelID))
	}

	if !diagnose {
		result.Emojis, body = uc.content.UploadEmojis(ctx, body)
	}

	if utf8.RuneCountInString(body) > discordmodel.MessageLimit {
		uc.notice(ctx, msg, trace, NoticeOverEmojiLimit)
		trace.Add(types.TraceOverEmojiLimit)
		return result, goerr.Wrap(ErrContentRejected, "message too long after emoji", goerr.V("length", utf8.RuneCountInString(body)))
	}

	if msg.Reference != nil {
		body = discordmodel.FoldReply(body, msg.Reference)
	}

	if diagnose {
		trace.Add(types.TraceSuccess)
		result.Proxied = true
		return result, nil
	}

	files, err := uc.files(ctx, msg, guild.FileSizeLimit(), trace)
	if err != nil {
		return result, err
	}

	out := &discordmodel.WebhookMessage{
		Content:      body,
		Username:     identity.Member.WebhookName(identity.Group),
		AvatarURL:    identity.Member.Avatar(identity.Group),
		Files:        files,
		ThreadID:     ThreadID(chain[0]),
		MentionUsers: msg.Mentions,
		Poll:         msg.Poll,
	}

	proxy, err := uc.send(ctx, msg, endpoint, out)
	if err != nil {
		return result, err
	}
	result.Proxied = true
	result.Proxy = proxy

	now := uc.now().UTC()
	record := &model.ProxiedMessage{
		OriginalID: msg.ID,
		ProxyID:    proxy.ID,
		AuthorID:   msg.Author.ID,
		MemberID:   identity.Member.ID,
		ChannelID:  msg.ChannelID,
		GuildID:    msg.GuildID,
		WebhookID:  endpoint.WebhookID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(model.ProxiedMessageTTL),
	}
	if err := uc.repo.ProxiedMessage().Put(ctx, record); err != nil {
		// proxied already; only reaction delete and reproxy lose the link
		_ = errutil.Handle(ctx, err, "failed to save proxied message")
	}

	logger.Info("proxied message", "member_id", identity.Member.ID, "proxy_id", proxy.ID)
	return result, nil
}

// checkSelfPermissions verifies both the author and the bot can send,
// manage webhooks and delete messages in the channel. A bit counts only
// when both hold it. Every missing permission is traced.
func (uc *ProxyUseCase) checkSelfPermissions(ctx context.Context, msg *discordmodel.Message, trace *model.Trace) error {
	var author, bot types.Permission
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		author, err = uc.perms.Permissions(egCtx, msg.GuildID, msg.ChannelID, msg.Author.ID)
		return err
	})
	eg.Go(func() error {
		var err error
		bot, err = uc.perms.Permissions(egCtx, msg.GuildID, msg.ChannelID, uc.svc.BotUserID())
		return err
	})
	if err := eg.Wait(); err != nil {
		trace.Add(types.TracePermNotFound)
		return goerr.Wrap(err, "failed to compute permissions",
			goerr.V("channel_id", msg.ChannelID), goerr.V("author_id", msg.Author.ID))
	}
	perms := author & bot

	required := []struct {
		bit   types.Permission
		event types.TraceEvent
	}{
		{types.PermissionSendMessages, types.TracePermSendMessages},
		{types.PermissionManageWebhooks, types.TracePermManageWebhooks},
		{types.PermissionManageMessages, types.TracePermManageMessages},
	}

	var missing types.Permission
	for _, r := range required {
		if !perms.Has(r.bit) {
			trace.Add(r.event)
			missing |= r.bit
		}
	}
	if missing != 0 {
		return goerr.Wrap(ErrPermissionDenied, "author or bot lacks permissions",
			goerr.V("channel_id", msg.ChannelID),
			goerr.V("missing", missing.String()),
			goerr.V("author_missing", author.Missing(missing).String()),
			goerr.V("bot_missing", bot.Missing(missing).String()))
	}
	return nil
}

// files collects attachments, or stickers when there are none
func (uc *ProxyUseCase) files(ctx context.Context, msg *discordmodel.Message, limit int, trace *model.Trace) ([]discordmodel.File, error) {
	if len(msg.Attachments) > 0 {
		return uc.content.Attachments(ctx, msg, limit)
	}
	if len(msg.Stickers) == 0 {
		return nil, nil
	}

	files, err := uc.content.Stickers(ctx, msg)
	if errors.Is(err, ErrIncompatibleSticker) {
		trace.Add(types.TraceIncompatibleStickers)
	}
	return files, err
}

// send deletes the original and executes the webhook concurrently. A
// webhook reported unknown is forgotten so the next message recreates it.
func (uc *ProxyUseCase) send(ctx context.Context, msg *discordmodel.Message, endpoint *model.Endpoint, out *discordmodel.WebhookMessage) (*discordmodel.Message, error) {
	var (
		eg    errgroup.Group
		proxy *discordmodel.Message
	)

	eg.Go(func() error {
		return uc.svc.DeleteMessage(ctx, msg.ChannelID, msg.ID)
	})
	eg.Go(func() error {
		var err error
		proxy, err = uc.svc.ExecuteWebhook(ctx, endpoint.WebhookID, endpoint.Token, out)
		return err
	})

	err := eg.Wait()
	if errors.Is(err, discord.ErrUnknownWebhook) {
		if invErr := uc.registry.Invalidate(ctx, endpoint.ChannelID); invErr != nil {
			_ = errutil.Handle(ctx, invErr, "failed to invalidate endpoint")
		}
	}
	if proxy == nil {
		if err == nil {
			err = goerr.New("webhook returned no message")
		}
		return nil, goerr.Wrap(err, "failed to proxy message", goerr.V("message_id", msg.ID))
	}
	if err != nil {
		// proxy exists; the original stays as a duplicate
		_ = errutil.Handle(ctx, err, "failed to delete original message")
	}
	return proxy, nil
}
