// Package gateway routes Discord gateway events to the proxy use cases.
package gateway

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	discordmodel "github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/usecase"
	"github.com/secmon-lab/proxima/pkg/utils/errutil"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
)

const messageCreateEvent = "MESSAGE_CREATE"

// Intents are the gateway intents the handlers need
const Intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsMessageContent

// Handler receives gateway events. discordgo runs every event handler in
// its own goroutine, so handlers block for the whole pipeline.
type Handler struct {
	ctx context.Context
	uc  *usecase.UseCases
}

// New creates a Handler. ctx carries the logger and is the parent of every
// event context.
func New(ctx context.Context, uc *usecase.UseCases) *Handler {
	return &Handler{ctx: ctx, uc: uc}
}

// Register attaches the handlers to session and returns a function that
// detaches them
func (h *Handler) Register(session *discordgo.Session) func() {
	removers := []func(){
		session.AddHandler(h.OnEvent),
		session.AddHandler(h.OnMessageReactionAdd),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// OnEvent receives every raw gateway event and proxies new messages. The
// typed MessageCreate handler is not used because discordgo drops the poll
// of a message; it is read back from the raw payload here.
func (h *Handler) OnEvent(_ *discordgo.Session, ev *discordgo.Event) {
	if ev == nil || ev.Type != messageCreateEvent {
		return
	}
	mc, ok := ev.Struct.(*discordgo.MessageCreate)
	if !ok || mc.Message == nil {
		return
	}

	msg := discordmodel.NewMessage(mc.Message)
	logger := logging.From(h.ctx).With("message_id", msg.ID, "channel_id", msg.ChannelID)

	poll, err := discordmodel.ParsePoll(ev.RawData)
	if err != nil {
		logger.Warn("failed to read poll", "error", err)
	}
	msg.Poll = poll

	h.proxy(logging.With(h.ctx, logger), msg)
}

// proxy runs the proxy pipeline for a new message
func (h *Handler) proxy(ctx context.Context, msg *discordmodel.Message) {
	logger := logging.From(ctx)
	result, err := h.uc.Proxy.Process(ctx, msg)
	switch {
	case err == nil:
		if result.Proxied {
			logger.Debug("message proxied", "proxy_id", result.Proxy.ID)
		}
	case errors.Is(err, usecase.ErrPermissionDenied),
		errors.Is(err, usecase.ErrContentRejected),
		errors.Is(err, usecase.ErrIncompatibleSticker),
		errors.Is(err, usecase.ErrNotFound):
		logger.Info("message not proxied", "reason", err.Error())
	default:
		_ = errutil.Handle(ctx, err, "failed to proxy message")
	}
}

// OnMessageReactionAdd deletes proxied messages on request of their author
func (h *Handler) OnMessageReactionAdd(_ *discordgo.Session, ev *discordgo.MessageReactionAdd) {
	reaction := discordmodel.NewReaction(ev)
	if reaction == nil {
		return
	}

	ctx := logging.With(h.ctx, logging.From(h.ctx).With("message_id", reaction.MessageID, "user_id", reaction.UserID))
	if _, err := h.uc.Reaction.HandleReactionAdd(ctx, reaction); err != nil {
		_ = errutil.Handle(ctx, err, "failed to handle reaction")
	}
}
