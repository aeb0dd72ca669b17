package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/model"
	"github.com/secmon-lab/proxima/pkg/usecase"
	"github.com/secmon-lab/proxima/pkg/utils/errutil"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"github.com/secmon-lab/proxima/pkg/utils/safe"
)

const maxInteractionSize = 1 << 20

// Commands are the slash commands served by InteractionHandler
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "autoproxy",
		Description: "Toggle autoproxy, optionally latching a member",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Turn autoproxy on or off"},
			{Type: discordgo.ApplicationCommandOptionString, Name: "member", Description: "Member to proxy as"},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "global", Description: "Apply in every server"},
		},
	},
	{
		Name:        "switch",
		Description: "Change the autoproxied member",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "member", Description: "Member to proxy as", Required: true},
		},
	},
	{
		Name:        "reproxy",
		Description: "Re-send your last proxied message as another member",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "member", Description: "Member to proxy as", Required: true},
		},
	},
	{
		Name:        "info",
		Description: "Show who sent a proxied message",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "message_id", Description: "ID of the proxied message", Required: true},
		},
	},
}

// InteractionHandler answers Discord slash commands
type InteractionHandler struct {
	uc *usecase.UseCases
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(uc *usecase.UseCases) *InteractionHandler {
	return &InteractionHandler{uc: uc}
}

// ServeHTTP handles interaction webhook requests. The signature has already
// been verified.
func (h *InteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := safe.ReadAll(r.Body, maxInteractionSize)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read interaction"), http.StatusBadRequest)
		return
	}

	var interaction discordgo.Interaction
	if err := json.Unmarshal(body, &interaction); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse interaction"), http.StatusBadRequest)
		return
	}

	switch interaction.Type {
	case discordgo.InteractionPing:
		writeJSON(ctx, w, &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})

	case discordgo.InteractionApplicationCommand:
		content := h.handleCommand(ctx, &interaction)
		writeJSON(ctx, w, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         content,
				Flags:           discordgo.MessageFlagsEphemeral,
				AllowedMentions: &discordgo.MessageAllowedMentions{},
			},
		})

	default:
		errutil.HandleHTTP(ctx, w, goerr.New("unsupported interaction type", goerr.V("type", interaction.Type)), http.StatusBadRequest)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal interaction response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safe.Write(ctx, w, data)
}

// commandOptions indexes the options of a slash command by name
type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func (o commandOptions) string(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func (o commandOptions) bool(name string) *bool {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionBoolean {
		v := opt.BoolValue()
		return &v
	}
	return nil
}

func interactionUser(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// handleCommand runs a slash command and returns the reply text
func (h *InteractionHandler) handleCommand(ctx context.Context, i *discordgo.Interaction) string {
	data := i.ApplicationCommandData()
	opts := make(commandOptions, len(data.Options))
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}

	userID := interactionUser(i)
	logger := logging.From(ctx).With("command", data.Name, "user_id", userID, "guild_id", i.GuildID)
	ctx = logging.With(ctx, logger)

	var (
		reply string
		err   error
	)
	switch data.Name {
	case "autoproxy":
		global := opts.bool("global")
		reply, err = h.autoproxy(ctx, userID, i.GuildID, global != nil && *global, opts.bool("enabled"), opts.string("member"))
	case "switch":
		reply, err = h.switchMember(ctx, userID, i.GuildID, opts.string("member"))
	case "reproxy":
		reply, err = h.reproxy(ctx, userID, i.GuildID, i.ChannelID, opts.string("member"))
	case "info":
		reply, err = h.info(ctx, opts.string("message_id"))
	default:
		return fmt.Sprintf("unknown command %q", data.Name)
	}

	if err != nil {
		return replyForError(ctx, err)
	}
	return reply
}

func replyForError(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		return "could not find that member or message"
	case errors.Is(err, usecase.ErrPermissionDenied):
		return "you cannot send messages as that member here"
	default:
		_ = errutil.Handle(ctx, err, "failed to run command")
		return "something went wrong, please try again"
	}
}

func latchReply(latch *model.Latch, member string) string {
	scope := "in this server"
	if latch.IsGlobal() {
		scope = "globally"
	}
	switch {
	case !latch.Enabled && latch.MemberID != "" && member != "":
		return fmt.Sprintf("autoproxy member set to %s %s (autoproxy is off)", member, scope)
	case !latch.Enabled:
		return "autoproxy disabled " + scope
	case member != "":
		return fmt.Sprintf("autoproxy enabled %s as %s", scope, member)
	default:
		return "autoproxy enabled " + scope
	}
}

func (h *InteractionHandler) autoproxy(ctx context.Context, userID, guildID string, global bool, enabled *bool, member string) (string, error) {
	latch, err := h.uc.Latch.Toggle(ctx, userID, guildID, global, enabled, member)
	if err != nil {
		return "", err
	}
	return latchReply(latch, member), nil
}

func (h *InteractionHandler) switchMember(ctx context.Context, userID, guildID, member string) (string, error) {
	latch, err := h.uc.Latch.Switch(ctx, userID, guildID, member)
	if err != nil {
		return "", err
	}
	return latchReply(latch, member), nil
}

func (h *InteractionHandler) reproxy(ctx context.Context, userID, guildID, channelID, member string) (string, error) {
	if guildID == "" {
		return "reproxy only works in servers", nil
	}
	if _, err := h.uc.Reproxy.Reproxy(ctx, userID, guildID, channelID, member); err != nil {
		return "", err
	}
	return "reproxied as " + member, nil
}

func (h *InteractionHandler) info(ctx context.Context, messageID string) (string, error) {
	info, err := h.uc.Info.Lookup(ctx, messageID)
	if err != nil {
		return "", err
	}

	sender := fmt.Sprintf("sent by <@%s>", info.Message.AuthorID)
	switch {
	case info.Member == nil:
		return sender + " as a deleted member", nil
	case info.Group == nil:
		return fmt.Sprintf("%s as %s", sender, info.Member.Name), nil
	default:
		return fmt.Sprintf("%s as %s (%s)", sender, info.Member.Name, info.Group.Name), nil
	}
}
