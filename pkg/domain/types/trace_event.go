package types

// TraceEvent names a decision point of the proxy pipeline
type TraceEvent string

const (
	TraceEnabler                TraceEvent = "ENABLER"
	TraceAuthorIsBot            TraceEvent = "AUTHOR_IS_BOT"
	TraceNotInGuild             TraceEvent = "NOT_IN_GUILD"
	TraceSystemMessage          TraceEvent = "SYSTEM_MESSAGE"
	TraceNoContent              TraceEvent = "NO_CONTENT"
	TraceAttachmentsAndStickers TraceEvent = "ATTACHMENTS_AND_STICKERS"
	TraceGroupChannelRestricted TraceEvent = "GROUP_CHANNEL_RESTRICTED"
	TraceAuthorNoTags           TraceEvent = "AUTHOR_NO_TAGS"
	TraceAuthorNoTagsNoLatch    TraceEvent = "AUTHOR_NO_TAGS_NO_LATCH"
	TraceAutoproxyBypassed      TraceEvent = "AUTOPROXY_BYPASSED"
	TracePermNotFound           TraceEvent = "PERM_NOT_FOUND"
	TracePermSendMessages       TraceEvent = "PERM_SEND_MESSAGES"
	TracePermManageWebhooks     TraceEvent = "PERM_MANAGE_WEBHOOKS"
	TracePermManageMessages     TraceEvent = "PERM_MANAGE_MESSAGES"
	TraceOverTextLimit          TraceEvent = "OVER_TEXT_LIMIT"
	TraceOverFileLimit          TraceEvent = "OVER_FILE_LIMIT"
	TraceEndpointUnavailable    TraceEvent = "ENDPOINT_UNAVAILABLE"
	TraceOverEmojiLimit         TraceEvent = "OVER_EMOJI_LIMIT"
	TraceIncompatibleStickers   TraceEvent = "INCOMPATIBLE_STICKERS"
	TraceSuccess                TraceEvent = "SUCCESS"
)

var traceDescriptions = map[TraceEvent]string{
	TraceEnabler:                "debug log enabled",
	TraceAuthorIsBot:            "author is a bot or webhook",
	TraceNotInGuild:             "message was not sent in a server",
	TraceSystemMessage:          "message is a system message, not one a user wrote",
	TraceNoContent:              "message has no content, attachments, stickers or poll",
	TraceAttachmentsAndStickers: "message has both attachments and stickers",
	TraceGroupChannelRestricted: "group is restricted from this channel",
	TraceAuthorNoTags:           "no proxy tags matched and autoproxy is not set up",
	TraceAuthorNoTagsNoLatch:    "no proxy tags matched and autoproxy has no usable member",
	TraceAutoproxyBypassed:      "autoproxy bypassed with an escape prefix",
	TracePermNotFound:           "channel, server or member could not be resolved",
	TracePermSendMessages:       "author or bot lacks SEND_MESSAGES in this channel",
	TracePermManageWebhooks:     "author or bot lacks MANAGE_WEBHOOKS in this channel",
	TracePermManageMessages:     "author or bot lacks MANAGE_MESSAGES in this channel",
	TraceOverTextLimit:          "message is over 1980 characters",
	TraceOverFileLimit:          "attachments are above the file size limit",
	TraceEndpointUnavailable:    "webhook could not be resolved",
	TraceOverEmojiLimit:         "message is over 2000 characters after processing emojis",
	TraceIncompatibleStickers:   "message has a sticker format that cannot be proxied",
	TraceSuccess:                "message would be proxied",
}

// Description returns a human readable explanation
func (e TraceEvent) Description() string {
	if d, ok := traceDescriptions[e]; ok {
		return d
	}
	return string(e)
}

// IsFailure reports whether the event ends the pipeline without proxying
func (e TraceEvent) IsFailure() bool {
	switch e {
	case TraceEnabler, TraceGroupChannelRestricted, TraceSuccess:
		return false
	default:
		return true
	}
}

// String returns the event name
func (e TraceEvent) String() string {
	return string(e)
}
