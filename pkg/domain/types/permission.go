package types

import (
	"strconv"
	"strings"
)

// Permission is a Discord permission bitset
type Permission uint64

// Bits used by the proxy pipeline. Values match the Discord API.
const (
	PermissionAdministrator      Permission = 1 << 3
	PermissionViewChannel        Permission = 1 << 10
	PermissionSendMessages       Permission = 1 << 11
	PermissionManageMessages     Permission = 1 << 13
	PermissionEmbedLinks         Permission = 1 << 14
	PermissionAttachFiles        Permission = 1 << 15
	PermissionReadMessageHistory Permission = 1 << 16
	PermissionMentionEveryone    Permission = 1 << 17
	PermissionUseExternalEmojis  Permission = 1 << 18
	PermissionManageWebhooks     Permission = 1 << 29
	PermissionSendInThreads      Permission = 1 << 38

	// PermissionAll has every bit set, including bits unknown to this build
	PermissionAll Permission = ^Permission(0)

	// PermissionTimedOut is what remains for a member under timeout
	PermissionTimedOut = PermissionViewChannel | PermissionReadMessageHistory

	// PermissionSendRequired is the minimum to post into a channel
	PermissionSendRequired = PermissionViewChannel | PermissionSendMessages
)

var permissionNames = []struct {
	bit  Permission
	name string
}{
	{PermissionAdministrator, "ADMINISTRATOR"},
	{PermissionViewChannel, "VIEW_CHANNEL"},
	{PermissionSendMessages, "SEND_MESSAGES"},
	{PermissionManageMessages, "MANAGE_MESSAGES"},
	{PermissionEmbedLinks, "EMBED_LINKS"},
	{PermissionAttachFiles, "ATTACH_FILES"},
	{PermissionReadMessageHistory, "READ_MESSAGE_HISTORY"},
	{PermissionMentionEveryone, "MENTION_EVERYONE"},
	{PermissionUseExternalEmojis, "USE_EXTERNAL_EMOJIS"},
	{PermissionManageWebhooks, "MANAGE_WEBHOOKS"},
	{PermissionSendInThreads, "SEND_MESSAGES_IN_THREADS"},
}

// Has reports whether every bit of required is set
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

// Missing returns the bits of required that are not set
func (p Permission) Missing(required Permission) Permission {
	return required &^ p
}

// Apply clears deny bits then sets allow bits
func (p Permission) Apply(allow, deny Permission) Permission {
	return (p &^ deny) | allow
}

// String renders known bits by name
func (p Permission) String() string {
	if p == PermissionAll {
		return "ALL"
	}
	var names []string
	for _, n := range permissionNames {
		if p&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "NONE(" + strconv.FormatUint(uint64(p), 10) + ")"
	}
	return strings.Join(names, "|")
}
