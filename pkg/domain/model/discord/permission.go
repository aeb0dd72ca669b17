package discord

import (
	"time"

	"github.com/secmon-lab/proxima/pkg/domain/types"
)

// BasePermissions aggregates the guild-level permissions of member: the
// owner has everything, everyone else gets the @everyone role plus every
// role they hold. Administrator grants everything.
func BasePermissions(guild *Guild, roles []*Role, member *Member) types.Permission {
	if guild.OwnerID == member.UserID {
		return types.PermissionAll
	}

	var perms types.Permission
	for _, role := range roles {
		if role.ID == guild.ID || member.HasRole(role.ID) {
			perms |= role.Permissions
		}
	}

	if perms.Has(types.PermissionAdministrator) {
		return types.PermissionAll
	}
	return perms
}

// MergeOverwrites flattens the overwrites of a channel and its ancestors.
// chain starts at the target channel and walks up through its parents; an
// entry on a nearer channel replaces the entry with the same ID further up.
func MergeOverwrites(chain []Overwritable) map[string]Overwrite {
	merged := make(map[string]Overwrite)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, ow := range chain[i].PermissionOverwrites() {
			merged[ow.ID] = ow
		}
	}
	return merged
}

// ApplyOverwrites layers channel overwrites onto base in Discord's order:
// @everyone, then the union of the member's roles, then the member itself.
func ApplyOverwrites(base types.Permission, guildID string, member *Member, overwrites map[string]Overwrite) types.Permission {
	if base.Has(types.PermissionAdministrator) {
		return types.PermissionAll
	}

	perms := base
	if ow, ok := overwrites[guildID]; ok {
		perms = perms.Apply(ow.Allow, ow.Deny)
	}

	var allow, deny types.Permission
	for _, roleID := range member.Roles {
		if ow, ok := overwrites[roleID]; ok && roleID != guildID {
			allow |= ow.Allow
			deny |= ow.Deny
		}
	}
	perms = perms.Apply(allow, deny)

	if ow, ok := overwrites[member.UserID]; ok && ow.Type == OverwriteTypeMember {
		perms = perms.Apply(ow.Allow, ow.Deny)
	}

	return perms
}

// ComputePermissions returns member's effective permissions in the first
// channel of chain. A timed out member keeps at most VIEW_CHANNEL and
// READ_MESSAGE_HISTORY, even as owner or administrator.
func ComputePermissions(guild *Guild, roles []*Role, member *Member, chain []Overwritable, now time.Time) types.Permission {
	base := BasePermissions(guild, roles, member)
	perms := ApplyOverwrites(base, guild.ID, member, MergeOverwrites(chain))
	if member.TimedOut(now) {
		perms &= types.PermissionTimedOut
	}
	return perms
}
