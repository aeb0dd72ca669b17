package discord_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/proxima/pkg/domain/model/discord"
	"github.com/secmon-lab/proxima/pkg/domain/types"
)

const (
	guildID = "100"
	userID  = "200"
	roleA   = "300"
	roleB   = "301"
)

func testGuild() *discord.Guild {
	return &discord.Guild{ID: guildID, OwnerID: "999"}
}

func testRoles(everyone types.Permission) []*discord.Role {
	return []*discord.Role{
		{ID: guildID, Permissions: everyone},
		{ID: roleA, Permissions: types.PermissionManageMessages},
		{ID: roleB, Permissions: types.PermissionManageWebhooks},
	}
}

func chainOf(channels ...*discord.Channel) []discord.Overwritable {
	out := make([]discord.Overwritable, len(channels))
	for i, c := range channels {
		out[i] = c
	}
	return out
}

func TestBasePermissions(t *testing.T) {
	everyone := types.PermissionViewChannel | types.PermissionSendMessages

	t.Run("owner has every permission", func(t *testing.T) {
		g := testGuild()
		g.OwnerID = userID
		perms := discord.BasePermissions(g, testRoles(0), &discord.Member{UserID: userID})
		gt.Value(t, perms).Equal(types.PermissionAll)
	})

	t.Run("roles are aggregated with everyone", func(t *testing.T) {
		member := &discord.Member{UserID: userID, Roles: []string{roleA}}
		perms := discord.BasePermissions(testGuild(), testRoles(everyone), member)
		gt.Value(t, perms).Equal(everyone | types.PermissionManageMessages)
	})

	t.Run("roles not held are ignored", func(t *testing.T) {
		member := &discord.Member{UserID: userID}
		perms := discord.BasePermissions(testGuild(), testRoles(everyone), member)
		gt.Bool(t, perms.Has(types.PermissionManageWebhooks)).False()
	})

	t.Run("administrator in any role grants everything", func(t *testing.T) {
		roles := append(testRoles(everyone), &discord.Role{ID: "302", Permissions: types.PermissionAdministrator})
		member := &discord.Member{UserID: userID, Roles: []string{"302"}}
		perms := discord.BasePermissions(testGuild(), roles, member)
		gt.Value(t, perms).Equal(types.PermissionAll)
	})
}

func TestComputePermissions(t *testing.T) {
	now := time.Now()
	everyone := types.PermissionViewChannel | types.PermissionSendMessages
	member := &discord.Member{UserID: userID, Roles: []string{roleA, roleB}}

	t.Run("no overwrites keeps base", func(t *testing.T) {
		ch := &discord.Channel{ID: "1", GuildID: guildID}
		perms := discord.ComputePermissions(testGuild(), testRoles(everyone), member, chainOf(ch), now)
		gt.Value(t, perms).Equal(everyone | types.PermissionManageMessages | types.PermissionManageWebhooks)
	})

	t.Run("everyone deny is overridden by role allow", func(t *testing.T) {
		ch := &discord.Channel{ID: "1", GuildID: guildID, Overwrites: []discord.Overwrite{
			{ID: guildID, Type: discord.OverwriteTypeRole, Deny: types.PermissionSendMessages},
			{ID: roleA, Type: discord.OverwriteTypeRole, Allow: types.PermissionSendMessages},
		}}
		perms := discord.ComputePermissions(testGuild(), testRoles(everyone), member, chainOf(ch), now)
		gt.Bool(t, perms.Has(types.PermissionSendMessages)).True()
	})

	t.Run("role allow wins over role deny at the same stage", func(t *testing.T) {
		ch := &discord.Channel{ID: "1", GuildID: guildID, Overwrites: []discord.Overwrite{
			{ID: roleA, Type: discord.OverwriteTypeRole, Deny: types.PermissionSendMessages},
			{ID: roleB, Type: discord.OverwriteTypeRole, Allow: types.PermissionSendMessages},
		}}
		perms := discord.ComputePermissions(testGuild(), testRoles(everyone), member, chainOf(ch), now)
		gt.Bool(t, perms.Has(types.PermissionSendMessages)).True()
	})

	t.Run("member overwrite has the last word", func(t *testing.T) {
		ch := &discord.Channel{ID: "1", GuildID: guildID, Overwrites: []discord.Overwrite{
			{ID: roleA, Type: discord.OverwriteTypeRole, Allow: types.PermissionSendMessages},
			{ID: userID, Type: discord.OverwriteTypeMember, Deny: types.PermissionSendMessages},
		}}
		perms := discord.ComputePermissions(testGuild(), testRoles(everyone), member, chainOf(ch), now)
		gt.Bool(t, perms.Has(types.PermissionSendMessages)).False()
		gt.Bool(t, perms.Has(types.PermissionViewChannel)).True()
	})

	t.Run("unmentioned bits pass through", func(t *testing.T) {
		ch := &discord.Channel{ID: "1", GuildID: guildID, Overwrites: []discord.Overwrite{
			{ID: guildID, Type: discord.OverwriteTypeRole, Deny: types.PermissionManageMessages},
		}}
		perms := discord.ComputePermissions(testGuild(), testRoles(everyone), member, chainOf(ch), now)
		gt.Bool(t, perms.Has(types.PermissionManageMessages)).False()
		gt.Bool(t, perms.Has(types.PermissionManageWebhooks)).True()
		gt.Bool(t, perms.Has(everyone)).True()
	})

	t.Run("administrator ignores deny overwrites", func(t *testing.T) {
		roles := append(testRoles(everyone), &discord.Role{ID: "302", Permissions: types.PermissionAdministrator})
		admin := &discord.Member{UserID: userID, Roles: []string{"302"}}
		ch := &discord.Channel{ID: "1", GuildID: guildID, Overwrites: []discord.Overwrite{
			{ID: guildID, Type: discord.OverwriteTypeRole, Deny: types.PermissionAll},
			{ID: userID, Type: discord.OverwriteTypeMember, Deny: types.PermissionAll},
		}}
		perms := discord.ComputePermissions(testGuild(), roles, admin, chainOf(ch), now)
		gt.Value(t, perms).Equal(types.PermissionAll)
	})

	t.Run("timed out member keeps only view and history", func(t *testing.T) {
		until := now.Add(time.Hour)
		timedOut := &discord.Member{UserID: userID, Roles: []string{roleA, roleB}, CommunicationDisabledUntil: &until}
		ch := &discord.Channel{ID: "1", GuildID: guildID, Overwrites: []discord.Overwrite{
			{ID: userID, Type: discord.OverwriteTypeMember, Allow: types.PermissionReadMessageHistory | types.PermissionSendMessages},
		}}
		perms := discord.ComputePermissions(testGuild(), testRoles(everyone), timedOut, chainOf(ch), now)
		gt.Value(t, perms&^types.PermissionTimedOut).Equal(types.Permission(0))
		gt.Bool(t, perms.Has(types.PermissionViewChannel)).True()
	})

	t.Run("timed out administrator and owner are masked too", func(t *testing.T) {
		until := now.Add(time.Hour)
		roles := append(testRoles(everyone), &discord.Role{ID: "302", Permissions: types.PermissionAdministrator})
		admin := &discord.Member{UserID: userID, Roles: []string{"302"}, CommunicationDisabledUntil: &until}
		ch := &discord.Channel{ID: "1", GuildID: guildID}

		perms := discord.ComputePermissions(testGuild(), roles, admin, chainOf(ch), now)
		gt.Value(t, perms).Equal(types.PermissionTimedOut)

		owned := testGuild()
		owned.OwnerID = userID
		owner := &discord.Member{UserID: userID, CommunicationDisabledUntil: &until}
		perms = discord.ComputePermissions(owned, testRoles(everyone), owner, chainOf(ch), now)
		gt.Value(t, perms&^types.PermissionTimedOut).Equal(types.Permission(0))
	})

	t.Run("expired timeout is ignored", func(t *testing.T) {
		until := now.Add(-time.Hour)
		m := &discord.Member{UserID: userID, CommunicationDisabledUntil: &until}
		ch := &discord.Channel{ID: "1", GuildID: guildID}
		perms := discord.ComputePermissions(testGuild(), testRoles(everyone), m, chainOf(ch), now)
		gt.Bool(t, perms.Has(types.PermissionSendMessages)).True()
	})
}

func TestMergeOverwrites(t *testing.T) {
	category := &discord.Channel{ID: "10", Overwrites: []discord.Overwrite{
		{ID: guildID, Deny: types.PermissionSendMessages},
		{ID: roleA, Allow: types.PermissionManageMessages},
	}}
	channel := &discord.Channel{ID: "11", ParentID: "10", Overwrites: []discord.Overwrite{
		{ID: guildID, Allow: types.PermissionSendMessages},
	}}

	merged := discord.MergeOverwrites(chainOf(channel, category))

	t.Run("nearer channel wins per key", func(t *testing.T) {
		gt.Value(t, merged[guildID].Allow).Equal(types.PermissionSendMessages)
		gt.Value(t, merged[guildID].Deny).Equal(types.Permission(0))
	})

	t.Run("keys only on the parent are inherited", func(t *testing.T) {
		gt.Map(t, merged).HasKey(roleA)
		gt.Value(t, merged[roleA].Allow).Equal(types.PermissionManageMessages)
	})
}
