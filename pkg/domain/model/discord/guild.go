package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/secmon-lab/proxima/pkg/domain/types"
)

const mebibyte = 1024 * 1024

// Guild holds the guild attributes the proxy depends on
type Guild struct {
	ID          string
	OwnerID     string
	PremiumTier int
}

// NewGuild converts a discordgo guild
func NewGuild(g *discordgo.Guild) *Guild {
	return &Guild{
		ID:          g.ID,
		OwnerID:     g.OwnerID,
		PremiumTier: int(g.PremiumTier),
	}
}

// FileSizeLimit returns the upload ceiling in bytes for the guild's boost tier
func (g *Guild) FileSizeLimit() int {
	switch g.PremiumTier {
	case 2:
		return 50 * mebibyte
	case 3:
		return 100 * mebibyte
	default:
		return 25 * mebibyte
	}
}

// Role is a guild role. The @everyone role has the guild's ID.
type Role struct {
	ID          string
	Permissions types.Permission
}

// NewRoles converts a discordgo role list
func NewRoles(roles []*discordgo.Role) []*Role {
	out := make([]*Role, 0, len(roles))
	for _, r := range roles {
		if r == nil {
			continue
		}
		out = append(out, &Role{ID: r.ID, Permissions: types.Permission(r.Permissions)})
	}
	return out
}

// Member is a user's membership in a guild
type Member struct {
	UserID                     string
	Nick                       string
	Roles                      []string
	CommunicationDisabledUntil *time.Time
}

// NewMember converts a discordgo member
func NewMember(m *discordgo.Member) *Member {
	member := &Member{
		Nick:                       m.Nick,
		Roles:                      m.Roles,
		CommunicationDisabledUntil: m.CommunicationDisabledUntil,
	}
	if m.User != nil {
		member.UserID = m.User.ID
	}
	return member
}

// TimedOut reports whether the member cannot communicate at now
func (m *Member) TimedOut(now time.Time) bool {
	return m.CommunicationDisabledUntil != nil && m.CommunicationDisabledUntil.After(now)
}

// HasRole reports whether the member holds roleID
func (m *Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
