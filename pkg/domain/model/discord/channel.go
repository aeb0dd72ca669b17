package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/secmon-lab/proxima/pkg/domain/types"
)

// OverwriteType tells whether an overwrite targets a role or a member
type OverwriteType int

const (
	OverwriteTypeRole   OverwriteType = 0
	OverwriteTypeMember OverwriteType = 1
)

// Overwrite is a channel permission overwrite
type Overwrite struct {
	ID    string
	Type  OverwriteType
	Allow types.Permission
	Deny  types.Permission
}

// Overwritable is anything that carries permission overwrites and may
// inherit more from a parent channel
type Overwritable interface {
	PermissionOverwrites() []Overwrite
	Parent() string
}

// Channel is a guild channel, category or thread
type Channel struct {
	ID         string
	GuildID    string
	ParentID   string
	Name       string
	Thread     bool
	Overwrites []Overwrite
}

var _ Overwritable = &Channel{}

// NewChannel converts a discordgo channel
func NewChannel(c *discordgo.Channel) *Channel {
	ch := &Channel{
		ID:       c.ID,
		GuildID:  c.GuildID,
		ParentID: c.ParentID,
		Name:     c.Name,
		Thread:   c.IsThread(),
	}
	for _, o := range c.PermissionOverwrites {
		if o == nil {
			continue
		}
		ch.Overwrites = append(ch.Overwrites, Overwrite{
			ID:    o.ID,
			Type:  OverwriteType(o.Type),
			Allow: types.Permission(o.Allow),
			Deny:  types.Permission(o.Deny),
		})
	}
	return ch
}

// PermissionOverwrites implements Overwritable
func (c *Channel) PermissionOverwrites() []Overwrite {
	return c.Overwrites
}

// Parent implements Overwritable
func (c *Channel) Parent() string {
	return c.ParentID
}

// IsThread reports whether the channel is a thread
func (c *Channel) IsThread() bool {
	return c.Thread
}
