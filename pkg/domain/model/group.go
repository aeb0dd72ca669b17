package model

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// GroupID is the unique identifier of a Group
type GroupID string

// NewGroupID generates a new random GroupID
func NewGroupID() GroupID {
	return GroupID(uuid.NewString())
}

// Group is a named collection of members shared by one or more Discord
// accounts
type Group struct {
	ID        GroupID
	Name      string
	Tag       string // display suffix appended to member names, optional
	AvatarURL string

	// Accounts are the Discord user IDs allowed to proxy as this group's members
	Accounts []string

	// ChannelRestrictions limits proxying to these channels and their
	// children. Empty means unrestricted.
	ChannelRestrictions []string

	CreatedAt time.Time
}

// Validate checks the required fields
func (g *Group) Validate() error {
	if g.ID == "" {
		return goerr.New("group ID is required")
	}
	if g.Name == "" {
		return goerr.New("group name is required", goerr.V("id", g.ID))
	}
	return nil
}

// HasAccount reports whether userID may proxy as this group
func (g *Group) HasAccount(userID string) bool {
	for _, a := range g.Accounts {
		if a == userID {
			return true
		}
	}
	return false
}

// AllowsChannel reports whether the group may proxy in a channel whose
// ancestry (the channel itself followed by its parents) is chain
func (g *Group) AllowsChannel(chain []string) bool {
	if len(g.ChannelRestrictions) == 0 {
		return true
	}
	for _, allowed := range g.ChannelRestrictions {
		for _, id := range chain {
			if id == allowed {
				return true
			}
		}
	}
	return false
}

var clydePattern = regexp.MustCompile(`(?i)clyde`)

// breakClyde inserts a hair space into every "clyde". Discord rejects
// webhook usernames containing it.
func breakClyde(name string) string {
	return clydePattern.ReplaceAllStringFunc(name, func(s string) string {
		return s[:1] + "\u200a" + s[1:]
	})
}
