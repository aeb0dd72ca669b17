package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// MaxProxyTags is the number of tags a member may carry
const MaxProxyTags = 15

// MemberID is the unique identifier of a Member
type MemberID string

// NewMemberID generates a new random MemberID
func NewMemberID() MemberID {
	return MemberID(uuid.NewString())
}

// Member is a persona that messages can be proxied as
type Member struct {
	ID        MemberID
	GroupID   GroupID
	Name      string
	AvatarURL string // falls back to the group avatar when empty
	ProxyTags []ProxyTag
	CreatedAt time.Time
}

// Validate checks the required fields and every proxy tag
func (m *Member) Validate() error {
	if m.ID == "" {
		return goerr.New("member ID is required")
	}
	if m.GroupID == "" {
		return goerr.New("member group is required", goerr.V("id", m.ID))
	}
	if m.Name == "" {
		return goerr.New("member name is required", goerr.V("id", m.ID))
	}
	if len(m.ProxyTags) > MaxProxyTags {
		return goerr.New("too many proxy tags", goerr.V("id", m.ID), goerr.V("count", len(m.ProxyTags)))
	}
	for i, tag := range m.ProxyTags {
		if err := tag.Validate(); err != nil {
			return goerr.Wrap(err, "invalid proxy tag", goerr.V("id", m.ID), goerr.V("index", i))
		}
	}
	return nil
}

// WebhookName is the username shown on proxied messages: the member name
// followed by the group tag, with "clyde" broken up
func (m *Member) WebhookName(group *Group) string {
	name := m.Name
	if group != nil && group.Tag != "" {
		name = strings.TrimSpace(name + " " + group.Tag)
	}
	return breakClyde(name)
}

// Avatar returns the member avatar, falling back to the group avatar
func (m *Member) Avatar(group *Group) string {
	if m.AvatarURL != "" || group == nil {
		return m.AvatarURL
	}
	return group.AvatarURL
}
