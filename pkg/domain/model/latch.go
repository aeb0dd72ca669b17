package model

import "strings"

// GlobalScope is the latch scope that applies in every guild
const GlobalScope = "0"

// LatchID is the storage key of a Latch
type LatchID string

// NewLatchID builds the key of the latch for userID in scope
func NewLatchID(userID, scope string) LatchID {
	return LatchID(userID + ":" + scope)
}

// Latch is the autoproxy state of a user in a scope (a guild ID or
// GlobalScope). When enabled, messages without proxy tags are sent as
// MemberID.
type Latch struct {
	UserID   string
	Scope    string
	Enabled  bool
	MemberID MemberID
}

// NewLatch returns a disabled latch
func NewLatch(userID, scope string) *Latch {
	return &Latch{UserID: userID, Scope: scope}
}

// ID returns the storage key
func (l *Latch) ID() LatchID {
	return NewLatchID(l.UserID, l.Scope)
}

// IsGlobal reports whether the latch applies in every guild
func (l *Latch) IsGlobal() bool {
	return l.Scope == GlobalScope
}

// Toggle applies an autoproxy command. With enabled nil the latch is turned
// on when a member is given, otherwise flipped. Turning it off forgets the
// member.
func (l *Latch) Toggle(enabled *bool, member *MemberID) {
	next := !l.Enabled || member != nil
	if enabled != nil {
		next = *enabled
	}

	l.Enabled = next
	switch {
	case !next:
		l.MemberID = ""
	case member != nil:
		l.MemberID = *member
	}
}

// Bypass inspects content for the escape prefix. skip is true when the
// message must not be proxied; reset is true when the member should also be
// forgotten.
func (l *Latch) Bypass(content string) (skip, reset bool) {
	if !l.Enabled || !strings.HasPrefix(content, `\`) {
		return false, false
	}
	return true, strings.HasPrefix(content, `\\`)
}
