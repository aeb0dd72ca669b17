package model

import (
	"strings"

	"github.com/secmon-lab/proxima/pkg/domain/types"
)

// TraceEntry is one decision recorded while diagnosing a message
type TraceEntry struct {
	Event  types.TraceEvent
	Detail string
}

// String renders the entry for humans
func (e TraceEntry) String() string {
	if e.Detail == "" {
		return e.Event.Description()
	}
	return e.Event.Description() + " (" + e.Detail + ")"
}

// Trace collects decision points of a proxy run. A nil *Trace discards
// everything, so the production path can pass nil.
type Trace struct {
	Entries []TraceEntry
}

// NewTrace returns a trace that starts with the enabler entry
func NewTrace() *Trace {
	return &Trace{Entries: []TraceEntry{{Event: types.TraceEnabler}}}
}

// Add records an event
func (t *Trace) Add(event types.TraceEvent, detail ...string) {
	if t == nil {
		return
	}
	t.Entries = append(t.Entries, TraceEntry{Event: event, Detail: strings.Join(detail, " ")})
}

// Enabled reports whether events are recorded
func (t *Trace) Enabled() bool {
	return t != nil
}

// Has reports whether event was recorded
func (t *Trace) Has(event types.TraceEvent) bool {
	if t == nil {
		return false
	}
	for _, e := range t.Entries {
		if e.Event == event {
			return true
		}
	}
	return false
}

// Events returns the recorded event names in order
func (t *Trace) Events() []types.TraceEvent {
	if t == nil {
		return nil
	}
	out := make([]types.TraceEvent, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Event
	}
	return out
}
