package ledger

import (
	"maps"
	"time"
)

type EventType string

const (
	EventTokenMinted        EventType = "TokenMinted"
	EventRevenueDistributed EventType = "RevenueDistributed"
	EventTokenRetired       EventType = "TokenRetired"
)

// Event is an audit entry. The log is append-only and is never replayed.
// Payload values are always scalars, so a cloned payload shares nothing with
// the log.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

func (l *Ledger) emit(et EventType, payload map[string]any) {
	l.events = append(l.events, Event{Type: et, Timestamp: l.now(), Payload: payload})
	log.Debugw("ledger event", "type", et)
}

// Events returns a copy of the event log, oldest first.
func (l *Ledger) Events() []Event {
	out := make([]Event, len(l.events))
	for i, e := range l.events {
		e.Payload = maps.Clone(e.Payload)
		out[i] = e
	}
	return out
}
