package audit

import (
	"context"
	"time"
)

// Event is one business-level action worth a trail entry.
type Event struct {
	Action   string         `json:"action"`
	UserID   string         `json:"user_id,omitempty"`
	Entity   string         `json:"entity,omitempty"`
	EntityID string         `json:"entity_id,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}

// Sink records events fire-and-forget: implementations log failures and never
// surface them to the caller.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// Nop discards every event. Used as a default and in tests.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
