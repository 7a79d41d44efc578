package distribution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// DOMAIN EVENTS
// =============================================================================

type EventType string

const (
	EventCreated      EventType = "distribution.created"
	EventRecalculated EventType = "distribution.recalculated"
	EventPaid         EventType = "distribution.paid"
)

// Event records one accepted write. Version is the aggregate version the
// write produced, so (DistributionID, Version) is unique.
type Event struct {
	ID             string
	DistributionID generic.DistributionID
	Type           EventType
	Version        int
	Actor          string
	Reason         string
	OccurredAt     time.Time
	Details        map[string]string
}

func newEvent(d Distribution, typ EventType, actor, reason string, at time.Time, details map[string]string) Event {
	return Event{
		ID:             uuid.NewString(),
		DistributionID: d.ID,
		Type:           typ,
		Version:        d.Version,
		Actor:          actor,
		Reason:         reason,
		OccurredAt:     at,
		Details:        details,
	}
}

// Publisher is an informational side channel. A failed publish never rolls
// back the write that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
