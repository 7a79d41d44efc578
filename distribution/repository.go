package distribution

import (
	"context"

	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// STORE - Persistence contract
// =============================================================================

// Store persists distributions under optimistic locking. Events passed to
// Create and Save are written in the same transaction as the record.
//
// IMPLEMENTATIONS:
//   - generic/store: in-memory
//   - store/sqlstore: SQLite and PostgreSQL
type Store interface {
	// Create inserts a version 0 record. A second record for the same ID or
	// natural key fails with ErrDuplicateDistribution.
	Create(ctx context.Context, d Distribution, events ...Event) error

	// Load returns the stored snapshot or a NotFoundError.
	Load(ctx context.Context, id generic.DistributionID) (Distribution, error)

	// Save replaces the record only if the stored version equals
	// expectedVersion. Otherwise it returns a VersionConflictError and
	// writes nothing.
	Save(ctx context.Context, d Distribution, expectedVersion int, events ...Event) error

	// FindByKey looks up by natural key.
	FindByKey(ctx context.Context, key Key) (Distribution, error)

	// ListByWell lists a well's distributions, optionally for a single
	// month (zero month means all), ordered by month then partner.
	ListByWell(ctx context.Context, wellID generic.WellID, month generic.ProductionMonth) ([]Distribution, error)

	// Events returns the distribution's history, oldest first.
	Events(ctx context.Context, id generic.DistributionID) ([]Event, error)
}

// CheckSave is the guard every Store applies before writing: the snapshot
// must be exactly one version ahead of what the caller loaded.
func CheckSave(d Distribution, expectedVersion int) error {
	if d.Version != expectedVersion+1 {
		return &generic.ValidationError{
			Field:  "version",
			Reason: "snapshot must be exactly one version ahead of the expected version",
		}
	}
	return nil
}
