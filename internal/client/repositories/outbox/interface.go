// Package outbox persists the journal of local mutations that still have to
// reach the remote backend.
package outbox

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
)

// Outbox is an ordered, durable queue of pending remote mutations.
type Outbox interface {
	// Enqueue appends an entry and returns its sequence number. An entry whose
	// idempotency key is already queued is not added again; the sequence
	// number of the queued one is returned instead.
	Enqueue(ctx context.Context, e *models.OutboxEntry) (int64, error)

	// List returns up to limit entries in sequence order. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]models.OutboxEntry, error)

	// Due returns up to limit entries, in sequence order, that may be pushed
	// at now. It stops at the first entry still waiting for its retry time so
	// later mutations never overtake it. Parked entries are skipped.
	Due(ctx context.Context, now time.Time, limit int) ([]models.OutboxEntry, error)

	// Ack removes an entry once the backend confirmed it.
	Ack(ctx context.Context, seq int64) error

	// Reschedule records a failed push attempt.
	Reschedule(ctx context.Context, seq int64, retryCount int, next time.Time, lastErr string) error

	// Park takes an entry the backend refused out of the push order. It stays
	// listed and counted.
	Park(ctx context.Context, seq int64, lastErr string) error

	// Count returns the number of queued entries.
	Count(ctx context.Context) (int, error)
}
