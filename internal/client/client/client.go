package client

import (
	"context"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
)

// Client delivers outbox entries to the backend and reads its change feed.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	// Apply performs one journaled mutation. Applying an entry whose
	// idempotency key was already applied is a no-op.
	Apply(ctx context.Context, entry models.OutboxEntry) error
	// Fetch returns up to limit snapshots of a company written after cursor
	// since, and the cursor to resume from.
	Fetch(ctx context.Context, companyID string, since int64, limit int) ([]models.Payload, int64, error)
}
