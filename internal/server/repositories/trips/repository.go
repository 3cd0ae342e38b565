package trips

import (
	"context"

	"github.com/dmitrijs2005/tripkeeper/internal/server/models"
)

// Repository is the backend trip table.
type Repository interface {
	// LockFeed blocks until no other transaction writes the feed. The lock
	// is held until the calling transaction ends, so revisions commit in
	// the order they were taken.
	LockFeed(ctx context.Context) error
	// Upsert stores the trip and returns the revision it was written at.
	Upsert(ctx context.Context, trip *models.Trip) (int64, error)
	// MarkDeleted soft-deletes a trip and returns its new revision.
	MarkDeleted(ctx context.Context, id string) (int64, error)
	// SelectUpdated returns up to limit trips of a company written after
	// revision since, in revision order.
	SelectUpdated(ctx context.Context, companyID string, since int64, limit int) ([]*models.Trip, error)
}
