package trips

import (
	"context"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
)

// Index names a secondary index of the store.
type Index string

const (
	IndexPrimary                Index = "primary"
	IndexCompany                Index = "company"
	IndexCompanyStatusStarted   Index = "company_status_started"
	IndexCompanyStatusCompleted Index = "company_status_completed"
)

// KeyRange bounds a scan over an index key. Bounds are inclusive and may be
// shorter than the full key, in which case they constrain the key prefix.
// A nil bound leaves that side open.
type KeyRange struct {
	Lower []string
	Upper []string
}

// Only matches every key whose prefix equals key.
func Only(key ...string) KeyRange {
	return KeyRange{Lower: key, Upper: key}
}

// Bound matches keys between lower and upper inclusive.
func Bound(lower, upper []string) KeyRange {
	return KeyRange{Lower: lower, Upper: upper}
}

// All matches every key.
func All() KeyRange {
	return KeyRange{}
}

// Cursor walks matching trips lazily in index order.
type Cursor interface {
	// Next advances to the next trip and reports whether there is one.
	Next() bool
	// Trip returns the current trip.
	Trip() models.Trip
	// Err returns the error that stopped iteration, if any.
	Err() error
	// Close releases the underlying resources. It is safe to call twice.
	Close() error
}

// Store describes the local trip store.
type Store interface {
	// Put validates and inserts or replaces a trip by id.
	Put(ctx context.Context, trip *models.Trip) error

	// PutIfVersion replaces a trip only if the stored version equals expected.
	PutIfVersion(ctx context.Context, trip *models.Trip, expected int64) error

	// Get returns a trip by id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Trip, error)

	// OpenCursor scans an index within a key range in the given direction.
	OpenCursor(ctx context.Context, index Index, kr KeyRange, dir models.Direction) (Cursor, error)

	// MarkSynced flips the trip to synced if its version is still version.
	// It reports whether the trip was updated.
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)

	// SetSyncError records the last push failure for a trip.
	SetSyncError(ctx context.Context, id string, msg string) error
}

// MaxKey sorts after every stored key component. Use it to close the upper
// end of a prefix range.
const MaxKey = "\uffff"
