package mutations

import "context"

// Repository remembers which client mutations were already applied.
type Repository interface {
	// Record stores the idempotency key and reports whether it was new.
	Record(ctx context.Context, key, recordID, operation string) (bool, error)
}
