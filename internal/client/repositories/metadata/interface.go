// Package metadata stores small settings of the local database, such as the
// remote feed cursor of each company.
package metadata

import (
	"context"
)

// Repository is a string-valued settings table.
type Repository interface {
	// Get returns the value of key and whether it is set.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete unsets key. Unsetting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
