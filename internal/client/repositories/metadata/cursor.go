package metadata

import (
	"context"
	"fmt"
	"strconv"
)

// CursorKey is the metadata key holding the last remote revision merged for
// a company.
func CursorKey(companyID string) string {
	return "remote_cursor:" + companyID
}

// GetCursor returns the stored feed cursor of a company, or 0 when none was
// saved yet.
func GetCursor(ctx context.Context, r Repository, companyID string) (int64, error) {
	v, ok, err := r.Get(ctx, CursorKey(companyID))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt cursor for company %s: %w", companyID, err)
	}
	return n, nil
}

// SetCursor saves the feed cursor of a company.
func SetCursor(ctx context.Context, r Repository, companyID string, cursor int64) error {
	return r.Set(ctx, CursorKey(companyID), strconv.FormatInt(cursor, 10))
}

// ResetCursor forgets the feed cursor of a company so the next pull starts
// from the beginning of the feed.
func ResetCursor(ctx context.Context, r Repository, companyID string) error {
	return r.Delete(ctx, CursorKey(companyID))
}
