// Package reconcile folds remote trip snapshots into the local store.
//
// The remote side always wins: every field of an incoming snapshot replaces
// the local one and the result is marked synced. A local edit that has not
// been pushed yet is overwritten; this is logged at warn level but not
// otherwise detected. Applying the same snapshot twice leaves the store
// unchanged.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories/trips"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/logging"
	"github.com/dmitrijs2005/tripkeeper/internal/timex"
)

// Result counts what a merge did.
type Result struct {
	Merged  int
	Skipped int
}

type Reconciler struct {
	store trips.Store
	log   logging.Logger
}

func New(store trips.Store, log logging.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Merge applies the snapshots in order. Snapshots without an id, and those
// that would violate a trip invariant, are skipped.
func (r *Reconciler) Merge(ctx context.Context, payloads []models.Payload) (Result, error) {
	var res Result

	for _, p := range payloads {
		if p.ID == "" {
			res.Skipped++
			continue
		}

		existing, err := r.store.Get(ctx, p.ID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return res, fmt.Errorf("load trip %s: %w", p.ID, err)
		}

		merged := mergeOne(existing, p)

		if existing != nil && existing.SyncStatus == models.SyncPending {
			r.log.Warn(ctx, "remote snapshot overwrites unsynced local edit",
				"id", p.ID, "local_version", existing.Version)
		}

		if err := r.store.Put(ctx, &merged); err != nil {
			if errors.Is(err, common.ErrValidation) {
				r.log.Warn(ctx, "skipping invalid remote snapshot", "id", p.ID, "error", err)
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("store trip %s: %w", p.ID, err)
		}
		res.Merged++
	}
	return res, nil
}

func mergeOne(existing *models.Trip, p models.Payload) models.Trip {
	t := p.Trip()
	t.Version = 1

	if existing != nil {
		t.Version = existing.Version
		if t.CreatedAt.IsZero() {
			t.CreatedAt = existing.CreatedAt
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = existing.UpdatedAt
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.StartedAt
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	t.StartedAt = timex.Normalize(t.StartedAt)
	t.CreatedAt = timex.Normalize(t.CreatedAt)
	t.UpdatedAt = timex.Normalize(t.UpdatedAt)
	if t.CompletedAt != nil {
		v := timex.Normalize(*t.CompletedAt)
		t.CompletedAt = &v
	}

	t.SyncStatus = models.SyncSynced
	t.LastSyncError = ""
	return t
}
