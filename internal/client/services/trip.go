// Package services contains the application services of the tripkeeper
// client: the trip repository used by the REPL and the sync processor that
// drains the outbox toward the backend.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/client/query"
	"github.com/dmitrijs2005/tripkeeper/internal/client/reconcile"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
	"github.com/dmitrijs2005/tripkeeper/internal/logging"
	"github.com/dmitrijs2005/tripkeeper/internal/timex"
	"github.com/google/uuid"
)

// TripService is the public repository over the local trip store.
//
// Every mutation persists the trip and journals the matching outbox entry in
// a single transaction.
type TripService interface {
	Create(ctx context.Context, in models.NewTrip) (*models.Trip, error)
	Update(ctx context.Context, id string, patch models.TripPatch) (*models.Trip, error)
	Delete(ctx context.Context, id string) (*models.Trip, error)
	Get(ctx context.Context, id string) (*models.Trip, error)
	List(ctx context.Context, q models.ListQuery) (models.Page, error)

	// MergeRemote folds authoritative snapshots into the store in one
	// transaction.
	MergeRemote(ctx context.Context, payloads []models.Payload) (reconcile.Result, error)

	// MarkSynced flips a trip to synced if it is still at version.
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)

	// Pending lists the outbox entries that still wait for the backend.
	Pending(ctx context.Context, limit int) ([]models.OutboxEntry, error)
	PendingCount(ctx context.Context) (int, error)

	// DefaultCompany is the company used when a call leaves it empty.
	DefaultCompany() string
}

type tripService struct {
	db      *sql.DB
	repos   repositories.Manager
	company string
	now     timex.Clock
	newID   func() string
	log     logging.Logger
}

// TripOption customizes a TripService.
type TripOption func(*tripService)

// WithDefaultCompany sets the company used when none is given.
func WithDefaultCompany(id string) TripOption {
	return func(s *tripService) { s.company = id }
}

// WithClock replaces the wall clock.
func WithClock(c timex.Clock) TripOption {
	return func(s *tripService) { s.now = c }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(f func() string) TripOption {
	return func(s *tripService) { s.newID = f }
}

// WithLogger sets the logger; the default discards output.
func WithLogger(l logging.Logger) TripOption {
	return func(s *tripService) { s.log = l }
}

// NewTripService binds the service to an open client database.
func NewTripService(db *sql.DB, repos repositories.Manager, opts ...TripOption) TripService {
	s := &tripService{
		db:    db,
		repos: repos,
		now:   timex.SystemClock,
		newID: uuid.NewString,
		log:   logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *tripService) DefaultCompany() string {
	return s.company
}

func (s *tripService) Create(ctx context.Context, in models.NewTrip) (*models.Trip, error) {
	now := timex.Normalize(s.now())

	t := &models.Trip{
		ID:              s.newID(),
		CompanyID:       in.CompanyID,
		VehicleID:       in.VehicleID,
		VehicleLabel:    in.VehicleLabel,
		DriverMatricula: in.DriverMatricula,
		DriverName:      in.DriverName,
		StartCounter:    in.StartCounter,
		Origin:          in.Origin,
		Destination:     in.Destination,
		StartedAt:       in.StartedAt,
		Status:          in.Status,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
		SyncStatus:      models.SyncPending,
	}
	if t.CompanyID == "" {
		t.CompanyID = s.company
	}
	if t.Status == "" {
		t.Status = models.StatusInProgress
	}
	if t.Status == models.StatusDeleted {
		return nil, fmt.Errorf("%w: a trip cannot be created deleted", common.ErrValidation)
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = now
	}
	if in.EndCounter != nil {
		v := *in.EndCounter
		t.EndCounter = &v
	}
	if in.CompletedAt != nil {
		v := *in.CompletedAt
		t.CompletedAt = &v
	}
	normalizeTimes(t)

	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Trips(tx).Put(ctx, t); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.OpCreate, t, now)
	})
	if err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.log.Info(ctx, "trip created", "id", t.ID, "company", t.CompanyID)
	return t, nil
}

func (s *tripService) Update(ctx context.Context, id string, patch models.TripPatch) (*models.Trip, error) {
	if patch.Status != nil && *patch.Status == models.StatusDeleted {
		return nil, fmt.Errorf("%w: use delete to remove a trip", common.ErrValidation)
	}

	t, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Trip, error) {
		store := s.repos.Trips(tx)

		t, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		// deletion is final: its outbox key carries no version
		if t.Status == models.StatusDeleted {
			return nil, fmt.Errorf("%w: trip %s is deleted", common.ErrValidation, id)
		}
		loaded := t.Version
		now := timex.Normalize(s.now())

		patch.ApplyTo(t)
		normalizeTimes(t)
		t.Version = loaded + 1
		t.UpdatedAt = now
		t.SyncStatus = models.SyncPending

		if err := store.PutIfVersion(ctx, t, loaded); err != nil {
			return nil, err
		}
		if err := s.enqueue(ctx, tx, models.OpUpdate, t, now); err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update trip %s: %w", id, err)
	}

	s.log.Info(ctx, "trip updated", "id", t.ID, "version", t.Version)
	return t, nil
}

func (s *tripService) Delete(ctx context.Context, id string) (*models.Trip, error) {
	t, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Trip, error) {
		store := s.repos.Trips(tx)

		t, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if t.Status == models.StatusDeleted {
			return t, nil
		}
		loaded := t.Version
		now := timex.Normalize(s.now())

		t.Status = models.StatusDeleted
		t.Version = loaded + 1
		t.UpdatedAt = now
		t.SyncStatus = models.SyncPending

		if err := store.PutIfVersion(ctx, t, loaded); err != nil {
			return nil, err
		}
		if err := s.enqueue(ctx, tx, models.OpDelete, t, now); err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete trip %s: %w", id, err)
	}

	s.log.Info(ctx, "trip deleted", "id", t.ID, "version", t.Version)
	return t, nil
}

func (s *tripService) Get(ctx context.Context, id string) (*models.Trip, error) {
	return s.repos.Trips(s.db).Get(ctx, id)
}

func (s *tripService) List(ctx context.Context, q models.ListQuery) (models.Page, error) {
	if q.Filters.CompanyID == "" {
		q.Filters.CompanyID = s.company
	}
	return query.NewEngine(s.repos.Trips(s.db)).List(ctx, q)
}

func (s *tripService) MergeRemote(ctx context.Context, payloads []models.Payload) (reconcile.Result, error) {
	res, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (reconcile.Result, error) {
		return reconcile.New(s.repos.Trips(tx), s.log).Merge(ctx, payloads)
	})
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("merge remote: %w", err)
	}

	s.log.Debug(ctx, "remote snapshots merged", "merged", res.Merged, "skipped", res.Skipped)
	return res, nil
}

func (s *tripService) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	return s.repos.Trips(s.db).MarkSynced(ctx, id, version)
}

func (s *tripService) Pending(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	return s.repos.Outbox(s.db).List(ctx, limit)
}

func (s *tripService) PendingCount(ctx context.Context) (int, error) {
	return s.repos.Outbox(s.db).Count(ctx)
}

func (s *tripService) enqueue(ctx context.Context, tx dbx.DBTX, op models.Operation, t *models.Trip, now time.Time) error {
	e := &models.OutboxEntry{
		Operation:     op,
		RecordID:      t.ID,
		RecordVersion: t.Version,
		NextRetryAt:   now,
		CreatedAt:     now,
	}
	if op == models.OpDelete {
		e.IdempotencyKey = models.DeleteKey(t.ID)
	} else {
		p := t.Payload()
		e.Payload = &p
		e.IdempotencyKey = models.MutationKey(t.ID, t.Version)
	}
	_, err := s.repos.Outbox(tx).Enqueue(ctx, e)
	return err
}

func normalizeTimes(t *models.Trip) {
	t.StartedAt = timex.Normalize(t.StartedAt)
	if t.CompletedAt != nil {
		v := timex.Normalize(*t.CompletedAt)
		t.CompletedAt = &v
	}
}
