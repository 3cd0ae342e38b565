package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/client"
	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
	"github.com/dmitrijs2005/tripkeeper/internal/logging"
	"github.com/dmitrijs2005/tripkeeper/internal/timex"
)

// SyncService moves journaled mutations to the backend and pulls the
// backend's change feed back into the local store.
type SyncService interface {
	// Push delivers due outbox entries in sequence order. It stops at the
	// first transient failure, which is rescheduled and returned. Entries the
	// backend rejects are parked and the push goes on.
	Push(ctx context.Context) (PushResult, error)
	// Pull merges every snapshot written after the stored cursor.
	Pull(ctx context.Context) (int, error)
	// Resync forgets the stored cursor and pulls the whole feed again.
	Resync(ctx context.Context) (int, error)
	// Sync is Push followed by Pull.
	Sync(ctx context.Context) (PushResult, int, error)
	Ping(ctx context.Context) error
	Close() error
}

// PushResult counts what a push did.
type PushResult struct {
	Applied int
	Failed  int
	Parked  int
}

// Backoff returns the delay before attempt number retry.
type Backoff func(retry int) time.Duration

const (
	DefaultRetryBaseDelay = 2 * time.Second
	DefaultMaxRetryDelay  = 10 * time.Minute
	DefaultSyncBatchSize  = 50
)

// ExponentialBackoff doubles base per retry up to limit.
func ExponentialBackoff(base, limit time.Duration) Backoff {
	return func(retry int) time.Duration {
		if retry < 0 {
			retry = 0
		}
		d := base
		for i := 0; i < retry; i++ {
			d *= 2
			if d >= limit || d <= 0 {
				return limit
			}
		}
		return min(d, limit)
	}
}

// SyncConfig wires a SyncService. Zero fields take defaults.
type SyncConfig struct {
	CompanyID string
	BatchSize int
	Backoff   Backoff
	Clock     timex.Clock
	Logger    logging.Logger
}

type syncService struct {
	db     *sql.DB
	repos  repositories.Manager
	trips  TripService
	client client.Client
	cfg    SyncConfig
}

func NewSyncService(db *sql.DB, repos repositories.Manager, trips TripService, c client.Client, cfg SyncConfig) SyncService {
	if cfg.CompanyID == "" {
		cfg.CompanyID = trips.DefaultCompany()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultSyncBatchSize
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff(DefaultRetryBaseDelay, DefaultMaxRetryDelay)
	}
	if cfg.Clock == nil {
		cfg.Clock = timex.SystemClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &syncService{db: db, repos: repos, trips: trips, client: c, cfg: cfg}
}

func (s *syncService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *syncService) Close() error {
	return s.client.Close()
}

func (s *syncService) Push(ctx context.Context) (PushResult, error) {
	var res PushResult
	log := s.cfg.Logger

	for {
		now := timex.Normalize(s.cfg.Clock())
		due, err := s.repos.Outbox(s.db).Due(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return res, fmt.Errorf("load due entries: %w", err)
		}

		for _, e := range due {
			if err := s.client.Apply(ctx, e); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return res, err
				}
				if errors.Is(err, client.ErrRejected) {
					if perr := s.park(ctx, e, err); perr != nil {
						return res, errors.Join(err, perr)
					}
					res.Parked++
					continue
				}
				res.Failed++
				if rerr := s.fail(ctx, e, now, err); rerr != nil {
					return res, errors.Join(err, rerr)
				}
				return res, fmt.Errorf("apply %s: %w", e.IdempotencyKey, err)
			}

			synced, err := s.ack(ctx, e)
			if err != nil {
				return res, err
			}
			res.Applied++
			log.Debug(ctx, "outbox entry applied", "key", e.IdempotencyKey, "synced", synced)
		}

		if len(due) < s.cfg.BatchSize {
			return res, nil
		}
	}
}

func (s *syncService) ack(ctx context.Context, e models.OutboxEntry) (bool, error) {
	synced, err := dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
		if err := s.repos.Outbox(tx).Ack(ctx, e.Seq); err != nil {
			return false, err
		}
		return s.repos.Trips(tx).MarkSynced(ctx, e.RecordID, e.RecordVersion)
	})
	if err != nil {
		return false, fmt.Errorf("ack %s: %w", e.IdempotencyKey, err)
	}
	return synced, nil
}

func (s *syncService) fail(ctx context.Context, e models.OutboxEntry, now time.Time, cause error) error {
	retry := e.RetryCount + 1
	next := now.Add(s.cfg.Backoff(retry))
	msg := cause.Error()

	s.cfg.Logger.Warn(ctx, "outbox entry failed", "key", e.IdempotencyKey, "retry", retry, "next_retry_at", next, "error", msg)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Outbox(tx).Reschedule(ctx, e.Seq, retry, next, msg); err != nil {
			return err
		}
		return s.setSyncError(ctx, tx, e.RecordID, msg)
	})
}

func (s *syncService) park(ctx context.Context, e models.OutboxEntry, cause error) error {
	msg := cause.Error()

	s.cfg.Logger.Error(ctx, "outbox entry rejected, parked", "key", e.IdempotencyKey, "error", msg)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Outbox(tx).Park(ctx, e.Seq, msg); err != nil {
			return err
		}
		return s.setSyncError(ctx, tx, e.RecordID, msg)
	})
}

func (s *syncService) setSyncError(ctx context.Context, tx dbx.DBTX, id, msg string) error {
	err := s.repos.Trips(tx).SetSyncError(ctx, id, msg)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}

func (s *syncService) Pull(ctx context.Context) (int, error) {
	company := s.cfg.CompanyID
	if company == "" {
		return 0, fmt.Errorf("%w: pull needs a company id", common.ErrValidation)
	}

	meta := s.repos.Metadata(s.db)
	cursor, err := metadata.GetCursor(ctx, meta, company)
	if err != nil {
		return 0, err
	}

	merged := 0
	for {
		payloads, next, err := s.client.Fetch(ctx, company, cursor, s.cfg.BatchSize)
		if err != nil {
			return merged, fmt.Errorf("fetch since %d: %w", cursor, err)
		}
		if len(payloads) == 0 {
			return merged, nil
		}

		res, err := s.trips.MergeRemote(ctx, payloads)
		if err != nil {
			return merged, err
		}
		merged += res.Merged

		advanced := next > cursor
		if advanced {
			if err := metadata.SetCursor(ctx, meta, company, next); err != nil {
				return merged, err
			}
			cursor = next
		}

		s.cfg.Logger.Debug(ctx, "pulled remote batch", "count", len(payloads), "cursor", cursor)
		if len(payloads) < s.cfg.BatchSize || !advanced {
			return merged, nil
		}
	}
}

func (s *syncService) Resync(ctx context.Context) (int, error) {
	company := s.cfg.CompanyID
	if company == "" {
		return 0, fmt.Errorf("%w: resync needs a company id", common.ErrValidation)
	}
	if err := metadata.ResetCursor(ctx, s.repos.Metadata(s.db), company); err != nil {
		return 0, err
	}
	s.cfg.Logger.Info(ctx, "feed cursor reset", "company", company)
	return s.Pull(ctx)
}

func (s *syncService) Sync(ctx context.Context) (PushResult, int, error) {
	pushed, err := s.Push(ctx)
	if err != nil {
		return pushed, 0, err
	}
	pulled, err := s.Pull(ctx)
	return pushed, pulled, err
}
