package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
	sm "github.com/dmitrijs2005/tripkeeper/internal/server/models"
	"github.com/dmitrijs2005/tripkeeper/internal/server/repositories/repomanager"
	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresClient talks to the backend database directly through the pgx
// database/sql driver.
type PostgresClient struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

// NewPostgresClient opens a connection pool for dsn. No connection is made
// until the first call.
func NewPostgresClient(dsn string) (*PostgresClient, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	return NewPostgresClientWithDB(db, repomanager.NewPostgresRepositoryManager(nil)), nil
}

// NewPostgresClientWithDB wraps an existing handle.
func NewPostgresClientWithDB(db *sql.DB, repos repomanager.RepositoryManager) *PostgresClient {
	return &PostgresClient{db: db, repos: repos}
}

func (c *PostgresClient) Close() error {
	return c.db.Close()
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Apply runs the mutation and records its idempotency key in one backend
// transaction.
func (c *PostgresClient) Apply(ctx context.Context, e models.OutboxEntry) error {
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fresh, err := c.repos.Mutations(tx).Record(ctx, e.IdempotencyKey, e.RecordID, string(e.Operation))
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		trips := c.repos.Trips(tx)
		if err := trips.LockFeed(ctx); err != nil {
			return err
		}
		switch e.Operation {
		case models.OpCreate, models.OpUpdate:
			if e.Payload == nil {
				return fmt.Errorf("%w: %s carries no snapshot", ErrRejected, e.IdempotencyKey)
			}
			_, err = trips.Upsert(ctx, toServerTrip(e.Payload))
			return err
		case models.OpDelete:
			_, err = trips.MarkDeleted(ctx, e.RecordID)
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		default:
			return fmt.Errorf("%w: unknown operation %q", ErrRejected, e.Operation)
		}
	})
	return classify(err)
}

func (c *PostgresClient) Fetch(ctx context.Context, companyID string, since int64, limit int) ([]models.Payload, int64, error) {
	rows, err := c.repos.Trips(c.db).SelectUpdated(ctx, companyID, since, limit)
	if err != nil {
		return nil, since, classify(err)
	}

	next := since
	out := make([]models.Payload, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromServerTrip(r))
		next = max(next, r.Revision)
	}
	return out, next, nil
}

// classify maps backend errors onto ErrRejected (the server refused the
// statement for good) or ErrUnavailable (the network, or a server state that
// clears on its own).
func classify(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRejected), errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &pgErr) && !transientState(pgErr.Code):
		return fmt.Errorf("%w: %w", ErrRejected, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// transientState reports SQLSTATE classes worth retrying: connection
// exceptions, transaction rollbacks, insufficient resources and operator
// intervention (cancels, shutdowns).
func transientState(code string) bool {
	switch {
	case len(code) < 2:
		return false
	case code[:2] == "08", code[:2] == "40", code[:2] == "53", code[:2] == "57":
		return true
	}
	return false
}

func toServerTrip(p *models.Payload) *sm.Trip {
	return &sm.Trip{
		ID:              p.ID,
		CompanyID:       p.CompanyID,
		VehicleID:       p.VehicleID,
		VehicleLabel:    p.VehicleLabel,
		DriverMatricula: p.DriverMatricula,
		DriverName:      p.DriverName,
		StartCounter:    p.StartCounter,
		EndCounter:      p.EndCounter,
		Origin:          p.Origin,
		Destination:     p.Destination,
		StartedAt:       p.StartedAt,
		CompletedAt:     p.CompletedAt,
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromServerTrip(t *sm.Trip) models.Payload {
	p := models.Payload{
		ID:              t.ID,
		CompanyID:       t.CompanyID,
		VehicleID:       t.VehicleID,
		VehicleLabel:    t.VehicleLabel,
		DriverMatricula: t.DriverMatricula,
		DriverName:      t.DriverName,
		StartCounter:    t.StartCounter,
		EndCounter:      t.EndCounter,
		Origin:          t.Origin,
		Destination:     t.Destination,
		StartedAt:       t.StartedAt.UTC(),
		Status:          models.TripStatus(t.Status),
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
	if t.CompletedAt != nil {
		v := t.CompletedAt.UTC()
		p.CompletedAt = &v
	}
	return p
}
