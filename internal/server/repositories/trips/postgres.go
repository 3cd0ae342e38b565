// Package trips provides the PostgreSQL-backed trip table of the backend and
// its revision feed.
package trips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
	"github.com/dmitrijs2005/tripkeeper/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// feedLockKey is the pg_advisory_xact_lock key guarding trip_revision_seq.
const feedLockKey int64 = 0x7472697073

func (r *PostgresRepository) LockFeed(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, feedLockKey); err != nil {
		return fmt.Errorf("lock feed: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the trip by id. Every write takes the next value
// of trip_revision_seq, so the feed sees the newest write last.
func (r *PostgresRepository) Upsert(ctx context.Context, t *models.Trip) (int64, error) {
	query := `
		INSERT INTO trips (id, company_id, vehicle_id, vehicle_label, driver_matricula, driver_name,
			start_counter, end_counter, origin, destination, started_at, completed_at,
			status, created_at, updated_at, revision)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, nextval('trip_revision_seq'))
		ON CONFLICT (id)
		DO UPDATE SET
			company_id = EXCLUDED.company_id,
			vehicle_id = EXCLUDED.vehicle_id,
			vehicle_label = EXCLUDED.vehicle_label,
			driver_matricula = EXCLUDED.driver_matricula,
			driver_name = EXCLUDED.driver_name,
			start_counter = EXCLUDED.start_counter,
			end_counter = EXCLUDED.end_counter,
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			revision = EXCLUDED.revision
		RETURNING revision;
	`
	var (
		end       sql.NullFloat64
		completed sql.NullTime
	)
	if t.EndCounter != nil {
		end = sql.NullFloat64{Float64: *t.EndCounter, Valid: true}
	}
	if t.CompletedAt != nil {
		completed = sql.NullTime{Time: *t.CompletedAt, Valid: true}
	}

	var rev int64
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.CompanyID, t.VehicleID, t.VehicleLabel, t.DriverMatricula, t.DriverName,
		t.StartCounter, end, t.Origin, t.Destination, t.StartedAt, completed,
		t.Status, t.CreatedAt, t.UpdatedAt,
	).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return rev, nil
}

// MarkDeleted flips the status to DELETED. It returns common.ErrorNotFound
// when the trip does not exist.
func (r *PostgresRepository) MarkDeleted(ctx context.Context, id string) (int64, error) {
	query := `
		UPDATE trips SET status = $2, updated_at = now(), revision = nextval('trip_revision_seq')
		WHERE id = $1
		RETURNING revision;
	`
	var rev int64
	err := r.db.QueryRowContext(ctx, query, id, models.StatusDeleted).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return rev, nil
}

func (r *PostgresRepository) SelectUpdated(ctx context.Context, companyID string, since int64, limit int) ([]*models.Trip, error) {
	query := `SELECT id, company_id, vehicle_id, vehicle_label, driver_matricula, driver_name,
			start_counter, end_counter, origin, destination, started_at, completed_at,
			status, created_at, updated_at, revision
		FROM trips
		WHERE company_id=$1 AND revision>$2
		ORDER BY revision
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, companyID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select trips: %w", err)
	}
	defer rows.Close()

	var result []*models.Trip
	for rows.Next() {
		var (
			item      models.Trip
			end       sql.NullFloat64
			completed sql.NullTime
		)
		if err := rows.Scan(
			&item.ID, &item.CompanyID, &item.VehicleID, &item.VehicleLabel, &item.DriverMatricula, &item.DriverName,
			&item.StartCounter, &end, &item.Origin, &item.Destination, &item.StartedAt, &completed,
			&item.Status, &item.CreatedAt, &item.UpdatedAt, &item.Revision,
		); err != nil {
			return nil, err
		}
		if end.Valid {
			v := end.Float64
			item.EndCounter = &v
		}
		if completed.Valid {
			v := completed.Time
			item.CompletedAt = &v
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
