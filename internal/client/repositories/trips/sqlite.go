package trips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
	"github.com/dmitrijs2005/tripkeeper/internal/timex"
)

const tripColumns = `id, company_id, vehicle_id, vehicle_label, driver_matricula, driver_name,
	start_counter, end_counter, origin, destination, started_at, completed_at,
	status, created_at, updated_at, version, sync_status, last_sync_error`

// indexKeys lists the key columns of every index, in key order.
var indexKeys = map[Index][]string{
	IndexPrimary:                {"id"},
	IndexCompany:                {"company_id", "started_at", "id"},
	IndexCompanyStatusStarted:   {"company_id", "status", "started_at", "id"},
	IndexCompanyStatusCompleted: {"company_id", "status", "completed_at", "id"},
}

// SQLiteStore implements Store using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteStore struct {
	db dbx.DBTX
}

// NewSQLiteStore returns a new SQLiteStore bound to the given DBTX.
func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStorageFailure, op, err)
}

// Put upserts a trip by id.
func (s *SQLiteStore) Put(ctx context.Context, t *models.Trip) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO trips (` + tripColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			vehicle_id = excluded.vehicle_id,
			vehicle_label = excluded.vehicle_label,
			driver_matricula = excluded.driver_matricula,
			driver_name = excluded.driver_name,
			start_counter = excluded.start_counter,
			end_counter = excluded.end_counter,
			origin = excluded.origin,
			destination = excluded.destination,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			version = excluded.version,
			sync_status = excluded.sync_status,
			last_sync_error = excluded.last_sync_error`

	if _, err := s.db.ExecContext(ctx, query, tripArgs(t)...); err != nil {
		return storageErr("upsert trip", err)
	}
	return nil
}

// PutIfVersion overwrites a trip only when the stored version still equals
// expected, so two sessions sharing the database file cannot lose an update.
func (s *SQLiteStore) PutIfVersion(ctx context.Context, t *models.Trip, expected int64) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query := `UPDATE trips SET
			company_id = ?, vehicle_id = ?, vehicle_label = ?, driver_matricula = ?, driver_name = ?,
			start_counter = ?, end_counter = ?, origin = ?, destination = ?, started_at = ?,
			completed_at = ?, status = ?, created_at = ?, updated_at = ?, version = ?,
			sync_status = ?, last_sync_error = ?
		WHERE id = ? AND version = ?`

	args := append(tripArgs(t)[1:], t.ID, expected)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr("update trip", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM trips WHERE id = ?)`, t.ID).Scan(&exists)
	if err != nil {
		return storageErr("check trip existence", err)
	}
	if !exists {
		return common.ErrorNotFound
	}
	return fmt.Errorf("trip %s: %w", t.ID, common.ErrVersionConflict)
}

// Get returns a single trip by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Trip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)

	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, storageErr("get trip", err)
	}
	return t, nil
}

// OpenCursor runs an ordered range scan over one index.
func (s *SQLiteStore) OpenCursor(ctx context.Context, index Index, kr KeyRange, dir models.Direction) (Cursor, error) {
	keys, ok := indexKeys[index]
	if !ok {
		return nil, fmt.Errorf("%w: unknown index %q", common.ErrValidation, index)
	}
	if len(kr.Lower) > len(keys) || len(kr.Upper) > len(keys) {
		return nil, fmt.Errorf("%w: key range is longer than index %q", common.ErrValidation, index)
	}

	var (
		where []string
		args  []any
	)
	if len(kr.Lower) > 0 {
		where = append(where, tupleCmp(keys[:len(kr.Lower)], ">="))
		args = appendKey(args, kr.Lower)
	}
	if len(kr.Upper) > 0 {
		where = append(where, tupleCmp(keys[:len(kr.Upper)], "<="))
		args = appendKey(args, kr.Upper)
	}

	order := "ASC"
	if dir == models.Desc {
		order = "DESC"
	}
	orderBy := make([]string, len(keys))
	for i, k := range keys {
		orderBy[i] = k + " " + order
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY ` + strings.Join(orderBy, ", ")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("open cursor", err)
	}
	return &rowsCursor{rows: rows}, nil
}

// MarkSynced stamps the trip synced unless a newer local version exists.
func (s *SQLiteStore) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trips SET sync_status = ?, last_sync_error = '' WHERE id = ? AND version = ?`,
		models.SyncSynced, id, version)
	if err != nil {
		return false, storageErr("mark synced", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("rows affected", err)
	}
	return n == 1, nil
}

// SetSyncError keeps the last push failure next to the trip.
func (s *SQLiteStore) SetSyncError(ctx context.Context, id string, msg string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE trips SET last_sync_error = ? WHERE id = ?`, msg, id); err != nil {
		return storageErr("set sync error", err)
	}
	return nil
}

func tupleCmp(cols []string, op string) string {
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("(%s) %s (%s)", strings.Join(cols, ", "), op, ph)
}

func appendKey(args []any, key []string) []any {
	for _, k := range key {
		args = append(args, k)
	}
	return args
}

func tripArgs(t *models.Trip) []any {
	var end sql.NullFloat64
	if t.EndCounter != nil {
		end = sql.NullFloat64{Float64: *t.EndCounter, Valid: true}
	}
	var completed sql.NullString
	if t.CompletedAt != nil {
		completed = sql.NullString{String: timex.FormatISO(*t.CompletedAt), Valid: true}
	}
	return []any{
		t.ID, t.CompanyID, t.VehicleID, t.VehicleLabel, t.DriverMatricula, t.DriverName,
		t.StartCounter, end, t.Origin, t.Destination, timex.FormatISO(t.StartedAt), completed,
		t.Status, timex.FormatISO(t.CreatedAt), timex.FormatISO(t.UpdatedAt), t.Version,
		t.SyncStatus, t.LastSyncError,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(sc scanner) (*models.Trip, error) {
	var (
		t                               models.Trip
		end                             sql.NullFloat64
		completed                       sql.NullString
		startedAt, createdAt, updatedAt string
		status, syncStatus              string
	)
	err := sc.Scan(
		&t.ID, &t.CompanyID, &t.VehicleID, &t.VehicleLabel, &t.DriverMatricula, &t.DriverName,
		&t.StartCounter, &end, &t.Origin, &t.Destination, &startedAt, &completed,
		&status, &createdAt, &updatedAt, &t.Version, &syncStatus, &t.LastSyncError,
	)
	if err != nil {
		return nil, err
	}

	t.Status = models.TripStatus(status)
	t.SyncStatus = models.SyncStatus(syncStatus)
	if end.Valid {
		v := end.Float64
		t.EndCounter = &v
	}
	if t.StartedAt, err = timex.ParseISO(startedAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = timex.ParseISO(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = timex.ParseISO(updatedAt); err != nil {
		return nil, err
	}
	if completed.Valid {
		v, err := timex.ParseISO(completed.String)
		if err != nil {
			return nil, err
		}
		t.CompletedAt = &v
	}
	return &t, nil
}

type rowsCursor struct {
	rows    *sql.Rows
	current models.Trip
	err     error
	closed  bool
}

func (c *rowsCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = storageErr("advance cursor", err)
		}
		_ = c.Close()
		return false
	}
	t, err := scanTrip(c.rows)
	if err != nil {
		c.err = storageErr("scan trip", err)
		_ = c.Close()
		return false
	}
	c.current = *t
	return true
}

func (c *rowsCursor) Trip() models.Trip {
	return c.current
}

func (c *rowsCursor) Err() error {
	return c.err
}

func (c *rowsCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
