package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
	"github.com/dmitrijs2005/tripkeeper/internal/timex"
)

const entryColumns = `seq, operation, record_id, record_version, payload, idempotency_key,
	retry_count, next_retry_at, last_error, parked, created_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStorageFailure, op, err)
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.OutboxEntry) (int64, error) {
	switch {
	case !e.Operation.Valid():
		return 0, fmt.Errorf("%w: unknown operation %q", common.ErrValidation, e.Operation)
	case e.RecordID == "":
		return 0, fmt.Errorf("%w: record id is required", common.ErrValidation)
	case e.IdempotencyKey == "":
		return 0, fmt.Errorf("%w: idempotency key is required", common.ErrValidation)
	}

	var payload sql.NullString
	if e.Payload != nil {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (operation, record_id, record_version, payload, idempotency_key,
			retry_count, next_retry_at, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`,
		e.Operation, e.RecordID, e.RecordVersion, payload, e.IdempotencyKey,
		e.RetryCount, timex.FormatISO(e.NextRetryAt), e.LastError, timex.FormatISO(e.CreatedAt))
	if err != nil {
		return 0, storageErr("enqueue", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("rows affected", err)
	}
	if n == 1 {
		seq, err := res.LastInsertId()
		if err != nil {
			return 0, storageErr("last insert id", err)
		}
		e.Seq = seq
		return seq, nil
	}

	var seq int64
	err = r.db.QueryRowContext(ctx, `SELECT seq FROM outbox WHERE idempotency_key = ?`, e.IdempotencyKey).Scan(&seq)
	if err != nil {
		return 0, storageErr("lookup queued entry", err)
	}
	e.Seq = seq
	return seq, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.OutboxEntry, error) {
	return r.query(ctx, `SELECT `+entryColumns+` FROM outbox ORDER BY seq LIMIT ?`, sqlLimit(limit))
}

func (r *SQLiteRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.OutboxEntry, error) {
	ts := timex.FormatISO(now)
	return r.query(ctx, `
		SELECT `+entryColumns+` FROM outbox
		WHERE parked = 0 AND next_retry_at <= ?
		  AND seq < COALESCE((SELECT MIN(seq) FROM outbox WHERE parked = 0 AND next_retry_at > ?), ?)
		ORDER BY seq LIMIT ?`,
		ts, ts, int64(math.MaxInt64), sqlLimit(limit))
}

func (r *SQLiteRepository) Ack(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE seq = ?`, seq); err != nil {
		return storageErr("ack", err)
	}
	return nil
}

func (r *SQLiteRepository) Reschedule(ctx context.Context, seq int64, retryCount int, next time.Time, lastErr string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET retry_count = ?, next_retry_at = ?, last_error = ? WHERE seq = ?`,
		retryCount, timex.FormatISO(next), lastErr, seq)
	if err != nil {
		return storageErr("reschedule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Park(ctx context.Context, seq int64, lastErr string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET parked = 1, retry_count = retry_count + 1, last_error = ? WHERE seq = ?`,
		lastErr, seq)
	if err != nil {
		return storageErr("park", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.OutboxEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list outbox", err)
	}
	defer rows.Close()

	var out []models.OutboxEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("scan outbox entry", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate outbox", err)
	}
	return out, nil
}

func scanEntry(rows *sql.Rows) (models.OutboxEntry, error) {
	var (
		e                  models.OutboxEntry
		op                 string
		payload            sql.NullString
		nextRetry, created string
	)
	err := rows.Scan(&e.Seq, &op, &e.RecordID, &e.RecordVersion, &payload, &e.IdempotencyKey,
		&e.RetryCount, &nextRetry, &e.LastError, &e.Parked, &created)
	if err != nil {
		return e, err
	}
	e.Operation = models.Operation(op)

	if payload.Valid {
		var p models.Payload
		if err := json.Unmarshal([]byte(payload.String), &p); err != nil {
			return e, fmt.Errorf("decode payload: %w", err)
		}
		e.Payload = &p
	}
	if e.NextRetryAt, err = timex.ParseISO(nextRetry); err != nil {
		return e, err
	}
	if e.CreatedAt, err = timex.ParseISO(created); err != nil {
		return e, err
	}
	return e, nil
}

// sqlLimit maps "no limit" to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
