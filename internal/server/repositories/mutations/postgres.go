// Package mutations keeps the idempotency ledger of applied client mutations.
package mutations

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, key, recordID, operation string) (bool, error) {
	query := `
		INSERT INTO applied_mutations (idempotency_key, record_id, operation)
		VALUES ($1, $2, $3)
		ON CONFLICT (idempotency_key) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query, key, recordID, operation)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}
