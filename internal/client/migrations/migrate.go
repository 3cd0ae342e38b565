package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// Up applies every pending migration to db. A nil logger keeps goose quiet.
func Up(ctx context.Context, db *sql.DB, logger goose.Logger) error {
	var opts []goose.ProviderOption
	if logger != nil {
		opts = append(opts, goose.WithLogger(logger), goose.WithVerbose(true))
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, Migrations, opts...)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
