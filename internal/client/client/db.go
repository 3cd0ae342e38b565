package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tripkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/tripkeeper/internal/logging"

	_ "modernc.org/sqlite"
)

// RunMigrations applies the embedded goose migrations to the local database.
func RunMigrations(ctx context.Context, db *sql.DB, logger logging.Logger) error {
	if logger == nil {
		return migrations.Up(ctx, db, nil)
	}
	return migrations.Up(ctx, db, logging.GooseLogger{L: logger})
}

// InitDatabase opens the SQLite file at dsn and brings its schema up to date.
// The handle is limited to one connection so that every operation runs
// serialized against the file.
func InitDatabase(ctx context.Context, dsn string, logger logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure %s: %w", dsn, err)
	}

	if err := RunMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
