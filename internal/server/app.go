// Package server bootstraps the authoritative backend store: it connects to
// PostgreSQL and brings the schema up to date.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/tripkeeper/internal/logging"
	"github.com/dmitrijs2005/tripkeeper/internal/server/config"
	"github.com/dmitrijs2005/tripkeeper/internal/server/repositories/repomanager"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager repomanager.RepositoryManager
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(c *config.Config) *App {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	return newApp(c, logger, repomanager.NewPostgresRepositoryManager(logger))
}

func newApp(c *config.Config, logger logging.Logger, m repomanager.RepositoryManager) *App {
	return &App{config: c, logger: logger, manager: m}
}

// Run connects, migrates and returns. The context bounds the whole run on
// top of the configured connect timeout.
func (app *App) Run(ctx context.Context) error {
	if app.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.config.ConnectTimeout)
		defer cancel()
	}

	app.logger.Info(ctx, "starting schema bootstrap")

	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	if err := app.manager.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.logger.Info(ctx, "schema is up to date")
	return nil
}
