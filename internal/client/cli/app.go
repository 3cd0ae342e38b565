package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/client"
	"github.com/dmitrijs2005/tripkeeper/internal/client/config"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories"
	"github.com/dmitrijs2005/tripkeeper/internal/client/services"
	"github.com/dmitrijs2005/tripkeeper/internal/filex"
	"github.com/dmitrijs2005/tripkeeper/internal/logging"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	trips  services.TripService
	// sync is nil when no remote is configured.
	sync services.SyncService

	reader *bufio.Reader
	out    io.Writer

	mu   sync.Mutex
	mode Mode

	// syncMu keeps the watcher and the sync command from pushing at once.
	syncMu sync.Mutex
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logFile, err := filex.EnsureParentDir(c.LogFile)
	if err != nil {
		return nil, err
	}
	logger := logging.NewFileLogger(logFile, c.LogLevel)

	dbPath, err := filex.EnsureParentDir(c.DatabasePath)
	if err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	repos := repositories.NewSQLiteManager()
	trips := services.NewTripService(db, repos,
		services.WithDefaultCompany(c.CompanyID),
		services.WithLogger(logger),
	)

	app := &App{
		config: c,
		logger: logger,
		db:     db,
		trips:  trips,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		mode:   ModeDisabled,
	}

	if c.RemoteDSN != "" {
		remote, err := client.NewPostgresClient(c.RemoteDSN)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		app.sync = services.NewSyncService(db, repos, trips, remote, services.SyncConfig{
			BatchSize: c.SyncBatchSize,
			Backoff:   services.ExponentialBackoff(c.RetryBaseDelay, services.DefaultMaxRetryDelay),
			Logger:    logger,
		})
		app.mode = ModeOffline
	}

	return app, nil
}

// Mode reports the current connectivity mode.
func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// setMode switches mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	a.logger.Info(context.Background(), "switched mode", "mode", mode)
	return true
}

// Run starts the online watcher next to the REPL and returns once the REPL
// ends. The watcher stops with it.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	if a.sync != nil {
		g.Go(func() error {
			a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		a.Root(ctx)
		return nil
	})

	err := g.Wait()
	cancel()
	return err
}

func (a *App) close() {
	if a.sync != nil {
		if err := a.sync.Close(); err != nil {
			a.logger.Warn(context.Background(), "close remote", "error", err)
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// StartOnlineStatusWatcher pings the backend every interval and pushes the
// outbox whenever the backend is reachable.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.sync.Ping(pingCtx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)

	a.syncMu.Lock()
	defer a.syncMu.Unlock()
	if _, _, err := a.sync.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn(ctx, "background sync failed", "error", err)
	}
}
