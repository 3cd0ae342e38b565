// Package repositories vends the SQLite-backed client repositories bound to
// either the database handle or an open transaction.
package repositories

import (
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories/trips"
	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
)

type Manager interface {
	Trips(db dbx.DBTX) trips.Store
	Outbox(db dbx.DBTX) outbox.Outbox
	Metadata(db dbx.DBTX) metadata.Repository
}

// SQLiteManager is the Manager used in production and in tests.
type SQLiteManager struct{}

func NewSQLiteManager() *SQLiteManager {
	return &SQLiteManager{}
}

// Trips returns a trips.Store bound to the provided DBTX.
func (m *SQLiteManager) Trips(db dbx.DBTX) trips.Store {
	return trips.NewSQLiteStore(db)
}

// Outbox returns an outbox.Outbox bound to the provided DBTX.
func (m *SQLiteManager) Outbox(db dbx.DBTX) outbox.Outbox {
	return outbox.NewSQLiteRepository(db)
}

// Metadata returns a metadata.Repository bound to the provided DBTX.
func (m *SQLiteManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}
