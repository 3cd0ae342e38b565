package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tripkeeper/internal/dbx"
	"github.com/dmitrijs2005/tripkeeper/internal/server/repositories/mutations"
	"github.com/dmitrijs2005/tripkeeper/internal/server/repositories/trips"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Trips(db dbx.DBTX) trips.Repository
	Mutations(db dbx.DBTX) mutations.Repository
}
