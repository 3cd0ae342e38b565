package trips

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/tripkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/tripkeeper/internal/testutil"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// testutilPostgres returns a migrated Postgres database or skips the test.
func testutilPostgres(t *testing.T) *sql.DB {
	t.Helper()
	db := testutil.NewPostgresDB(t)

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
	require.NoError(t, err)
	_, err = provider.Up(context.Background())
	require.NoError(t, err)
	return db
}
