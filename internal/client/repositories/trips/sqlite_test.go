package trips

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/dmitrijs2005/tripkeeper/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTrip(id, company string, status models.TripStatus, startedAt time.Time) *models.Trip {
	t := &models.Trip{
		ID:              id,
		CompanyID:       company,
		VehicleID:       "v1",
		VehicleLabel:    "Truck 1",
		DriverMatricula: "m1",
		DriverName:      "Ana",
		StartCounter:    100,
		Origin:          "Depot",
		StartedAt:       startedAt,
		Status:          status,
		CreatedAt:       startedAt,
		UpdatedAt:       startedAt,
		Version:         1,
		SyncStatus:      models.SyncPending,
	}
	if status == models.StatusCompleted {
		end := 150.5
		done := startedAt.Add(time.Hour)
		t.EndCounter = &end
		t.CompletedAt = &done
		t.Destination = "Port"
	}
	return t
}

func collect(t *testing.T, c Cursor) []string {
	t.Helper()
	defer c.Close()
	var ids []string
	for c.Next() {
		ids = append(ids, c.Trip().ID)
	}
	require.NoError(t, c.Err())
	return ids
}

func TestPutAndGet_RoundTrip(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	in := newTrip("t1", "c1", models.StatusCompleted, base)
	in.LastSyncError = "boom"
	require.NoError(t, s.Put(ctx, in))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPut_ReplacesExisting(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	tr := newTrip("t1", "c1", models.StatusInProgress, base)
	require.NoError(t, s.Put(ctx, tr))

	tr.Origin = "Yard"
	tr.Version = 2
	require.NoError(t, s.Put(ctx, tr))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Yard", got.Origin)
	assert.EqualValues(t, 2, got.Version)
	assert.Nil(t, got.EndCounter)
	assert.Nil(t, got.CompletedAt)
}

func TestPut_RejectsInvalidTrip(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	tr := newTrip("t1", "", models.StatusInProgress, base)
	err := s.Put(ctx, tr)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Get(ctx, "t1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_NotFound(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))

	got, err := s.Get(context.Background(), "absent")
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Nil(t, got)
}

func TestGet_ClosedDBIsStorageFailure(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s := NewSQLiteStore(db)
	require.NoError(t, db.Close())

	_, err := s.Get(context.Background(), "t1")
	require.ErrorIs(t, err, common.ErrStorageFailure)
}

func TestPutIfVersion(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	tr := newTrip("t1", "c1", models.StatusInProgress, base)
	require.NoError(t, s.Put(ctx, tr))

	next := *tr
	next.Version = 2
	next.Origin = "Yard"
	require.NoError(t, s.PutIfVersion(ctx, &next, 1))

	stale := *tr
	stale.Version = 2
	stale.Origin = "Elsewhere"
	err := s.PutIfVersion(ctx, &stale, 1)
	require.ErrorIs(t, err, common.ErrVersionConflict)

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Yard", got.Origin)

	missing := newTrip("nope", "c1", models.StatusInProgress, base)
	require.ErrorIs(t, s.PutIfVersion(ctx, missing, 1), common.ErrorNotFound)
}

func TestOpenCursor_CompanyIndexOrdersByStart(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newTrip("a", "c1", models.StatusInProgress, base.Add(2*time.Hour))))
	require.NoError(t, s.Put(ctx, newTrip("b", "c1", models.StatusCompleted, base)))
	require.NoError(t, s.Put(ctx, newTrip("c", "c1", models.StatusInProgress, base.Add(time.Hour))))
	require.NoError(t, s.Put(ctx, newTrip("d", "c2", models.StatusInProgress, base)))

	c, err := s.OpenCursor(ctx, IndexCompany, Only("c1"), models.Asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, collect(t, c))

	c, err = s.OpenCursor(ctx, IndexCompany, Only("c1"), models.Desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, collect(t, c))
}

func TestOpenCursor_CompoundIndexRange(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newTrip("a", "c1", models.StatusCompleted, base.Add(2*time.Hour))))
	require.NoError(t, s.Put(ctx, newTrip("b", "c1", models.StatusCompleted, base)))
	require.NoError(t, s.Put(ctx, newTrip("c", "c1", models.StatusInProgress, base.Add(time.Hour))))
	require.NoError(t, s.Put(ctx, newTrip("d", "c2", models.StatusCompleted, base)))

	kr := Bound(
		[]string{"c1", string(models.StatusCompleted), ""},
		[]string{"c1", string(models.StatusCompleted), MaxKey},
	)

	c, err := s.OpenCursor(ctx, IndexCompanyStatusStarted, kr, models.Desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, collect(t, c))

	c, err = s.OpenCursor(ctx, IndexCompanyStatusCompleted, kr, models.Asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, collect(t, c))
}

func TestOpenCursor_CompletedIndexSkipsOpenTrips(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newTrip("a", "c1", models.StatusInProgress, base)))

	kr := Bound(
		[]string{"c1", string(models.StatusInProgress), ""},
		[]string{"c1", string(models.StatusInProgress), MaxKey},
	)
	c, err := s.OpenCursor(ctx, IndexCompanyStatusCompleted, kr, models.Asc)
	require.NoError(t, err)
	assert.Empty(t, collect(t, c))
}

func TestOpenCursor_AllAndUnknownIndex(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newTrip("b", "c2", models.StatusInProgress, base)))
	require.NoError(t, s.Put(ctx, newTrip("a", "c1", models.StatusInProgress, base)))

	c, err := s.OpenCursor(ctx, IndexPrimary, All(), models.Asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, collect(t, c))

	_, err = s.OpenCursor(ctx, Index("bogus"), All(), models.Asc)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = s.OpenCursor(ctx, IndexPrimary, Only("a", "b"), models.Asc)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestCursor_CloseIsIdempotent(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, newTrip("a", "c1", models.StatusInProgress, base)))

	c, err := s.OpenCursor(ctx, IndexPrimary, All(), models.Asc)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.Next())
}

func TestMarkSynced_OnlyMatchingVersion(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	tr := newTrip("t1", "c1", models.StatusInProgress, base)
	tr.Version = 3
	tr.LastSyncError = "timeout"
	require.NoError(t, s.Put(ctx, tr))

	ok, err := s.MarkSynced(ctx, "t1", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, got.SyncStatus)

	ok, err = s.MarkSynced(ctx, "t1", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
	assert.Empty(t, got.LastSyncError)
}

func TestSetSyncError(t *testing.T) {
	s := NewSQLiteStore(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newTrip("t1", "c1", models.StatusInProgress, base)))
	require.NoError(t, s.SetSyncError(ctx, "t1", "backend unavailable"))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "backend unavailable", got.LastSyncError)
	assert.Equal(t, models.SyncPending, got.SyncStatus)
}
