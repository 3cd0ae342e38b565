package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/dmitrijs2005/tripkeeper/internal/client/client"
	"github.com/dmitrijs2005/tripkeeper/internal/client/models"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories"
	"github.com/dmitrijs2005/tripkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tripkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	client.Client

	applied []string
	failOn  map[string]error

	feed       []models.Payload // revision = index + 1
	fetchCalls []int64

	closed bool
}

func (f *fakeRemote) Apply(ctx context.Context, e models.OutboxEntry) error {
	if err := f.failOn[e.IdempotencyKey]; err != nil {
		return err
	}
	f.applied = append(f.applied, e.IdempotencyKey)
	return nil
}

func (f *fakeRemote) Fetch(ctx context.Context, company string, since int64, limit int) ([]models.Payload, int64, error) {
	f.fetchCalls = append(f.fetchCalls, since)
	var out []models.Payload
	next := since
	for i, p := range f.feed {
		rev := int64(i + 1)
		if rev <= since || p.CompanyID != company {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, p)
		next = rev
	}
	return out, next, nil
}

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }

func (f *fakeRemote) Close() error {
	f.closed = true
	return nil
}

var syncNow = t0.Add(time.Hour)

func newSync(t *testing.T, remote *fakeRemote, batch int) (SyncService, TripService) {
	t.Helper()
	trips, db, _ := newTripService(t)
	svc := NewSyncService(db, repositories.NewSQLiteManager(), trips, remote, SyncConfig{
		BatchSize: batch,
		Backoff:   func(retry int) time.Duration { return time.Duration(retry) * time.Minute },
		Clock:     func() time.Time { return syncNow },
	})
	return svc, trips
}

func TestPush_AppliesInOrderAndMarksSynced(t *testing.T) {
	remote := &fakeRemote{}
	sync, trips := newSync(t, remote, 2)
	ctx := context.Background()

	a, err := trips.Create(ctx, models.NewTrip{StartCounter: 1})
	require.NoError(t, err)
	b, err := trips.Create(ctx, models.NewTrip{StartCounter: 2})
	require.NoError(t, err)
	_, err = trips.Update(ctx, a.ID, models.TripPatch{Origin: models.Ptr("Depot")})
	require.NoError(t, err)

	res, err := sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, PushResult{Applied: 3}, res)
	assert.Equal(t, []string{
		models.MutationKey(a.ID, 1),
		models.MutationKey(b.ID, 1),
		models.MutationKey(a.ID, 2),
	}, remote.applied)

	n, err := trips.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, id := range []string{a.ID, b.ID} {
		got, err := trips.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.SyncSynced, got.SyncStatus, id)
	}
}

func TestPush_FailureReschedulesAndStops(t *testing.T) {
	a1 := "trip-001:1"
	remote := &fakeRemote{failOn: map[string]error{
		"trip-002:1": fmt.Errorf("dial: %w", client.ErrUnavailable),
	}}
	sync, trips := newSync(t, remote, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := trips.Create(ctx, models.NewTrip{StartCounter: float64(i)})
		require.NoError(t, err)
	}

	res, err := sync.Push(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, PushResult{Applied: 1, Failed: 1}, res)
	assert.Equal(t, []string{a1}, remote.applied)

	queued, err := trips.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	failed := queued[0]
	assert.Equal(t, "trip-002:1", failed.IdempotencyKey)
	assert.Equal(t, 1, failed.RetryCount)
	assert.True(t, syncNow.Add(time.Minute).Equal(failed.NextRetryAt))
	assert.Contains(t, failed.LastError, "server unavailable")

	got, err := trips.Get(ctx, "trip-002")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, got.SyncStatus)
	assert.Contains(t, got.LastSyncError, "server unavailable")

	// the later entry waits behind the failed one
	res, err = sync.Push(ctx)
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Equal(t, []string{a1}, remote.applied)
}

func TestPush_RecoversAfterBackoff(t *testing.T) {
	remote := &fakeRemote{failOn: map[string]error{"trip-001:1": client.ErrUnavailable}}
	trips, db, _ := newTripService(t)
	now := syncNow
	sync := NewSyncService(db, repositories.NewSQLiteManager(), trips, remote, SyncConfig{
		Backoff: func(int) time.Duration { return time.Minute },
		Clock:   func() time.Time { return now },
	})
	ctx := context.Background()

	trip, err := trips.Create(ctx, models.NewTrip{StartCounter: 1})
	require.NoError(t, err)
	_, err = sync.Push(ctx)
	require.Error(t, err)

	delete(remote.failOn, "trip-001:1")
	now = now.Add(time.Minute)

	res, err := sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	got, err := trips.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
	assert.Empty(t, got.LastSyncError)
}

func TestPush_StaleAckLeavesNewerEditPending(t *testing.T) {
	remote := &fakeRemote{failOn: map[string]error{"trip-001:2": client.ErrUnavailable}}
	sync, trips := newSync(t, remote, 10)
	ctx := context.Background()

	trip, err := trips.Create(ctx, models.NewTrip{StartCounter: 1})
	require.NoError(t, err)
	_, err = trips.Update(ctx, trip.ID, models.TripPatch{Origin: models.Ptr("x")})
	require.NoError(t, err)

	_, err = sync.Push(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)

	got, err := trips.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Version)
	assert.Equal(t, models.SyncPending, got.SyncStatus)
}

func TestPush_RejectedEntryIsParked(t *testing.T) {
	remote := &fakeRemote{failOn: map[string]error{
		"trip-001:1": fmt.Errorf("insert trip: %w", client.ErrRejected),
	}}
	sync, trips := newSync(t, remote, 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := trips.Create(ctx, models.NewTrip{StartCounter: float64(i)})
		require.NoError(t, err)
	}

	res, err := sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, PushResult{Applied: 1, Parked: 1}, res)
	assert.Equal(t, []string{"trip-002:1"}, remote.applied)

	queued, err := trips.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "trip-001:1", queued[0].IdempotencyKey)
	assert.True(t, queued[0].Parked)
	assert.Contains(t, queued[0].LastError, "server rejected mutation")

	got, err := trips.Get(ctx, "trip-001")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, got.SyncStatus)
	assert.Contains(t, got.LastSyncError, "server rejected mutation")

	// parked entries are not retried and do not hold back new ones
	delete(remote.failOn, "trip-001:1")
	_, err = trips.Create(ctx, models.NewTrip{StartCounter: 5})
	require.NoError(t, err)

	res, err = sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, PushResult{Applied: 1}, res)
	assert.Equal(t, []string{"trip-002:1", "trip-003:1"}, remote.applied)
}

func TestPush_DeleteEntry(t *testing.T) {
	remote := &fakeRemote{}
	sync, trips := newSync(t, remote, 10)
	ctx := context.Background()

	trip, err := trips.Create(ctx, models.NewTrip{StartCounter: 1})
	require.NoError(t, err)
	_, err = trips.Delete(ctx, trip.ID)
	require.NoError(t, err)

	_, err = sync.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"trip-001:1", "trip-001:delete"}, remote.applied)

	got, err := trips.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, got.Status)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
}

func TestPull_MergesFeedAndAdvancesCursor(t *testing.T) {
	remote := &fakeRemote{}
	for i := 1; i <= 5; i++ {
		company := "c1"
		if i == 3 {
			company = "other"
		}
		remote.feed = append(remote.feed, models.Payload{
			ID:           fmt.Sprintf("r%d", i),
			CompanyID:    company,
			StartCounter: float64(i),
			StartedAt:    t0,
			Status:       models.StatusInProgress,
			CreatedAt:    t0,
			UpdatedAt:    t0,
		})
	}
	sync, trips := newSync(t, remote, 2)
	ctx := context.Background()

	n, err := sync.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int64{0, 2, 5}, remote.fetchCalls)

	page, err := trips.List(ctx, models.ListQuery{PageSize: 10})
	require.NoError(t, err)
	var ids []string
	for _, it := range page.Items {
		ids = append(ids, it.ID)
		assert.Equal(t, models.SyncSynced, it.SyncStatus)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"r1", "r2", "r4", "r5"}, ids)

	n, err = sync.Pull(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(5), remote.fetchCalls[len(remote.fetchCalls)-1])
}

func TestPull_ResumesFromStoredCursor(t *testing.T) {
	remote := &fakeRemote{}
	trips, db, _ := newTripService(t)
	repos := repositories.NewSQLiteManager()
	require.NoError(t, metadata.SetCursor(context.Background(), repos.Metadata(db), "c1", 41))

	sync := NewSyncService(db, repos, trips, remote, SyncConfig{})
	_, err := sync.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{41}, remote.fetchCalls)
}

func TestResync_RefetchesWholeFeed(t *testing.T) {
	remote := &fakeRemote{feed: []models.Payload{{
		ID:           "r1",
		CompanyID:    "c1",
		StartCounter: 1,
		StartedAt:    t0,
		Status:       models.StatusInProgress,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}}}
	sync, _ := newSync(t, remote, 10)
	ctx := context.Background()

	n, err := sync.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sync.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{0, 0}, remote.fetchCalls)

	_, err = sync.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 1}, remote.fetchCalls)
}

func TestPull_NeedsCompany(t *testing.T) {
	remote := &fakeRemote{}
	sync, _ := newSync(t, remote, 10)
	s := sync.(*syncService)
	s.cfg.CompanyID = ""

	_, err := s.Pull(context.Background())
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, remote.fetchCalls)
}

func TestSync_PushErrorSkipsPull(t *testing.T) {
	remote := &fakeRemote{failOn: map[string]error{"trip-001:1": client.ErrUnavailable}}
	sync, trips := newSync(t, remote, 10)
	ctx := context.Background()

	_, err := trips.Create(ctx, models.NewTrip{StartCounter: 1})
	require.NoError(t, err)

	_, _, err = sync.Sync(ctx)
	require.True(t, errors.Is(err, client.ErrUnavailable))
	assert.Empty(t, remote.fetchCalls)

	require.NoError(t, sync.Close())
	assert.True(t, remote.closed)
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(2*time.Second, time.Minute)
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-1, 2 * time.Second},
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{3, 16 * time.Second},
		{5, time.Minute},
		{200, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b(tt.retry), "retry %d", tt.retry)
	}
}
