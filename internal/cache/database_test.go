package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/leadflow/internal/database/testutil"
	"github.com/charlesng35/leadflow/internal/models"
)

func newDatabaseStore(t *testing.T) *DatabaseStore {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	return NewDatabaseStore(db)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "dashboard:stats", []byte(`{"leads":3}`), time.Minute))

	value, ok, err := store.Get(ctx, "dashboard:stats")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"leads":3}`, string(value))

	require.NoError(t, store.Set(ctx, "dashboard:stats", []byte(`{"leads":4}`), time.Minute))
	value, _, err = store.Get(ctx, "dashboard:stats")
	require.NoError(t, err)
	require.JSONEq(t, `{"leads":4}`, string(value))

	require.NoError(t, store.Delete(ctx, "dashboard:stats"))
	_, ok, err = store.Get(ctx, "dashboard:stats")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreIncrementUsesFixedWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := NewDatabaseStore(db, WithDatabaseClock(func() time.Time { return now }))
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rl:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	now = now.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "rl:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl)

	now = now.Add(time.Minute)
	count, ttl, err = store.IncrementWithTTL(ctx, "rl:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)
}

func TestDatabaseStoreGetHonoursClock(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := NewDatabaseStore(db, WithDatabaseClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "dashboard:stats", []byte("{}"), time.Minute))
	require.NoError(t, store.Set(ctx, "pinned", []byte("1"), 0))

	now = now.Add(2 * time.Minute)
	_, ok, err := store.Get(ctx, "dashboard:stats")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, "pinned")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNilDatabaseStore(t *testing.T) {
	var store *DatabaseStore
	require.Nil(t, NewDatabaseStore(nil))
	_, _, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	_, err = store.PurgeExpired(context.Background(), time.Now())
	require.Error(t, err)
}

func TestDatabaseStoreExpiredEntriesAreMisses(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.db.Create(&models.CacheEntry{
		Key:       "stale",
		Value:     []byte("x"),
		ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, store.Set(ctx, "fresh", []byte("y"), time.Hour))

	purged, err := store.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	store := newDatabaseStore(t)
	ctx := context.Background()

	type stats struct {
		Leads int `json:"leads"`
	}
	require.NoError(t, SetJSON(ctx, store, "stats", stats{Leads: 7}, time.Minute))

	var out stats
	ok, err := GetJSON(ctx, store, "stats", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, out.Leads)

	require.NoError(t, store.Set(ctx, "broken", []byte("{"), time.Minute))
	ok, err = GetJSON(ctx, store, "broken", &out)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = GetJSON(ctx, nil, "stats", &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, "a:b:c", normalizeKey("a::b:::c"))
	require.Equal(t, "", normalizeKey(""))
}
