package library

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/kvstore"
)

// flakyKV counts writes and fails them on demand.
type flakyKV struct {
	kvstore.Store
	puts    atomic.Int32
	failPut atomic.Bool
	failGet error
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyKV) Put(ctx context.Context, key string, value []byte) error {
	f.puts.Add(1)
	if f.failPut.Load() {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func newKV(t *testing.T) *flakyKV {
	t.Helper()
	fs, err := kvstore.NewFileStore(afero.NewMemMapFs(), "/lib")
	require.NoError(t, err)
	return &flakyKV{Store: fs}
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, kv kvstore.Store) *Store {
	t.Helper()
	s := NewStore(kv, WithClock(func() time.Time { return fixedNow }))
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	return s
}

func game(id int) catalog.Item {
	return catalog.Item{ID: id, Name: "Game"}
}

func TestStore_AddThenStatusOf(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newKV(t))

	_, ok := s.StatusOf(42)
	assert.False(t, ok)

	entry, err := s.Add(ctx, game(42), Details{Status: StatusBacklog})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, entry.DateAdded)

	got, ok := s.StatusOf(42)
	require.True(t, ok)
	assert.Equal(t, StatusBacklog, got.Status)
	assert.Equal(t, fixedNow, got.DateAdded)
	assert.Nil(t, got.Rating)
}

func TestStore_DuplicateAddThenUpdate(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	s := newStore(t, kv)

	_, err := s.Add(ctx, game(42), Details{Status: StatusBacklog})
	require.NoError(t, err)

	_, err = s.Add(ctx, catalog.Item{ID: 42, Name: "Other"}, Details{Status: StatusPlaying})
	require.ErrorIs(t, err, ErrDuplicate)
	var ee *EntryError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "add", ee.Op)
	assert.Equal(t, 42, ee.GameID)
	assert.Equal(t, 1, s.Len(), "at most one entry per game")
	assert.Equal(t, int32(1), kv.puts.Load())

	later := fixedNow.Add(48 * time.Hour)
	s.now = func() time.Time { return later }

	updated, err := s.Update(ctx, 42, Details{Status: StatusPlayed, Rating: Rating(9.5), Comment: " great "})
	require.NoError(t, err)
	assert.Equal(t, StatusPlayed, updated.Status)
	assert.Equal(t, 9.5, *updated.Rating)
	assert.Equal(t, "great", updated.Comment)
	assert.Equal(t, fixedNow, updated.DateAdded)
	assert.Equal(t, "Game", updated.Game.Name, "snapshot is never refreshed")
}

func TestStore_UpdateClearsRating(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newKV(t))

	_, err := s.Add(ctx, game(1), Details{Status: StatusPlaying, Rating: Rating(7), Comment: "hmm"})
	require.NoError(t, err)

	e, err := s.Update(ctx, 1, Details{Status: StatusDropped})
	require.NoError(t, err)
	assert.Nil(t, e.Rating)
	assert.Empty(t, e.Comment)
}

func TestStore_UpdateMissing(t *testing.T) {
	s := newStore(t, newKV(t))
	_, err := s.Update(context.Background(), 9, Details{Status: StatusPlayed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RemoveAbsentWritesNothing(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	s := newStore(t, kv)

	_, err := s.Add(ctx, game(1), Details{Status: StatusBacklog})
	require.NoError(t, err)
	before, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	writes := kv.puts.Load()

	removed, err := s.Remove(ctx, 999)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, writes, kv.puts.Load())

	after, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	removed, err = s.Remove(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Zero(t, s.Len())

	removed, err = s.Remove(ctx, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_PersistsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	s := newStore(t, kv)

	for _, id := range []int{3, 1, 2} {
		_, err := s.Add(ctx, game(id), Details{Status: StatusBacklog})
		require.NoError(t, err)
	}
	_, err := s.Remove(ctx, 1)
	require.NoError(t, err)

	reloaded := NewStore(kv)
	assert.True(t, reloaded.Loading())
	entries, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded.Loading())

	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Game.ID)
	assert.Equal(t, 2, entries[1].Game.ID)
	assert.Equal(t, fixedNow, entries[0].DateAdded)
}

func TestStore_BlobShape(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	s := newStore(t, kv)

	score := 88
	_, err := s.Add(ctx, catalog.Item{ID: 7, Name: "Hades", Metacritic: &score}, Details{Status: StatusPlayed, Rating: Rating(10)})
	require.NoError(t, err)

	blob, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"game": {"id": 7, "name": "Hades", "metacritic": 88},
		"status": "played",
		"rating": 10,
		"dateAdded": "2024-05-01T12:00:00Z"
	}]`, string(blob))
}

func TestStore_LoadCorrupted(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(`{not json`)))

	s := NewStore(kv)
	entries, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrPersistenceRead)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
	assert.False(t, s.Loading())

	_, err = s.Add(ctx, game(1), Details{Status: StatusBacklog})
	assert.NoError(t, err, "store stays usable")
}

func TestStore_LoadCollapsesDuplicateGames(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	blob := `[
		{"game":{"id":42,"name":"Hades"},"status":"backlog","dateAdded":"2024-01-02T00:00:00Z"},
		{"game":{"id":7,"name":"Celeste"},"status":"played","dateAdded":"2024-01-03T00:00:00Z"},
		{"game":{"id":42,"name":"Hades"},"status":"played","dateAdded":"2024-01-05T00:00:00Z"},
		{"game":{"id":7,"name":"Celeste"},"status":"dropped","dateAdded":"2024-01-01T00:00:00Z"}
	]`
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte(blob)))

	s := NewStore(kv)
	entries, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 42, entries[0].Game.ID)
	assert.Equal(t, StatusBacklog, entries[0].Status)
	assert.Equal(t, 7, entries[1].Game.ID)
	assert.Equal(t, StatusDropped, entries[1].Status, "earliest added wins")

	removed, err := s.Remove(ctx, 42)
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok := s.StatusOf(42)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	reloaded := NewStore(kv)
	entries, err = reloaded.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 7, entries[0].Game.ID)
}

func TestStore_LoadReadFailure(t *testing.T) {
	kv := newKV(t)
	kv.failGet = errors.New("io error")

	s := NewStore(kv)
	entries, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceRead)
	assert.Empty(t, entries)
}

func TestStore_WriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	s := newStore(t, kv)

	_, err := s.Add(ctx, game(1), Details{Status: StatusPlaying, Rating: Rating(6)})
	require.NoError(t, err)
	_, err = s.Add(ctx, game(2), Details{Status: StatusBacklog})
	require.NoError(t, err)
	before := s.Entries()

	kv.failPut.Store(true)

	_, err = s.Add(ctx, game(3), Details{Status: StatusBacklog})
	assert.ErrorIs(t, err, ErrPersistenceWrite)

	_, err = s.Update(ctx, 1, Details{Status: StatusPlayed, Rating: Rating(9)})
	assert.ErrorIs(t, err, ErrPersistenceWrite)

	removed, err := s.Remove(ctx, 2)
	assert.ErrorIs(t, err, ErrPersistenceWrite)
	assert.False(t, removed)

	assert.Equal(t, before, s.Entries())

	kv.failPut.Store(false)
	reloaded := NewStore(kv)
	entries, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, entries)
}

func TestStore_RejectsInvalidDetails(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	s := newStore(t, kv)

	tests := []struct {
		name string
		d    Details
	}{
		{"empty status", Details{}},
		{"unknown status", Details{Status: "finished"}},
		{"negative rating", Details{Status: StatusPlayed, Rating: Rating(-1)}},
		{"rating above ten", Details{Status: StatusPlayed, Rating: Rating(10.5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(ctx, game(1), tt.d)
			assert.ErrorIs(t, err, ErrInvalidArg)
		})
	}
	assert.Zero(t, kv.puts.Load())
}

func TestStore_StatusNormalized(t *testing.T) {
	s := newStore(t, newKV(t))
	e, err := s.Add(context.Background(), game(1), Details{Status: "Playing"})
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, e.Status)
}

func TestStore_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newKV(t))

	_, created, err := s.Upsert(ctx, game(5), Details{Status: StatusBacklog})
	require.NoError(t, err)
	assert.True(t, created)

	e, created, err := s.Upsert(ctx, game(5), Details{Status: StatusPlaying})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, StatusPlaying, e.Status)
	assert.Equal(t, 1, s.Len())
}

func TestStore_EntriesAreCopies(t *testing.T) {
	s := newStore(t, newKV(t))
	_, err := s.Add(context.Background(), game(1), Details{Status: StatusPlayed, Rating: Rating(5)})
	require.NoError(t, err)

	entries := s.Entries()
	*entries[0].Rating = 1
	entries[0].Status = StatusDropped

	got, _ := s.StatusOf(1)
	assert.Equal(t, 5.0, *got.Rating)
	assert.Equal(t, StatusPlayed, got.Status)
}

func TestStore_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	kv, err := kvstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "lib.db"))
	require.NoError(t, err)
	defer kv.Close()

	s := newStore(t, kv)
	_, err = s.Add(ctx, game(11), Details{Status: StatusPlaying})
	require.NoError(t, err)

	entries, err := NewStore(kv).Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 11, entries[0].Game.ID)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" BACKLOG ")
	require.NoError(t, err)
	assert.Equal(t, StatusBacklog, st)

	_, err = ParseStatus("wishlist")
	assert.ErrorIs(t, err, ErrInvalidArg)
}
