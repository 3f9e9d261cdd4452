// Package library keeps the player's personal game collection.
//
// The whole collection is stored as one JSON list under a single key of a
// kvstore.Store. Every mutation writes the full list and only replaces the
// in-memory collection once that write has succeeded.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/kvstore"
	"github.com/ryanm101/gameshelf/internal/logging"
	"github.com/ryanm101/gameshelf/internal/metrics"
)

// DefaultKey is the storage key of the collection.
const DefaultKey = "@game_library"

// Option customizes a Store.
type Option func(*Store)

// WithKey stores the collection under key instead of DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock sets the time source for DateAdded.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the in-memory library backed by a kvstore.
type Store struct {
	kv  kvstore.Store
	key string
	now func() time.Time
	log *slog.Logger

	mu      sync.Mutex
	entries []Entry
	loading bool
}

// NewStore returns an empty store over kv. It reports Loading until Load runs.
func NewStore(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		key:     DefaultKey,
		now:     time.Now,
		loading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.With("component", "library", "key", s.key)
	return s
}

// Load reads the persisted collection. A missing blob is an empty library.
// A blob that cannot be read or decoded is logged and the store starts empty;
// the returned error wraps ErrPersistenceRead.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.loading = false }()

	s.entries = nil
	metrics.LibraryEntries.Set(0)

	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		s.log.Error("failed to load library", "error", err)
		return []Entry{}, entryErr("load", 0, fmt.Errorf("%w: %w", ErrPersistenceRead, err))
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Error("failed to decode library", "error", err, "bytes", len(data))
		return []Entry{}, entryErr("load", 0, fmt.Errorf("%w: %w", ErrPersistenceRead, err))
	}

	entries, dropped := dedupeEntries(entries)
	if dropped > 0 {
		s.log.Warn("dropped duplicate library entries", "dropped", dropped, "entries", len(entries))
	}

	s.entries = entries
	metrics.LibraryEntries.Set(float64(len(entries)))
	s.log.Debug("library loaded", "entries", len(entries))
	return s.snapshotLocked(), nil
}

// Loading reports whether Load has not finished yet.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Entries returns a copy of the collection in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StatusOf returns the entry for gameID, if any.
func (s *Store) StatusOf(gameID int) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(gameID); i >= 0 {
		return s.entries[i].clone(), true
	}
	return Entry{}, false
}

// Add appends game with details. It fails with ErrDuplicate when the game is
// already in the library.
func (s *Store) Add(ctx context.Context, game catalog.Item, d Details) (Entry, error) {
	if err := d.Validate(); err != nil {
		return Entry{}, entryErr("add", game.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(game.ID) >= 0 {
		return Entry{}, entryErr("add", game.ID, ErrDuplicate)
	}

	entry := Entry{Game: game, DateAdded: s.now().UTC()}.with(d)
	next := make([]Entry, 0, len(s.entries)+1)
	next = append(next, s.entries...)
	next = append(next, entry)

	if err := s.commitLocked(ctx, next); err != nil {
		return Entry{}, entryErr("add", game.ID, err)
	}
	s.log.Info("game added", "game", game.ID, "name", game.Name, "status", entry.Status)
	return entry.clone(), nil
}

// Update replaces the status, rating and comment of an existing entry.
func (s *Store) Update(ctx context.Context, gameID int, d Details) (Entry, error) {
	if err := d.Validate(); err != nil {
		return Entry{}, entryErr("update", gameID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(gameID)
	if i < 0 {
		return Entry{}, entryErr("update", gameID, ErrNotFound)
	}

	next := append([]Entry(nil), s.entries...)
	next[i] = next[i].with(d)

	if err := s.commitLocked(ctx, next); err != nil {
		return Entry{}, entryErr("update", gameID, err)
	}
	s.log.Info("game updated", "game", gameID, "status", next[i].Status)
	return next[i].clone(), nil
}

// Remove deletes the entry for gameID. Removing a game that is not in the
// library reports false and writes nothing.
func (s *Store) Remove(ctx context.Context, gameID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(gameID)
	if i < 0 {
		return false, nil
	}

	next := make([]Entry, 0, len(s.entries)-1)
	next = append(next, s.entries[:i]...)
	next = append(next, s.entries[i+1:]...)

	if err := s.commitLocked(ctx, next); err != nil {
		return false, entryErr("remove", gameID, err)
	}
	s.log.Info("game removed", "game", gameID)
	return true, nil
}

// Upsert adds game or, when it is already present, updates its details.
// The boolean reports whether a new entry was created.
func (s *Store) Upsert(ctx context.Context, game catalog.Item, d Details) (Entry, bool, error) {
	if _, ok := s.StatusOf(game.ID); ok {
		e, err := s.Update(ctx, game.ID, d)
		return e, false, err
	}
	e, err := s.Add(ctx, game, d)
	if errors.Is(err, ErrDuplicate) {
		// Added concurrently since the lookup.
		e, err = s.Update(ctx, game.ID, d)
		return e, false, err
	}
	return e, err == nil, err
}

// commitLocked writes next and makes it the current collection only if the
// write succeeds.
func (s *Store) commitLocked(ctx context.Context, next []Entry) error {
	data, err := json.Marshal(next)
	if err != nil {
		metrics.RecordLibraryWrite(err)
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		metrics.RecordLibraryWrite(err)
		s.log.Error("failed to save library", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	metrics.RecordLibraryWrite(nil)

	s.entries = next
	metrics.LibraryEntries.Set(float64(len(next)))
	return nil
}

func (s *Store) indexLocked(gameID int) int {
	for i := range s.entries {
		if s.entries[i].Game.ID == gameID {
			return i
		}
	}
	return -1
}

// dedupeEntries keeps one entry per game, the earliest added, at the position
// of the game's first entry.
func dedupeEntries(entries []Entry) ([]Entry, int) {
	seen := make(map[int]int, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		i, ok := seen[e.Game.ID]
		if !ok {
			seen[e.Game.ID] = len(out)
			out = append(out, e)
			continue
		}
		if e.DateAdded.Before(out[i].DateAdded) {
			out[i] = e
		}
	}
	return out, len(entries) - len(out)
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.clone()
	}
	return out
}
