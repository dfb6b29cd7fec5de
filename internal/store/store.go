package store

import (
	"sync/atomic"
	"time"

	"cryptotracker/models"
)

// Snapshot is the view state published after each refresh attempt. Assets is
// the last successfully normalized collection; Err is the most recent failure
// and is cleared by the next success.
type Snapshot struct {
	Assets    models.MarketAssetCollection
	FetchedAt time.Time
	Err       error
	Attempted time.Time
}

// Stale reports whether the assets come from an earlier cycle than the last
// attempt.
func (s *Snapshot) Stale() bool {
	return s.Err != nil && !s.FetchedAt.IsZero()
}

// Store holds the current snapshot. Readers always observe exactly one
// complete collection.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func New() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{})
	return s
}

// Load returns the current snapshot. Callers must not modify it.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

func (s *Store) replace(assets models.MarketAssetCollection, at time.Time) *Snapshot {
	next := &Snapshot{Assets: assets, FetchedAt: at, Attempted: at}
	s.current.Store(next)
	return next
}

// fail publishes err while keeping the assets of the previous snapshot.
func (s *Store) fail(err error, at time.Time) *Snapshot {
	prev := s.current.Load()
	next := &Snapshot{Assets: prev.Assets, FetchedAt: prev.FetchedAt, Err: err, Attempted: at}
	s.current.Store(next)
	return next
}
