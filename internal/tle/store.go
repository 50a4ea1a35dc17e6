package tle

import (
	"sync/atomic"
	"time"
)

// Store holds the current dataset. Readers never block; a reload swaps the
// whole snapshot.
type Store struct {
	dataset atomic.Pointer[Dataset]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *Dataset {
	return s.dataset.Load()
}

// Set replaces the current dataset.
func (s *Store) Set(ds *Dataset) {
	s.dataset.Store(ds)
}

// Lookup finds a satellite in the current dataset.
func (s *Store) Lookup(noradID int) (Entry, bool) {
	ds := s.dataset.Load()
	if ds == nil {
		return Entry{}, false
	}
	return ds.Lookup(noradID)
}

// AgeSeconds returns the age of the current dataset, or -1 when empty.
func (s *Store) AgeSeconds() float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.LoadedAt).Seconds()
}
