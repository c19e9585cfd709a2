package export

import (
	"sync"

	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// Store holds the most recent search results so they can be saved to a
// file after the fact. There is one writer per search request;
// last write wins, and that is acceptable for this auxiliary feature.
type Store struct {
	mu      sync.Mutex
	records []types.Record
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored collection.
func (s *Store) Set(records []types.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
}

// Latest returns a copy of the stored collection.
func (s *Store) Latest() []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Record, len(s.records))
	copy(out, s.records)
	return out
}
