package repositories

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ellievs/covermatch/internal/models"
)

// MemoryStore is an in-process models.MappingStore backed by a map.
//
// Safe for concurrent use. Used in tests and wherever durable persistence is
// not required.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]models.Mapping
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]models.Mapping)}
}

// Get returns the mapping for a song ID, or (nil, nil) when none exists.
func (s *MemoryStore) Get(songID string) (*models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.mappings[songID]
	if !ok {
		return nil, nil
	}
	copied := mapping
	return &copied, nil
}

// Put stores a copy of the mapping keyed by its song ID.
func (s *MemoryStore) Put(mapping *models.Mapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[mapping.SongID] = *mapping
	return nil
}

// Delete removes the mapping for a song ID.
func (s *MemoryStore) Delete(songID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mappings[songID]; !ok {
		return fmt.Errorf("mapping not found: %s", songID)
	}
	delete(s.mappings, songID)
	return nil
}

// All returns every stored mapping ordered by song ID.
func (s *MemoryStore) All() ([]*models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mappings := make([]*models.Mapping, 0, len(s.mappings))
	for _, mapping := range s.mappings {
		copied := mapping
		mappings = append(mappings, &copied)
	}

	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].SongID < mappings[j].SongID
	})

	return mappings, nil
}

// Clear removes all mappings.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = make(map[string]models.Mapping)
	return nil
}
