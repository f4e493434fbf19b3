package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gangwalrachit/SpotiSpy/internal/models"
)

// MemoryIdentityStore implements [models.IdentityStore] with an in-process map.
//
// Records are copied on write and read so callers never share memory with the
// store; a reader observes either the pre- or post-upsert record, never a torn
// mixture.
type MemoryIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]models.Identity
}

// NewMemoryIdentityStore creates an empty [MemoryIdentityStore].
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{identities: make(map[string]models.Identity)}
}

// Upsert inserts or replaces the record for identity.ID.
func (s *MemoryIdentityStore) Upsert(ctx context.Context, identity *models.Identity) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := *identity
	record.UpdatedAt = time.Now().UTC()
	if existing, ok := s.identities[identity.ID]; ok {
		record.CreatedAt = existing.CreatedAt
	}
	s.identities[identity.ID] = record

	return nil
}

// Get retrieves an identity by id, returning (nil, nil) when no record exists.
func (s *MemoryIdentityStore) Get(ctx context.Context, id string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.identities[id]
	if !ok {
		return nil, nil
	}

	out := record
	return &out, nil
}

// List retrieves all identities ordered by creation time.
func (s *MemoryIdentityStore) List(ctx context.Context) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identities := make([]*models.Identity, 0, len(s.identities))
	for _, record := range s.identities {
		out := record
		identities = append(identities, &out)
	}

	sort.Slice(identities, func(i, j int) bool {
		return identities[i].CreatedAt.Before(identities[j].CreatedAt)
	})

	return identities, nil
}
