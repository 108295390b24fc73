package tokenstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore emulates the Redis backend's TTL semantics in process
// memory: each entry carries an absolute expiry checked lazily on
// read, with delete-on-read when expired. Stale never-read keys are
// functionally inert and reclaimed by Sweep.
//
// It trades durability for availability: entries vanish on restart,
// which for this store only means users re-authenticate.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) set(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
}

// get returns the live value for key, deleting it first if expired.
func (s *MemoryStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", false
	}
	return entry.value, true
}

func (s *MemoryStore) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) SetRefresh(_ context.Context, userID, token string, ttl time.Duration) error {
	s.set(refreshKey(userID), token, ttl)
	return nil
}

func (s *MemoryStore) GetRefresh(_ context.Context, userID string) (string, error) {
	val, ok := s.get(refreshKey(userID))
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *MemoryStore) DeleteRefresh(_ context.Context, userID string) error {
	s.delete(refreshKey(userID))
	return nil
}

func (s *MemoryStore) Blacklist(_ context.Context, token string, ttl time.Duration) error {
	s.set(blacklistKey(token), "true", ttl)
	return nil
}

func (s *MemoryStore) IsBlacklisted(_ context.Context, token string) (bool, error) {
	_, ok := s.get(blacklistKey(token))
	return ok, nil
}

// Sweep removes every expired entry. Lazy expiry already keeps the
// store correct; Sweep only reclaims memory held by keys nobody reads
// again, so it is scheduled best-effort from the process cron.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
