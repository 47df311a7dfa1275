package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps live records in a mutex-guarded map. Expiry is enforced
// on read; SweepExpired bounds memory between reads and is expected to be
// run both opportunistically on issue and on a schedule.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(ctx context.Context, phone string, record Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[phone] = record
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, phone string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[phone]
	if !ok {
		return nil, nil
	}

	copied := record
	return &copied, nil
}

func (s *MemoryStore) Delete(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, phone)
	return nil
}

func (s *MemoryStore) SweepExpired(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for phone, record := range s.records {
		if now.After(record.ExpiresAt) {
			delete(s.records, phone)
			removed++
		}
	}
	return removed
}
