package memory

import (
	"context"
	"sync"

	appoutbox "hostal/internal/app/outbox"
)

// OutboxStore collects event records in memory. Useful for tests that assert
// on emitted events and for running without a broker.
type OutboxStore struct {
	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a snapshot of everything added so far.
func (s *OutboxStore) Records() []appoutbox.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]appoutbox.EventRecord, len(s.records))
	copy(out, s.records)
	return out
}

var _ appoutbox.Outbox = (*OutboxStore)(nil)
