package clarify

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store whose entries expire after ttl.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	dialogs map[string]Dialog
}

// NewMemoryStore returns a store expiring dialogs after ttl. A ttl of zero
// keeps them until answered or replaced.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, dialogs: make(map[string]Dialog)}
}

func (s *MemoryStore) expired(d Dialog, now time.Time) bool {
	return s.ttl > 0 && now.Sub(d.StartedAt) >= s.ttl
}

func (s *MemoryStore) Get(ctx context.Context, subjectID string) (Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogs[subjectID]
	if !ok {
		return Dialog{}, ErrNoDialog
	}
	if s.expired(d, s.now()) {
		delete(s.dialogs, subjectID)
		return Dialog{}, ErrNoDialog
	}
	return d, nil
}

func (s *MemoryStore) Set(ctx context.Context, d Dialog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogs[d.SubjectID] = d
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dialogs, subjectID)
	return nil
}

// Sweep drops expired dialogs and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for subject, d := range s.dialogs {
		if s.expired(d, now) {
			delete(s.dialogs, subject)
			removed++
		}
	}
	return removed
}
