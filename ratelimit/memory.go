package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

func (s *MemoryStore) Acquire(ctx context.Context, subjectID string, now time.Time, interval time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[subjectID]; ok && now.Sub(last) < interval {
		return false, nil
	}
	s.last[subjectID] = now
	return true, nil
}

func (s *MemoryStore) Last(ctx context.Context, subjectID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.last[subjectID]
	return last, ok, nil
}

// Sweep drops records older than maxAge and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for subject, last := range s.last {
		if now.Sub(last) > maxAge {
			delete(s.last, subject)
			removed++
		}
	}
	return removed
}

// Len is the number of subjects currently tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}

// StartJanitor sweeps every period until ctx is done. Entries older than
// 6x interval can no longer affect a decision.
func (s *MemoryStore) StartJanitor(ctx context.Context, period, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := s.Sweep(now, 6*interval); n > 0 {
					slog.Debug("RATELIMIT: swept stale subjects", "removed", n)
				}
			}
		}
	}()
}
