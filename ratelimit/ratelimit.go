// Package ratelimit gates subjects to one allowed request per interval.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DefaultInterval is the reference per-subject minimum interval.
const DefaultInterval = 10 * time.Second

// Store keeps the last allowed timestamp per subject.
type Store interface {
	// Acquire records now for subjectID unless a record younger than interval
	// exists. The check and the write happen as one step.
	Acquire(ctx context.Context, subjectID string, now time.Time, interval time.Duration) (bool, error)
	Last(ctx context.Context, subjectID string) (time.Time, bool, error)
}

type Limiter struct {
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndRecord reports whether subjectID may proceed and, if so, records now.
func (l *Limiter) CheckAndRecord(ctx context.Context, subjectID string, interval time.Duration) (bool, error) {
	ok, err := l.store.Acquire(ctx, subjectID, l.now(), interval)
	if err != nil {
		return false, fmt.Errorf("rate limit acquire: %w", err)
	}
	return ok, nil
}

// RemainingSeconds is the whole number of seconds until subjectID may proceed.
func (l *Limiter) RemainingSeconds(ctx context.Context, subjectID string, interval time.Duration) (int, error) {
	last, ok, err := l.store.Last(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("rate limit lookup: %w", err)
	}
	if !ok {
		return 0, nil
	}
	elapsed := l.now().Sub(last)
	remaining := int(math.Ceil((interval - elapsed).Seconds()))
	return max(0, remaining), nil
}
