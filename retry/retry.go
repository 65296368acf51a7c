// Package retry runs transient-failure-prone calls with bounded, jittered
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"caloriebot"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// MaxAttempts is one initial call plus three retries.
	MaxAttempts = 4

	initialDelay = 300 * time.Millisecond
	maxDelay     = 1800 * time.Millisecond
	multiplier   = 3
	jitterFactor = 0.2
)

// Operation is a single attempt of a retried call.
type Operation[T any] func(ctx context.Context) (T, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Executor struct {
	name     string
	sleep    SleepFunc
	attempts metric.Int64Counter
}

type Option func(*Executor)

// WithSleep replaces the wait between attempts. Tests use it to record delays.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) { e.sleep = fn }
}

// WithMeter records retry_attempts_total on the given meter.
func WithMeter(m metric.Meter) Option {
	return func(e *Executor) {
		e.attempts, _ = m.Int64Counter("retry_attempts_total",
			metric.WithDescription("Total number of delayed retries of outbound calls"))
	}
}

// New returns an executor labelled name in logs and metrics.
func New(name string, opts ...Option) *Executor {
	e := &Executor{name: name, sleep: sleepContext}
	WithMeter(otel.Meter(caloriebot.MeterNameRetry))(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do calls op until it succeeds, fails with a non-retryable error, or MaxAttempts
// is reached. The returned error is the last one op produced.
func Do[T any](ctx context.Context, e *Executor, op Operation[T]) (T, error) {
	var zero T
	b := newBackOff()

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= MaxAttempts || !IsRetryable(err) {
			return zero, err
		}

		delay := b.NextBackOff()
		slog.Warn("RETRY: transient failure, backing off",
			"op", e.name,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		e.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("op", e.name)))

		if serr := e.sleep(ctx, delay); serr != nil {
			return zero, errors.Join(err, serr)
		}
	}
}

// Run is Do for operations without a result.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// newBackOff yields 300ms, 900ms, 1800ms, each spread by +-20%.
func newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initialDelay,
		RandomizationFactor: jitterFactor,
		Multiplier:          multiplier,
		MaxInterval:         maxDelay,
	}
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
