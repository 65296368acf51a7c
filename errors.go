package caloriebot

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch means no database hit produced usable nutrients and no fallback succeeded.
	ErrNoMatch = errors.New("no nutrition match")

	// ErrInvalidNutrients means a database item reported no positive macro value.
	ErrInvalidNutrients = errors.New("invalid nutrients")

	// ErrVisionInvalid means the vision reply could not be parsed, even after the stricter retry.
	ErrVisionInvalid = errors.New("invalid vision response")

	// ErrMalformedResponse means a collaborator answered with a body that could not be decoded.
	// It is never retried, even when the decoder stopped at an unexpected EOF.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrFallbackUnavailable means no fallback estimator is configured or enabled.
	ErrFallbackUnavailable = errors.New("fallback estimator unavailable")
)

// RateLimitError is returned when a subject asks again before its interval elapsed.
type RateLimitError struct {
	RemainingSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit: try again in %ds", e.RemainingSeconds)
}

// StatusError is a non-success HTTP-equivalent response from a collaborator.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

// NewStatusError truncates body to keep logs readable.
func NewStatusError(op string, statusCode int, body string) *StatusError {
	if len(body) > 200 {
		body = body[:200]
	}
	return &StatusError{Op: op, StatusCode: statusCode, Body: body}
}
