package clarify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"caloriebot"

	"github.com/google/uuid"
)

// ErrNoDialog means the subject has no pending question.
var ErrNoDialog = errors.New("no pending clarification")

// DefaultTTL bounds how long an unanswered question stays pending.
const DefaultTTL = 30 * time.Minute

// Dialog is the pending question for one subject.
type Dialog struct {
	ID           string                  `json:"id"`
	SubjectID    string                  `json:"subject_id"`
	BaseAnalysis caloriebot.DishAnalysis `json:"base_analysis"`
	Question     Question                `json:"question"`
	StartedAt    time.Time               `json:"started_at"`
}

// Store keeps at most one Dialog per subject.
type Store interface {
	// Get returns ErrNoDialog when nothing is pending for subjectID.
	Get(ctx context.Context, subjectID string) (Dialog, error)
	// Set replaces any pending dialog for d.SubjectID.
	Set(ctx context.Context, d Dialog) error
	Delete(ctx context.Context, subjectID string) error
}

// Machine drives the NONE -> PENDING -> NONE dialog lifecycle over a Store.
type Machine struct {
	store Store
	now   func() time.Time
}

type MachineOption func(*Machine)

func WithMachineClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

func NewMachine(store Store, opts ...MachineOption) *Machine {
	m := &Machine{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Offer starts a dialog for a delivered analysis when a question applies and
// returns it. It returns nil for non-food analyses, for confident estimates of
// ordinary dishes, and for dishes without a question family.
func (m *Machine) Offer(ctx context.Context, subjectID string, a caloriebot.DishAnalysis) (*Question, error) {
	if !a.IsFood || !ShouldAsk(a) {
		return nil, nil
	}
	q := GenerateQuestion(a)
	if q == nil {
		return nil, nil
	}

	d := Dialog{
		ID:           uuid.NewString(),
		SubjectID:    subjectID,
		BaseAnalysis: a,
		Question:     *q,
		StartedAt:    m.now(),
	}
	if err := m.store.Set(ctx, d); err != nil {
		return nil, err
	}
	slog.Info("DIALOG: Question pending", "subject", subjectID, "question", q.ID, "dialog_id", d.ID)
	return q, nil
}

// Answer applies the subject's answer to the pending analysis. The dialog is
// cleared whether or not the correction succeeds.
func (m *Machine) Answer(ctx context.Context, subjectID, questionID, answer string) (caloriebot.DishAnalysis, error) {
	d, err := m.store.Get(ctx, subjectID)
	if err != nil {
		return caloriebot.DishAnalysis{}, err
	}
	defer func() {
		if derr := m.store.Delete(ctx, subjectID); derr != nil {
			slog.Warn("DIALOG: Failed to clear dialog", "subject", subjectID, "error", derr)
		}
	}()

	if questionID != d.Question.ID {
		slog.Warn("DIALOG: Answer for a different question", "subject", subjectID, "pending", d.Question.ID, "answered", questionID)
	}
	updated := ApplyCorrection(d.BaseAnalysis, answer, questionID)
	slog.Info("DIALOG: Answer applied", "subject", subjectID, "question", questionID, "answer", answer, "calories", updated.Calories)
	return updated, nil
}
