// Package dish runs the photo-to-estimate flow for one subject.
package dish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caloriebot"
	"caloriebot/clarify"
	"caloriebot/messenger"
	"caloriebot/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// UnrecognizedDish names a photo without food.
	UnrecognizedDish = "Не распознано"

	notFoodAssumption = "На фото не распознано блюдо."
)

type resolver interface {
	Resolve(ctx context.Context, dish string, candidates []string, portionGrams int, visionConfidence caloriebot.Confidence) (caloriebot.NutritionResult, error)
}

type Service struct {
	vision    caloriebot.VisionProvider
	nutrition resolver
	limiter   *ratelimit.Limiter
	interval  time.Duration
	dialogs   *clarify.Machine
	history   caloriebot.HistoryRecorder
	messenger caloriebot.Messenger
	tracer    trace.Tracer
}

type Option func(*Service)

// WithInterval overrides the per-subject rate-limit interval.
func WithInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

func WithHistory(h caloriebot.HistoryRecorder) Option {
	return func(s *Service) { s.history = h }
}

// WithMessenger makes Deliver send text. Without one, Deliver only starts the dialog.
func WithMessenger(m caloriebot.Messenger) Option {
	return func(s *Service) { s.messenger = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func NewService(vision caloriebot.VisionProvider, nutrition resolver, limiter *ratelimit.Limiter, dialogs *clarify.Machine, opts ...Option) *Service {
	s := &Service{
		vision:    vision,
		nutrition: nutrition,
		limiter:   limiter,
		interval:  ratelimit.DefaultInterval,
		dialogs:   dialogs,
		history:   caloriebot.NewNoOpHistory(),
		tracer:    otel.Tracer(caloriebot.TracerNameDish),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeFromImage estimates the dish on a photo for subjectID. The rate limit
// is checked before anything else and rejects with *caloriebot.RateLimitError.
func (s *Service) AnalyzeFromImage(ctx context.Context, subjectID string, image []byte, mimeType string) (caloriebot.DishAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "DishService.AnalyzeFromImage", trace.WithAttributes(
		attribute.String("subject", subjectID),
		attribute.String("mime_type", mimeType),
		attribute.Int("image_bytes", len(image)),
	))
	defer span.End()

	allowed, err := s.limiter.CheckAndRecord(ctx, subjectID, s.interval)
	if err != nil {
		span.SetStatus(codes.Error, "rate limit check failed")
		return caloriebot.DishAnalysis{}, err
	}
	if !allowed {
		remaining, err := s.limiter.RemainingSeconds(ctx, subjectID, s.interval)
		if err != nil {
			return caloriebot.DishAnalysis{}, err
		}
		slog.Info("DISH: Rate limited", "subject", subjectID, "remaining_seconds", remaining)
		span.SetStatus(codes.Error, "rate limited")
		return caloriebot.DishAnalysis{}, &caloriebot.RateLimitError{RemainingSeconds: remaining}
	}

	guess, err := s.vision.AnalyzeDishFromImage(ctx, image, mimeType)
	if err != nil {
		span.SetStatus(codes.Error, "vision failed")
		span.RecordError(err)
		return caloriebot.DishAnalysis{}, fmt.Errorf("analyze image: %w", err)
	}
	slog.Info("DISH: Vision guess", "subject", subjectID, "is_food", guess.IsFood, "dish", guess.Dish,
		"portion_grams", guess.PortionGrams, "candidates", len(guess.CandidateQueries), "confidence", guess.Confidence)

	var analysis caloriebot.DishAnalysis
	if !guess.IsFood {
		analysis = notFood(guess)
	} else {
		res, err := s.nutrition.Resolve(ctx, guess.Dish, guess.CandidateQueries, guess.PortionGrams, guess.Confidence)
		if err != nil {
			span.SetStatus(codes.Error, "nutrition failed")
			span.RecordError(err)
			return caloriebot.DishAnalysis{}, fmt.Errorf("resolve nutrition: %w", err)
		}
		analysis = caloriebot.DishAnalysis{
			IsFood:      true,
			Dish:        guess.Dish,
			WeightGrams: guess.PortionGrams,
			Calories:    res.Calories,
			Protein:     res.Protein,
			Fat:         res.Fat,
			Carbs:       res.Carbs,
			Range:       res.Range,
			Confidence:  res.Confidence,
			Assumptions: res.Assumptions,
		}
	}

	if err := s.history.Record(caloriebot.NewHistoryEntry(subjectID, analysis)); err != nil {
		slog.Warn("DISH: Failed to record history", "subject", subjectID, "error", err)
	}

	span.SetAttributes(attribute.Int("calories", analysis.Calories), attribute.Bool("is_food", analysis.IsFood))
	return analysis, nil
}

func notFood(g caloriebot.VisionGuess) caloriebot.DishAnalysis {
	name := g.Dish
	if name == "" {
		name = UnrecognizedDish
	}
	return caloriebot.DishAnalysis{
		IsFood:      false,
		Dish:        name,
		WeightGrams: g.PortionGrams,
		Confidence:  g.Confidence,
		Assumptions: []string{notFoodAssumption},
	}
}

// Deliver sends the analysis to the subject and then, if a follow-up applies,
// starts the dialog and sends the question. The question is returned so
// callers without a messenger can present it themselves.
func (s *Service) Deliver(ctx context.Context, subjectID string, a caloriebot.DishAnalysis) (*clarify.Question, error) {
	if s.messenger != nil {
		if err := s.messenger.SendMessage(ctx, subjectID, messenger.FormatAnalysis(a)); err != nil {
			return nil, fmt.Errorf("deliver analysis: %w", err)
		}
	}

	q, err := s.dialogs.Offer(ctx, subjectID, a)
	if err != nil || q == nil {
		return nil, err
	}

	if s.messenger != nil {
		if err := s.messenger.SendMessage(ctx, subjectID, messenger.FormatQuestion(*q)); err != nil {
			return q, fmt.Errorf("deliver question: %w", err)
		}
	}
	return q, nil
}

// Answer applies a clarification answer and delivers the corrected analysis.
// It returns clarify.ErrNoDialog when nothing is pending for subjectID.
func (s *Service) Answer(ctx context.Context, subjectID, questionID, answer string) (caloriebot.DishAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "DishService.Answer", trace.WithAttributes(
		attribute.String("subject", subjectID),
		attribute.String("question", questionID),
	))
	defer span.End()

	updated, err := s.dialogs.Answer(ctx, subjectID, questionID, answer)
	if err != nil {
		span.SetStatus(codes.Error, "no dialog")
		return caloriebot.DishAnalysis{}, err
	}

	if s.messenger != nil {
		if err := s.messenger.SendMessage(ctx, subjectID, messenger.FormatAnalysis(updated)); err != nil {
			return updated, fmt.Errorf("deliver corrected analysis: %w", err)
		}
	}
	return updated, nil
}

// Failure tells the subject why a request failed, best effort.
func (s *Service) Failure(ctx context.Context, subjectID string, cause error) {
	if s.messenger == nil {
		return
	}
	if err := s.messenger.SendMessage(ctx, subjectID, messenger.FailureText(cause)); err != nil {
		slog.Warn("DISH: Failed to deliver failure text", "subject", subjectID, "error", err)
	}
}
