// Package nutrition resolves a recognised dish into portion macros using a
// structured food database, with an optional model-estimated fallback.
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"caloriebot"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxQueries caps the candidate queries plus the dish name.
	MaxQueries = 6
	// MaxHitsPerQuery is how many ranked hits get a detail fetch.
	MaxHitsPerQuery = 5
)

const (
	assumptionPortionFmt  = "Порция %d г (расчёт от 100 г)."
	assumptionSourceFmt   = "Источник: база USDA. %s"
	assumptionPerServing  = "Значения в базе USDA могут быть указаны на порцию, а не на 100 г."
	assumptionEstimatedAI = "Совпадений в базе USDA нет; калорийность и БЖУ оценены нейросетью."
)

// Service is the nutrition resolution orchestrator.
type Service struct {
	db         caloriebot.FoodDatabase
	estimator  caloriebot.NutritionEstimator
	translator caloriebot.Translator
	fallback   bool

	tracer trace.Tracer
	meter  metric.Meter

	resolutions    metric.Int64Counter
	noMatch        metric.Int64Counter
	detailFailures metric.Int64Counter
	duration       metric.Float64Histogram
}

type Option func(*Service)

// WithEstimator sets the fallback estimator. It is only used when fallback is enabled.
func WithEstimator(e caloriebot.NutritionEstimator) Option {
	return func(s *Service) { s.estimator = e }
}

func WithFallback(enabled bool) Option {
	return func(s *Service) { s.fallback = enabled }
}

// WithTranslator sets the best-effort translator for matched item descriptions.
func WithTranslator(t caloriebot.Translator) Option {
	return func(s *Service) { s.translator = t }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.meter = m }
}

// NewService builds a Service over db.
func NewService(db caloriebot.FoodDatabase, opts ...Option) *Service {
	s := &Service{
		db:     db,
		tracer: otel.Tracer(caloriebot.TracerNameNutrition),
		meter:  otel.Meter(caloriebot.MeterNameNutrition),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.resolutions, _ = s.meter.Int64Counter("nutrition_resolutions_total",
		metric.WithDescription("Total number of successful nutrition resolutions by source"))
	s.noMatch, _ = s.meter.Int64Counter("nutrition_no_match_total",
		metric.WithDescription("Total number of resolutions that found no usable match"))
	s.detailFailures, _ = s.meter.Int64Counter("nutrition_detail_failures_total",
		metric.WithDescription("Total number of failed or unusable detail fetches"))
	s.duration, _ = s.meter.Float64Histogram("nutrition_resolve_duration_seconds",
		metric.WithDescription("Duration of nutrition resolution in seconds"))

	return s
}

// FallbackAvailable reports whether Resolve can fall back to model estimation.
func (s *Service) FallbackAvailable() bool {
	return s.fallback && s.estimator != nil
}

// Queries builds the ordered search list: non-empty candidates, then the dish
// name, capped at MaxQueries.
func Queries(dish string, candidates []string) []string {
	queries := make([]string, 0, len(candidates)+1)
	for _, c := range slices.Concat(candidates, []string{dish}) {
		if c = strings.TrimSpace(c); c != "" {
			queries = append(queries, c)
		}
	}
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}
	return queries
}

// Resolve finds nutrition for a portion of dish. Queries and hits are tried
// strictly in order and the first usable detail record wins. It returns
// caloriebot.ErrNoMatch when nothing usable was found and no fallback succeeded.
func (s *Service) Resolve(ctx context.Context, dish string, candidates []string, portionGrams int, visionConfidence caloriebot.Confidence) (caloriebot.NutritionResult, error) {
	ctx, span := s.tracer.Start(ctx, "NutritionService.Resolve", trace.WithAttributes(
		attribute.String("dish", dish),
		attribute.Int("portion_grams", portionGrams),
		attribute.String("vision_confidence", string(visionConfidence)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		s.duration.Record(ctx, time.Since(start).Seconds())
	}()

	queries := Queries(dish, candidates)
	slog.Info("NUTRITION: Resolving", "dish", dish, "queries", len(queries), "portion_grams", portionGrams)

	for qi, query := range queries {
		if err := ctx.Err(); err != nil {
			return s.abandon(span, err)
		}
		span.AddEvent("search", trace.WithAttributes(attribute.Int("query_index", qi), attribute.String("query", query)))

		hits, err := s.db.SearchFoods(ctx, query)
		if err != nil {
			slog.Warn("NUTRITION: Search failed, trying next query", "query", query, "error", err)
			continue
		}

		ranked := Rank(hits, query)
		if len(ranked) > MaxHitsPerQuery {
			ranked = ranked[:MaxHitsPerQuery]
		}

		for _, hit := range ranked {
			if err := ctx.Err(); err != nil {
				return s.abandon(span, err)
			}
			profile, err := s.details(ctx, hit.ExternalID)
			if err != nil {
				s.detailFailures.Add(ctx, 1)
				slog.Warn("NUTRITION: Detail fetch failed, trying next hit", "query", query, "id", hit.ExternalID, "error", err)
				continue
			}

			result := s.fromProfile(ctx, profile, portionGrams, visionConfidence)
			span.AddEvent("matched", trace.WithAttributes(
				attribute.String("query", query),
				attribute.Int64("id", hit.ExternalID),
				attribute.Int("calories", result.Calories),
			))
			s.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "database")))
			slog.Info("NUTRITION: Resolved from database", "query", query, "id", hit.ExternalID, "calories", result.Calories, "confidence", result.Confidence)
			return result, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return s.abandon(span, err)
	}
	result, err := s.estimate(ctx, dish, portionGrams)
	if err == nil {
		s.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", "fallback")))
		slog.Info("NUTRITION: Resolved by fallback estimation", "dish", dish, "calories", result.Calories)
		return result, nil
	}
	if !errors.Is(err, caloriebot.ErrFallbackUnavailable) {
		slog.Warn("NUTRITION: Fallback estimation failed", "dish", dish, "error", err)
	}

	s.noMatch.Add(ctx, 1)
	span.SetStatus(codes.Error, "no match")
	span.RecordError(caloriebot.ErrNoMatch)
	return caloriebot.NutritionResult{}, caloriebot.ErrNoMatch
}

// abandon ends a resolution whose caller went away. The context error is
// returned as is so it is never mistaken for a missing match.
func (s *Service) abandon(span trace.Span, err error) (caloriebot.NutritionResult, error) {
	slog.Info("NUTRITION: Resolution abandoned", "error", err)
	span.SetStatus(codes.Error, "abandoned")
	span.RecordError(err)
	return caloriebot.NutritionResult{}, err
}

func (s *Service) details(ctx context.Context, id int64) (caloriebot.NutrientProfile, error) {
	profile, err := s.db.FoodDetails(ctx, id)
	if err != nil {
		return caloriebot.NutrientProfile{}, err
	}
	if err := Validate(profile); err != nil {
		return caloriebot.NutrientProfile{}, err
	}
	return profile, nil
}

func (s *Service) fromProfile(ctx context.Context, p caloriebot.NutrientProfile, portionGrams int, confidence caloriebot.Confidence) caloriebot.NutritionResult {
	macros := Scale(p, portionGrams)

	label := p.Description
	if label != "" && s.translator != nil {
		if translated := s.translator.TranslateToRussian(ctx, label); translated != "" {
			label = translated
		}
	}

	assumptions := []string{fmt.Sprintf(assumptionSourceFmt, label)}
	if portionGrams != 100 {
		assumptions = append(assumptions, fmt.Sprintf(assumptionPortionFmt, portionGrams))
	}
	if p.MayBePerServing() {
		assumptions = append(assumptions, assumptionPerServing)
		confidence = Downgrade(confidence)
	}

	return caloriebot.NutritionResult{
		Macros:       macros,
		Range:        RangeFor(macros.Calories, confidence, true),
		Confidence:   confidence,
		Assumptions:  assumptions,
		FromDatabase: true,
	}
}

func (s *Service) estimate(ctx context.Context, dish string, portionGrams int) (caloriebot.NutritionResult, error) {
	if !s.FallbackAvailable() {
		return caloriebot.NutritionResult{}, caloriebot.ErrFallbackUnavailable
	}

	macros, err := s.estimator.EstimateNutrition(ctx, dish, portionGrams)
	if err != nil {
		return caloriebot.NutritionResult{}, fmt.Errorf("estimate nutrition: %w", err)
	}

	return caloriebot.NutritionResult{
		Macros:       macros,
		Range:        RangeFor(macros.Calories, caloriebot.ConfidenceLow, false),
		Confidence:   caloriebot.ConfidenceLow,
		Assumptions:  []string{assumptionEstimatedAI},
		FromDatabase: false,
	}, nil
}
