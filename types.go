package caloriebot

import (
	"context"
	"strings"
)

// Confidence is the coarse certainty attached to a vision guess or a nutrition result.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence normalises free-form model output. Unknown values become medium.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceLow:
		return ConfidenceLow
	case ConfidenceHigh:
		return ConfidenceHigh
	default:
		return ConfidenceMedium
	}
}

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

// VisionGuess is what the vision collaborator reports for a single photo.
type VisionGuess struct {
	IsFood           bool       `json:"is_food"`
	Dish             string     `json:"dish"`
	PortionGrams     int        `json:"portion_grams"`
	CandidateQueries []string   `json:"candidates"`
	Confidence       Confidence `json:"confidence"`
}

// Macros holds nutrient totals for a whole portion.
type Macros struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// CaloriesRange is an uncertainty band around a calorie estimate. Min <= Max.
type CaloriesRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SearchHit is a single nutrition database search result.
type SearchHit struct {
	ExternalID     int64    `json:"external_id"`
	Description    string   `json:"description"`
	DataSourceTag  string   `json:"data_source,omitempty"`
	RelevanceScore *float64 `json:"score,omitempty"`
}

// NutrientProfile carries per-reference-amount macro values for one database item.
type NutrientProfile struct {
	Description          string   `json:"description"`
	CaloriesPer100g      float64  `json:"calories_per_100g"`
	ProteinPer100g       float64  `json:"protein_per_100g"`
	FatPer100g           float64  `json:"fat_per_100g"`
	CarbsPer100g         float64  `json:"carbs_per_100g"`
	ReferenceAmountGrams *float64 `json:"reference_amount_grams,omitempty"`
}

// Valid reports whether at least one macro is positive. A profile with all four
// macros at or below zero is a missing record, not a zero-calorie food.
func (p NutrientProfile) Valid() bool {
	return p.CaloriesPer100g > 0 || p.ProteinPer100g > 0 || p.FatPer100g > 0 || p.CarbsPer100g > 0
}

// MayBePerServing reports whether the upstream reference amount differs from 100 g,
// in which case the values may describe a serving rather than 100 g.
func (p NutrientProfile) MayBePerServing() bool {
	return p.ReferenceAmountGrams != nil && *p.ReferenceAmountGrams > 0 && *p.ReferenceAmountGrams != 100
}

// NutritionResult is the outcome of one nutrition resolution.
type NutritionResult struct {
	Macros
	Range        CaloriesRange `json:"calories_range"`
	Confidence   Confidence    `json:"confidence"`
	Assumptions  []string      `json:"assumptions"`
	FromDatabase bool          `json:"from_database"`
}

// DishAnalysis is the user-facing aggregate for one photo.
type DishAnalysis struct {
	IsFood      bool          `json:"is_food"`
	Dish        string        `json:"dish"`
	WeightGrams int           `json:"weight_grams"`
	Calories    int           `json:"calories"`
	Protein     float64       `json:"protein"`
	Fat         float64       `json:"fat"`
	Carbs       float64       `json:"carbs"`
	Range       CaloriesRange `json:"calories_range"`
	Confidence  Confidence    `json:"confidence"`
	Assumptions []string      `json:"assumptions"`
}

// VisionProvider turns a photo into a dish guess.
type VisionProvider interface {
	AnalyzeDishFromImage(ctx context.Context, image []byte, mimeType string) (VisionGuess, error)
}

// NutritionEstimator is the optional fallback capability of a vision provider.
type NutritionEstimator interface {
	EstimateNutrition(ctx context.Context, dish string, portionGrams int) (Macros, error)
}

// Translator is the optional translation capability of a vision provider.
// Implementations never fail; on any problem they return the input unchanged.
type Translator interface {
	TranslateToRussian(ctx context.Context, text string) string
}

// FoodDatabase is the structured nutrition database.
type FoodDatabase interface {
	SearchFoods(ctx context.Context, query string) ([]SearchHit, error)
	FoodDetails(ctx context.Context, id int64) (NutrientProfile, error)
}

// Messenger delivers text to a subject.
type Messenger interface {
	SendMessage(ctx context.Context, subjectID string, text string) error
}
