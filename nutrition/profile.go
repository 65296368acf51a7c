package nutrition

import (
	"math"

	"caloriebot"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Scale converts a per-100 g profile to totals for grams.
func Scale(p caloriebot.NutrientProfile, grams int) caloriebot.Macros {
	k := float64(grams) / 100
	return caloriebot.Macros{
		Calories: int(math.Round(p.CaloriesPer100g * k)),
		Protein:  round1(p.ProteinPer100g * k),
		Fat:      round1(p.FatPer100g * k),
		Carbs:    round1(p.CarbsPer100g * k),
	}
}

// Validate returns caloriebot.ErrInvalidNutrients for a profile without any positive macro.
func Validate(p caloriebot.NutrientProfile) error {
	if !p.Valid() {
		return caloriebot.ErrInvalidNutrients
	}
	return nil
}
