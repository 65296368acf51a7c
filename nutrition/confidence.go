package nutrition

import (
	"math"

	"caloriebot"
)

const minHalfWidth = 20

func rangePercent(c caloriebot.Confidence, fromDatabase bool) float64 {
	if !fromDatabase {
		return 0.40
	}
	switch c {
	case caloriebot.ConfidenceHigh:
		return 0.15
	case caloriebot.ConfidenceMedium:
		return 0.25
	default:
		return 0.40
	}
}

// RangeFor widens calories into an uncertainty band. Estimates that did not
// come from the database always get the widest band.
func RangeFor(calories int, c caloriebot.Confidence, fromDatabase bool) caloriebot.CaloriesRange {
	if calories <= 0 {
		return caloriebot.CaloriesRange{}
	}
	delta := max(minHalfWidth, int(math.Round(float64(calories)*rangePercent(c, fromDatabase))))
	return caloriebot.CaloriesRange{
		Min: max(0, calories-delta),
		Max: calories + delta,
	}
}

// Downgrade moves confidence one step toward low.
func Downgrade(c caloriebot.Confidence) caloriebot.Confidence {
	if c == caloriebot.ConfidenceHigh {
		return caloriebot.ConfidenceMedium
	}
	return caloriebot.ConfidenceLow
}
