package nutrition

import (
	"testing"

	"caloriebot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale(t *testing.T) {
	p := caloriebot.NutrientProfile{CaloriesPer100g: 200, ProteinPer100g: 12.34, FatPer100g: 7.8, CarbsPer100g: 0.05}

	got := Scale(p, 50)
	assert.Equal(t, caloriebot.Macros{Calories: 100, Protein: 6.2, Fat: 3.9, Carbs: 0}, got)

	got = Scale(caloriebot.NutrientProfile{CaloriesPer100g: 165, ProteinPer100g: 31, FatPer100g: 3.6}, 150)
	assert.Equal(t, 248, got.Calories)
	assert.InDelta(t, 46.5, got.Protein, 1e-9)
	assert.InDelta(t, 5.4, got.Fat, 1e-9)
	assert.Zero(t, got.Carbs)
}

func TestValidate(t *testing.T) {
	serving := 30.0
	tests := map[string]struct {
		profile caloriebot.NutrientProfile
		wantErr bool
	}{
		"all zero":                   {caloriebot.NutrientProfile{}, true},
		"all zero with serving size": {caloriebot.NutrientProfile{ReferenceAmountGrams: &serving}, true},
		"negative":                   {caloriebot.NutrientProfile{CaloriesPer100g: -1, FatPer100g: -2}, true},
		"only protein":               {caloriebot.NutrientProfile{ProteinPer100g: 0.1}, false},
		"calories":                   {caloriebot.NutrientProfile{CaloriesPer100g: 52}, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := Validate(tt.profile)
			if tt.wantErr {
				require.ErrorIs(t, err, caloriebot.ErrInvalidNutrients)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRangeFor(t *testing.T) {
	tests := []struct {
		name     string
		calories int
		conf     caloriebot.Confidence
		fromDB   bool
		want     caloriebot.CaloriesRange
	}{
		{"high from db", 1000, caloriebot.ConfidenceHigh, true, caloriebot.CaloriesRange{Min: 850, Max: 1150}},
		{"half width floor wins at 100", 100, caloriebot.ConfidenceHigh, true, caloriebot.CaloriesRange{Min: 80, Max: 120}},
		{"medium from db", 400, caloriebot.ConfidenceMedium, true, caloriebot.CaloriesRange{Min: 300, Max: 500}},
		{"low from db", 500, caloriebot.ConfidenceLow, true, caloriebot.CaloriesRange{Min: 300, Max: 700}},
		{"estimated ignores confidence", 100, caloriebot.ConfidenceHigh, false, caloriebot.CaloriesRange{Min: 60, Max: 140}},
		{"estimated low", 100, caloriebot.ConfidenceLow, false, caloriebot.CaloriesRange{Min: 60, Max: 140}},
		{"zero", 0, caloriebot.ConfidenceHigh, true, caloriebot.CaloriesRange{}},
		{"negative", -5, caloriebot.ConfidenceLow, false, caloriebot.CaloriesRange{}},
		{"half width floor clamps at zero", 10, caloriebot.ConfidenceHigh, true, caloriebot.CaloriesRange{Min: 0, Max: 30}},
		{"scenario", 248, caloriebot.ConfidenceHigh, true, caloriebot.CaloriesRange{Min: 211, Max: 285}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RangeFor(tt.calories, tt.conf, tt.fromDB))
		})
	}
}

func TestDowngrade(t *testing.T) {
	assert.Equal(t, caloriebot.ConfidenceMedium, Downgrade(caloriebot.ConfidenceHigh))
	assert.Equal(t, caloriebot.ConfidenceLow, Downgrade(caloriebot.ConfidenceMedium))
	assert.Equal(t, caloriebot.ConfidenceLow, Downgrade(caloriebot.ConfidenceLow))
}
