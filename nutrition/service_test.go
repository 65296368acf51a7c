package nutrition

import (
	"context"
	"errors"
	"testing"

	"caloriebot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDatabase struct {
	hits     map[string][]caloriebot.SearchHit
	profiles map[int64]caloriebot.NutrientProfile
	failing  map[int64]error

	searches []string
	details  []int64
}

func (m *mockDatabase) SearchFoods(ctx context.Context, query string) ([]caloriebot.SearchHit, error) {
	m.searches = append(m.searches, query)
	hits, ok := m.hits[query]
	if !ok {
		return nil, &caloriebot.StatusError{Op: "search", StatusCode: 500}
	}
	return hits, nil
}

func (m *mockDatabase) FoodDetails(ctx context.Context, id int64) (caloriebot.NutrientProfile, error) {
	m.details = append(m.details, id)
	if err, ok := m.failing[id]; ok {
		return caloriebot.NutrientProfile{}, err
	}
	p, ok := m.profiles[id]
	if !ok {
		return caloriebot.NutrientProfile{}, &caloriebot.StatusError{Op: "details", StatusCode: 404}
	}
	return p, nil
}

type mockEstimator struct {
	macros caloriebot.Macros
	err    error
	calls  int
}

func (m *mockEstimator) EstimateNutrition(ctx context.Context, dish string, portionGrams int) (caloriebot.Macros, error) {
	m.calls++
	return m.macros, m.err
}

type mockTranslator struct{ out string }

func (m mockTranslator) TranslateToRussian(ctx context.Context, text string) string { return m.out }

func chickenDatabase() *mockDatabase {
	return &mockDatabase{
		hits: map[string][]caloriebot.SearchHit{
			"chicken breast": {
				{ExternalID: 7, Description: "Chicken, broilers, breast", DataSourceTag: "Branded"},
				{ExternalID: 1, Description: "Chicken breast, roasted", DataSourceTag: "Foundation"},
			},
		},
		profiles: map[int64]caloriebot.NutrientProfile{
			1: {Description: "Chicken breast, roasted", CaloriesPer100g: 165, ProteinPer100g: 31, FatPer100g: 3.6},
			7: {Description: "Branded chicken", CaloriesPer100g: 120, ProteinPer100g: 22, FatPer100g: 2},
		},
	}
}

func TestService_Resolve_FromDatabase(t *testing.T) {
	db := chickenDatabase()
	svc := NewService(db)

	res, err := svc.Resolve(context.Background(), "куриная грудка", []string{"chicken breast"}, 150, caloriebot.ConfidenceHigh)
	require.NoError(t, err)

	assert.Equal(t, 248, res.Calories)
	assert.Equal(t, caloriebot.CaloriesRange{Min: 211, Max: 285}, res.Range)
	assert.Equal(t, caloriebot.ConfidenceHigh, res.Confidence)
	assert.True(t, res.FromDatabase)
	assert.Equal(t, []string{
		"Источник: база USDA. Chicken breast, roasted",
		"Порция 150 г (расчёт от 100 г).",
	}, res.Assumptions)

	assert.Equal(t, []string{"chicken breast"}, db.searches, "first success stops the search")
	assert.Equal(t, []int64{1}, db.details, "foundation hit is fetched first")
}

func TestService_Resolve_TriesNextHitAndQuery(t *testing.T) {
	db := &mockDatabase{
		hits: map[string][]caloriebot.SearchHit{
			"pasta":     {{ExternalID: 10, DataSourceTag: "Foundation"}, {ExternalID: 11, DataSourceTag: "SR Legacy"}},
			"spaghetti": {{ExternalID: 20, DataSourceTag: "Foundation"}},
		},
		profiles: map[int64]caloriebot.NutrientProfile{
			11: {},
			20: {Description: "Spaghetti, cooked", CaloriesPer100g: 158, ProteinPer100g: 5.8, FatPer100g: 0.9, CarbsPer100g: 31},
		},
		failing: map[int64]error{10: errors.New("boom")},
	}
	svc := NewService(db, WithTranslator(mockTranslator{out: "Спагетти"}))

	res, err := svc.Resolve(context.Background(), "паста", []string{"  ", "broken", "pasta", "spaghetti"}, 100, caloriebot.ConfidenceMedium)
	require.NoError(t, err)

	assert.Equal(t, []string{"broken", "pasta", "spaghetti"}, db.searches)
	assert.Equal(t, []int64{10, 11, 20}, db.details)
	assert.Equal(t, 158, res.Calories)
	assert.Equal(t, []string{"Источник: база USDA. Спагетти"}, res.Assumptions)
	assert.Equal(t, caloriebot.CaloriesRange{Min: 118, Max: 198}, res.Range)
}

func TestService_Resolve_PerServingDowngrades(t *testing.T) {
	serving := 240.0
	db := &mockDatabase{
		hits: map[string][]caloriebot.SearchHit{"soup": {{ExternalID: 3, Description: "soup"}}},
		profiles: map[int64]caloriebot.NutrientProfile{
			3: {Description: "Soup", CaloriesPer100g: 100, ReferenceAmountGrams: &serving},
		},
	}
	svc := NewService(db, WithTranslator(mockTranslator{}))

	res, err := svc.Resolve(context.Background(), "soup", nil, 300, caloriebot.ConfidenceHigh)
	require.NoError(t, err)

	assert.Equal(t, caloriebot.ConfidenceMedium, res.Confidence)
	assert.Equal(t, caloriebot.CaloriesRange{Min: 225, Max: 375}, res.Range, "range uses the downgraded confidence")
	assert.Equal(t, []string{
		"Источник: база USDA. Soup",
		"Порция 300 г (расчёт от 100 г).",
		"Значения в базе USDA могут быть указаны на порцию, а не на 100 г.",
	}, res.Assumptions)
}

func TestService_Resolve_NoMatch(t *testing.T) {
	tests := map[string][]Option{
		"fallback disabled":           {WithEstimator(&mockEstimator{macros: caloriebot.Macros{Calories: 300}})},
		"fallback without estimator":  {WithFallback(true)},
		"fallback estimator fails":    {WithFallback(true), WithEstimator(&mockEstimator{err: errors.New("bad json")})},
		"no options, nothing matches": nil,
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			db := &mockDatabase{hits: map[string][]caloriebot.SearchHit{"cake": {{ExternalID: 5}}}}
			svc := NewService(db, opts...)

			_, err := svc.Resolve(context.Background(), "cake", []string{"cake", "dessert"}, 120, caloriebot.ConfidenceHigh)
			require.ErrorIs(t, err, caloriebot.ErrNoMatch)
			assert.Equal(t, []string{"cake", "dessert", "cake"}, db.searches)
		})
	}
}

func TestService_Resolve_Fallback(t *testing.T) {
	est := &mockEstimator{macros: caloriebot.Macros{Calories: 350, Protein: 5, Fat: 18, Carbs: 42}}
	svc := NewService(&mockDatabase{}, WithFallback(true), WithEstimator(est))
	require.True(t, svc.FallbackAvailable())

	res, err := svc.Resolve(context.Background(), "торт", nil, 120, caloriebot.ConfidenceHigh)
	require.NoError(t, err)

	assert.Equal(t, 1, est.calls)
	assert.Equal(t, caloriebot.ConfidenceLow, res.Confidence)
	assert.False(t, res.FromDatabase)
	assert.Equal(t, caloriebot.CaloriesRange{Min: 210, Max: 490}, res.Range)
	assert.Equal(t, []string{"Совпадений в базе USDA нет; калорийность и БЖУ оценены нейросетью."}, res.Assumptions)
}

type cancellingDatabase struct {
	*mockDatabase
	cancel context.CancelFunc
}

func (c cancellingDatabase) SearchFoods(ctx context.Context, query string) ([]caloriebot.SearchHit, error) {
	c.mockDatabase.searches = append(c.mockDatabase.searches, query)
	c.cancel()
	return nil, ctx.Err()
}

func TestService_Resolve_Canceled(t *testing.T) {
	tests := []struct {
		name         string
		cancelEarly  bool
		wantSearches int
	}{
		{name: "canceled before start", cancelEarly: true, wantSearches: 0},
		{name: "canceled during search", cancelEarly: false, wantSearches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancelEarly {
				cancel()
			}

			db := cancellingDatabase{mockDatabase: chickenDatabase(), cancel: cancel}
			est := &mockEstimator{macros: caloriebot.Macros{Calories: 300}}
			svc := NewService(db, WithEstimator(est), WithFallback(true))

			_, err := svc.Resolve(ctx, "суп", []string{"soup", "broth"}, 300, caloriebot.ConfidenceMedium)
			require.ErrorIs(t, err, context.Canceled)
			assert.False(t, errors.Is(err, caloriebot.ErrNoMatch))
			assert.Len(t, db.searches, tt.wantSearches)
			assert.Zero(t, est.calls)
		})
	}
}

func TestQueries(t *testing.T) {
	candidates := make([]string, 0, 10)
	candidates = append(candidates, "a", " b ", "", "c", "d", "e", "f")

	got := Queries(" dish ", candidates)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, got)
	assert.Equal(t, "f", candidates[6])
	assert.Equal(t, []string{"x", "dish"}, Queries("dish", []string{"x"}))
	assert.Empty(t, Queries(" ", nil))
}
