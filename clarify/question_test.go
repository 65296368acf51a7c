package clarify

import (
	"testing"

	"caloriebot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysis(dish string, conf caloriebot.Confidence) caloriebot.DishAnalysis {
	return caloriebot.DishAnalysis{
		IsFood:      true,
		Dish:        dish,
		WeightGrams: 120,
		Calories:    400,
		Protein:     6,
		Fat:         20.4,
		Carbs:       48.2,
		Range:       caloriebot.CaloriesRange{Min: 300, Max: 500},
		Confidence:  conf,
		Assumptions: []string{"Источник: база USDA. Cake"},
	}
}

func TestShouldAsk(t *testing.T) {
	tests := []struct {
		dish string
		conf caloriebot.Confidence
		want bool
	}{
		{"куриная грудка", caloriebot.ConfidenceLow, true},
		{"куриная грудка", caloriebot.ConfidenceMedium, true},
		{"куриная грудка", caloriebot.ConfidenceHigh, false},
		{"Chocolate CAKE", caloriebot.ConfidenceHigh, true},
		{"салат цезарь", caloriebot.ConfidenceHigh, true},
		{"паста карбонара", caloriebot.ConfidenceHigh, true},
		{"club sandwich", caloriebot.ConfidenceHigh, true},
	}
	for _, tt := range tests {
		t.Run(tt.dish+"/"+string(tt.conf), func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAsk(analysis(tt.dish, tt.conf)))
		})
	}
}

func TestGenerateQuestion(t *testing.T) {
	tests := []struct {
		dish   string
		wantID string
	}{
		{"cheesecake", QuestionCream},
		{"Торт Наполеон", QuestionCream},
		{"fruit dessert", QuestionCream},
		{"Greek salad", QuestionSauce},
		{"салат оливье", QuestionSauce},
		{"паста карбонара", ""},
		{"куриная грудка", ""},
	}
	for _, tt := range tests {
		t.Run(tt.dish, func(t *testing.T) {
			q := GenerateQuestion(analysis(tt.dish, caloriebot.ConfidenceLow))
			if tt.wantID == "" {
				assert.Nil(t, q)
				return
			}
			require.NotNil(t, q)
			assert.Equal(t, tt.wantID, q.ID)
			assert.Equal(t, []Option{{Label: "Да", Value: "yes"}, {Label: "Нет", Value: "no"}}, q.Options)
		})
	}

	q := GenerateQuestion(analysis("торт", caloriebot.ConfidenceMedium))
	require.NotNil(t, q)
	assert.Equal(t, "Есть ли крем или сливки?", q.Text)
}

func TestApplyCorrection(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		questionID string
		want       caloriebot.DishAnalysis
	}{
		{
			name: "cream yes", answer: "yes", questionID: QuestionCream,
			want: caloriebot.DishAnalysis{Calories: 500, Fat: 27, Range: caloriebot.CaloriesRange{Min: 375, Max: 625}},
		},
		{
			name: "sauce YES", answer: "YES", questionID: QuestionSauce,
			want: caloriebot.DishAnalysis{Calories: 480, Fat: 26, Range: caloriebot.CaloriesRange{Min: 360, Max: 600}},
		},
		{
			name: "cream no", answer: "no", questionID: QuestionCream,
			want: caloriebot.DishAnalysis{Calories: 400, Fat: 20, Range: caloriebot.CaloriesRange{Min: 300, Max: 500}},
		},
		{
			name: "unknown answer", answer: "maybe", questionID: QuestionCream,
			want: caloriebot.DishAnalysis{Calories: 400, Fat: 20, Range: caloriebot.CaloriesRange{Min: 300, Max: 500}},
		},
		{
			name: "unknown question", answer: "yes", questionID: "spice",
			want: caloriebot.DishAnalysis{Calories: 400, Fat: 20, Range: caloriebot.CaloriesRange{Min: 300, Max: 500}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := analysis("торт", caloriebot.ConfidenceMedium)
			got := ApplyCorrection(base, tt.answer, tt.questionID)

			assert.Equal(t, tt.want.Calories, got.Calories)
			assert.Equal(t, tt.want.Fat, got.Fat)
			assert.Equal(t, tt.want.Range, got.Range)
			assert.Equal(t, base.Protein, got.Protein)
			assert.Equal(t, base.Carbs, got.Carbs)
			assert.Equal(t, base.Dish, got.Dish)

			assert.Equal(t, 400, base.Calories, "base analysis is not mutated")
			assert.Equal(t, 20.4, base.Fat)
		})
	}
}

func TestApplyCorrection_Compounds(t *testing.T) {
	base := analysis("торт", caloriebot.ConfidenceMedium)
	once := ApplyCorrection(base, "yes", QuestionCream)
	twice := ApplyCorrection(once, "yes", QuestionCream)
	assert.Equal(t, 625, twice.Calories)
}
