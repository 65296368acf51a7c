// Package clarify holds the one-question follow-up dialog that corrects an
// already delivered analysis.
package clarify

import (
	"math"
	"strings"

	"caloriebot"
)

const (
	QuestionCream = "cream"
	QuestionSauce = "sauce"

	AnswerYes = "yes"
	AnswerNo  = "no"
)

type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

var yesNo = []Option{
	{Label: "Да", Value: AnswerYes},
	{Label: "Нет", Value: AnswerNo},
}

// Dish names come back in Russian, so each family lists both spellings.
var (
	creamKeywords = []string{"cake", "dessert", "торт", "десерт", "пирожн"}
	sauceKeywords = []string{"salad", "салат"}
	otherKeywords = []string{"pasta", "sandwich", "паста", "спагетти", "сэндвич", "бутерброд"}
)

type factors struct {
	calories float64
	fat      float64
}

var corrections = map[string]factors{
	QuestionCream: {calories: 1.25, fat: 1.30},
	QuestionSauce: {calories: 1.20, fat: 1.25},
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ShouldAsk reports whether a follow-up is worth asking: always when the
// estimate is not high confidence, otherwise only for dishes whose calories
// depend heavily on hidden ingredients.
func ShouldAsk(a caloriebot.DishAnalysis) bool {
	if a.Confidence != caloriebot.ConfidenceHigh {
		return true
	}
	dish := strings.ToLower(a.Dish)
	return containsAny(dish, creamKeywords) || containsAny(dish, sauceKeywords) || containsAny(dish, otherKeywords)
}

// GenerateQuestion maps the dish to a fixed yes/no question, or nil when no
// question family applies.
func GenerateQuestion(a caloriebot.DishAnalysis) *Question {
	dish := strings.ToLower(a.Dish)
	switch {
	case containsAny(dish, creamKeywords):
		return &Question{ID: QuestionCream, Text: "Есть ли крем или сливки?", Options: yesNo}
	case containsAny(dish, sauceKeywords):
		return &Question{ID: QuestionSauce, Text: "Добавлено ли масло или майонез?", Options: yesNo}
	default:
		return nil
	}
}

// ApplyCorrection scales calories, the calorie range and fat for a "yes"
// answer and returns a new analysis. Any other answer or an unknown question
// leaves the numbers as they are, apart from rounding fat to whole grams.
// Applying it twice compounds the factors.
func ApplyCorrection(a caloriebot.DishAnalysis, answer, questionID string) caloriebot.DishAnalysis {
	f := factors{calories: 1, fat: 1}
	if strings.EqualFold(answer, AnswerYes) {
		if c, ok := corrections[questionID]; ok {
			f = c
		}
	}

	out := a
	out.Assumptions = append([]string(nil), a.Assumptions...)
	out.Calories = int(math.Round(float64(a.Calories) * f.calories))
	out.Fat = math.Round(a.Fat * f.fat)
	out.Range = caloriebot.CaloriesRange{
		Min: int(math.Round(float64(a.Range.Min) * f.calories)),
		Max: int(math.Round(float64(a.Range.Max) * f.calories)),
	}
	return out
}
