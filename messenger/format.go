package messenger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"caloriebot"
	"caloriebot/clarify"
)

const (
	disclaimer     = "Оценка приблизительная, не замена консультации специалиста."
	notFoodText    = "На фото не распознано блюдо. Отправьте чёткое фото еды."
	maxAssumptions = 3
)

func confidenceText(c caloriebot.Confidence) string {
	switch c {
	case caloriebot.ConfidenceHigh:
		return "Оценка достаточно надёжная."
	case caloriebot.ConfidenceMedium:
		return "Оценка ориентировочная."
	default:
		return "Блюдо распознано нечётко — это примерная оценка."
	}
}

func grams(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatAnalysis renders an analysis as a chat message.
func FormatAnalysis(a caloriebot.DishAnalysis) string {
	if !a.IsFood {
		return notFoodText
	}

	cal := fmt.Sprintf("%d–%d ккал", a.Range.Min, a.Range.Max)
	if a.Range.Min == a.Range.Max {
		cal = fmt.Sprintf("%d ккал", a.Range.Min)
	}

	lines := []string{
		"🍽 " + a.Dish,
		fmt.Sprintf("📊 ~%d г", a.WeightGrams),
		"🔥 " + cal,
		fmt.Sprintf("Б: %s г · Ж: %s г · У: %s г", grams(a.Protein), grams(a.Fat), grams(a.Carbs)),
	}

	if len(a.Assumptions) > 0 {
		lines = append(lines, "", "Предположения:")
		for i, s := range a.Assumptions {
			if i == maxAssumptions {
				break
			}
			lines = append(lines, "• "+s)
		}
	}

	lines = append(lines, "", "ℹ️ "+confidenceText(a.Confidence), "⚠️ "+disclaimer)
	return strings.Join(lines, "\n")
}

// FormatQuestion renders a clarification question with its answer options.
func FormatQuestion(q clarify.Question) string {
	opts := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, fmt.Sprintf("%s (%s)", o.Label, o.Value))
	}
	return q.Text + "\n" + strings.Join(opts, " / ")
}

// FailureText maps a pipeline error to the message shown to the subject.
func FailureText(err error) string {
	var rl *caloriebot.RateLimitError
	switch {
	case errors.As(err, &rl):
		return fmt.Sprintf("Подождите %d сек. перед следующим запросом.", rl.RemainingSeconds)
	case errors.Is(err, caloriebot.ErrNoMatch):
		return "Не смог найти блюдо в базе. Попробуйте другое фото или угол."
	case errors.Is(err, caloriebot.ErrVisionInvalid):
		return "Не удалось распознать блюдо. Попробуйте другое фото."
	case errors.Is(err, clarify.ErrNoDialog):
		return "Нет активного уточняющего вопроса. Отправьте новое фото блюда."
	default:
		return "Сервис временно недоступен. Попробуйте позже."
	}
}
