package vision

import (
	"fmt"
	"strings"
)

const guessInstructions = `You are a food recognition expert. From the photo determine:
1. is_food (true/false) - is there a dish/food on the photo; if not (e.g. text, object) - false.
2. dish - main dish name ONLY in Russian, use Cyrillic. Examples: "аджарули хачапури", "куриная грудка на гриле", "спагетти карбонара". Never use English or Latin script for dish.
3. portion_grams - estimated portion weight in grams.
4. candidates - array of 2-5 search query strings in ENGLISH for a nutrition database (e.g. "chicken breast", "khachapuri", "pasta").
5. confidence - "low" | "medium" | "high" based on how clear the dish is.

Respond with STRICT JSON only, no markdown, no code blocks, no extra text.
Format: {"is_food":true,"dish":"только русскими буквами","portion_grams":number,"candidates":["english","query"],"confidence":"low|medium|high"}`

const (
	// UserPrompt accompanies the photo on the first attempt.
	UserPrompt = "Analyze this dish. Return ONLY valid JSON."
	// RetryPrompt replaces UserPrompt after an unparsable reply.
	RetryPrompt = "RETURN ONLY JSON. NO MARKDOWN. NO EXTRA TEXT."
)

// SystemPrompt is the instruction block sent with every photo, including the
// reply JSON schema.
func SystemPrompt() string {
	return guessInstructions + "\n\nJSON Schema:\n" + schemaText(GuessSchema())
}

func EstimatePrompt(dish string, portionGrams int) string {
	return fmt.Sprintf(`Estimate approximate nutrition for: %q, portion %d g. Return ONLY valid JSON: {"calories":number,"protein":number,"fat":number,"carbs":number}. Numbers per whole portion. No other text.
JSON Schema: %s`, dish, portionGrams, schemaText(MacrosSchema()))
}

func TranslatePrompt(text string) string {
	return "Translate to Russian in 2-6 words, only the translation, no quotes or explanation: " + strings.TrimSpace(text)
}
