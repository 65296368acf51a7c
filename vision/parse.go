package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"caloriebot"
)

const maxCandidates = 5

var (
	errNoJSON    = errors.New("no JSON object in reply")
	errNotObject = errors.New("reply is not a JSON object")

	leadingNumber = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
)

// ExtractJSON returns the text between the first '{' and the last '}'.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", errNoJSON
	}
	return text[start : end+1], nil
}

func decodeObject(text string) (map[string]any, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// nonNegInt reads a rounded, non-negative number from a JSON number or a
// string starting with one. Anything else is 0.
func nonNegInt(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		m := leadingNumber.FindString(x)
		if m == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return max(0, int(math.Round(f)))
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// ParseGuess tolerantly decodes a photo reply. It fails only when no JSON
// object can be read from text.
func ParseGuess(text string) (caloriebot.VisionGuess, error) {
	o, err := decodeObject(text)
	if err != nil {
		return caloriebot.VisionGuess{}, err
	}

	isFood := o["is_food"] == true || strings.EqualFold(stringOf(o["is_food"]), "true")
	dish := strings.TrimSpace(stringOf(o["dish"]))

	var candidates []string
	if list, ok := o["candidates"].([]any); ok {
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				candidates = append(candidates, s)
			}
			if len(candidates) == maxCandidates {
				break
			}
		}
	}
	if len(candidates) == 0 && dish != "" {
		candidates = []string{dish}
	}

	conf := "medium"
	if v, ok := o["confidence"]; ok && v != nil {
		conf = stringOf(v)
	}

	return caloriebot.VisionGuess{
		IsFood:           isFood,
		Dish:             dish,
		PortionGrams:     nonNegInt(o["portion_grams"]),
		CandidateQueries: candidates,
		Confidence:       caloriebot.ParseConfidence(conf),
	}, nil
}

// ParseMacros decodes a fallback estimation reply. Values are rounded to whole
// numbers and clamped at zero.
func ParseMacros(text string) (caloriebot.Macros, error) {
	o, err := decodeObject(text)
	if err != nil {
		return caloriebot.Macros{}, err
	}
	return caloriebot.Macros{
		Calories: nonNegInt(o["calories"]),
		Protein:  float64(nonNegInt(o["protein"])),
		Fat:      float64(nonNegInt(o["fat"])),
		Carbs:    float64(nonNegInt(o["carbs"])),
	}, nil
}

// CleanTranslation strips surrounding quotes from a model translation and
// falls back to original when nothing is left.
func CleanTranslation(reply, original string) string {
	out := strings.TrimSpace(reply)
	out = strings.TrimPrefix(out, `"`)
	out = strings.TrimPrefix(out, `'`)
	out = strings.TrimSuffix(out, `"`)
	out = strings.TrimSuffix(out, `'`)
	out = strings.TrimSpace(out)
	if out == "" {
		return original
	}
	return out
}
