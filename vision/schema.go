package vision

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// GuessSchema describes the JSON object a model must reply with for a photo.
func GuessSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"is_food": {
				Type:        "boolean",
				Description: "true if the photo shows a dish or food, false for text, objects or anything else",
			},
			"dish": {
				Type:        "string",
				Description: "main dish name ONLY in Russian, Cyrillic script",
			},
			"portion_grams": {
				Type:        "integer",
				Description: "estimated portion weight in grams",
			},
			"candidates": {
				Type:        "array",
				Description: "2-5 ENGLISH search queries for a nutrition database",
				Items:       &jsonschema.Schema{Type: "string"},
			},
			"confidence": {
				Type: "string",
				Enum: []any{"low", "medium", "high"},
			},
		},
		Required: []string{"is_food", "dish", "portion_grams", "candidates", "confidence"},
	}
}

// MacrosSchema describes the fallback estimation reply.
func MacrosSchema() *jsonschema.Schema {
	num := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "number", Description: desc}
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"calories": num("kcal for the whole portion"),
			"protein":  num("grams for the whole portion"),
			"fat":      num("grams for the whole portion"),
			"carbs":    num("grams for the whole portion"),
		},
		Required: []string{"calories", "protein", "fat", "carbs"},
	}
}

func schemaText(s *jsonschema.Schema) string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}
