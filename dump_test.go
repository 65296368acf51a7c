package caloriebot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	Dump(&buf, DishAnalysis{Dish: "omelette", Calories: 320})

	out := buf.String()
	assert.Contains(t, out, "dump_test.go:")
	assert.Contains(t, out, `Dish: (string) (len=8) "omelette"`)
	assert.Contains(t, out, "Calories: (int) 320")
}
