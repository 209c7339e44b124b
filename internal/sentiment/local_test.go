package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapRange(t *testing.T) {
	tests := []struct {
		name           string
		value          float64
		oldLo, oldHi   float64
		newLo, newHi   float64
		expected       float64
	}{
		{name: "polarity zero to neutral", value: 0, oldLo: -1, oldHi: 1, newLo: 0, newHi: 1, expected: 0.5},
		{name: "positive polarity", value: 0.33, oldLo: -1, oldHi: 1, newLo: 0, newHi: 1, expected: 0.665},
		{name: "unit to polarity", value: 0.123, oldLo: 0, oldHi: 1, newLo: -1, newHi: 1, expected: -0.754},
		{name: "unit bottom to polarity bottom", value: 0, oldLo: 0, oldHi: 1, newLo: -1, newHi: 1, expected: -1.0},
		{name: "identity", value: 0.5, oldLo: 0, oldHi: 1, newLo: 0, newHi: 1, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapRange(tt.value, tt.oldLo, tt.oldHi, tt.newLo, tt.newHi)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestLexiconEstimator(t *testing.T) {
	e := NewLexiconEstimator()

	tests := []struct {
		name string
		text string
		cmp  func(t *testing.T, score float64)
	}{
		{
			name: "empty text is neutral",
			text: "",
			cmp:  func(t *testing.T, s float64) { assert.Equal(t, 0.5, s) },
		},
		{
			name: "no polar words is neutral",
			text: "the table stands in the room",
			cmp:  func(t *testing.T, s float64) { assert.Equal(t, 0.5, s) },
		},
		{
			name: "positive text scores above neutral",
			text: "this is a great and wonderful day, thank you",
			cmp:  func(t *testing.T, s float64) { assert.Greater(t, s, 0.5) },
		},
		{
			name: "negative text scores below neutral",
			text: "terrible awful day, everything is broken",
			cmp:  func(t *testing.T, s float64) { assert.Less(t, s, 0.5) },
		},
		{
			name: "russian negative",
			text: "всё ужасно и плохо",
			cmp:  func(t *testing.T, s float64) { assert.Less(t, s, 0.5) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmp(t, e.Score(tt.text))
		})
	}
}

func TestLexiconEstimatorDeterministic(t *testing.T) {
	e := NewLexiconEstimator()
	text := "good good bad neutral words here"

	first := e.Score(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Score(text))
	}
}

func TestLexiconEstimatorRange(t *testing.T) {
	e := NewLexiconEstimator()

	for _, text := range []string{
		"good great excellent",
		"bad terrible awful",
		"love hate love hate",
		"",
	} {
		score := e.Score(text)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
