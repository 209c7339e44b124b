// Package sentiment provides sentiment scoring for incoming messages: a
// deterministic local estimator that is always available, language
// detection, and a rate-limited client for the external refinement API.
package sentiment

import (
	"strings"
	"unicode"
)

// Estimator produces a sentiment score in [0.0, 1.0] for a text, where 0.5
// is neutral. Implementations must be deterministic and do no I/O.
type Estimator interface {
	Score(text string) float64
}

// MapRange maps a value from one range onto another linearly.
// MapRange(0, -1, 1, 0, 1) == 0.5.
func MapRange(value, oldLo, oldHi, newLo, newHi float64) float64 {
	return (value-oldLo)/(oldHi-oldLo)*(newHi-newLo) + newLo
}

// lexiconEstimator scores by counting polar words: the polarity
// (positive - negative) / tokens lies in [-1, 1] and is mapped onto [0, 1].
type lexiconEstimator struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewLexiconEstimator returns the rough local estimator backed by a small
// multilingual polarity lexicon.
func NewLexiconEstimator() Estimator {
	return &lexiconEstimator{
		positive: wordSet(positiveWords),
		negative: wordSet(negativeWords),
	}
}

func (e *lexiconEstimator) Score(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0.5
	}

	var polar int

	for _, tok := range tokens {
		if _, ok := e.positive[tok]; ok {
			polar++
			continue
		}

		if _, ok := e.negative[tok]; ok {
			polar--
		}
	}

	polarity := float64(polar) / float64(len(tokens))

	return MapRange(polarity, -1.0, 1.0, 0.0, 1.0)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	return set
}

var positiveWords = []string{
	// en
	"good", "great", "excellent", "happy", "love", "wonderful", "best",
	"nice", "amazing", "awesome", "perfect", "thanks", "thank",
	// ru
	"хорошо", "отлично", "прекрасно", "люблю", "рад", "рада", "спасибо",
	"замечательно", "супер", "лучший",
	// de
	"gut", "toll", "danke", "wunderbar", "liebe", "super",
	// fr
	"bien", "bon", "merci", "super", "excellent", "magnifique",
}

var negativeWords = []string{
	// en
	"bad", "terrible", "awful", "hate", "sad", "worst", "horrible",
	"angry", "wrong", "broken", "fail", "failed",
	// ru
	"плохо", "ужасно", "ненавижу", "грустно", "отвратительно", "худший",
	"зло", "кошмар",
	// de
	"schlecht", "schrecklich", "hasse", "traurig", "furchtbar",
	// fr
	"mauvais", "terrible", "triste", "horrible", "nul",
}
