package sentiment

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Detector resolves the language of a text to one of the supported
// ISO 639-1 codes, falling back to the configured default when detection
// fails or yields an unsupported code.
type Detector interface {
	Detect(text string) string
}

type heuristicDetector struct {
	supported map[string]struct{}
	fallback  string
}

// NewDetector builds the heuristic detector. Supported codes are
// canonicalized through x/text language tags so "EN" and "en-US" both
// register as "en".
func NewDetector(supported []string, fallback string) Detector {
	set := make(map[string]struct{}, len(supported))

	for _, code := range supported {
		if base := baseCode(code); base != "" {
			set[base] = struct{}{}
		}
	}

	return &heuristicDetector{supported: set, fallback: fallback}
}

func baseCode(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return ""
	}

	base, _ := tag.Base()

	return base.String()
}

func (d *heuristicDetector) Detect(text string) string {
	code := classify(text)

	if _, ok := d.supported[code]; ok {
		return code
	}

	return d.fallback
}

// classify guesses a language by script first, then by stop-word hits.
// Empty string means undetected.
func classify(text string) string {
	if hasCyrillic(text) {
		return "ru"
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return ""
	}

	best, bestHits := "", 0

	for code, stops := range stopWords {
		hits := 0

		for _, tok := range tokens {
			if _, ok := stops[tok]; ok {
				hits++
			}
		}

		if hits > bestHits {
			best, bestHits = code, hits
		}
	}

	return best
}

func hasCyrillic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}

	return false
}

var stopWords = map[string]map[string]struct{}{
	"en": wordSet([]string{
		"the", "and", "is", "are", "was", "this", "that", "with", "have",
		"not", "you", "for", "but", "what", "all",
	}),
	"de": wordSet([]string{
		"der", "die", "das", "und", "ist", "nicht", "mit", "ich", "ein",
		"eine", "sind", "auch", "aber", "dass",
	}),
	"fr": wordSet([]string{
		"le", "la", "les", "et", "est", "pas", "avec", "je", "une",
		"des", "que", "qui", "dans", "mais",
	}),
}
