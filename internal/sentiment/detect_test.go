package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector(t *testing.T) {
	d := NewDetector([]string{"ru", "de", "en", "fr"}, "ru")

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "english", text: "this is the text and it is not short at all", want: "en"},
		{name: "russian by script", text: "Это текст на русском языке!", want: "ru"},
		{name: "german", text: "das ist ein deutscher Text und ich bin nicht sicher", want: "de"},
		{name: "french", text: "je ne sais pas mais c'est la vie dans les montagnes", want: "fr"},
		{name: "undetected falls back", text: "A", want: "ru"},
		{name: "empty falls back", text: "", want: "ru"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.text))
		})
	}
}

func TestDetectorUnsupportedCodeFallsBack(t *testing.T) {
	// English is detectable but not supported here.
	d := NewDetector([]string{"ru"}, "ru")

	got := d.Detect("this is the text and it is not short at all")
	assert.Equal(t, "ru", got)
}

func TestDetectorCanonicalizesSupportedCodes(t *testing.T) {
	d := NewDetector([]string{"EN", "en-US"}, "en")

	got := d.Detect("this is the text and it is not short at all")
	assert.Equal(t, "en", got)
}
