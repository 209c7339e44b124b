package admission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	longText := strings.Repeat("a", 150)

	tests := []struct {
		name string
		raw  string
		want ParsedUpdate
	}{
		{
			name: "full update",
			raw:  `{"update_id":42,"message":{"message_id":700,"chat":{"id":-100123},"text":"` + longText + `"}}`,
			want: ParsedUpdate{UpdateID: 42, ChatID: -100123, ReplyToMessageID: 700, Text: longText},
		},
		{
			name: "no message",
			raw:  `{"update_id":42}`,
			want: ParsedUpdate{UpdateID: 42},
		},
		{
			name: "no chat",
			raw:  `{"update_id":42,"message":{"message_id":700,"text":"hi"}}`,
			want: ParsedUpdate{UpdateID: 42, ReplyToMessageID: 700, Text: "hi"},
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: ParsedUpdate{},
		},
		{
			name: "malformed json",
			raw:  `{"update_id":`,
			want: ParsedUpdate{},
		},
		{
			name: "unexpected extra fields ignored",
			raw:  `{"update_id":7,"edited_message":{"message_id":1},"message":{"message_id":14,"chat":{"id":5},"text":"x","entities":[]}}`,
			want: ParsedUpdate{UpdateID: 7, ChatID: 5, ReplyToMessageID: 14, Text: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse([]byte(tt.raw)))
		})
	}
}

func TestFilter_AdmitReason(t *testing.T) {
	f := NewFilter(100, 7)
	longText := strings.Repeat("слово ", 25) // 150 runes

	require.Equal(t, 150, len([]rune(longText)))

	tests := []struct {
		name   string
		update ParsedUpdate
		admit  bool
		reason string
	}{
		{
			name:   "admitted",
			update: ParsedUpdate{UpdateID: 42, ChatID: 1, ReplyToMessageID: 700, Text: longText},
			admit:  true,
		},
		{
			name:   "missing update id",
			update: ParsedUpdate{ChatID: 1, ReplyToMessageID: 700, Text: longText},
			reason: ReasonIncomplete,
		},
		{
			name:   "missing chat",
			update: ParsedUpdate{UpdateID: 42, ReplyToMessageID: 700, Text: longText},
			reason: ReasonIncomplete,
		},
		{
			name:   "missing message id",
			update: ParsedUpdate{UpdateID: 42, ChatID: 1, Text: longText},
			reason: ReasonIncomplete,
		},
		{
			name:   "missing text",
			update: ParsedUpdate{UpdateID: 42, ChatID: 1, ReplyToMessageID: 700},
			reason: ReasonIncomplete,
		},
		{
			name:   "text below threshold",
			update: ParsedUpdate{UpdateID: 42, ChatID: 1, ReplyToMessageID: 700, Text: strings.Repeat("a", 99)},
			reason: ReasonTooShort,
		},
		{
			name:   "text exactly at threshold",
			update: ParsedUpdate{UpdateID: 42, ChatID: 1, ReplyToMessageID: 700, Text: strings.Repeat("a", 100)},
			admit:  true,
		},
		{
			name:   "threshold counts runes not bytes",
			update: ParsedUpdate{UpdateID: 42, ChatID: 1, ReplyToMessageID: 700, Text: strings.Repeat("ж", 100)},
			admit:  true,
		},
		{
			name:   "message id not divisible",
			update: ParsedUpdate{UpdateID: 42, ChatID: 1, ReplyToMessageID: 701, Text: longText},
			reason: ReasonNotSampled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admit, reason := f.AdmitReason(tt.update)
			assert.Equal(t, tt.admit, admit)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.admit, f.Admit(tt.update))
		})
	}
}

func TestNewFilter_ZeroModulus(t *testing.T) {
	f := NewFilter(1, 0)

	assert.True(t, f.Admit(ParsedUpdate{UpdateID: 1, ChatID: 1, ReplyToMessageID: 3, Text: "hello"}))
}
