// Package admission decides whether an incoming update enters the
// processing pipeline. Parsing is best-effort and the filter is pure:
// rejected updates produce no error, only a reason for the drop counter.
package admission

import (
	"encoding/json"
	"unicode/utf8"
)

// ParsedUpdate holds the fields extracted from a raw webhook payload.
// A zero field means the payload did not carry it; nothing is validated
// until the filter runs.
type ParsedUpdate struct {
	UpdateID         int64
	ChatID           int64
	ReplyToMessageID int64
	Text             string
}

// rawUpdate mirrors the subset of the Telegram Update shape the pipeline
// cares about. Everything is optional.
type rawUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		Text      string `json:"text"`
		Chat      *struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Parse extracts the pipeline-relevant fields from a raw update payload.
// Missing or malformed pieces yield an incomplete ParsedUpdate, never an
// error; the filter rejects incomplete updates downstream.
func Parse(raw []byte) ParsedUpdate {
	var update rawUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return ParsedUpdate{}
	}

	parsed := ParsedUpdate{UpdateID: update.UpdateID}

	if update.Message == nil {
		return parsed
	}

	parsed.ReplyToMessageID = update.Message.MessageID
	parsed.Text = update.Message.Text

	if update.Message.Chat != nil {
		parsed.ChatID = update.Message.Chat.ID
	}

	return parsed
}

// Drop reasons reported by the filter.
const (
	ReasonIncomplete = "incomplete"
	ReasonTooShort   = "too_short"
	ReasonNotSampled = "not_sampled"
)

// Filter is the pure admission predicate. The modulus check on the message
// ID is a deliberate rate-shedding policy: deterministic, stateless, and
// it throttles reply volume without a shared limiter.
type Filter struct {
	textThreshold int
	sampleEveryN  int64
}

func NewFilter(textThreshold int, sampleEveryN int64) *Filter {
	if sampleEveryN <= 0 {
		sampleEveryN = 1
	}

	return &Filter{textThreshold: textThreshold, sampleEveryN: sampleEveryN}
}

// Admit reports whether the update is eligible for pipeline entry.
func (f *Filter) Admit(u ParsedUpdate) bool {
	ok, _ := f.AdmitReason(u)

	return ok
}

// AdmitReason is Admit plus the drop reason for observability.
func (f *Filter) AdmitReason(u ParsedUpdate) (bool, string) {
	if u.UpdateID == 0 || u.ChatID == 0 || u.ReplyToMessageID == 0 || u.Text == "" {
		return false, ReasonIncomplete
	}

	if utf8.RuneCountInString(u.Text) < f.textThreshold {
		return false, ReasonTooShort
	}

	if u.ReplyToMessageID%f.sampleEveryN != 0 {
		return false, ReasonNotSampled
	}

	return true, ""
}
