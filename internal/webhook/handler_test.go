package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentibot/sentibot/internal/dedup"
	"github.com/sentibot/sentibot/internal/process/admission"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []admission.ParsedUpdate
	noOps     []admission.ParsedUpdate
	err       error
}

func (f *fakeSubmitter) Submit(_ context.Context, u admission.ParsedUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, u)

	return f.err
}

func (f *fakeSubmitter) SubmitNoOp(_ context.Context, u admission.ParsedUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.noOps = append(f.noOps, u)

	return f.err
}

func newTestHandler(pipe *fakeSubmitter) *Handler {
	ledger := dedup.NewMemory(dedup.DefaultCapacity)
	filter := admission.NewFilter(100, 7)

	return NewHandler(ledger, filter, pipe, nil, zerolog.Nop())
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func admittedPayload() string {
	return `{"update_id":42,"message":{"message_id":700,"chat":{"id":-100123},"text":"` +
		strings.Repeat("a", 150) + `"}}`
}

func TestHandler_AdmittedEchoesUpdate(t *testing.T) {
	pipe := &fakeSubmitter{}
	h := newTestHandler(pipe)

	body := admittedPayload()
	rec := post(t, h, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, body, rec.Body.String())

	require.Len(t, pipe.submitted, 1)
	assert.Equal(t, int64(42), pipe.submitted[0].UpdateID)
	assert.Equal(t, int64(700), pipe.submitted[0].ReplyToMessageID)
	assert.Empty(t, pipe.noOps)
}

func TestHandler_RejectedGetsEmptyObjectAndNoOp(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "short text", body: `{"update_id":1,"message":{"message_id":700,"chat":{"id":5},"text":"too short"}}`},
		{name: "not sampled", body: `{"update_id":2,"message":{"message_id":701,"chat":{"id":5},"text":"` + strings.Repeat("a", 150) + `"}}`},
		{name: "no message", body: `{"update_id":3}`},
		{name: "malformed json", body: `{"update_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe := &fakeSubmitter{}
			h := newTestHandler(pipe)

			rec := post(t, h, tt.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "{}", rec.Body.String())
			assert.Empty(t, pipe.submitted)
			assert.Len(t, pipe.noOps, 1)
		})
	}
}

func TestHandler_DuplicateRejected(t *testing.T) {
	pipe := &fakeSubmitter{}
	h := newTestHandler(pipe)

	body := admittedPayload()

	first := post(t, h, body)
	assert.JSONEq(t, body, first.Body.String())

	second := post(t, h, body)
	assert.Equal(t, "{}", second.Body.String())

	assert.Len(t, pipe.submitted, 1)
	assert.Len(t, pipe.noOps, 1)
}

func TestHandler_DuplicateOfRejectedUpdate(t *testing.T) {
	// rejection does not bypass the ledger: the second arrival of a
	// rejected update is dropped as a duplicate, not re-filtered
	pipe := &fakeSubmitter{}
	h := newTestHandler(pipe)

	body := `{"update_id":9,"message":{"message_id":700,"chat":{"id":5},"text":"short"}}`

	post(t, h, body)
	post(t, h, body)

	assert.Empty(t, pipe.submitted)
	assert.Len(t, pipe.noOps, 2)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	pipe := &fakeSubmitter{}
	h := newTestHandler(pipe)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.Empty(t, pipe.submitted)
	assert.Empty(t, pipe.noOps)
}

func TestHandler_MissingUpdateIDSkipsLedger(t *testing.T) {
	pipe := &fakeSubmitter{}
	h := newTestHandler(pipe)

	body := `{"message":{"message_id":700,"chat":{"id":5},"text":"` + strings.Repeat("a", 150) + `"}}`

	// same incomplete payload twice: both rejected for admission, not dedup
	post(t, h, body)
	rec := post(t, h, body)

	assert.Equal(t, "{}", rec.Body.String())
	assert.Len(t, pipe.noOps, 2)
}
