package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T, handler http.HandlerFunc) *ExternalScorer {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewExternalScorer(ExternalConfig{
		BaseURL:        srv.URL,
		Token:          "test-token",
		RequestsPerMin: 6000,
	})
}

func TestExternalScorer_Success(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "some text", req.Text)
		assert.Equal(t, "en", req.Language)

		_, _ = w.Write([]byte(`{"score": 0.87654321}`))
	})

	score, err := scorer.Score(context.Background(), "some text", "en")
	require.NoError(t, err)
	assert.Equal(t, 0.87654321, score)
}

func TestExternalScorer_Quota(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := scorer.Score(context.Background(), "text", "en")
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
}

func TestExternalScorer_UnexpectedStatus(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := scorer.Score(context.Background(), "text", "en")
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestExternalScorer_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "oops"},
		{name: "missing score", body: `{"confidence": 0.3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := scorer.Score(context.Background(), "text", "en")
			assert.True(t, errors.Is(err, ErrMalformedResponse))
		})
	}
}

func TestExternalScorer_ScoreOutOfRange(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"score": 1.5}`))
	})

	_, err := scorer.Score(context.Background(), "text", "en")
	assert.True(t, errors.Is(err, ErrScoreOutOfRange))
}

func TestExternalScorer_BreakerOpensAfterFailures(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < breakerConsecutiveFailures; i++ {
		_, err := scorer.Score(context.Background(), "text", "en")
		require.Error(t, err)
	}

	// Breaker is now open; the failure is still just a failure to callers.
	_, err := scorer.Score(context.Background(), "text", "en")
	assert.Error(t, err)
}
