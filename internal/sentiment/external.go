package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	externalDefaultTimeout = 3 * time.Second
	externalDefaultRPM     = 60
	secondsPerMinute       = 60.0

	breakerConsecutiveFailures = 5
	breakerOpenTimeout         = time.Minute
)

var (
	ErrUnexpectedStatus  = errors.New("sentiment api unexpected status")
	ErrMalformedResponse = errors.New("sentiment api malformed response")
	ErrQuotaExceeded     = errors.New("sentiment api quota exceeded")
	ErrScoreOutOfRange   = errors.New("sentiment api score out of range")
)

// Scorer is the external refinement service boundary. Failures are
// recoverable by design; callers fall back to the local estimate.
type Scorer interface {
	Score(ctx context.Context, text, language string) (float64, error)
}

// ExternalConfig configures the external sentiment API client.
type ExternalConfig struct {
	BaseURL        string
	Token          string
	RequestsPerMin int
	Timeout        time.Duration
}

// ExternalScorer calls the remote sentiment API. Calls go through a
// per-minute rate limiter (excess submissions queue, never drop) and a
// circuit breaker so a dead service stops burning its own timeout.
type ExternalScorer struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
}

func NewExternalScorer(cfg ExternalConfig) *ExternalScorer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = externalDefaultTimeout
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = externalDefaultRPM
	}

	rps := float64(rpm) / secondsPerMinute

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sentiment-api",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
	})

	return &ExternalScorer{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker:     breaker,
	}
}

type scoreRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type scoreResponse struct {
	Score *float64 `json:"score"`
}

func (s *ExternalScorer) Score(ctx context.Context, text, language string) (float64, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("sentiment rate limit: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.score(ctx, text, language)
	})
	if err != nil {
		return 0, err
	}

	score, ok := result.(float64)
	if !ok {
		return 0, ErrMalformedResponse
	}

	return score, nil
}

func (s *ExternalScorer) score(ctx context.Context, text, language string) (float64, error) {
	payload, err := json.Marshal(scoreRequest{Text: text, Language: language})
	if err != nil {
		return 0, fmt.Errorf("encode sentiment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create sentiment request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sentiment request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, ErrQuotaExceeded
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read sentiment response: %w", err)
	}

	var parsed scoreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if parsed.Score == nil {
		return 0, fmt.Errorf("%w: missing score field", ErrMalformedResponse)
	}

	if *parsed.Score < 0.0 || *parsed.Score > 1.0 {
		return 0, fmt.Errorf("%w: %v", ErrScoreOutOfRange, *parsed.Score)
	}

	return *parsed.Score, nil
}
