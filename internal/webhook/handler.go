// Package webhook exposes the HTTP endpoint Telegram pushes updates to.
// The handler answers fast: dedup and admission run synchronously, the
// heavy pipeline work runs asynchronously after the response.
package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sentibot/sentibot/internal/dedup"
	"github.com/sentibot/sentibot/internal/process/admission"
)

// maxBodySize bounds the accepted payload. Telegram updates are small;
// anything near a megabyte is not one.
const maxBodySize = 1 << 20

const emptyObject = "{}"

// Submitter is the pipeline intake the handler feeds.
type Submitter interface {
	Submit(ctx context.Context, update admission.ParsedUpdate) error
	SubmitNoOp(ctx context.Context, update admission.ParsedUpdate) error
}

// Metrics counts webhook-level outcomes.
type Metrics interface {
	UpdateReceived()
	UpdateAdmitted()
	UpdateRejected(reason string)
}

type nopMetrics struct{}

func (nopMetrics) UpdateReceived()       {}
func (nopMetrics) UpdateAdmitted()       {}
func (nopMetrics) UpdateRejected(string) {}

// Handler accepts update pushes. Admitted updates are echoed back and
// queued for processing; everything else gets an empty object and a
// no-op delivery, so Telegram never sees an error for a drop.
type Handler struct {
	ledger  dedup.Ledger
	filter  *admission.Filter
	pipe    Submitter
	metrics Metrics
	logger  zerolog.Logger
}

func NewHandler(ledger dedup.Ledger, filter *admission.Filter, pipe Submitter, metrics Metrics, logger zerolog.Logger) *Handler {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Handler{
		ledger:  ledger,
		filter:  filter,
		pipe:    pipe,
		metrics: metrics,
		logger:  logger.With().Str("component", "webhook").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read update body")
		h.respond(w, emptyObject)

		return
	}

	h.metrics.UpdateReceived()

	update := admission.Parse(body)

	logger := h.logger.With().Int64("update_id", update.UpdateID).Logger()

	if h.duplicate(r.Context(), update, logger) {
		h.metrics.UpdateRejected("duplicate")
		h.reject(r.Context(), w, update, logger, "duplicate")

		return
	}

	if ok, reason := h.filter.AdmitReason(update); !ok {
		h.metrics.UpdateRejected(reason)
		h.reject(r.Context(), w, update, logger, reason)

		return
	}

	h.metrics.UpdateAdmitted()

	if err := h.pipe.Submit(r.Context(), update); err != nil {
		logger.Error().Err(err).Msg("failed to enqueue admitted update")
	}

	logger.Debug().Msg("update admitted")
	h.respond(w, string(body))
}

// duplicate runs the atomic check-and-record. A ledger failure fails
// open: better a rare double reply than dropping updates while the
// ledger backend is unavailable.
func (h *Handler) duplicate(ctx context.Context, update admission.ParsedUpdate, logger zerolog.Logger) bool {
	if update.UpdateID == 0 {
		return false
	}

	seen, err := h.ledger.CheckAndRecord(ctx, update.UpdateID)
	if err != nil {
		logger.Error().Err(err).Msg("dedup ledger unavailable")

		return false
	}

	return seen
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, update admission.ParsedUpdate, logger zerolog.Logger, reason string) {
	if err := h.pipe.SubmitNoOp(ctx, update); err != nil {
		logger.Error().Err(err).Msg("failed to enqueue no-op delivery")
	}

	logger.Debug().Str("reason", reason).Msg("update rejected")
	h.respond(w, emptyObject)
}

func (h *Handler) respond(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, body); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}
