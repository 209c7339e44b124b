package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentibot_updates_received_total",
		Help: "The total number of webhook updates received",
	})

	UpdatesAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentibot_updates_admitted_total",
		Help: "The total number of updates admitted into the pipeline",
	})

	UpdatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibot_updates_rejected_total",
		Help: "The total number of rejected updates by reason",
	}, []string{"reason"})

	StageProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibot_stage_processed_total",
		Help: "The total number of tasks finished per pipeline stage",
	}, []string{"stage", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentibot_stage_duration_seconds",
		Help:    "Duration of pipeline stage work",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentibot_deliveries_total",
		Help: "The total number of finished deliveries by status code",
	}, []string{"status_code"})

	CorpusExhaustions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentibot_corpus_exhausted_total",
		Help: "The total number of updates dropped because no score level had a reply",
	})
)

// Recorder adapts the package metrics to the interfaces the webhook
// handler and the pipeline consume.
type Recorder struct{}

func (Recorder) UpdateReceived() { UpdatesReceived.Inc() }

func (Recorder) UpdateAdmitted() { UpdatesAdmitted.Inc() }

func (Recorder) UpdateRejected(reason string) { UpdatesRejected.WithLabelValues(reason).Inc() }

func (Recorder) StageDone(stage string, d time.Duration, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}

	StageProcessed.WithLabelValues(stage, status).Inc()
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (Recorder) DeliveryDone(statusCode int, _ bool) {
	Deliveries.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (Recorder) CorpusExhausted() { CorpusExhaustions.Inc() }
