// Package pipeline runs admitted updates through three asynchronous
// stages: scoring, reply selection, and delivery. Each stage owns a
// bounded queue and a fixed worker pool, so a slow dependency backs
// pressure up instead of spawning unbounded goroutines.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sentibot/sentibot/internal/corpus"
	"github.com/sentibot/sentibot/internal/levels"
	"github.com/sentibot/sentibot/internal/process/admission"
	"github.com/sentibot/sentibot/internal/sentiment"
	"github.com/sentibot/sentibot/internal/telegram"
)

// Stage names used in logs and metrics labels.
const (
	StageScorer    = "scorer"
	StageSelector  = "selector"
	StageDeliverer = "deliverer"
)

// Task is the unit of work flowing through the stages. Fields are filled
// in as the task advances; a no-op task skips straight to delivery.
type Task struct {
	ID     string
	Update admission.ParsedUpdate

	Score    float64
	Language string

	ReplyText string
	ReplyRich bool

	NoOp bool
}

// Metrics receives stage outcomes. The observability package implements
// it; tests use the no-op.
type Metrics interface {
	StageDone(stage string, d time.Duration, ok bool)
	DeliveryDone(statusCode int, ok bool)
	CorpusExhausted()
}

type nopMetrics struct{}

func (nopMetrics) StageDone(string, time.Duration, bool) {}
func (nopMetrics) DeliveryDone(int, bool)                {}
func (nopMetrics) CorpusExhausted()                      {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

// Config sizes the pools and queues and bounds each stage's work. The
// deliverer has no stage timeout here: its sends queue at the rate
// limiter, and the transport itself carries the per-request timeout.
type Config struct {
	ScorerWorkers    int
	SelectorWorkers  int
	DelivererWorkers int
	QueueSize        int
	ScorerTimeout    time.Duration
}

func (c *Config) defaults() {
	if c.ScorerWorkers <= 0 {
		c.ScorerWorkers = 4
	}

	if c.SelectorWorkers <= 0 {
		c.SelectorWorkers = 4
	}

	if c.DelivererWorkers <= 0 {
		c.DelivererWorkers = 4
	}

	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}

	if c.ScorerTimeout <= 0 {
		c.ScorerTimeout = 3 * time.Second
	}
}

// Pipeline wires the stages together. Create with New, then Start; Submit
// feeds admitted updates in, Close drains the queues and stops the pools.
type Pipeline struct {
	cfg Config

	estimator sentiment.Estimator
	detector  sentiment.Detector
	external  sentiment.Scorer
	index     *levels.Index
	store     corpus.Store
	sender    telegram.Sender

	scoreQ   chan *Task
	selectQ  chan *Task
	deliverQ chan *Task

	metrics Metrics
	logger  zerolog.Logger

	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
	closed  bool
}

// New builds a pipeline. external may be nil, in which case the local
// estimate is final.
func New(
	cfg Config,
	estimator sentiment.Estimator,
	detector sentiment.Detector,
	external sentiment.Scorer,
	index *levels.Index,
	store corpus.Store,
	sender telegram.Sender,
	metrics Metrics,
	logger zerolog.Logger,
) *Pipeline {
	cfg.defaults()

	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Pipeline{
		cfg:       cfg,
		estimator: estimator,
		detector:  detector,
		external:  external,
		index:     index,
		store:     store,
		sender:    sender,
		scoreQ:    make(chan *Task, cfg.QueueSize),
		selectQ:   make(chan *Task, cfg.QueueSize),
		deliverQ:  make(chan *Task, cfg.QueueSize),
		metrics:   metrics,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Start launches the worker pools. ctx bounds in-flight stage work; the
// pools themselves run until Close.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.started = true

	p.spawn(ctx, p.cfg.ScorerWorkers, StageScorer, p.scoreQ, p.runScorer)
	p.spawn(ctx, p.cfg.SelectorWorkers, StageSelector, p.selectQ, p.runSelector)
	p.spawn(ctx, p.cfg.DelivererWorkers, StageDeliverer, p.deliverQ, p.runDeliverer)
}

// Close stops intake, lets queued tasks drain through the stages, and
// waits for all workers to exit.
func (p *Pipeline) Close() {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()

		return
	}

	p.closed = true
	p.mu.Unlock()

	close(p.scoreQ)
	// downstream queues are closed by the stage that feeds them once its
	// own pool drains; see spawn
	p.wg.Wait()
}

// Submit enqueues an admitted update for scoring. It blocks when the
// scorer queue is full and fails only if ctx ends first.
func (p *Pipeline) Submit(ctx context.Context, update admission.ParsedUpdate) error {
	task := &Task{ID: uuid.NewString(), Update: update}

	return p.enqueue(ctx, p.scoreQ, task)
}

// SubmitNoOp enqueues an empty delivery for an update that was rejected
// or already seen, so every accepted webhook call finishes with a
// delivery record.
func (p *Pipeline) SubmitNoOp(ctx context.Context, update admission.ParsedUpdate) error {
	task := &Task{ID: uuid.NewString(), Update: update, NoOp: true}

	return p.enqueue(ctx, p.deliverQ, task)
}

// enqueue holds the mutex across the send so Close cannot close the
// queue out from under an in-flight submission.
func (p *Pipeline) enqueue(ctx context.Context, q chan<- *Task, task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return context.Canceled
	}

	select {
	case q <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// spawn starts n workers draining q through fn. The last worker of the
// scorer and selector pools closes the downstream queue so the next pool
// can drain and exit in turn.
func (p *Pipeline) spawn(ctx context.Context, n int, stage string, q chan *Task, fn func(context.Context, *Task)) {
	var poolWG sync.WaitGroup

	for i := 0; i < n; i++ {
		p.wg.Add(1)
		poolWG.Add(1)

		go func(worker int) {
			defer p.wg.Done()
			defer poolWG.Done()

			logger := p.logger.With().Str("stage", stage).Int("worker", worker).Logger()

			for task := range q {
				p.runOne(ctx, stage, task, fn, logger)
			}
		}(i)
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		poolWG.Wait()

		switch stage {
		case StageScorer:
			close(p.selectQ)
		case StageSelector:
			close(p.deliverQ)
		}
	}()
}

// runOne isolates a single task: a panicking stage must not take its
// worker down with it.
func (p *Pipeline) runOne(ctx context.Context, stage string, task *Task, fn func(context.Context, *Task), logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("task_id", task.ID).
				Interface("panic", r).
				Msg("stage panicked, task dropped")
			p.metrics.StageDone(stage, 0, false)
		}
	}()

	fn(ctx, task)
}

func (p *Pipeline) forward(ctx context.Context, q chan<- *Task, task *Task) {
	select {
	case q <- task:
	case <-ctx.Done():
		p.logger.Warn().Str("task_id", task.ID).Msg("shutdown before task reached next stage")
	}
}

// runScorer detects the text language and scores sentiment. The local
// lexicon estimate is always computed first; a configured external
// scorer refines it, and any refinement failure falls back to the local
// value rather than failing the task.
func (p *Pipeline) runScorer(ctx context.Context, task *Task) {
	start := time.Now()

	task.Language = p.detector.Detect(task.Update.Text)
	task.Score = p.estimator.Score(task.Update.Text)

	if p.external != nil {
		scoreCtx, cancel := context.WithTimeout(ctx, p.cfg.ScorerTimeout)

		refined, err := p.external.Score(scoreCtx, task.Update.Text, task.Language)

		cancel()

		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("task_id", task.ID).
				Float64("local_score", task.Score).
				Msg("external scoring failed, keeping local estimate")
		} else {
			task.Score = refined
		}
	}

	p.metrics.StageDone(StageScorer, time.Since(start), true)

	p.logger.Debug().
		Str("task_id", task.ID).
		Str("language", task.Language).
		Float64("score", task.Score).
		Msg("update scored")

	p.forward(ctx, p.selectQ, task)
}

// runSelector picks a reply from the corpus at the nearest populated
// score level. An exhausted corpus is an operational problem worth a
// loud log line; the task ends here rather than delivering nothing.
func (p *Pipeline) runSelector(ctx context.Context, task *Task) {
	start := time.Now()

	level, err := p.index.NearestNonEmptyLevel(ctx, task.Language, task.Score)
	if err != nil {
		p.metrics.StageDone(StageSelector, time.Since(start), false)
		p.metrics.CorpusExhausted()
		p.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Str("language", task.Language).
			Float64("score", task.Score).
			Msg("no reply available at any score level")

		return
	}

	reply, err := p.store.FetchRandom(ctx, level.Value, task.Language)
	if err != nil {
		p.metrics.StageDone(StageSelector, time.Since(start), false)
		p.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Float64("level", level.Value).
			Msg("reply fetch failed")

		return
	}

	task.ReplyText, task.ReplyRich = reply.Text()

	p.metrics.StageDone(StageSelector, time.Since(start), true)

	p.logger.Debug().
		Str("task_id", task.ID).
		Float64("level", level.Value).
		Str("level_desc", level.Desc).
		Msg("reply selected")

	p.forward(ctx, p.deliverQ, task)
}

// runDeliverer sends the reply. Every outcome is terminal: failures are
// logged and counted, never retried.
func (p *Pipeline) runDeliverer(ctx context.Context, task *Task) {
	start := time.Now()

	text := task.ReplyText
	if task.NoOp {
		text = ""
	}

	res := p.sender.Send(ctx, task.Update.ChatID, task.Update.ReplyToMessageID, text, task.ReplyRich)

	p.metrics.StageDone(StageDeliverer, time.Since(start), res.OK)
	p.metrics.DeliveryDone(res.StatusCode, res.OK)

	event := p.logger.Info()
	if !res.OK {
		event = p.logger.Warn()
	}

	event.
		Str("task_id", task.ID).
		Int64("chat_id", task.Update.ChatID).
		Int64("reply_to", task.Update.ReplyToMessageID).
		Bool("ok", res.OK).
		Int("status_code", res.StatusCode).
		Str("detail", res.Detail).
		Bool("no_op", task.NoOp).
		Msg("delivery finished")
}
