// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Serve mode: webhook HTTP server plus the processing pipeline
//   - Register mode: one-shot webhook registration with Telegram
//   - Unregister mode: one-shot webhook removal
//   - Seed mode: populate the reply corpus with placeholder rows
//
// Each mode can be run independently based on deployment needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/sentibot/sentibot/internal/corpus"
	"github.com/sentibot/sentibot/internal/dedup"
	"github.com/sentibot/sentibot/internal/levels"
	"github.com/sentibot/sentibot/internal/platform/config"
	"github.com/sentibot/sentibot/internal/platform/observability"
	"github.com/sentibot/sentibot/internal/process/admission"
	"github.com/sentibot/sentibot/internal/process/pipeline"
	"github.com/sentibot/sentibot/internal/sentiment"
	"github.com/sentibot/sentibot/internal/telegram"
	"github.com/sentibot/sentibot/internal/webhook"
)

const (
	webhookPath       = "/webhook"
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	seedBody          = "placeholder reply, edit me"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *corpus.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *corpus.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunServe runs the webhook server and the processing pipeline until ctx
// is canceled.
func (a *App) RunServe(ctx context.Context) error {
	a.logger.Info().Msg("Starting serve mode")

	ledger, err := a.newLedger()
	if err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}

	index, err := a.newLevelIndex()
	if err != nil {
		return fmt.Errorf("level index init: %w", err)
	}

	sender, err := a.newSender()
	if err != nil {
		return fmt.Errorf("sender init: %w", err)
	}

	recorder := observability.Recorder{}

	pipe := pipeline.New(
		pipeline.Config{
			ScorerWorkers:    a.cfg.ScorerWorkers,
			SelectorWorkers:  a.cfg.SelectorWorkers,
			DelivererWorkers: a.cfg.DelivererWorkers,
			QueueSize:        a.cfg.StageQueueSize,
			ScorerTimeout:    a.cfg.ScorerTimeout,
		},
		sentiment.NewLexiconEstimator(),
		sentiment.NewDetector(a.cfg.Languages, a.cfg.LangFallback),
		a.newExternalScorer(),
		index,
		a.database,
		sender,
		recorder,
		*a.logger,
	)

	pipe.Start(ctx)
	defer pipe.Close()

	filter := admission.NewFilter(a.cfg.TextThreshold, a.cfg.SampleEveryN)
	handler := webhook.NewHandler(ledger, filter, pipe, recorder, *a.logger)

	mux := http.NewServeMux()
	mux.Handle(webhookPath, handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ListenPort),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info().Int("port", a.cfg.ListenPort).Str("path", webhookPath).Msg("Webhook server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server error: %w", err)
	}

	return ctx.Err()
}

// RunRegister announces the webhook endpoint to Telegram.
func (a *App) RunRegister(_ context.Context) error {
	a.logger.Info().Msg("Starting register mode")

	if a.cfg.WebhookURL == "" {
		return errors.New("WEBHOOK_URL is required for register mode")
	}

	return a.newRegistrar().Register()
}

// RunUnregister removes the webhook endpoint.
func (a *App) RunUnregister(_ context.Context) error {
	a.logger.Info().Msg("Starting unregister mode")

	return a.newRegistrar().Unregister()
}

// RunSeed inserts a placeholder reply for every configured level and
// language pair, so a fresh deployment can answer before editors fill
// the corpus.
func (a *App) RunSeed(ctx context.Context) error {
	a.logger.Info().Msg("Starting seed mode")

	parsed, err := levels.ParseSpec(a.cfg.ScoreLevels)
	if err != nil {
		return fmt.Errorf("parse score levels: %w", err)
	}

	values := make([]float64, 0, len(parsed))
	for _, level := range parsed {
		values = append(values, level.Value)
	}

	if err := a.database.Seed(ctx, values, a.cfg.Languages, seedBody); err != nil {
		return fmt.Errorf("seed corpus: %w", err)
	}

	a.logger.Info().
		Int("levels", len(values)).
		Int("languages", len(a.cfg.Languages)).
		Msg("corpus seeded")

	return nil
}

// newLedger picks the dedup backend: Redis when an address is configured,
// so restarts and replicas share one ledger, in-memory otherwise.
func (a *App) newLedger() (dedup.Ledger, error) {
	if a.cfg.RedisAddr == "" {
		return dedup.NewMemory(a.cfg.DedupCapacity), nil
	}

	ledger, err := dedup.NewRedis(a.cfg.RedisAddr, a.cfg.DedupCapacity)
	if err != nil {
		return nil, fmt.Errorf("redis ledger: %w", err)
	}

	a.logger.Info().Str("addr", a.cfg.RedisAddr).Msg("using redis dedup ledger")

	return ledger, nil
}

func (a *App) newLevelIndex() (*levels.Index, error) {
	parsed, err := levels.ParseSpec(a.cfg.ScoreLevels)
	if err != nil {
		return nil, fmt.Errorf("parse score levels: %w", err)
	}

	return levels.NewIndex(parsed, a.database), nil
}

// newExternalScorer returns nil when no API is configured; the pipeline
// then relies on the local estimator alone.
func (a *App) newExternalScorer() sentiment.Scorer {
	if a.cfg.SentimentAPIURL == "" {
		return nil
	}

	return sentiment.NewExternalScorer(sentiment.ExternalConfig{
		BaseURL:        a.cfg.SentimentAPIURL,
		Token:          a.cfg.SentimentAPIToken,
		RequestsPerMin: a.cfg.ScorerRPM,
		Timeout:        a.cfg.ScorerTimeout,
	})
}

// newSender builds the delivery client with its own short-timeout HTTP
// transport, so a hung send fails instead of pinning a deliverer worker.
func (a *App) newSender() (telegram.Sender, error) {
	client := &http.Client{Timeout: a.cfg.DelivererTimeout}

	api, err := tgbotapi.NewBotAPIWithClient(a.cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return telegram.NewClient(api, telegram.ClientConfig{RequestsPerMin: a.cfg.DelivererRPM}, *a.logger), nil
}

func (a *App) newRegistrar() *telegram.Registrar {
	return telegram.NewRegistrar(telegram.RegistrarConfig{
		Token:          a.cfg.BotToken,
		WebhookURL:     a.cfg.WebhookURL,
		CertFile:       a.cfg.WebhookCertFile,
		MaxConnections: a.cfg.WebhookMaxConnections,
		Timeout:        a.cfg.RegisterTimeout,
	}, *a.logger)
}
