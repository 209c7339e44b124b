package telegram

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// RegistrarConfig describes the webhook endpoint announced to Telegram.
type RegistrarConfig struct {
	Token          string
	WebhookURL     string
	CertFile       string
	MaxConnections int
	Timeout        time.Duration
}

// Registrar registers and removes the webhook endpoint. Registration is a
// one-shot administrative call, so it uses its own long-timeout client
// instead of the delivery limiter.
type Registrar struct {
	cfg    RegistrarConfig
	logger zerolog.Logger
}

func NewRegistrar(cfg RegistrarConfig, logger zerolog.Logger) *Registrar {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 40
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &Registrar{cfg: cfg, logger: logger.With().Str("component", "webhook_registrar").Logger()}
}

func (r *Registrar) api() (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: r.cfg.Timeout}

	api, err := tgbotapi.NewBotAPIWithClient(r.cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return api, nil
}

// Register announces the webhook URL, uploading the self-signed
// certificate when one is configured.
func (r *Registrar) Register() error {
	api, err := r.api()
	if err != nil {
		return err
	}

	endpoint, err := url.Parse(r.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("parse webhook url: %w", err)
	}

	var cfg tgbotapi.WebhookConfig

	if r.cfg.CertFile != "" {
		cert, err := os.ReadFile(r.cfg.CertFile)
		if err != nil {
			return fmt.Errorf("read webhook certificate: %w", err)
		}

		cfg = tgbotapi.WebhookConfig{
			URL:         endpoint,
			Certificate: tgbotapi.FileBytes{Name: "cert.pem", Bytes: cert},
		}
	} else {
		cfg = tgbotapi.WebhookConfig{URL: endpoint}
	}

	cfg.MaxConnections = r.cfg.MaxConnections

	resp, err := api.Request(cfg)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	if !resp.Ok {
		return fmt.Errorf("set webhook: %d %s", resp.ErrorCode, resp.Description)
	}

	r.logger.Info().
		Str("url", r.cfg.WebhookURL).
		Int("max_connections", r.cfg.MaxConnections).
		Msg("webhook registered")

	return nil
}

// Unregister removes the webhook so the bot stops receiving pushes.
func (r *Registrar) Unregister() error {
	api, err := r.api()
	if err != nil {
		return err
	}

	resp, err := api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	if !resp.Ok {
		return fmt.Errorf("delete webhook: %d %s", resp.ErrorCode, resp.Description)
	}

	r.logger.Info().Msg("webhook removed")

	return nil
}
