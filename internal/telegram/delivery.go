// Package telegram wraps the Bot API surface the service needs: sending
// reply messages and managing the webhook registration.
package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// statusTransportError marks deliveries that failed before reaching the
// Bot API, so every outcome carries a numeric status.
const statusTransportError = 599

// DeliveryResult is the terminal outcome of one send attempt. Failed
// deliveries are recorded, never retried.
type DeliveryResult struct {
	OK         bool
	StatusCode int
	Detail     string
}

// Sender delivers a reply into a chat as a reply to a specific message.
type Sender interface {
	Send(ctx context.Context, chatID, replyToMessageID int64, text string, rich bool) DeliveryResult
}

type botAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ClientConfig controls the rate-limited delivery client.
type ClientConfig struct {
	RequestsPerMin int
}

// Client sends replies through the Bot API behind a shared rate limiter.
type Client struct {
	api     botAPI
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewClient(api botAPI, cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 30
	}

	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60.0), 1),
		logger:  logger.With().Str("component", "telegram_client").Logger(),
	}
}

// Send delivers text as a reply. An empty text is a no-op delivery: it
// completes the pipeline for updates that produced nothing to send.
func (c *Client) Send(ctx context.Context, chatID, replyToMessageID int64, text string, rich bool) DeliveryResult {
	if text == "" {
		return DeliveryResult{OK: true, StatusCode: 200, Detail: "empty payload, nothing sent"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return DeliveryResult{StatusCode: statusTransportError, Detail: err.Error()}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = int(replyToMessageID)
	msg.DisableWebPagePreview = true

	if rich {
		msg.ParseMode = tgbotapi.ModeHTML
	}

	resp, err := c.api.Request(msg)
	if err != nil {
		if resp != nil && resp.ErrorCode != 0 {
			return DeliveryResult{StatusCode: resp.ErrorCode, Detail: resp.Description}
		}

		return DeliveryResult{StatusCode: statusTransportError, Detail: err.Error()}
	}

	if !resp.Ok {
		return DeliveryResult{StatusCode: resp.ErrorCode, Detail: resp.Description}
	}

	c.logger.Debug().
		Int64("chat_id", chatID).
		Str("reply_to", strconv.FormatInt(replyToMessageID, 10)).
		Msg("reply delivered")

	return DeliveryResult{OK: true, StatusCode: 200}
}
