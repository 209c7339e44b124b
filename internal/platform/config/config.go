package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	BotToken    string `env:"BOT_TOKEN,required"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	RedisAddr   string `env:"REDIS_ADDR"`

	ListenPort int `env:"LISTEN_PORT" envDefault:"8443"`
	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`

	DedupCapacity int   `env:"DEDUP_CAPACITY" envDefault:"20"`
	TextThreshold int   `env:"TEXT_THRESHOLD" envDefault:"100"`
	SampleEveryN  int64 `env:"SAMPLE_EVERY_N" envDefault:"7"`

	ScorerWorkers    int `env:"SCORER_WORKERS" envDefault:"4"`
	SelectorWorkers  int `env:"SELECTOR_WORKERS" envDefault:"4"`
	DelivererWorkers int `env:"DELIVERER_WORKERS" envDefault:"4"`
	StageQueueSize   int `env:"STAGE_QUEUE_SIZE" envDefault:"256"`

	ScorerRPM        int           `env:"SCORER_RPM" envDefault:"60"`
	DelivererRPM     int           `env:"DELIVERER_RPM" envDefault:"30"`
	ScorerTimeout    time.Duration `env:"SCORER_TIMEOUT" envDefault:"3s"`
	DelivererTimeout time.Duration `env:"DELIVERER_TIMEOUT" envDefault:"3s"`

	SentimentAPIURL   string `env:"SENTIMENT_API_URL"`
	SentimentAPIToken string `env:"SENTIMENT_API_TOKEN"`

	LangFallback string   `env:"LANG_FALLBACK" envDefault:"ru"`
	Languages    []string `env:"LANGUAGES" envSeparator:"," envDefault:"ru,de,en,fr"`

	// Comma-separated value:description:category triples, ordered by value.
	ScoreLevels []string `env:"SCORE_LEVELS" envSeparator:"," envDefault:"0.0:Very negative:danger,0.25:Negative:warning,0.375:Slightly negative:warning,0.5:Neutral:default,0.625:Slightly positive:info,0.75:Positive:info,1.0:Very positive:success"`

	// Webhook registration. Registration is infrequent and tolerates
	// multi-second round trips, hence the long timeout.
	WebhookURL            string        `env:"WEBHOOK_URL"`
	WebhookCertFile       string        `env:"WEBHOOK_CERT_FILE"`
	WebhookMaxConnections int           `env:"WEBHOOK_MAX_CONNECTIONS" envDefault:"40"`
	RegisterTimeout       time.Duration `env:"REGISTER_TIMEOUT" envDefault:"2m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}
