package corpus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	maxConnectionRetries = 5
	connectionRetrySleep = 2 * time.Second
)

// DB is the PostgreSQL-backed corpus store.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// New connects to the corpus database with retries.
func New(ctx context.Context, dsn string, logger *zerolog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse corpus db config: %w", err)
	}

	var pool *pgxpool.Pool

	for i := 0; i < maxConnectionRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &DB{Pool: pool, logger: logger}, nil
			}
		}

		if pool != nil {
			pool.Close()
		}

		time.Sleep(connectionRetrySleep)
	}

	return nil, fmt.Errorf("failed to connect to corpus database after retries: %w", err)
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// EnsureSchema creates the replies table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS replies (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	level DOUBLE PRECISION NOT NULL,
	language VARCHAR(2) NOT NULL,
	body TEXT NOT NULL,
	body_html TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS replies_level_language_idx ON replies (level, language);
`

	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure corpus schema: %w", err)
	}

	return nil
}

// Exists reports whether at least one reply is stored for the pair.
func (db *DB) Exists(ctx context.Context, level float64, language string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM replies WHERE level = $1 AND language = $2)`

	var exists bool
	if err := db.Pool.QueryRow(ctx, query, level, language).Scan(&exists); err != nil {
		return false, fmt.Errorf("corpus exists: %w", err)
	}

	return exists, nil
}

// FetchRandom returns one reply for the pair, chosen uniformly at random.
func (db *DB) FetchRandom(ctx context.Context, level float64, language string) (Reply, error) {
	const query = `
SELECT body, COALESCE(body_html, '')
FROM replies
WHERE level = $1 AND language = $2
ORDER BY random()
LIMIT 1`

	var reply Reply

	err := db.Pool.QueryRow(ctx, query, level, language).Scan(&reply.Body, &reply.BodyHTML)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reply{}, fmt.Errorf("%w: level %v, language %q", ErrNoReply, level, language)
	}

	if err != nil {
		return Reply{}, fmt.Errorf("corpus fetch: %w", err)
	}

	return reply, nil
}

// Seed inserts one plain reply per (level, language) pair that has none,
// so a fresh deployment satisfies the non-empty-level precondition.
func (db *DB) Seed(ctx context.Context, levels []float64, languages []string, body string) error {
	const insert = `
INSERT INTO replies (level, language, body)
SELECT $1, $2, $3
WHERE NOT EXISTS (SELECT 1 FROM replies WHERE level = $1 AND language = $2)`

	for _, level := range levels {
		for _, language := range languages {
			if _, err := db.Pool.Exec(ctx, insert, level, language, body); err != nil {
				return fmt.Errorf("seed corpus level %v language %q: %w", level, language, err)
			}
		}
	}

	db.logger.Info().Int("levels", len(levels)).Int("languages", len(languages)).Msg("corpus seeded")

	return nil
}
