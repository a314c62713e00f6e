package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	redislib "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

const (
	pingAttempts   = 5
	initialBackoff = 200 * time.Millisecond
	pingTimeout    = 3 * time.Second
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis, retrying the initial ping with exponential backoff.
func New(ctx context.Context, cfg Config) (*redislib.Client, error) {
	client := redislib.NewClient(&redislib.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := ping(ctx, client, pingAttempts, initialBackoff); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", cfg.Addr)
	}

	zlog.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("redis connection established")
	return client, nil
}

func ping(ctx context.Context, client *redislib.Client, attempts int, backoff time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = client.Ping(pingCtx).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		zlog.Debug().Err(lastErr).Int("attempt", attempt).Dur("backoff", backoff).Msg("redis ping failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}
