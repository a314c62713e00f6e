package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
	zlog "github.com/rs/zerolog/log"
)

const pingTimeout = 5 * time.Second

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (cfg *Config) ConnectionString() string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.DBName, sslMode,
	)
	if cfg.Password != "" {
		connStr += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return connStr
}

// Open connects to Postgres, verifies the connection and applies migrations.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	zlog.Info().Str("host", cfg.Host).Str("database", cfg.DBName).Msg("database connection established")
	return db, nil
}

var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS track_history (
		id BIGSERIAL PRIMARY KEY,
		guild_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		title TEXT NOT NULL,
		locator TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		requested_by TEXT NOT NULL DEFAULT '',
		played_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS track_history_guild_played_idx
		ON track_history (guild_id, played_at DESC);
	`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return errors.Wrapf(err, "execute migration %d", i+1)
		}
	}
	zlog.Debug().Int("count", len(migrations)).Msg("database migrations completed")
	return nil
}
