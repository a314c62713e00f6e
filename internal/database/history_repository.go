package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

const historyRepoTimeout = 2 * time.Second

// HistoryEntry is one started track of a guild.
type HistoryEntry struct {
	GuildID     string
	TrackID     string
	Title       string
	Locator     string
	Duration    time.Duration
	RequestedBy string
	PlayedAt    time.Time
}

// HistoryRepository stores started tracks. A nil repository, or one without a
// database, silently does nothing.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Enabled() bool {
	return r != nil && r.db != nil
}

func (r *HistoryRepository) Record(ctx context.Context, entry HistoryEntry) error {
	if !r.Enabled() {
		return nil
	}
	if entry.GuildID == "" || entry.Locator == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	const query = `
		INSERT INTO track_history (guild_id, track_id, title, locator, duration_seconds, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.GuildID,
		entry.TrackID,
		entry.Title,
		entry.Locator,
		int64(entry.Duration/time.Second),
		entry.RequestedBy,
	)
	return errors.Wrapf(err, "record history for guild %s", entry.GuildID)
}

// Recent returns the guild's latest entries, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, guildID string, limit int) ([]HistoryEntry, error) {
	if !r.Enabled() || guildID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	const query = `
		SELECT track_id, title, locator, duration_seconds, requested_by, played_at
		FROM track_history
		WHERE guild_id = $1
		ORDER BY played_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, guildID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "query history for guild %s", guildID)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		entry := HistoryEntry{GuildID: guildID}
		var seconds int64
		if err := rows.Scan(&entry.TrackID, &entry.Title, &entry.Locator, &seconds, &entry.RequestedBy, &entry.PlayedAt); err != nil {
			return nil, errors.Wrap(err, "scan history row")
		}
		entry.Duration = time.Duration(seconds) * time.Second
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate history rows")
	}
	return entries, nil
}
