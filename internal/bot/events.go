package bot

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/hxnx/jukebot/internal/database"
	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

const playbackErrorNotice = "An error occurred while playing the song!"

func (b *Bot) handleEvent(ev music.Event) {
	switch ev.Type {
	case music.EventTrackStarted:
		if ev.Track != nil && b.history.Enabled() {
			go b.recordHistory(ev.GuildID, *ev.Track)
		}
	case music.EventTrackFailed:
		zlog.Warn().Err(ev.Err).Str("guild_id", ev.GuildID).Str("session_id", ev.SessionID).Msg("track failed")
		shared.SendNotice(b.sessionFor(ev.GuildID), ev.TextChannelID, playbackErrorNotice)
	case music.EventQueueDrained, music.EventStopped:
		zlog.Debug().Str("guild_id", ev.GuildID).Stringer("event", ev.Type).Msg("session ended")
	}
}

func (b *Bot) recordHistory(guildID string, track music.Track) {
	err := b.history.Record(context.Background(), database.HistoryEntry{
		GuildID:     guildID,
		TrackID:     track.ID,
		Title:       track.Title,
		Locator:     track.Locator,
		Duration:    track.Duration,
		RequestedBy: track.RequestedBy,
	})
	if err != nil {
		zlog.Warn().Err(err).Str("guild_id", guildID).Msg("failed to record history")
	}
}
