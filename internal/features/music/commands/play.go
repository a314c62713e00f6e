package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

func (c *Commands) Play(ctx context.Context, sc *shared.Context) error {
	if sc.VoiceChannelID == "" {
		return sc.Reply("You need to be in a voice channel to play music!")
	}

	query := strings.TrimSpace(strings.Join(sc.Args, " "))
	if query == "" {
		return sc.Reply("Please provide a YouTube URL!")
	}

	ctx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	defer cancel()

	res, err := c.player.Enqueue(ctx, music.EnqueueRequest{
		GuildID:        sc.GuildID,
		VoiceChannelID: sc.VoiceChannelID,
		TextChannelID:  sc.ChannelID,
		Locator:        query,
		RequestedBy:    sc.UserID,
	})
	switch {
	case err == nil:
	case errors.Is(err, music.ErrNotInVoiceChannel):
		return sc.Reply("You need to be in a voice channel to play music!")
	case errors.Is(err, music.ErrInvalidLocator):
		return sc.Reply("Please provide a valid YouTube URL!")
	case errors.Is(err, music.ErrMetadataFetch):
		zlog.Warn().Err(err).Str("guild_id", sc.GuildID).Str("locator", query).Msg("metadata fetch failed")
		return sc.Reply("Error getting video information!")
	case errors.Is(err, music.ErrConnection):
		zlog.Warn().Err(err).Str("guild_id", sc.GuildID).Str("voice_channel_id", sc.VoiceChannelID).Msg("voice join failed")
		return sc.Reply("There was an error connecting to the voice channel!")
	case errors.Is(err, music.ErrSessionStopped):
		// stopped while connecting; the stop command already answered
		return nil
	default:
		return err
	}

	if res.Started {
		return sc.Reply(fmt.Sprintf("🎵 Now playing: **%s**", res.Track.Title))
	}
	return sc.Reply(fmt.Sprintf("🎵 **%s** has been added to the queue!", res.Track.Title))
}
