package commands

import (
	"context"

	"github.com/cockroachdb/errors"

	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

func (c *Commands) Stop(_ context.Context, sc *shared.Context) error {
	if sc.VoiceChannelID == "" {
		return sc.Reply("You have to be in a voice channel to stop the music!")
	}

	if err := c.player.Stop(sc.GuildID); err != nil {
		if errors.Is(err, music.ErrNothingPlaying) {
			return sc.Reply("There is no song that I could stop!")
		}
		return err
	}
	return sc.Reply("⏹️ Music stopped and queue cleared!")
}

func (c *Commands) Skip(_ context.Context, sc *shared.Context) error {
	if sc.VoiceChannelID == "" {
		return sc.Reply("You have to be in a voice channel to skip the music!")
	}

	if err := c.player.Skip(sc.GuildID); err != nil {
		if errors.Is(err, music.ErrNothingPlaying) {
			return sc.Reply("There is no song that I could skip!")
		}
		return err
	}
	return sc.Reply("⏭️ Song skipped!")
}
