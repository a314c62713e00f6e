package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

const (
	maxQueueChars   = 2000
	truncatedLength = 1900
	truncatedSuffix = "\n... and more"
)

func (c *Commands) Queue(_ context.Context, sc *shared.Context) error {
	tracks, err := c.player.Queue(sc.GuildID)
	if errors.Is(err, music.ErrNothingPlaying) || (err == nil && len(tracks) == 0) {
		return sc.Reply("There is no queue!")
	}
	if err != nil {
		return err
	}
	return sc.Reply("📋 **Current Queue:**\n" + RenderQueue(tracks))
}

// RenderQueue lists tracks as "N. **title** (duration)" lines, cut at 1900
// characters when the full listing exceeds 2000.
func RenderQueue(tracks []music.Track) string {
	lines := lo.Map(tracks, func(t music.Track, i int) string {
		return fmt.Sprintf("%d. **%s** (%s)\n", i+1, t.Title, music.FormatDuration(t.Duration))
	})
	return truncate(strings.Join(lines, ""))
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxQueueChars {
		return s
	}
	return string(runes[:truncatedLength]) + truncatedSuffix
}
