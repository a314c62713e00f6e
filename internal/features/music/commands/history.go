package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/hxnx/jukebot/internal/database"
	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

const historyLimit = 10

func (c *Commands) History(ctx context.Context, sc *shared.Context) error {
	if c.history == nil || !c.history.Enabled() {
		return sc.Reply("History is not enabled on this bot.")
	}

	entries, err := c.history.Recent(ctx, sc.GuildID, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return sc.Reply("Nothing has been played here yet!")
	}
	return sc.Reply("🕘 **Recently Played:**\n" + RenderHistory(entries))
}

func RenderHistory(entries []database.HistoryEntry) string {
	lines := lo.Map(entries, func(e database.HistoryEntry, i int) string {
		line := fmt.Sprintf("%d. **%s** (%s)", i+1, e.Title, music.FormatDuration(e.Duration))
		if e.RequestedBy != "" {
			line += fmt.Sprintf(" requested by <@%s>", e.RequestedBy)
		}
		if !e.PlayedAt.IsZero() {
			line += fmt.Sprintf(" <t:%d:R>", e.PlayedAt.Unix())
		}
		return line
	})
	return truncate(strings.Join(lines, "\n"))
}
