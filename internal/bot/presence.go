package bot

import (
	"fmt"
	"time"

	zlog "github.com/rs/zerolog/log"
)

const presenceUpdateInterval = 60 * time.Second

func (b *Bot) startPresenceUpdater() {
	if b.presenceStop != nil {
		return
	}
	b.presenceStop = make(chan struct{})
	stop := b.presenceStop
	go func() {
		ticker := time.NewTicker(presenceUpdateInterval)
		defer ticker.Stop()

		b.updatePresence()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.updatePresence()
			}
		}
	}()
}

func (b *Bot) stopPresenceUpdater() {
	if b.presenceStop == nil {
		return
	}
	close(b.presenceStop)
	b.presenceStop = nil
}

func (b *Bot) updatePresence() {
	status := presenceText(b.config.CommandPrefix, b.manager.ActiveSessions())
	for _, s := range b.sessions {
		if err := s.UpdateGameStatus(0, status); err != nil {
			zlog.Warn().Err(err).Int("shard", s.ShardID).Msg("failed to update presence")
		}
	}
}

func presenceText(prefix string, active int) string {
	if active == 0 {
		return fmt.Sprintf("%shelp", prefix)
	}
	if active == 1 {
		return fmt.Sprintf("%shelp | music in 1 server", prefix)
	}
	return fmt.Sprintf("%shelp | music in %d servers", prefix, active)
}
