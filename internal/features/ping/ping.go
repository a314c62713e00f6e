package ping

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/jukebot/internal/features/shared"
)

var startedAt = time.Now()

// Stats is what ping reports. APILatency is one REST round-trip and is only
// set when APIReachable; GatewayLatency is the last heartbeat round-trip.
type Stats struct {
	APILatency     time.Duration
	APIReachable   bool
	GatewayLatency time.Duration
	Guilds         int
	Shards         int
	ActiveSessions int
	Uptime         time.Duration
}

// StatsFunc collects Stats for the shard serving guildID.
type StatsFunc func(guildID string) Stats

func SessionStats(s *discordgo.Session, activeSessions int) Stats {
	apiLatency, reachable := timeRoundTrip(func() error {
		_, err := s.User("@me")
		return err
	})

	guilds := 0
	if s.State != nil {
		guilds = len(s.State.Guilds)
	}

	shards := s.ShardCount
	if shards == 0 {
		shards = 1
	}

	return Stats{
		APILatency:     apiLatency,
		APIReachable:   reachable,
		GatewayLatency: s.HeartbeatLatency().Round(time.Millisecond),
		Guilds:         guilds,
		Shards:         shards,
		ActiveSessions: activeSessions,
		Uptime:         time.Since(startedAt).Round(time.Second),
	}
}

func timeRoundTrip(call func() error) (time.Duration, bool) {
	start := time.Now()
	if err := call(); err != nil {
		return 0, false
	}
	return time.Since(start).Round(time.Millisecond), true
}

func BuildMessage(st Stats) string {
	api := "unreachable"
	if st.APIReachable {
		api = st.APILatency.String()
	}
	return fmt.Sprintf(
		"🏓 **Pong!**\n**API latency:** %s • **Gateway latency:** %s\n**Servers:** %d • **Shards:** %d • **Playing in:** %d\n**Uptime:** %s",
		api, st.GatewayLatency, st.Guilds, st.Shards, st.ActiveSessions, st.Uptime,
	)
}

func Command(stats StatsFunc) shared.Handler {
	return func(_ context.Context, c *shared.Context) error {
		return c.Reply(BuildMessage(stats(c.GuildID)))
	}
}
