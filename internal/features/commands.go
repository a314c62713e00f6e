package commands

import (
	"context"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	shared "github.com/hxnx/jukebot/internal/features/shared"
)

const (
	genericErrorReply = "An error occurred while processing your command."
	limiterIdleTTL    = 10 * time.Minute
)

// Router dispatches prefix commands to their handlers.
type Router struct {
	prefix   string
	handlers map[string]shared.Handler
	limiter  *userLimiter
}

func NewRouter(prefix string, perUser rate.Limit, burst int) *Router {
	return &Router{
		prefix:   prefix,
		handlers: make(map[string]shared.Handler),
		limiter:  newUserLimiter(perUser, burst),
	}
}

func (r *Router) Prefix() string {
	return r.prefix
}

// Register binds name, case-insensitively, to h. Registering a name twice
// replaces the earlier handler.
func (r *Router) Register(name string, h shared.Handler) {
	r.handlers[strings.ToLower(name)] = h
}

func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse splits content into a lowercased command name and its arguments.
func (r *Router) Parse(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if r.prefix == "" || !strings.HasPrefix(content, r.prefix) {
		return "", nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Dispatch runs the handler for content. It reports whether content named a
// registered command.
func (r *Router) Dispatch(ctx context.Context, c *shared.Context, content string) bool {
	name, args, ok := r.Parse(content)
	if !ok {
		return false
	}
	h, ok := r.handlers[name]
	if !ok {
		return false
	}

	if !r.limiter.Allow(c.UserID) {
		zlog.Debug().Str("user_id", c.UserID).Str("command", name).Msg("command rate limited")
		return true
	}

	c.Prefix = r.prefix
	c.Command = name
	c.Args = args

	if err := r.run(ctx, h, c); err != nil {
		zlog.Error().Err(err).
			Str("guild_id", c.GuildID).
			Str("user_id", c.UserID).
			Str("command", name).
			Msg("command failed")
		if rerr := c.Reply(genericErrorReply); rerr != nil {
			zlog.Warn().Err(rerr).Msg("failed to send error reply")
		}
	}
	return true
}

func (r *Router) run(ctx context.Context, h shared.Handler, c *shared.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("panic in command %s: %v", c.Command, p)
			zlog.Error().Str("stack", string(debug.Stack())).Msg("recovered command panic")
		}
	}()
	return h(ctx, c)
}

// HandleMessage is the discordgo MessageCreate handler.
func (r *Router) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s == nil || m == nil || m.Author == nil {
		return
	}
	if m.Author.Bot || m.GuildID == "" {
		return
	}
	if _, _, ok := r.Parse(m.Content); !ok {
		return
	}

	c := &shared.Context{
		GuildID:        m.GuildID,
		ChannelID:      m.ChannelID,
		MessageID:      m.ID,
		UserID:         m.Author.ID,
		VoiceChannelID: shared.UserVoiceChannel(s, m.GuildID, m.Author.ID),
		Replier:        shared.NewMessageReplier(s, m),
	}
	r.Dispatch(context.Background(), c, m.Content)
}

// userLimiter hands out one token bucket per user.
type userLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*userBucket
	sweep   time.Time
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(limit rate.Limit, burst int) *userLimiter {
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{
		limit:   limit,
		burst:   burst,
		buckets: make(map[string]*userBucket),
	}
}

func (l *userLimiter) Allow(userID string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweepLocked(now)

	b, ok := l.buckets[userID]
	if !ok {
		b = &userBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *userLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.sweep) < limiterIdleTTL {
		return
	}
	l.sweep = now
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) >= limiterIdleTTL {
			delete(l.buckets, id)
		}
	}
}
