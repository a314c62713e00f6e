package commands

import (
	"context"
	"time"

	"github.com/hxnx/jukebot/internal/database"
	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

const defaultResolveTimeout = 30 * time.Second

// Player is the part of music.Manager the commands drive.
type Player interface {
	Enqueue(ctx context.Context, req music.EnqueueRequest) (music.EnqueueResult, error)
	Skip(guildID string) error
	Stop(guildID string) error
	Queue(guildID string) ([]music.Track, error)
}

type HistoryStore interface {
	Enabled() bool
	Recent(ctx context.Context, guildID string, limit int) ([]database.HistoryEntry, error)
}

type Registrar interface {
	Register(name string, h shared.Handler)
}

type Commands struct {
	player         Player
	history        HistoryStore
	resolveTimeout time.Duration
	version        string
}

type Option func(*Commands)

func WithHistory(h HistoryStore) Option {
	return func(c *Commands) {
		c.history = h
	}
}

func WithResolveTimeout(d time.Duration) Option {
	return func(c *Commands) {
		if d > 0 {
			c.resolveTimeout = d
		}
	}
}

func WithVersion(v string) Option {
	return func(c *Commands) {
		c.version = v
	}
}

func New(player Player, opts ...Option) *Commands {
	c := &Commands{
		player:         player,
		resolveTimeout: defaultResolveTimeout,
		version:        "v1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Commands) Register(r Registrar) {
	r.Register("play", c.Play)
	r.Register("stop", c.Stop)
	r.Register("skip", c.Skip)
	r.Register("queue", c.Queue)
	r.Register("help", c.Help)
	r.Register("history", c.History)
}
