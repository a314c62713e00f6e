// Package musictest provides in-memory voice gateways, players and resolvers
// for exercising music.Manager without Discord, ffmpeg or YouTube.
package musictest

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/hxnx/jukebot/internal/music"
)

// Resolver serves tracks from memory. Locators must start with
// "https://www.youtube.com/watch?v=" to validate.
type Resolver struct {
	mu          sync.Mutex
	tracks      map[string]music.Track
	metaErrs    map[string]error
	streamErrs  map[string]error
	streamGates map[string]chan struct{}
	opened      []string
}

func NewResolver() *Resolver {
	return &Resolver{
		tracks:      make(map[string]music.Track),
		metaErrs:    make(map[string]error),
		streamErrs:  make(map[string]error),
		streamGates: make(map[string]chan struct{}),
	}
}

// Add registers a track and returns its locator.
func (r *Resolver) Add(id, title string, durationSeconds int) string {
	locator := Locator(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks[locator] = music.Track{
		ID:       id,
		Title:    title,
		Locator:  locator,
		Duration: secondsToDuration(durationSeconds),
	}
	return locator
}

func (r *Resolver) FailMetadata(locator string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metaErrs[locator] = err
}

func (r *Resolver) FailStream(locator string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streamErrs[locator] = err
}

// GateStream makes OpenStream for locator block until the returned function
// is called or the context is cancelled.
func (r *Resolver) GateStream(locator string) func() {
	gate := make(chan struct{})
	r.mu.Lock()
	r.streamGates[locator] = gate
	r.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Opened lists locators passed to OpenStream, in call order.
func (r *Resolver) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.opened))
	copy(out, r.opened)
	return out
}

func (r *Resolver) Validate(locator string) bool {
	return strings.HasPrefix(locator, "https://www.youtube.com/watch?v=") && len(locator) > len("https://www.youtube.com/watch?v=")
}

func (r *Resolver) FetchMetadata(ctx context.Context, locator string) (music.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.metaErrs[locator]; ok {
		return music.Track{}, err
	}
	track, ok := r.tracks[locator]
	if !ok {
		return music.Track{}, errors.Wrapf(music.ErrNotFound, "%s", locator)
	}
	return track, nil
}

func (r *Resolver) OpenStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	r.mu.Lock()
	r.opened = append(r.opened, locator)
	gate := r.streamGates[locator]
	err := r.streamErrs[locator]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(locator)), nil
}

// Gateway hands out Connections and records every join.
type Gateway struct {
	mu       sync.Mutex
	joinErr  error
	joinGate chan struct{}
	conns    []*Connection
	playErrs map[string]error
	joins    int
}

func NewGateway() *Gateway {
	return &Gateway{playErrs: make(map[string]error)}
}

func (g *Gateway) FailJoin(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.joinErr = err
}

// GateJoin makes JoinVoice block until the returned function is called.
func (g *Gateway) GateJoin() func() {
	gate := make(chan struct{})
	g.mu.Lock()
	g.joinGate = gate
	g.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// FailPlay makes players reject streams opened for locator.
func (g *Gateway) FailPlay(locator string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.playErrs[locator] = err
}

func (g *Gateway) Joins() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.joins
}

func (g *Gateway) Connections() []*Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Connection, len(g.conns))
	copy(out, g.conns)
	return out
}

func (g *Gateway) JoinVoice(guildID, channelID string) (music.VoiceConnection, error) {
	g.mu.Lock()
	g.joins++
	gate := g.joinGate
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.joinErr != nil {
		return nil, g.joinErr
	}
	conn := &Connection{GuildID: guildID, ChannelID: channelID, gateway: g}
	g.conns = append(g.conns, conn)
	return conn, nil
}

func (g *Gateway) playErr(locator string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playErrs[locator]
}

// Connection records the players bound to it.
type Connection struct {
	GuildID   string
	ChannelID string

	mu           sync.Mutex
	players      []*Player
	disconnected int
	gateway      *Gateway
}

func (c *Connection) NewPlayer() music.AudioPlayer {
	p := &Player{done: make(chan error, 1), conn: c}
	c.mu.Lock()
	c.players = append(c.players, p)
	c.mu.Unlock()
	return p
}

func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected++
	return nil
}

func (c *Connection) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected > 0
}

// Players returns every player bound so far, including failed ones.
func (c *Connection) Players() []*Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Player, len(c.players))
	copy(out, c.players)
	return out
}

// Current returns the most recently started player.
func (c *Connection) Current() *Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.players) - 1; i >= 0; i-- {
		if c.players[i].Started() {
			return c.players[i]
		}
	}
	return nil
}

// Player is a fake audio player. Finish simulates the stream ending.
type Player struct {
	mu      sync.Mutex
	conn    *Connection
	locator string
	started bool
	stopped bool
	once    sync.Once
	done    chan error
}

func (p *Player) Play(stream io.ReadCloser) error {
	body, _ := io.ReadAll(stream)
	_ = stream.Close()
	locator := string(body)

	if err := p.conn.gateway.playErr(locator); err != nil {
		return err
	}

	p.mu.Lock()
	p.locator = locator
	p.started = true
	p.mu.Unlock()
	return nil
}

func (p *Player) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.Finish(nil)
}

func (p *Player) Done() <-chan error {
	return p.done
}

// Finish ends playback with err; only the first call has an effect.
func (p *Player) Finish(err error) {
	p.once.Do(func() { p.done <- err })
}

func (p *Player) Locator() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locator
}

func (p *Player) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Player) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Locator builds a locator the fake Resolver accepts.
func Locator(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
