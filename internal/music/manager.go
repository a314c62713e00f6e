package music

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// enqueueAttempts bounds how often Enqueue retries when the guild's Session
// is created or torn down underneath it.
const enqueueAttempts = 3

// Manager drives per-guild Sessions through a Registry.
type Manager struct {
	registry *Registry
	resolver Resolver
	gateway  VoiceGateway
	onEvent  EventHandler
}

type Option func(*Manager)

func WithEventHandler(h EventHandler) Option {
	return func(m *Manager) {
		m.onEvent = h
	}
}

func NewManager(resolver Resolver, gateway VoiceGateway, opts ...Option) *Manager {
	m := &Manager{
		registry: NewRegistry(),
		resolver: resolver,
		gateway:  gateway,
	}
	m.registry.manager = m

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

func (m *Manager) Resolver() Resolver {
	return m.resolver
}

// Enqueue resolves req.Locator and either starts a new Session for the guild
// or appends the track to the existing queue. Resolution failures never touch
// the Registry.
func (m *Manager) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	if req.VoiceChannelID == "" {
		return EnqueueResult{}, ErrNotInVoiceChannel
	}

	locator := strings.TrimSpace(req.Locator)
	if locator == "" || !m.resolver.Validate(locator) {
		return EnqueueResult{}, errors.Wrapf(ErrInvalidLocator, "%q", locator)
	}

	track, err := m.resolver.FetchMetadata(ctx, locator)
	if err != nil {
		return EnqueueResult{}, errors.Mark(errors.Wrapf(err, "fetch metadata for %s", locator), ErrMetadataFetch)
	}
	track.RequestedBy = req.RequestedBy

	for attempt := 0; attempt < enqueueAttempts; attempt++ {
		if s, ok := m.registry.Get(req.GuildID); ok {
			pos, err := s.append(track)
			if errors.Is(err, ErrSessionStopped) {
				continue
			}
			if err := s.awaitConnect(ctx); err != nil {
				return EnqueueResult{}, err
			}
			return EnqueueResult{Track: track, Position: pos}, nil
		}

		s, err := m.registry.Create(req.GuildID, track, req.VoiceChannelID, req.TextChannelID)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return EnqueueResult{}, err
		}

		zlog.Info().
			Str("guild_id", req.GuildID).
			Str("session_id", s.ID).
			Str("voice_channel_id", req.VoiceChannelID).
			Msg("session created")

		if err := s.connect(); err != nil {
			return EnqueueResult{}, err
		}
		return EnqueueResult{Track: track, Started: true}, nil
	}

	return EnqueueResult{}, errors.Newf("guild %s: session changed during enqueue", req.GuildID)
}

// Skip halts the current track of the guild.
func (m *Manager) Skip(guildID string) error {
	s, ok := m.registry.Get(guildID)
	if !ok {
		return ErrNothingPlaying
	}
	return s.skip()
}

// Stop clears the guild's queue, disconnects and removes its Session.
func (m *Manager) Stop(guildID string) error {
	s, ok := m.registry.Get(guildID)
	if !ok {
		return ErrNothingPlaying
	}

	s.stop()
	m.emit(Event{Type: EventStopped, GuildID: guildID, SessionID: s.ID, TextChannelID: s.TextChannelID})
	zlog.Info().Str("guild_id", guildID).Str("session_id", s.ID).Msg("session stopped")
	return nil
}

// Queue returns a snapshot of the guild's queue.
func (m *Manager) Queue(guildID string) ([]Track, error) {
	s, ok := m.registry.Get(guildID)
	if !ok {
		return nil, ErrNothingPlaying
	}
	return s.Tracks(), nil
}

// StopAll stops every registered Session.
func (m *Manager) StopAll() {
	for _, guildID := range m.registry.GuildIDs() {
		_ = m.Stop(guildID)
	}
}

func (m *Manager) ActiveSessions() int {
	return m.registry.Len()
}

func (m *Manager) emit(ev Event) {
	if m.onEvent == nil {
		return
	}
	m.onEvent(ev)
}
