package music

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Session is the playback state of one guild. It exclusively owns the voice
// connection and the current player; every suspension (voice join, stream
// open) happens without holding mu, and the state is re-checked afterwards.
type Session struct {
	ID             string
	GuildID        string
	VoiceChannelID string
	TextChannelID  string

	mu          sync.Mutex
	queue       []Track
	status      Status
	closed      bool
	conn        VoiceConnection
	player      AudioPlayer
	generation  uint64
	trackCancel context.CancelFunc

	// connected is closed once the voice join has succeeded or failed;
	// connectErr holds the failure.
	connected  chan struct{}
	connectErr error

	manager *Manager
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Tracks returns a copy of the queue; index 0 is the current track.
func (s *Session) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Track, len(s.queue))
	copy(out, s.queue)
	return out
}

func (s *Session) NowPlaying() (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying || len(s.queue) == 0 {
		return Track{}, false
	}
	return s.queue[0], true
}

func (s *Session) append(track Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionStopped
	}
	s.queue = append(s.queue, track)
	return len(s.queue) - 1, nil
}

// awaitConnect blocks until the voice join started by connect has finished
// and returns its error. A done ctx stops the wait without an error, since
// the caller's track is already queued.
func (s *Session) awaitConnect(ctx context.Context) error {
	select {
	case <-s.connected:
	case <-ctx.Done():
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectErr
}

// finishConnectLocked records the join outcome and wakes awaitConnect
// callers. Must be called with s.mu held.
func (s *Session) finishConnectLocked(err error) {
	s.connectErr = err
	close(s.connected)
}

// connect joins the voice channel and starts the first track. A failed join
// tears the Session down so nothing stays registered, and every track queued
// while joining is rejected with the same error.
func (s *Session) connect() error {
	conn, err := s.manager.gateway.JoinVoice(s.GuildID, s.VoiceChannelID)

	s.mu.Lock()
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "join voice channel %s", s.VoiceChannelID), ErrConnection)
		s.teardownLocked(StatusIdle)
		s.finishConnectLocked(err)
		s.mu.Unlock()
		s.manager.registry.release(s)
		return err
	}
	if s.closed {
		s.finishConnectLocked(ErrSessionStopped)
		s.mu.Unlock()
		if derr := conn.Disconnect(); derr != nil {
			s.logger().Warn().Err(derr).Msg("failed to disconnect voice after stop")
		}
		return ErrSessionStopped
	}
	s.conn = conn
	s.finishConnectLocked(nil)
	s.mu.Unlock()

	s.playNext()
	return nil
}

// playNext starts the head of the queue. Heads that fail to start are
// dropped and reported; an empty queue tears the Session down.
func (s *Session) playNext() {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.teardownLocked(StatusIdle)
			s.mu.Unlock()
			s.manager.registry.release(s)
			s.manager.emit(Event{Type: EventQueueDrained, GuildID: s.GuildID, SessionID: s.ID, TextChannelID: s.TextChannelID})
			s.logger().Debug().Msg("queue drained, session closed")
			return
		}

		track := s.queue[0]
		s.generation++
		gen := s.generation
		ctx, cancel := context.WithCancel(context.Background())
		s.trackCancel = cancel
		s.mu.Unlock()

		stream, err := s.manager.resolver.OpenStream(ctx, track.Locator)

		s.mu.Lock()
		// read under mu so a skip landing right after the open is not lost
		skipped := ctx.Err() != nil
		if s.closed || s.generation != gen {
			s.mu.Unlock()
			cancel()
			if stream != nil {
				_ = stream.Close()
			}
			return
		}

		if err == nil && skipped {
			_ = stream.Close()
			err = ctx.Err()
		}
		if err == nil {
			player := s.conn.NewPlayer()
			if err = player.Play(stream); err == nil {
				s.player = player
				s.status = StatusPlaying
				s.mu.Unlock()

				go s.watch(gen, player)
				s.manager.emit(Event{Type: EventTrackStarted, GuildID: s.GuildID, SessionID: s.ID, TextChannelID: s.TextChannelID, Track: &track})
				s.logger().Info().Str("track", track.Title).Msg("track started")
				return
			}
		}

		s.queue = s.queue[1:]
		s.trackCancel = nil
		s.mu.Unlock()
		cancel()

		if skipped {
			continue
		}
		err = errors.Mark(errors.Wrapf(err, "start %q", track.Title), ErrPlayback)
		s.logger().Warn().Err(err).Str("track", track.Title).Msg("track failed to start")
		s.manager.emit(Event{Type: EventTrackFailed, GuildID: s.GuildID, SessionID: s.ID, TextChannelID: s.TextChannelID, Track: &track, Err: err})
	}
}

func (s *Session) watch(gen uint64, player AudioPlayer) {
	err := <-player.Done()
	s.advance(gen, err)
}

// advance handles the end of the track started in generation gen, whether it
// finished, failed, or was skipped. Signals from an older generation or from
// a closed Session are ignored.
func (s *Session) advance(gen uint64, playErr error) {
	s.mu.Lock()
	if s.closed || gen != s.generation || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}

	track := s.queue[0]
	s.queue = s.queue[1:]
	s.player = nil
	if s.trackCancel != nil {
		s.trackCancel()
		s.trackCancel = nil
	}
	s.mu.Unlock()

	if playErr != nil {
		err := errors.Mark(errors.Wrapf(playErr, "play %q", track.Title), ErrPlayback)
		s.logger().Warn().Err(err).Str("track", track.Title).Msg("playback error")
		s.manager.emit(Event{Type: EventTrackFailed, GuildID: s.GuildID, SessionID: s.ID, TextChannelID: s.TextChannelID, Track: &track, Err: err})
	}

	s.playNext()
}

// skip halts the current player; its Done signal advances the queue. When the
// next stream is still opening, the open is cancelled instead.
func (s *Session) skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNothingPlaying
	}
	if s.player != nil {
		s.player.Stop()
		return nil
	}
	if s.trackCancel != nil {
		s.trackCancel()
	}
	return nil
}

func (s *Session) stop() {
	s.mu.Lock()
	s.teardownLocked(StatusStopped)
	s.mu.Unlock()

	s.manager.registry.release(s)
}

// teardownLocked clears the queue and releases the player and connection.
// Must be called with s.mu held.
func (s *Session) teardownLocked(status Status) {
	s.closed = true
	s.status = status
	s.queue = nil
	s.generation++

	if s.trackCancel != nil {
		s.trackCancel()
		s.trackCancel = nil
	}
	if s.player != nil {
		s.player.Stop()
		s.player = nil
	}
	if s.conn != nil {
		if err := s.conn.Disconnect(); err != nil {
			s.logger().Warn().Err(err).Msg("failed to disconnect voice")
		}
		s.conn = nil
	}
}

func (s *Session) logger() *zerolog.Logger {
	l := zlog.With().Str("guild_id", s.GuildID).Str("session_id", s.ID).Logger()
	return &l
}
