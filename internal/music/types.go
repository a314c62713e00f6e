package music

import (
	"io"
	"time"
)

// Track is an immutable, resolved playable item.
type Track struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Locator     string        `json:"locator"`
	Duration    time.Duration `json:"duration"`
	RequestedBy string        `json:"requested_by,omitempty"`
}

type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusPlaying
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusPlaying:
		return "playing"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type EventType int

const (
	EventTrackStarted EventType = iota
	EventTrackFailed
	EventQueueDrained
	EventStopped
)

func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackFailed:
		return "track_failed"
	case EventQueueDrained:
		return "queue_drained"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is emitted by a Session outside of any command reply, e.g. when a
// queued track fails to play.
type Event struct {
	Type          EventType
	GuildID       string
	SessionID     string
	TextChannelID string
	Track         *Track
	Err           error
}

type EventHandler func(Event)

// EnqueueRequest carries everything a play command knows about its caller.
type EnqueueRequest struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	Locator        string
	RequestedBy    string
}

// EnqueueResult reports whether the track started a new session or was
// appended to an existing queue.
type EnqueueResult struct {
	Track    Track
	Started  bool
	Position int
}

// VoiceGateway opens voice connections for a guild.
type VoiceGateway interface {
	JoinVoice(guildID, channelID string) (VoiceConnection, error)
}

// VoiceConnection is a live voice connection owned by exactly one Session.
type VoiceConnection interface {
	NewPlayer() AudioPlayer
	Disconnect() error
}

// AudioPlayer plays a single stream. Play takes ownership of the stream and
// returns once playback has started; Done receives exactly one value when
// playback ends, nil on natural end or Stop.
type AudioPlayer interface {
	Play(stream io.ReadCloser) error
	Stop()
	Done() <-chan error
}
