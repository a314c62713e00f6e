package music

import "github.com/cockroachdb/errors"

var (
	ErrInvalidLocator    = errors.New("invalid track locator")
	ErrMetadataFetch     = errors.New("failed to fetch track metadata")
	ErrConnection        = errors.New("failed to join voice channel")
	ErrPlayback          = errors.New("playback failed")
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrNotInVoiceChannel = errors.New("user is not in a voice channel")
	ErrAlreadyExists     = errors.New("session already exists")
	ErrSessionStopped    = errors.New("session stopped")

	ErrNotFound = errors.New("track not found")
	ErrNetwork  = errors.New("network error")
)
