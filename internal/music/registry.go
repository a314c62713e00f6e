package music

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Registry maps guild IDs to their playback Session. Create is an atomic
// check-and-insert, so at most one caller per guild ever builds a Session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	manager  *Manager
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[guildID]
	return s, ok
}

// Create registers a new Session in the Connecting state holding initial as
// its only track. It fails with ErrAlreadyExists when the guild already has
// a Session.
func (r *Registry) Create(guildID string, initial Track, voiceChannelID, textChannelID string) (*Session, error) {
	if guildID == "" {
		return nil, errors.New("guild id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[guildID]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "guild %s", guildID)
	}

	s := &Session{
		ID:             uuid.NewString(),
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  textChannelID,
		queue:          []Track{initial},
		status:         StatusConnecting,
		connected:      make(chan struct{}),
		manager:        r.manager,
	}
	r.sessions[guildID] = s
	return s, nil
}

// Remove drops the guild's entry. It is a no-op when the guild has none.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, guildID)
}

// release removes s only while it is still the guild's current Session.
func (r *Registry) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.GuildID]; ok && cur == s {
		delete(r.sessions, s.GuildID)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// GuildIDs returns the guilds with a registered Session in sorted order.
func (r *Registry) GuildIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
