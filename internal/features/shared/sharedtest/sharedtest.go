// Package sharedtest records command replies in memory.
package sharedtest

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/jukebot/internal/features/shared"
)

type Recorder struct {
	mu      sync.Mutex
	replies []string
	embeds  []*discordgo.MessageEmbed
	err     error
}

// FailWith makes every later reply return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Reply(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, content)
	return r.err
}

func (r *Recorder) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeds = append(r.embeds, embed)
	return r.err
}

func (r *Recorder) Replies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.replies))
	copy(out, r.replies)
	return out
}

// Last returns the most recent text reply, or "" when there is none.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

func (r *Recorder) Embeds() []*discordgo.MessageEmbed {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*discordgo.MessageEmbed, len(r.embeds))
	copy(out, r.embeds)
	return out
}

// NewContext returns a command context for user-1 in guild-1, connected to
// voiceChannelID, answering into rec.
func NewContext(rec *Recorder, voiceChannelID string, args ...string) *shared.Context {
	return &shared.Context{
		GuildID:        "guild-1",
		ChannelID:      "text-1",
		MessageID:      "message-1",
		UserID:         "user-1",
		Prefix:         "!",
		Args:           args,
		VoiceChannelID: voiceChannelID,
		Replier:        rec,
	}
}
