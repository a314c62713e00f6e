package listeners

import (
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	shared "github.com/hxnx/jukebot/internal/features/shared"
	"github.com/hxnx/jukebot/internal/music"
)

const aloneNotice = "🔇 Everyone left the voice channel, so I stopped the music."

type Stopper interface {
	Stop(guildID string) error
}

// VoiceStateHandler stops a guild's playback once the bot is the only member
// left in its voice channel.
type VoiceStateHandler struct {
	player Stopper
	// sessionText returns the text channel of the guild's session, if any.
	sessionText func(guildID string) (string, bool)
}

func NewVoiceStateHandler(player Stopper, sessionText func(guildID string) (string, bool)) *VoiceStateHandler {
	return &VoiceStateHandler{player: player, sessionText: sessionText}
}

func (h *VoiceStateHandler) Handle(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if s == nil || vs == nil || vs.GuildID == "" {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if botID == "" || vs.UserID == botID {
		return
	}

	guild := shared.GuildWithVoiceStates(s, vs.GuildID)
	if guild == nil || !BotIsAlone(guild.VoiceStates, botID) {
		return
	}

	textChannelID, _ := h.sessionText(vs.GuildID)
	if err := h.player.Stop(vs.GuildID); err != nil {
		if !errors.Is(err, music.ErrNothingPlaying) {
			zlog.Warn().Err(err).Str("guild_id", vs.GuildID).Msg("auto-stop failed")
		}
		return
	}

	zlog.Info().Str("guild_id", vs.GuildID).Msg("voice channel empty, playback stopped")
	shared.SendNotice(s, textChannelID, aloneNotice)
}

// BotIsAlone reports whether the bot is connected to a voice channel that no
// other member shares.
func BotIsAlone(states []*discordgo.VoiceState, botID string) bool {
	botChannelID := ""
	for _, state := range states {
		if state.UserID == botID && state.ChannelID != "" {
			botChannelID = state.ChannelID
			break
		}
	}
	if botChannelID == "" {
		return false
	}

	for _, state := range states {
		if state.ChannelID == botChannelID && state.UserID != botID {
			return false
		}
	}
	return true
}
