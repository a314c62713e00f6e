package shared

import (
	"context"

	"github.com/bwmarrin/discordgo"
	zlog "github.com/rs/zerolog/log"
)

// Replier answers the message that triggered a command.
type Replier interface {
	Reply(content string) error
	ReplyEmbed(embed *discordgo.MessageEmbed) error
}

// Context describes one invocation of a prefix command.
type Context struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Prefix    string
	Command   string
	Args      []string

	// VoiceChannelID is the caller's current voice channel, empty when the
	// caller is not connected.
	VoiceChannelID string

	Replier
}

// Handler runs a command. Errors that reach the router are logged and
// answered with a generic message.
type Handler func(ctx context.Context, c *Context) error

// MessageReplier replies through the Discord REST API, referencing the
// triggering message without pinging its author.
type MessageReplier struct {
	Session   *discordgo.Session
	GuildID   string
	ChannelID string
	MessageID string
}

func NewMessageReplier(s *discordgo.Session, m *discordgo.MessageCreate) *MessageReplier {
	return &MessageReplier{
		Session:   s,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
	}
}

func (r *MessageReplier) Reply(content string) error {
	return r.send(&discordgo.MessageSend{Content: content})
}

func (r *MessageReplier) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return r.send(&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}

func (r *MessageReplier) send(msg *discordgo.MessageSend) error {
	msg.Reference = &discordgo.MessageReference{MessageID: r.MessageID, ChannelID: r.ChannelID, GuildID: r.GuildID}
	msg.AllowedMentions = &discordgo.MessageAllowedMentions{
		Parse:       []discordgo.AllowedMentionType{},
		RepliedUser: false,
	}
	_, err := r.Session.ChannelMessageSendComplex(r.ChannelID, msg)
	return err
}

// SendNotice posts content to a text channel outside of any command reply.
func SendNotice(s *discordgo.Session, channelID, content string) {
	if s == nil || channelID == "" {
		return
	}
	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	})
	if err != nil {
		zlog.Warn().Err(err).Str("channel_id", channelID).Msg("failed to send notice")
	}
}

// UserVoiceChannel returns the voice channel userID is connected to in the
// guild, or "" when the user is not in one.
func UserVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild := GuildWithVoiceStates(s, guildID)
	if guild == nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// GuildWithVoiceStates prefers the state cache, which is the only source of
// voice states, and falls back to the REST API.
func GuildWithVoiceStates(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s == nil || guildID == "" {
		return nil
	}
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g
		}
	}
	g, err := s.Guild(guildID)
	if err != nil {
		return nil
	}
	return g
}
