package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	shared "github.com/hxnx/jukebot/internal/features/shared"
)

const helpColor = 0x0099FF

func (c *Commands) Help(_ context.Context, sc *shared.Context) error {
	return sc.ReplyEmbed(HelpEmbed(sc.Prefix, c.version))
}

func HelpEmbed(prefix, version string) *discordgo.MessageEmbed {
	field := func(name, value string, inline bool) *discordgo.MessageEmbedField {
		return &discordgo.MessageEmbedField{Name: prefix + name, Value: value, Inline: inline}
	}

	return &discordgo.MessageEmbed{
		Color: helpColor,
		Title: "🎵 Music Bot Commands",
		Fields: []*discordgo.MessageEmbedField{
			field("play <YouTube URL>", "Play a song from a YouTube URL", false),
			field("stop", "Stop the music and clear the queue", true),
			field("skip", "Skip the current song", true),
			field("queue", "Show the current queue", true),
			field("history", "Show the last songs played here", true),
			field("ping", "Show the bot latency", true),
			field("help", "Show this help message", true),
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Music Bot %s", version),
		},
	}
}
