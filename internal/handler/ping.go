package handler

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

var PingCommand = &Command{
	Name: "ping",
	Handler: func(_ context.Context, s DiscordSession, m *discordgo.MessageCreate, _ []string) error {
		return replyText(s, m, "Pong!")
	},
}
