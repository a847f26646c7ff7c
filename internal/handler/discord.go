package handler

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type MessageCreateHandler = func(*discordgo.Session, *discordgo.MessageCreate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID, "guilds", len(r.Guilds))
}

type Handlers struct {
	Ready         ReadyHandler
	MessageCreate MessageCreateHandler
}

// Intents are the gateway events prefix commands depend on. Message content
// is a privileged intent and must be enabled for the application.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildVoiceStates |
	discordgo.IntentMessageContent

func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents

	if handlers.Ready != nil {
		s.AddHandler(handlers.Ready)
	}
	if handlers.MessageCreate != nil {
		s.AddHandler(handlers.MessageCreate)
	}

	return s, nil
}
