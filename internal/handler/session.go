package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/player"
)

// DiscordSession is the part of *discordgo.Session the commands use.
type DiscordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordSession = (*discordgo.Session)(nil)

// VoiceLocator returns the voice channel a member is currently in.
type VoiceLocator func(guildID, userID string) (string, error)

// reply answers the triggering message without pinging anyone mentioned in
// the content.
func reply(s DiscordSession, m *discordgo.MessageCreate, msg *discordgo.MessageSend) error {
	msg.Reference = m.Reference()
	msg.AllowedMentions = &discordgo.MessageAllowedMentions{}
	if _, err := s.ChannelMessageSendComplex(m.ChannelID, msg); err != nil {
		return fmt.Errorf("failed to reply in channel %s: %w", m.ChannelID, err)
	}
	return nil
}

func replyText(s DiscordSession, m *discordgo.MessageCreate, content string) error {
	return reply(s, m, &discordgo.MessageSend{Content: content})
}

// ChannelNotifier posts queue notices to a text channel.
type ChannelNotifier struct {
	Session DiscordSession
}

func (n *ChannelNotifier) Notify(channelID, message string) error {
	if _, err := n.Session.ChannelMessageSend(channelID, message); err != nil {
		return fmt.Errorf("failed to send notice to %s: %w", channelID, err)
	}
	return nil
}

var _ player.Notifier = (*ChannelNotifier)(nil)
