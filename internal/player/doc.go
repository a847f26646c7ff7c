// Package player serializes audio playback per guild.
//
// A GuildQueue owns an ordered list of pending tracks, the voice connection
// handle for its guild and the track currently playing. It advances on
// transport events, skips tracks that fail to submit, and releases the
// connection after an idle period. A Registry hands out exactly one
// GuildQueue per guild for the lifetime of the process.
//
// The audio itself is carried by a Transport. Two implementations exist:
// the local discordgo voice transport and the Lavalink node transport.
package player
