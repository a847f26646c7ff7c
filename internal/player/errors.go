package player

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by operations that need a voice connection.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrDegraded is returned once too many consecutive tracks failed to
	// submit. The queue stops advancing until a user enqueues again or stops it.
	ErrDegraded = errors.New("playback degraded")
)

// ConnectionError indicates that the voice channel could not be reached in time.
type ConnectionError struct {
	GuildID   string
	ChannelID string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to voice channel %s in guild %s: %v", e.ChannelID, e.GuildID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

var _ error = (*ConnectionError)(nil)

// PlaybackError indicates that a specific track could not be submitted or played.
type PlaybackError struct {
	Track Track
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("failed to play %q: %v", e.Track.String(), e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

var _ error = (*PlaybackError)(nil)

// MoveRefusedError is returned by JoinAndPlay when the queue is playing in
// another voice channel of the guild.
type MoveRefusedError struct {
	GuildID   string
	ChannelID string
}

func (e *MoveRefusedError) Error() string {
	return fmt.Sprintf("already playing in voice channel %s in guild %s", e.ChannelID, e.GuildID)
}

var _ error = (*MoveRefusedError)(nil)
