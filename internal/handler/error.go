package handler

import (
	"errors"
	"fmt"

	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/translate"
	"github.com/glizzus/jukebox/internal/tts"
)

// UserError is an error type that is used to represent
// an error that should be displayed to the user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

func userErrorf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

const genericFailure = "There was an error trying to execute that command!"

// userMessage maps a command error onto the reply shown in the channel.
// internal reports whether the error is unexpected and should be logged.
func userMessage(err error) (msg string, internal bool) {
	var userErr *UserError
	var connErr *player.ConnectionError
	var apiErr *tts.APIError
	var translateErr *translate.APIError
	switch {
	case errors.As(err, &userErr):
		return userErr.Message, false
	case errors.Is(err, player.ErrNotConnected):
		return "I'm not in a voice channel.", false
	case errors.As(err, &connErr):
		return "I couldn't join your voice channel. Please try again.", true
	case errors.Is(err, tts.ErrDisabled):
		return "Text-to-speech is not configured.", false
	case errors.Is(err, tts.ErrEmptyText):
		return "Please provide some text to convert to speech!", false
	case errors.Is(err, tts.ErrTextTooLong):
		return fmt.Sprintf("Please keep your text under %d characters!", tts.MaxTextLength), false
	case errors.As(err, &apiErr):
		return "Voice generation failed: " + apiErr.Message, true
	case errors.Is(err, translate.ErrDisabled):
		return "Translation is not configured.", false
	case errors.As(err, &translateErr):
		return "Translation failed. Please try again or use a different language code.", true
	default:
		return genericFailure, true
	}
}
