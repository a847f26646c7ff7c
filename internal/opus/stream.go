package opus

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var ErrVoiceConnClosed = errors.New("voice connection send timeout")

// sendTimeout bounds how long a single frame may wait on the voice connection.
const sendTimeout = time.Minute

// Control pauses a running stream. The zero value is ready to use and a nil
// *Control never pauses.
type Control struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func (c *Control) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused == paused {
		return
	}
	c.paused = paused
	if paused {
		c.resume = make(chan struct{})
	} else {
		close(c.resume)
	}
}

func (c *Control) Paused() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// wait blocks while the stream is paused.
func (c *Control) wait(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return nil
	}
	resume := c.resume
	c.mu.Unlock()

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StreamToVoice reads Opus frames from source and sends them on send, which
// is normally a voice connection's OpusSend channel. It blocks until all
// frames are sent, ctx is cancelled or an error occurs. Returns nil on clean
// EOF and ctx.Err() when stopped.
func StreamToVoice(ctx context.Context, source *FrameReader, send chan<- []byte, ctrl *Control) error {
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	for {
		if err := ctrl.wait(ctx); err != nil {
			return err
		}

		frame, err := source.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(sendTimeout)
		select {
		case send <- frame:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrVoiceConnClosed
		}
	}
}
