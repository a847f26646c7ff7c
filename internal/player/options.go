package player

import (
	"log/slog"
	"time"

	"github.com/glizzus/jukebox/internal/schedule"
)

const (
	DefaultIdleTimeout            = 60 * time.Second
	DefaultConnectTimeout         = 20 * time.Second
	DefaultMaxTrackRetries        = 2
	DefaultMaxConsecutiveFailures = 5

	// eventTimeout bounds transport calls made while handling an event,
	// since events carry no caller context.
	eventTimeout = 20 * time.Second
)

type options struct {
	notifier               Notifier
	publisher              PlaybackPublisher
	idleTimeout            time.Duration
	connectTimeout         time.Duration
	maxTrackRetries        int
	maxConsecutiveFailures int
	announce               bool
	afterFunc              schedule.TimerFunc
	logger                 *slog.Logger
}

func defaultOptions() options {
	return options{
		idleTimeout:            DefaultIdleTimeout,
		connectTimeout:         DefaultConnectTimeout,
		maxTrackRetries:        DefaultMaxTrackRetries,
		maxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		afterFunc:              schedule.AfterFunc,
		logger:                 slog.Default(),
	}
}

// Option configures the queues created by a Registry.
type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

func WithPlaybackPublisher(p PlaybackPublisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithNowPlayingNotices sends a notice to the text channel whenever a track starts.
func WithNowPlayingNotices(enabled bool) Option {
	return func(o *options) {
		o.announce = enabled
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleTimeout = d
		}
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithRetryPolicy sets how many times a failed submission is retried before
// the track is skipped, and how many skipped tracks in a row put the queue
// into the degraded state.
func WithRetryPolicy(maxTrackRetries, maxConsecutiveFailures int) Option {
	return func(o *options) {
		if maxTrackRetries >= 0 {
			o.maxTrackRetries = maxTrackRetries
		}
		if maxConsecutiveFailures > 0 {
			o.maxConsecutiveFailures = maxConsecutiveFailures
		}
	}
}

func WithTimerFactory(f schedule.TimerFunc) Option {
	return func(o *options) {
		if f != nil {
			o.afterFunc = f
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
