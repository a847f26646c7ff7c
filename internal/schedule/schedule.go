package schedule

import "time"

// Timer is a pending one-shot callback.
// Stop reports whether the call prevented the callback from running.
type Timer interface {
	Stop() bool
}

// TimerFunc arms a one-shot callback that runs f after d.
type TimerFunc func(d time.Duration, f func()) Timer

// AfterFunc is the TimerFunc backed by the runtime timer.
func AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var _ TimerFunc = AfterFunc
