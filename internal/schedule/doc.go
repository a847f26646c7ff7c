// Package schedule provides one-shot cancellable timers and cron-driven loops.
//
// Timers back the idle teardown of guild queues. Cron loops drive periodic
// maintenance such as re-dialing disconnected audio nodes.
package schedule
