package fanout

import "time"

// options configures a RoomRegistry, following the functional-options shape
// of registry/options.go in the teacher repo.
type options struct {
	mailboxSize             int
	heartbeatPeriod         time.Duration
	heartbeatMissMultiplier int
}

func defaultOptions() *options {
	return &options{
		mailboxSize:             256,
		heartbeatPeriod:         20 * time.Second,
		heartbeatMissMultiplier: 3,
	}
}

// Option mutates a RoomRegistry's configuration at construction time.
type Option func(*options)

// WithMailboxSize bounds how many undelivered events a single room buffers
// before new broadcasts are dropped.
func WithMailboxSize(n int) Option {
	return func(o *options) { o.mailboxSize = n }
}

// WithHeartbeatPeriod sets how often a room pings its subscribers. A
// non-positive period disables heartbeating entirely (used by tests).
func WithHeartbeatPeriod(d time.Duration) Option {
	return func(o *options) { o.heartbeatPeriod = d }
}

// WithHeartbeatMissMultiplier sets how many missed heartbeat periods a
// subscriber tolerates before being disconnected as stale (spec.md §4.5,
// fixed at K=3 per SPEC_FULL.md §9.1).
func WithHeartbeatMissMultiplier(k int) Option {
	return func(o *options) { o.heartbeatMissMultiplier = k }
}
