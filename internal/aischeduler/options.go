package aischeduler

import "time"

type options struct {
	workers        int
	enqueueTimeout time.Duration
	turnTimeout    time.Duration
}

func defaultOptions() options {
	return options{
		workers:        4,
		enqueueTimeout: 2 * time.Second,
		turnTimeout:    10 * time.Second,
	}
}

// Option configures a Scheduler at construction time.
type Option func(*options)

// WithWorkers sets the number of worker-pool slots draining the queue
// concurrently (spec.md §4.3 "small worker pool").
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithEnqueueTimeout bounds how long Enqueue waits for a free worker slot
// before marking the game stuck (spec.md §4.3 backpressure).
func WithEnqueueTimeout(d time.Duration) Option {
	return func(o *options) { o.enqueueTimeout = d }
}

// WithTurnTimeout bounds how long a single worker waits for PlayMachineTurn
// to return before abandoning that game for the current pass.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *options) { o.turnTimeout = d }
}
