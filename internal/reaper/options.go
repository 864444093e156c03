package reaper

import "time"

type options struct {
	sweepInterval  time.Duration
	staleThreshold time.Duration
}

// defaultOptions matches spec.md §4.4's production defaults: S=60s, T=1h.
func defaultOptions() options {
	return options{
		sweepInterval:  60 * time.Second,
		staleThreshold: time.Hour,
	}
}

// Option configures a Reaper at construction time.
type Option func(*options)

// WithSweepInterval sets S, the period between sweeps.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// WithStaleThreshold sets T, the idle duration after which an in_progress
// session is reaped.
func WithStaleThreshold(d time.Duration) Option {
	return func(o *options) { o.staleThreshold = d }
}

// WithTestMode applies spec.md §4.4's test-mode defaults (S=10s, T=60s) so
// integration tests can exercise the reaping path without waiting an hour.
func WithTestMode() Option {
	return func(o *options) {
		o.sweepInterval = 10 * time.Second
		o.staleThreshold = 60 * time.Second
	}
}
