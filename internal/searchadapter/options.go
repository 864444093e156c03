package searchadapter

import "time"

// Option configures an Adapter at construction time, following the
// functional-options shape of the teacher's registry/options.go
// (Option func(*Hub)).
type Option func(*Adapter)

// WithBatchSize overrides the fixed simulation batch size (spec.md §4.1
// suggests 100).
func WithBatchSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithWorkerPoolSize bounds how many simulation batches may run
// concurrently across all Adapters sharing this executor.
func WithWorkerPoolSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.executor = newExecutor(n)
		}
	}
}

// WithGracePeriod overrides the timeout-partial grace window (spec.md §4.1:
// "≤ 1s").
func WithGracePeriod(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.gracePeriod = d
		}
	}
}

// WithBreakerThreshold sets how many consecutive kernel failures trip the
// circuit breaker before further calls fail fast.
func WithBreakerThreshold(n uint32) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.breakerThreshold = n
		}
	}
}
