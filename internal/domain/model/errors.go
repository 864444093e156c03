package model

import "errors"

// Error kinds exposed by the core (spec.md §7). Sentinel errors rather than
// a custom hierarchy: every caller across registry/turnrouter/aischeduler
// compares with errors.Is, and errors.Wrap-style context is added with
// fmt.Errorf("%w", ...) at each layer.
var (
	ErrNotFound      = errors.New("not found")
	ErrNotInProgress = errors.New("session not in progress")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrIllegalMove   = errors.New("illegal move")
	ErrAlreadyQueued = errors.New("matchmaking ticket already queued")
	ErrQueueFull     = errors.New("ai scheduler queue full")
	ErrEngineTimeout = errors.New("engine deadline exceeded")
	ErrAdapterClosed = errors.New("search adapter closed")
	ErrInternal      = errors.New("internal error")
)
