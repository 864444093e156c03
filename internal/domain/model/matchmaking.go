package model

import "time"

// MatchmakingTicket is a pending entry in the Matchmaker's FIFO queue.
type MatchmakingTicket struct {
	PlayerID    PlayerId
	DisplayName string
	Config      Configuration
	EnqueuedAt  time.Time
}
