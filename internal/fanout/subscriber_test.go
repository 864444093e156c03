package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/corridors/server/internal/domain/event"
	"github.com/corridors/server/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestSendDropsLowPriorityWhenMailboxFull(t *testing.T) {
	sub := NewSubscriber(context.Background(), 1)
	gameID := model.NewGameId()

	ok := sub.Send(event.New(gameID, event.Ping, nil), 10*time.Millisecond)
	assert.True(t, ok)

	ok = sub.Send(event.New(gameID, event.Ping, nil), 10*time.Millisecond)
	assert.False(t, ok, "a second low-priority send should be dropped once the mailbox is full")
}

func TestSendEvictsLowerPriorityForHigherPriority(t *testing.T) {
	sub := NewSubscriber(context.Background(), 1)
	gameID := model.NewGameId()

	ok := sub.Send(event.New(gameID, event.PlayerConnected, nil), 10*time.Millisecond)
	assert.True(t, ok)

	ok = sub.Send(event.New(gameID, event.GameEnded, nil), 10*time.Millisecond)
	assert.True(t, ok, "a high-priority event should evict the queued low-priority one")

	ev := <-sub.Recv()
	assert.Equal(t, event.GameEnded, ev.GetKind())
}

func TestCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	sub := NewSubscriber(context.Background(), 1)
	sub.Close()
	sub.Close()

	gameID := model.NewGameId()
	ok := sub.Send(event.New(gameID, event.Ping, nil), 10*time.Millisecond)
	assert.False(t, ok)
}
