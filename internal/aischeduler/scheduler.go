// Package aischeduler implements spec.md §4.3: the bounded FIFO queue of
// machine-turn work and the worker pool that drains it. The queue is a
// Watermill gochannel.GoChannel Pub/Sub feeding a message.Router with one
// NoPublishHandlerFunc per worker slot — the same shape as the teacher's
// internal/handler/amqp/router.go + bind.go, generalized from "deliver a
// chat message to a connected user" to "ensure a machine move is produced
// for a game." Deduplication is a sync.Map pending-set consulted before
// publish, mirroring the teacher's hub.IsConnected locality-filter idiom.
// Backpressure reuses the teacher's connect.Send/handleBackpressure shape:
// a context-deadline-bounded wait for a worker slot, past which the game is
// marked stuck rather than blocking the caller forever.
package aischeduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/corridors/server/internal/domain/event"
	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/fanout"
	"github.com/google/uuid"
	"go.uber.org/fx"
)

const topic = "ai_move"

// MoveApplier is the callback surface a worker uses to produce and commit a
// machine move. Declared locally (rather than importing turnrouter's
// concrete Router into the worker body) to keep the worker testable against
// a fake; turnrouter.Router satisfies it via PlayMachineTurn.
type MoveApplier interface {
	PlayMachineTurn(ctx context.Context, gameID model.GameId) error
}

// Scheduler is the AI Scheduler of spec.md §4.3: a bounded queue of GameIds
// awaiting a machine move, plus the worker pool that drains it.
type Scheduler struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	mover  MoveApplier
	rooms  *fanout.RoomRegistry
	logger *slog.Logger

	pending sync.Map // model.GameId -> struct{}, spec.md §4.3 "at most once" dedup
	sem     chan struct{}

	enqueueTimeout time.Duration
	turnTimeout    time.Duration

	closeOnce sync.Once
}

// New constructs a Scheduler with workers handler slots draining the queue,
// and — when lc is non-nil — registers its start/stop with the fx graph,
// following the teacher's NewWatermillRouter lifecycle-hook shape.
func New(lc fx.Lifecycle, mover MoveApplier, rooms *fanout.RoomRegistry, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(o.workers * 4)}, wmLogger)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("%w: ai scheduler router: %v", model.ErrInternal, err)
	}

	s := &Scheduler{
		pubsub:         pubsub,
		router:         router,
		mover:          mover,
		rooms:          rooms,
		logger:         logger,
		sem:            make(chan struct{}, o.workers),
		enqueueTimeout: o.enqueueTimeout,
		turnTimeout:    o.turnTimeout,
	}

	for i := 0; i < o.workers; i++ {
		router.AddNoPublisherHandler(
			fmt.Sprintf("ai_worker_%d", i),
			topic,
			pubsub,
			s.handle,
		)
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if runErr := router.Run(context.Background()); runErr != nil {
						logger.Error("ai scheduler router run error", "err", runErr)
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				return s.Close()
			},
		})
	}

	return s, nil
}

// Enqueue admits gameID into the queue, blocking the caller up to the
// configured enqueue timeout for a free worker slot (spec.md §4.3
// backpressure). A GameId already pending is rejected with
// model.ErrAlreadyQueued rather than queued twice.
func (s *Scheduler) Enqueue(gameID model.GameId) error {
	if _, loaded := s.pending.LoadOrStore(gameID, struct{}{}); loaded {
		return model.ErrAlreadyQueued
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.enqueueTimeout)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.pending.Delete(gameID)
		s.rooms.Broadcast(event.New(gameID, event.ErrorMessage, event.ErrorPayload{
			Code:    "ai_queue_stuck",
			Message: "ai scheduler queue saturated; machine turn delayed",
		}))
		return model.ErrQueueFull
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte(gameID.String()))
	if err := s.pubsub.Publish(topic, msg); err != nil {
		<-s.sem
		s.pending.Delete(gameID)
		return fmt.Errorf("%w: publish ai move: %v", model.ErrInternal, err)
	}
	return nil
}

// handle is the NoPublishHandlerFunc run by each worker slot, patterned on
// the teacher's Bind: panic recovery first, then domain execution, always
// acking — a stuck or stale machine turn is not something retrying the same
// message fixes.
func (s *Scheduler) handle(msg *message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ai worker panic recovered",
				"err", r,
				"stack", string(debug.Stack()),
				"msg_id", msg.UUID)
		}
	}()

	gameID, parseErr := parseGameID(string(msg.Payload))
	if parseErr != nil {
		s.logger.Error("ai worker decode failed", "err", parseErr, "msg_id", msg.UUID)
		return nil
	}

	defer func() {
		<-s.sem
		s.pending.Delete(gameID)
	}()

	ctx, cancel := context.WithTimeout(msg.Context(), s.turnTimeout)
	defer cancel()

	if playErr := s.mover.PlayMachineTurn(ctx, gameID); playErr != nil {
		s.logger.Warn("machine turn failed", "game_id", gameID.String(), "err", playErr)
	}
	return nil
}

// Close stops the router, draining in-flight workers, matching the
// teacher's router.Close() OnStop hook.
func (s *Scheduler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.router.Close()
	})
	return err
}

func parseGameID(raw string) (model.GameId, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return model.GameId{}, err
	}
	return model.GameId(id), nil
}
