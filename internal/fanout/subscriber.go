// Package fanout is the Room Fan-out layer (spec.md §4.5): a per-GameId
// subscription registry with dead-connection reaping, guaranteed
// per-room delivery ordering, and heartbeat-driven liveness. It is a
// direct rename of the teacher's Hub/Cell/Connector actor trio
// (internal/domain/registry/{hub,cell,connect}.go) from "per-user mailbox"
// to "per-room mailbox."
package fanout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corridors/server/internal/domain/event"
	"github.com/google/uuid"
)

// Subscriber is the transport-facing handle a Room delivers events to. It
// is the renamed Connector from connect.go: any transport (websocket, long
// poll, in-process test double) implements this to receive a room's
// broadcasts.
type Subscriber interface {
	ID() uuid.UUID
	// Send pushes ev to the subscriber, giving up after timeout
	// (spec.md §4.5 backpressure). Returns false if the event was dropped.
	Send(ev event.Eventer, timeout time.Duration) bool
	// Recv is read by the transport's pump loop.
	Recv() <-chan event.Eventer
	Close()
}

// inprocSubscriber is a channel-backed Subscriber, the renamed connect.go
// "connect" struct minus its sync.Pool reuse (pooling optimizes a
// high-churn chat gateway; Corridors rooms are comparatively few and
// long-lived, so the allocation is not worth the complexity).
type inprocSubscriber struct {
	id           uuid.UUID
	ctx          context.Context
	cancel       context.CancelFunc
	sendCh       chan event.Eventer
	closed       atomic.Bool
	closeOnce    sync.Once
	droppedCount uint64
}

// NewSubscriber constructs a Subscriber with a bounded mailbox, cancellable
// via ctx (e.g. the owning HTTP request's context).
func NewSubscriber(ctx context.Context, bufferSize int) Subscriber {
	childCtx, cancel := context.WithCancel(ctx)
	return &inprocSubscriber{
		id:     uuid.New(),
		ctx:    childCtx,
		cancel: cancel,
		sendCh: make(chan event.Eventer, bufferSize),
	}
}

func (s *inprocSubscriber) ID() uuid.UUID { return s.id }

// Send mirrors connect.go's Send/handleBackpressure algorithm: wait up to
// timeout for mailbox space, then evict a lower-priority pending event to
// make room for a higher-priority one, else drop.
func (s *inprocSubscriber) Send(ev event.Eventer, timeout time.Duration) (sent bool) {
	if s.closed.Load() {
		return false
	}

	// Close() may run concurrently with this send (a disconnect racing a
	// broadcast); guard the closed-channel send rather than serialize the
	// hot path on a lock.
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-s.ctx.Done():
		return false
	case s.sendCh <- ev:
		return true
	case <-ctx.Done():
		return s.handleBackpressure(ev, timeout)
	}
}

func (s *inprocSubscriber) handleBackpressure(ev event.Eventer, timeout time.Duration) bool {
	if ev.GetPriority() <= event.PriorityLow {
		atomic.AddUint64(&s.droppedCount, 1)
		return false
	}

	select {
	case old := <-s.sendCh:
		if old.GetPriority() < ev.GetPriority() {
			select {
			case s.sendCh <- ev:
				return true
			default:
			}
		}
		select {
		case s.sendCh <- old:
		default:
		}
	case <-time.After(timeout):
	}
	atomic.AddUint64(&s.droppedCount, 1)
	return false
}

func (s *inprocSubscriber) Recv() <-chan event.Eventer { return s.sendCh }

func (s *inprocSubscriber) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		close(s.sendCh)
	})
}

var _ Subscriber = (*inprocSubscriber)(nil)
