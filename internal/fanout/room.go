package fanout

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/corridors/server/internal/domain/event"
	"github.com/corridors/server/internal/domain/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// outbox is one queued broadcast: the event plus the subscriber (if any) to
// skip, implementing spec.md §4.5's broadcast(GameId, message, exclude?).
type outbox struct {
	ev        event.Eventer
	excludeID string
}

// room is the renamed Cell: one actor per GameId, owning a mailbox that
// decouples producers (the Turn Router) from however many subscribers are
// currently attached, with the same batch-draining delivery loop as
// registry/cell.go.
type room struct {
	gameID model.GameId

	mailbox chan outbox
	subs    map[uuid.UUID]Subscriber
	mu      sync.RWMutex

	doneCh chan struct{}
	closeOnce sync.Once

	lastActivityUnix int64

	heartbeatPeriod time.Duration
	missMultiplier  int
	lastPongUnix    map[uuid.UUID]int64
	pongMu          sync.Mutex
}

func newRoom(gameID model.GameId, mailboxSize int, heartbeatPeriod time.Duration, missMultiplier int) *room {
	r := &room{
		gameID:           gameID,
		mailbox:          make(chan outbox, mailboxSize),
		subs:             make(map[uuid.UUID]Subscriber),
		doneCh:           make(chan struct{}),
		lastActivityUnix: time.Now().Unix(),
		heartbeatPeriod:  heartbeatPeriod,
		missMultiplier:   missMultiplier,
		lastPongUnix:     make(map[uuid.UUID]int64),
	}
	go r.loop()
	if heartbeatPeriod > 0 {
		go r.heartbeatLoop()
	}
	return r
}

func (r *room) touch() {
	atomic.StoreInt64(&r.lastActivityUnix, time.Now().Unix())
}

func (r *room) isIdle(timeout time.Duration) bool {
	r.mu.RLock()
	hasSubs := len(r.subs) > 0
	r.mu.RUnlock()
	if hasSubs {
		return false
	}
	last := time.Unix(atomic.LoadInt64(&r.lastActivityUnix), 0)
	return time.Since(last) > timeout
}

func (r *room) population() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// push enqueues ev for asynchronous delivery to every subscriber except the
// one identified by excludeID (empty = no exclusion), implementing spec.md
// §4.5's broadcast(GameId, message, exclude?). Returns false if the mailbox
// is saturated (event dropped to protect system stability, spec.md §4.5).
func (r *room) push(ev event.Eventer, excludeID string) bool {
	r.touch()
	select {
	case r.mailbox <- outbox{ev: ev, excludeID: excludeID}:
		return true
	default:
		return false
	}
}

func (r *room) attach(sub Subscriber) {
	r.mu.Lock()
	r.subs[sub.ID()] = sub
	r.mu.Unlock()
	r.touch()
	r.recordPong(sub.ID())
}

// detach removes a subscriber and reports whether the room is now empty.
func (r *room) detach(id uuid.UUID) bool {
	r.mu.Lock()
	delete(r.subs, id)
	empty := len(r.subs) == 0
	r.mu.Unlock()
	r.touch()

	r.pongMu.Lock()
	delete(r.lastPongUnix, id)
	r.pongMu.Unlock()
	return empty
}

func (r *room) recordPong(id uuid.UUID) {
	r.pongMu.Lock()
	r.lastPongUnix[id] = time.Now().Unix()
	r.pongMu.Unlock()
}

func (r *room) loop() {
	for {
		select {
		case <-r.doneCh:
			return
		case item := <-r.mailbox:
			r.deliver(item.ev, item.excludeID)
			for range 64 {
				select {
				case next := <-r.mailbox:
					r.deliver(next.ev, next.excludeID)
				default:
					goto wait
				}
			}
		}
	wait:
	}
}

// deliver fans ev out to every current subscriber except excludeID, waiting
// for every send to settle (or be dropped) before returning — satisfying
// the happens-before guarantee of spec.md §9: "broadcast returns" implies
// "every live subscriber has either received or been queued for reaping."
// Dead subscribers discovered here are detached so a later reap pass
// reclaims the room.
func (r *room) deliver(ev event.Eventer, excludeID string) {
	r.mu.RLock()
	targets := make([]Subscriber, 0, len(r.subs))
	for id, sub := range r.subs {
		if id.String() == excludeID {
			continue
		}
		targets = append(targets, sub)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	g := new(errgroup.Group)
	for _, sub := range targets {
		sub := sub
		g.Go(func() error {
			if !sub.Send(ev, 250*time.Millisecond) {
				r.detach(sub.ID())
			}
			return nil
		})
	}
	_ = g.Wait()
}

// heartbeatLoop pings every subscriber every heartbeatPeriod and
// disconnects one that has not produced any inbound activity for
// missMultiplier periods (spec.md §4.5).
func (r *room) heartbeatLoop() {
	ticker := time.NewTicker(r.heartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-r.doneCh:
			return
		case <-ticker.C:
			r.sweepHeartbeat()
		}
	}
}

func (r *room) sweepHeartbeat() {
	ping := event.New(r.gameID, event.Ping, nil)
	staleBefore := time.Now().Add(-time.Duration(r.missMultiplier) * r.heartbeatPeriod).Unix()

	r.mu.RLock()
	subs := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		r.pongMu.Lock()
		last := r.lastPongUnix[sub.ID()]
		r.pongMu.Unlock()

		if last != 0 && last < staleBefore {
			sub.Close()
			r.detach(sub.ID())
			continue
		}
		sub.Send(ping, r.heartbeatPeriod)
	}
}

// notePong marks a subscriber as alive — called by whatever transport
// observes a pong frame or any other inbound message.
func (r *room) notePong(id uuid.UUID) {
	r.recordPong(id)
}

func (r *room) stop() {
	r.closeOnce.Do(func() {
		close(r.doneCh)
		r.mu.Lock()
		defer r.mu.Unlock()
		for id, sub := range r.subs {
			sub.Close()
			delete(r.subs, id)
		}
	})
}
