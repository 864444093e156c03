package fanout

import (
	"sync"
	"time"

	"github.com/corridors/server/internal/domain/event"
	"github.com/corridors/server/internal/domain/model"
	"github.com/google/uuid"
)

// RoomRegistry is the renamed Hub: the top-level fan-out entry point the
// rest of the server talks to. It owns one room per in-flight GameId and
// prunes rooms that have gone idle, mirroring hub.go's registry-of-cells
// design.
type RoomRegistry struct {
	rooms sync.Map // model.GameId -> *room

	mailboxSize     int
	heartbeatPeriod time.Duration
	missMultiplier  int

	evictOnce sync.Once
	evictStop chan struct{}
}

// NewRoomRegistry constructs a registry. Rooms are created lazily on first
// Subscribe or Broadcast, matching hub.go's LoadOrStore idiom.
func NewRoomRegistry(opts ...Option) *RoomRegistry {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}
	return &RoomRegistry{
		mailboxSize:     cfg.mailboxSize,
		heartbeatPeriod: cfg.heartbeatPeriod,
		missMultiplier:  cfg.heartbeatMissMultiplier,
		evictStop:       make(chan struct{}),
	}
}

func (reg *RoomRegistry) roomFor(gameID model.GameId) *room {
	if r, ok := reg.rooms.Load(gameID); ok {
		return r.(*room)
	}
	created := newRoom(gameID, reg.mailboxSize, reg.heartbeatPeriod, reg.missMultiplier)
	actual, loaded := reg.rooms.LoadOrStore(gameID, created)
	if loaded {
		created.stop()
		return actual.(*room)
	}
	return created
}

// Subscribe attaches sub to gameID's room, creating the room if this is its
// first subscriber, and broadcasts a PlayerConnected hello carrying the new
// population count (spec.md §4.5).
func (reg *RoomRegistry) Subscribe(gameID model.GameId, sub Subscriber) {
	r := reg.roomFor(gameID)
	r.attach(sub)
	r.push(event.New(gameID, event.PlayerConnected, event.PlayerConnectedPayload{
		ConnectionID: sub.ID().String(),
		Population:   r.population(),
	}), "")
}

// Unsubscribe detaches sub from gameID's room. The room itself is left in
// place — it is reclaimed only by Sweep, giving a momentarily-disconnected
// player a window to reconnect without losing room state.
func (reg *RoomRegistry) Unsubscribe(gameID model.GameId, subID uuid.UUID) {
	v, ok := reg.rooms.Load(gameID)
	if !ok {
		return
	}
	r := v.(*room)
	r.detach(subID)
	r.push(event.New(gameID, event.PlayerDisconnected, event.PlayerDisconnectedPayload{
		ConnectionID: subID.String(),
		Population:   r.population(),
	}), "")
}

// NotePong marks subID as alive in gameID's room, called by the transport
// whenever it observes any inbound frame from that subscriber.
func (reg *RoomRegistry) NotePong(gameID model.GameId, subID uuid.UUID) {
	if v, ok := reg.rooms.Load(gameID); ok {
		v.(*room).notePong(subID)
	}
}

// Broadcast enqueues ev for asynchronous delivery to every subscriber of
// ev.GetGameID() except, when exclude is given, the one bearing that
// connection id (spec.md §4.5 "broadcast(GameId, message, exclude?)"). It
// is non-blocking: the event is handed to the room's mailbox and delivered
// by that room's own loop goroutine.
func (reg *RoomRegistry) Broadcast(ev event.Eventer, exclude ...uuid.UUID) bool {
	excludeID := ""
	if len(exclude) > 0 {
		excludeID = exclude[0].String()
	}
	r := reg.roomFor(ev.GetGameID())
	return r.push(ev, excludeID)
}

// BroadcastAll enqueues ev to every subscriber of every room, independent
// of ev's own GameId (spec.md §4.5 broadcast_all). Used for process-wide
// notices (e.g. shutdown) rather than per-game state changes.
func (reg *RoomRegistry) BroadcastAll(ev event.Eventer) {
	reg.rooms.Range(func(_, value any) bool {
		value.(*room).push(ev, "")
		return true
	})
}

// Population reports how many subscribers are currently attached to gameID.
func (reg *RoomRegistry) Population(gameID model.GameId) int {
	v, ok := reg.rooms.Load(gameID)
	if !ok {
		return 0
	}
	return v.(*room).population()
}

// Sweep removes rooms that have had zero subscribers for longer than
// idleTimeout, the renamed performEviction from hub.go. It owns no ticker
// and the Reaper's sweep does not call it: rooms are reclaimed only when a
// caller runs Sweep.
func (reg *RoomRegistry) Sweep(idleTimeout time.Duration) int {
	removed := 0
	reg.rooms.Range(func(key, value any) bool {
		r := value.(*room)
		if r.isIdle(idleTimeout) {
			reg.rooms.Delete(key)
			r.stop()
			removed++
		}
		return true
	})
	return removed
}

// Close stops every room unconditionally, used during server shutdown.
func (reg *RoomRegistry) Close() {
	reg.rooms.Range(func(key, value any) bool {
		value.(*room).stop()
		reg.rooms.Delete(key)
		return true
	})
}
