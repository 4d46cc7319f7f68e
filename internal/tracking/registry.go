package tracking

import (
	"sync"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"go.uber.org/zap"
)

// Observer receives broadcasts for rooms it has joined. Implementations must
// not block in the Deliver methods; the publisher treats a returned error as
// a failure local to that observer only.
type Observer interface {
	ID() string
	DeliverLocation(shipmentID string, sample domain.LocationSample) error
	DeliverStatus(shipmentID string, update domain.StatusUpdate) error
}

// room is the ephemeral observer set for one shipment. A room exists exactly
// while it has members; no state survives the absent transition.
type room struct {
	mu      sync.Mutex
	members map[string]Observer
	closed  bool
}

// Registry maintains the live tracking rooms keyed by shipment id. Join,
// leave, and lookup on one room are linearizable; distinct rooms only share
// the short structural lock that guards the room map itself.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*room
	byObs   map[string]map[string]struct{}
	logger  *zap.Logger
	metrics roomMetrics
}

// roomMetrics is the slice of observability.Metrics the registry records to.
type roomMetrics interface {
	SetActiveRooms(count int)
	SetActiveObservers(count int)
}

func NewRegistry(logger *zap.Logger, metrics roomMetrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:   make(map[string]*room),
		byObs:   make(map[string]map[string]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Join adds an observer to a shipment's room, creating the room on first
// join. Joining twice with the same session id is idempotent.
func (r *Registry) Join(shipmentID string, observer Observer) {
	if shipmentID == "" || observer == nil || observer.ID() == "" {
		return
	}

	for {
		rm := r.getOrCreateRoom(shipmentID)

		// Lock order matches Leave: registry lock before room lock. The
		// membership and the byObs reverse index must move together, or a
		// concurrent leave can strand a stale byObs entry.
		r.mu.Lock()
		rm.mu.Lock()
		if rm.closed {
			// Lost a race with the last leave; the room was deleted.
			rm.mu.Unlock()
			r.mu.Unlock()
			continue
		}
		rm.members[observer.ID()] = observer
		joined, ok := r.byObs[observer.ID()]
		if !ok {
			joined = make(map[string]struct{})
			r.byObs[observer.ID()] = joined
		}
		joined[shipmentID] = struct{}{}
		rm.mu.Unlock()
		r.mu.Unlock()
		break
	}

	r.logger.Debug("observer joined room",
		zap.String("shipmentId", shipmentID),
		zap.String("sessionId", observer.ID()),
	)
	r.recordGauges()
}

// Leave removes an observer from a shipment's room. The room is deleted the
// moment its last observer leaves. Leaving a room the session is not a member
// of is a benign no-op; duplicate disconnect events are normal.
func (r *Registry) Leave(shipmentID, sessionID string) {
	r.mu.Lock()
	rm, ok := r.rooms[shipmentID]
	if !ok {
		r.mu.Unlock()
		r.logger.Debug("leave on absent room",
			zap.String("shipmentId", shipmentID),
			zap.String("sessionId", sessionID),
		)
		return
	}

	rm.mu.Lock()
	if _, member := rm.members[sessionID]; !member {
		rm.mu.Unlock()
		r.mu.Unlock()
		r.logger.Debug("leave without membership",
			zap.String("shipmentId", shipmentID),
			zap.String("sessionId", sessionID),
		)
		return
	}

	delete(rm.members, sessionID)
	if len(rm.members) == 0 {
		rm.closed = true
		delete(r.rooms, shipmentID)
	}
	rm.mu.Unlock()

	if joined, ok := r.byObs[sessionID]; ok {
		delete(joined, shipmentID)
		if len(joined) == 0 {
			delete(r.byObs, sessionID)
		}
	}
	r.mu.Unlock()

	r.logger.Debug("observer left room",
		zap.String("shipmentId", shipmentID),
		zap.String("sessionId", sessionID),
	)
	r.recordGauges()
}

// Drop releases every room membership held by a session. Used on terminal
// disconnect so a dead session never leaks a room reference.
func (r *Registry) Drop(sessionID string) {
	r.mu.RLock()
	joined := make([]string, 0, len(r.byObs[sessionID]))
	for shipmentID := range r.byObs[sessionID] {
		joined = append(joined, shipmentID)
	}
	r.mu.RUnlock()

	for _, shipmentID := range joined {
		r.Leave(shipmentID, sessionID)
	}
}

// Observers returns a snapshot of the observers currently joined to a
// shipment's room. An absent room yields an empty snapshot.
func (r *Registry) Observers(shipmentID string) []Observer {
	r.mu.RLock()
	rm, ok := r.rooms[shipmentID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	observers := make([]Observer, 0, len(rm.members))
	for _, observer := range rm.members {
		observers = append(observers, observer)
	}
	return observers
}

// ObserverIDs returns the session ids joined to a shipment's room.
func (r *Registry) ObserverIDs(shipmentID string) []string {
	observers := r.Observers(shipmentID)
	ids := make([]string, 0, len(observers))
	for _, observer := range observers {
		ids = append(ids, observer.ID())
	}
	return ids
}

// RoomExists reports whether a shipment currently has any observers. It
// distinguishes an absent room from an empty one still held in memory; the
// latter never exists.
func (r *Registry) RoomExists(shipmentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[shipmentID]
	return ok
}

// RoomCount returns the number of active rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) getOrCreateRoom(shipmentID string) *room {
	r.mu.RLock()
	rm, ok := r.rooms[shipmentID]
	r.mu.RUnlock()
	if ok {
		return rm
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[shipmentID]; ok {
		return rm
	}
	rm = &room{members: make(map[string]Observer)}
	r.rooms[shipmentID] = rm
	return rm
}

func (r *Registry) recordGauges() {
	if r.metrics == nil {
		return
	}

	r.mu.RLock()
	roomCount := len(r.rooms)
	observerCount := len(r.byObs)
	r.mu.RUnlock()

	r.metrics.SetActiveRooms(roomCount)
	r.metrics.SetActiveObservers(observerCount)
}
