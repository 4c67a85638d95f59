package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
)

// RoomGlobal is the implicit "every authenticated connection" broadcast set;
// admission joins it automatically. RoomFeed is joined on request.
const (
	RoomGlobal = "global"
	RoomFeed   = "feed"
)

// Hubber is the gateway for session management, presence and event routing.
type Hubber interface {
	Admit(conn *Conn)
	Remove(connID uuid.UUID)
	JoinRoom(connID uuid.UUID, room string) bool
	ConnectionsFor(principalID int64) []uuid.UUID
	DisconnectPrincipal(principalID int64)
	Presence() []model.PresenceEntry
	Deliver(ev event.Eventer, scope event.Scope)
	Stats() model.HubStats
	Shutdown()
}

// Interface guard
var _ Hubber = (*Hub)(nil)

// Hub is the single piece of shared mutable in-process state: the connection
// registry. One mutex covers the principal index, the connection index and
// the room sets together; readers therefore never observe a connection
// removed from one index but still present in another.
type Hub struct {
	mu        sync.RWMutex
	cells     map[int64]*Cell
	conns     map[uuid.UUID]*Conn
	rooms     map[string]map[uuid.UUID]*Conn
	startedAt time.Time
	config    hubConfig
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		cells:     make(map[int64]*Cell),
		conns:     make(map[uuid.UUID]*Conn),
		rooms:     map[string]map[uuid.UUID]*Conn{RoomGlobal: {}, RoomFeed: {}},
		startedAt: time.Now(),
		config: hubConfig{
			mailboxSize: 256,
			sendTimeout: 500 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Admit records the connection as authenticated: principal cell, connection
// index and the global room, in one critical section.
func (h *Hub) Admit(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cell, ok := h.cells[conn.GetPrincipalID()]
	if !ok {
		cell = newCell(conn.GetPrincipalID(), conn.GetUsername(), h.config.mailboxSize, h.config.sendTimeout)
		h.cells[conn.GetPrincipalID()] = cell
	}
	cell.attach(conn)
	h.conns[conn.GetID()] = conn
	h.rooms[RoomGlobal][conn.GetID()] = conn
}

// Remove is idempotent: it drops the connection from every room and from the
// principal index, reclaiming the cell when the last session goes.
func (h *Hub) Remove(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	for _, members := range h.rooms {
		delete(members, connID)
	}

	if cell, ok := h.cells[conn.GetPrincipalID()]; ok {
		if cell.detach(connID) {
			cell.stop()
			delete(h.cells, conn.GetPrincipalID())
		}
	}
	conn.Close()
}

// JoinRoom adds an admitted connection to a named room. Unknown connections
// are refused: room membership stays a subset of authenticated connections.
func (h *Hub) JoinRoom(connID uuid.UUID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[uuid.UUID]*Conn)
		h.rooms[room] = members
	}
	members[connID] = conn
	return true
}

func (h *Hub) ConnectionsFor(principalID int64) []uuid.UUID {
	h.mu.RLock()
	cell, ok := h.cells[principalID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return cell.connectionIDs()
}

// DisconnectPrincipal force-closes every live session of a principal, used
// when an admin ban must bite without waiting for a reconnect. The transport
// pumps observe the close and unwind through Remove.
func (h *Hub) DisconnectPrincipal(principalID int64) {
	h.mu.RLock()
	cell, ok := h.cells[principalID]
	h.mu.RUnlock()
	if ok {
		cell.closeSessions()
	}
}

// Presence lists the distinct authenticated principals, de-duplicated across
// multi-device connections and ordered by username.
func (h *Hub) Presence() []model.PresenceEntry {
	h.mu.RLock()
	entries := make([]model.PresenceEntry, 0, len(h.cells))
	for id, cell := range h.cells {
		entries = append(entries, model.PresenceEntry{PrincipalID: id, Username: cell.username})
	}
	h.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })
	return entries
}

// Deliver resolves the scope to a snapshot of cell instructions and queues
// them. Resolution holds only a read lock; a connection removed mid-fanout is
// silently skipped by its cell.
func (h *Hub) Deliver(ev event.Eventer, scope event.Scope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch scope.Kind {
	case event.ScopeAll:
		for _, cell := range h.cells {
			cell.push(delivery{ev: ev})
		}
	case event.ScopeAllExcept:
		for _, cell := range h.cells {
			cell.push(delivery{ev: ev, except: scope.ExceptConn})
		}
	case event.ScopePrincipals:
		for _, id := range scope.Principals {
			if cell, ok := h.cells[id]; ok {
				cell.push(delivery{ev: ev})
			}
		}
	case event.ScopeRoom:
		members := h.rooms[scope.Room]
		if len(members) == 0 {
			return
		}
		// Group the room membership into per-principal include sets so each
		// cell only touches its own sessions.
		includes := make(map[int64]map[uuid.UUID]struct{})
		for connID, conn := range members {
			set, ok := includes[conn.GetPrincipalID()]
			if !ok {
				set = make(map[uuid.UUID]struct{})
				includes[conn.GetPrincipalID()] = set
			}
			set[connID] = struct{}{}
		}
		for principalID, include := range includes {
			if cell, ok := h.cells[principalID]; ok {
				cell.push(delivery{ev: ev, include: include})
			}
		}
	}
}

func (h *Hub) Stats() model.HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make(map[string]int, len(h.rooms))
	for name, members := range h.rooms {
		rooms[name] = len(members)
	}
	return model.HubStats{
		TotalPrincipals:  len(h.cells),
		TotalConnections: len(h.conns),
		Rooms:            rooms,
		Uptime:           time.Since(h.startedAt),
	}
}

// Shutdown stops every cell goroutine and closes every session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, cell := range h.cells {
		cell.closeSessions()
		cell.stop()
		delete(h.cells, id)
	}
	h.conns = make(map[uuid.UUID]*Conn)
	for name := range h.rooms {
		h.rooms[name] = make(map[uuid.UUID]*Conn)
	}
}
