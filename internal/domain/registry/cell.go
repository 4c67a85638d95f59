/*
Package registry tracks the live set of authenticated connections and resolves
delivery scopes against it.

Key architectural concepts:
  - Cells: every connected principal is represented by an isolated Cell that
    encapsulates all concurrent transport sessions (multi-device) for that
    identity, with a mailbox decoupling the dispatcher from slow consumers.
  - Rooms: named broadcast sets of connections. The implicit "everyone" scope
    is modeled as the global room, so broadcast and room delivery share one
    code path.
  - Consistency: the principal index and the room sets mutate under a single
    lock, so scope resolution and presence reads always observe a snapshot in
    which a connection is either fully admitted or fully gone.
*/
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
)

// delivery is one fanout instruction queued on a cell mailbox: the event plus
// the subset of this cell's sessions it applies to.
type delivery struct {
	ev event.Eventer

	// include, when non-nil, limits delivery to these connection ids
	// (room-scoped events). except excludes a single sender connection.
	include map[uuid.UUID]struct{}
	except  uuid.UUID
}

// Cell implements isolated delivery for a single principal. A background
// goroutine drains the mailbox so a stalled session never blocks the hub.
type Cell struct {
	principalID int64
	username    string

	// [MAILBOX] buffered channel acting as a shock absorber between the
	// dispatcher and individual session delivery.
	mailbox chan delivery

	// [SESSIONS] all active transport channels for the principal, keyed by
	// connection id. Multiplexes one event to every device.
	sessions map[uuid.UUID]*Conn

	mu          sync.RWMutex
	doneCh      chan struct{}
	stopOnce    sync.Once
	sendTimeout time.Duration
}

func newCell(principalID int64, username string, mailboxSize int, sendTimeout time.Duration) *Cell {
	c := &Cell{
		principalID: principalID,
		username:    username,
		mailbox:     make(chan delivery, mailboxSize),
		sessions:    make(map[uuid.UUID]*Conn),
		doneCh:      make(chan struct{}),
		sendTimeout: sendTimeout,
	}
	go c.loop()
	return c
}

// push queues a fanout instruction. A full mailbox means the principal's
// sessions are hopelessly behind; the event is shed rather than blocking the
// dispatcher.
func (c *Cell) push(d delivery) bool {
	select {
	case c.mailbox <- d:
		return true
	default:
		return false
	}
}

func (c *Cell) attach(conn *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[conn.GetID()] = conn
}

// detach removes one session and reports whether the cell is now empty.
func (c *Cell) detach(connID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, connID)
	return len(c.sessions) == 0
}

func (c *Cell) connectionIDs() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	return ids
}

// closeSessions force-closes every session, used when a principal is banned
// mid-flight or the hub shuts down.
func (c *Cell) closeSessions() {
	c.mu.RLock()
	conns := make([]*Conn, 0, len(c.sessions))
	for _, conn := range c.sessions {
		conns = append(conns, conn)
	}
	c.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case d := <-c.mailbox:
			c.deliver(d)
		}
	}
}

func (c *Cell) deliver(d delivery) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, conn := range c.sessions {
		if id == d.except {
			continue
		}
		if d.include != nil {
			if _, ok := d.include[id]; !ok {
				continue
			}
		}
		// Fire-and-forget per session: a failed send is shed, the transport
		// pump handles actual removal on write error.
		conn.Send(d.ev, c.sendTimeout)
	}
}

func (c *Cell) stop() {
	c.stopOnce.Do(func() { close(c.doneCh) })
}
