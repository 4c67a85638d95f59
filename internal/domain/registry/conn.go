package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
)

// Interface guard
var _ Connector = (*Conn)(nil)

// Connector is what transport handlers and the hub see of a live connection.
// It allows mocking and decoupling from the concrete implementation.
type Connector interface {
	GetID() uuid.UUID
	GetPrincipalID() int64
	GetUsername() string
	Send(ev event.Eventer, timeout time.Duration) bool // thread-safe send with backpressure handling
	Recv() <-chan event.Eventer
	Close()
}

// Conn is one live transport session: the unit of delivery. It owns a
// buffered outbound channel drained by the transport's write pump; FIFO per
// connection is guaranteed by that single channel.
type Conn struct {
	id          uuid.UUID
	principalID int64
	username    string
	createdAt   time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	sendCh    chan event.Eventer
	closeOnce sync.Once

	// [ATOMIC_FIELDS]
	lastActivityAt int64
	droppedCount   uint64
}

func NewConn(ctx context.Context, principalID int64, username string, bufferSize int) *Conn {
	childCtx, cancel := context.WithCancel(ctx)
	return &Conn{
		id:             uuid.New(),
		principalID:    principalID,
		username:       username,
		createdAt:      time.Now(),
		ctx:            childCtx,
		cancelFn:       cancel,
		sendCh:         make(chan event.Eventer, bufferSize),
		lastActivityAt: time.Now().UnixNano(),
	}
}

func (c *Conn) GetID() uuid.UUID      { return c.id }
func (c *Conn) GetPrincipalID() int64 { return c.principalID }
func (c *Conn) GetUsername() string   { return c.username }

// Dropped reports how many events were shed due to backpressure.
func (c *Conn) Dropped() uint64 { return atomic.LoadUint64(&c.droppedCount) }

// Send attempts to push an event into the outbound channel. Delivery is
// best-effort: a full buffer triggers priority-based shedding rather than
// blocking the caller, so one slow consumer never stalls a fanout loop.
func (c *Conn) Send(ev event.Eventer, timeout time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- ev:
		atomic.StoreInt64(&c.lastActivityAt, time.Now().UnixNano())
		return true
	default:
		return c.handleBackpressure(ev, timeout)
	}
}

// handleBackpressure manages full buffers by shedding events. Shedding
// always discards outright: a dequeued event is never re-queued behind newer
// ones, since that would break the per-connection FIFO order the pump relies
// on. Eviction therefore drops the oldest queued event, not rotates it.
func (c *Conn) handleBackpressure(ev event.Eventer, timeout time.Duration) bool {
	// A low-priority event (typing, presence) is dropped immediately to keep
	// buffer room for events a client cannot re-derive.
	if ev.GetPriority() <= event.PriorityLow {
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	if ev.GetPriority() >= event.PriorityHigh {
		// Evict the oldest queued event to make room for the new one.
		select {
		case <-c.sendCh:
			atomic.AddUint64(&c.droppedCount, 1)
			select {
			case c.sendCh <- ev:
				atomic.StoreInt64(&c.lastActivityAt, time.Now().UnixNano())
				return true
			default:
			}
		case <-time.After(timeout):
		}
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	// Normal priority: wait briefly for the pump to drain a slot.
	select {
	case c.sendCh <- ev:
		atomic.StoreInt64(&c.lastActivityAt, time.Now().UnixNano())
		return true
	case <-time.After(timeout):
	case <-c.ctx.Done():
	}
	atomic.AddUint64(&c.droppedCount, 1)
	return false
}

func (c *Conn) Recv() <-chan event.Eventer { return c.sendCh }

// Done is closed once the connection is cancelled or closed, letting pumps
// observe forced disconnects (e.g. an admin ban).
func (c *Conn) Done() <-chan struct{} { return c.ctx.Done() }

// Close terminates the session exactly once. Safe to call concurrently from
// the hub (shutdown), the cell (detach) and the transport handler (defer).
// The outbound channel is never closed: concurrent Send calls race with
// teardown, so pumps must watch Done instead of a channel close.
func (c *Conn) Close() {
	c.closeOnce.Do(c.cancelFn)
}
