package registry

import "time"

type hubConfig struct {
	mailboxSize int
	sendTimeout time.Duration
}

// Option defines a functional configuration type for the Hub.
type Option func(*Hub)

// WithMailboxSize sets the buffer capacity for each principal's cell mailbox.
func WithMailboxSize(size int) Option {
	return func(h *Hub) {
		h.config.mailboxSize = size
	}
}

// WithSendTimeout bounds how long a cell waits on a saturated session buffer
// before shedding the event.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.config.sendTimeout = d
	}
}
