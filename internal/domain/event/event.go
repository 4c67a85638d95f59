package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the wire-level event name, exactly as the client sees it.
type Kind string

const (
	// [SELF] delivered to the admitted connection only
	ChatHistory Kind = "chatHistory"

	// [BROADCAST]
	ChatMessage        Kind = "chatMessage"
	UserTyping         Kind = "userTyping"
	ChatCleared        Kind = "chatCleared"
	ChatMessageDeleted Kind = "chatMessageDeleted"
	PostLikeUpdated    Kind = "postLikeUpdated"
	CommentAdded       Kind = "commentAdded"
	CommentDeleted     Kind = "commentDeleted"
	ActiveUsers        Kind = "activeUsers"

	// [ROOM] feed room only
	PostCreated Kind = "postCreated"
	PostUpdated Kind = "postUpdated"
	PostDeleted Kind = "postDeleted"

	// [TARGETED]
	DirectMessage Kind = "directMessage"
	Error         Kind = "error"
)

type Priority int32

const (
	PriorityLow    Priority = 10
	PriorityNormal Priority = 20
	PriorityHigh   Priority = 30
)

// Eventer defines the contract for all data packets flowing through the Hub.
type Eventer interface {
	GetID() string
	GetKind() Kind
	GetPriority() Priority
	GetOccurredAt() int64
	GetPayload() any
	GetCached() []byte
	SetCached([]byte)
}

// Interface guard
var _ Eventer = (*Event)(nil)

// Event is the single concrete Eventer. Typed payloads live in chat.go,
// feed.go and system.go; constructors there pin the Kind/payload pairing.
type Event struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	OccurredAt int64  `json:"occurred_at"`
	Payload    any    `json:"payload"`

	// cached holds the wire form, marshaled exactly once per event by the
	// dispatcher before fanout. Safe without atomics because the write
	// happens-before every channel send that hands the event to a session.
	cached []byte
}

func newEvent(kind Kind, payload any) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UnixMilli(),
		Payload:    payload,
	}
}

func (e *Event) GetID() string         { return e.ID }
func (e *Event) GetKind() Kind         { return e.Kind }
func (e *Event) GetOccurredAt() int64  { return e.OccurredAt }
func (e *Event) GetPayload() any       { return e.Payload }
func (e *Event) GetCached() []byte     { return e.cached }
func (e *Event) SetCached(data []byte) { e.cached = data }

// GetPriority ranks the event for backpressure shedding: typing indicators
// are disposable, persisted messages are not.
func (e *Event) GetPriority() Priority {
	switch e.Kind {
	case UserTyping, ActiveUsers:
		return PriorityLow
	case ChatMessage, DirectMessage, ChatHistory:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
