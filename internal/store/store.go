// Package store is the persistent store adapter: entity-level reads and
// writes over the relational database. All counter mutations (likes,
// comments) run check → mutate → re-read inside one transaction here; the
// store is the only real atomicity boundary, so no caller may publish a count
// it did not get from this package.
package store

import (
	"context"
	"errors"

	"github.com/devconnect/realtime-service/internal/domain/model"
)

var (
	// ErrNotFound covers missing principals, posts, comments and chat
	// messages alike; callers translate it to their own conflict kinds.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyLiked and ErrNotLiked signal a like toggle that would be a
	// no-op given current row state.
	ErrAlreadyLiked = errors.New("store: already liked")
	ErrNotLiked     = errors.New("store: not liked")

	// ErrUnavailable is surfaced by the breaker when the store is down.
	ErrUnavailable = errors.New("store: unavailable")
)

type Store interface {
	// Principals
	PrincipalByID(ctx context.Context, id int64) (*model.Principal, error)
	CreatePrincipal(ctx context.Context, p *model.Principal) error
	SetBanned(ctx context.Context, id int64, banned bool) error
	SetMuted(ctx context.Context, id int64, muted bool) error

	// Chat
	SaveChatMessage(ctx context.Context, msg *model.ChatMessage) error
	RecentChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error)
	DeleteChatMessage(ctx context.Context, id int64) error
	ClearChat(ctx context.Context) (int64, error)
	SaveDirectMessage(ctx context.Context, msg *model.DirectMessage) error

	// Feed
	CreatePost(ctx context.Context, post *model.Post) error
	UpdatePost(ctx context.Context, id int64, content string) error
	PostByID(ctx context.Context, id int64) (*model.Post, error)
	DeletePost(ctx context.Context, id int64) error
	ToggleLike(ctx context.Context, postID, principalID int64, action model.LikeAction) (int64, error)
	AddComment(ctx context.Context, comment *model.Comment) (int64, error)
	CommentByID(ctx context.Context, id int64) (*model.Comment, error)
	DeleteComment(ctx context.Context, id int64) (int64, error)

	Close() error
}
