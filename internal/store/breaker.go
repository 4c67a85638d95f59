package store

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/devconnect/realtime-service/internal/domain/model"
)

// Breaker decorates a Store with a circuit breaker so a dead database fails
// fast as ErrUnavailable instead of stalling every connection's command
// handler behind driver timeouts.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

var _ Store = (*Breaker)(nil)

func NewBreaker(next Store) *Breaker {
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "store",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			// Domain conflicts are answers, not infrastructure failures.
			IsSuccessful: func(err error) bool {
				return err == nil || isDomainErr(err)
			},
		}),
	}
}

func isDomainErr(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyLiked) ||
		errors.Is(err, ErrNotLiked)
}

func (b *Breaker) do(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return v, err
}

func (b *Breaker) exec(fn func() error) error {
	_, err := b.do(func() (any, error) { return nil, fn() })
	return err
}

func (b *Breaker) PrincipalByID(ctx context.Context, id int64) (*model.Principal, error) {
	v, err := b.do(func() (any, error) { return b.next.PrincipalByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return v.(*model.Principal), nil
}

func (b *Breaker) CreatePrincipal(ctx context.Context, p *model.Principal) error {
	return b.exec(func() error { return b.next.CreatePrincipal(ctx, p) })
}

func (b *Breaker) SetBanned(ctx context.Context, id int64, banned bool) error {
	return b.exec(func() error { return b.next.SetBanned(ctx, id, banned) })
}

func (b *Breaker) SetMuted(ctx context.Context, id int64, muted bool) error {
	return b.exec(func() error { return b.next.SetMuted(ctx, id, muted) })
}

func (b *Breaker) SaveChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	return b.exec(func() error { return b.next.SaveChatMessage(ctx, msg) })
}

func (b *Breaker) RecentChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	v, err := b.do(func() (any, error) { return b.next.RecentChatMessages(ctx, limit) })
	if err != nil {
		return nil, err
	}
	return v.([]model.ChatMessage), nil
}

func (b *Breaker) DeleteChatMessage(ctx context.Context, id int64) error {
	return b.exec(func() error { return b.next.DeleteChatMessage(ctx, id) })
}

func (b *Breaker) ClearChat(ctx context.Context) (int64, error) {
	v, err := b.do(func() (any, error) { return b.next.ClearChat(ctx) })
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (b *Breaker) SaveDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	return b.exec(func() error { return b.next.SaveDirectMessage(ctx, msg) })
}

func (b *Breaker) CreatePost(ctx context.Context, post *model.Post) error {
	return b.exec(func() error { return b.next.CreatePost(ctx, post) })
}

func (b *Breaker) UpdatePost(ctx context.Context, id int64, content string) error {
	return b.exec(func() error { return b.next.UpdatePost(ctx, id, content) })
}

func (b *Breaker) PostByID(ctx context.Context, id int64) (*model.Post, error) {
	v, err := b.do(func() (any, error) { return b.next.PostByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return v.(*model.Post), nil
}

func (b *Breaker) DeletePost(ctx context.Context, id int64) error {
	return b.exec(func() error { return b.next.DeletePost(ctx, id) })
}

func (b *Breaker) ToggleLike(ctx context.Context, postID, principalID int64, action model.LikeAction) (int64, error) {
	v, err := b.do(func() (any, error) { return b.next.ToggleLike(ctx, postID, principalID, action) })
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (b *Breaker) AddComment(ctx context.Context, comment *model.Comment) (int64, error) {
	v, err := b.do(func() (any, error) { return b.next.AddComment(ctx, comment) })
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (b *Breaker) CommentByID(ctx context.Context, id int64) (*model.Comment, error) {
	v, err := b.do(func() (any, error) { return b.next.CommentByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return v.(*model.Comment), nil
}

func (b *Breaker) DeleteComment(ctx context.Context, id int64) (int64, error) {
	v, err := b.do(func() (any, error) { return b.next.DeleteComment(ctx, id) })
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (b *Breaker) Close() error { return b.next.Close() }
