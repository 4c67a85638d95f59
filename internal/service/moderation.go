package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	"github.com/devconnect/realtime-service/internal/store"
)

// Moderator owns admin-only global mutations and every counter that multiple
// connections race over. No other code path may publish a like or comment
// count: the numbers broadcast from here were re-read inside the store
// transaction that produced them.
type Moderator interface {
	ClearChat(ctx context.Context, actorID int64) error
	DeleteMessage(ctx context.Context, actorID, messageID int64) error
	ToggleLike(ctx context.Context, actorID, postID int64, action model.LikeAction, exceptConn uuid.UUID) (int64, error)
	AddComment(ctx context.Context, actorID, postID int64, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, actorID, commentID int64) error
	SetBanned(ctx context.Context, actorID, targetID int64, banned bool) error
	SetMuted(ctx context.Context, actorID, targetID int64, muted bool) error
}

type ModerationService struct {
	store     store.Store
	publisher Publisher
	hub       registry.Hubber
	history   *HistoryCache
}

func NewModerationService(s store.Store, publisher Publisher, hub registry.Hubber, history *HistoryCache) *ModerationService {
	return &ModerationService{store: s, publisher: publisher, hub: hub, history: history}
}

// requireActor re-reads the acting principal so bans and demotions apply to
// already-connected sessions. mustAdmin additionally gates on role.
func (s *ModerationService) requireActor(ctx context.Context, actorID int64, mustAdmin bool) (*model.Principal, error) {
	actor, err := s.store.PrincipalByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("resolving actor %d: %w", actorID, err)
	}
	if actor.Banned {
		return nil, ErrBanned
	}
	if mustAdmin && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return actor, nil
}

// ClearChat deletes every persisted chat message, then broadcasts the clear.
// Concurrent clears are both fine: the second deletes zero rows and still
// broadcasts.
func (s *ModerationService) ClearChat(ctx context.Context, actorID int64) error {
	if _, err := s.requireActor(ctx, actorID, true); err != nil {
		return err
	}
	if _, err := s.store.ClearChat(ctx); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	s.history.Invalidate()
	return s.publisher.Publish(ctx, event.NewChatCleared(), event.All())
}

func (s *ModerationService) DeleteMessage(ctx context.Context, actorID, messageID int64) error {
	if _, err := s.requireActor(ctx, actorID, true); err != nil {
		return err
	}
	if err := s.store.DeleteChatMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	s.history.Invalidate()
	return s.publisher.Publish(ctx, event.NewChatMessageDeleted(messageID), event.All())
}

// ToggleLike runs the whole check → mutate → re-read sequence inside one
// store transaction and broadcasts the count that transaction returned.
// exceptConn skips the sender's own connection; the caller already has the
// count in the command response.
func (s *ModerationService) ToggleLike(ctx context.Context, actorID, postID int64, action model.LikeAction, exceptConn uuid.UUID) (int64, error) {
	if _, err := s.requireActor(ctx, actorID, false); err != nil {
		return 0, err
	}

	count, err := s.store.ToggleLike(ctx, postID, actorID, action)
	if err != nil {
		return 0, fmt.Errorf("toggle like on post %d: %w", postID, err)
	}

	ev := event.NewPostLikeUpdated(postID, actorID, action, count)
	if err := s.publisher.Publish(ctx, ev, event.AllExcept(exceptConn)); err != nil {
		return count, fmt.Errorf("toggle like broadcast: %w", err)
	}
	return count, nil
}

func (s *ModerationService) AddComment(ctx context.Context, actorID, postID int64, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty comment", ErrValidation)
	}
	actor, err := s.requireActor(ctx, actorID, false)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{PostID: postID, AuthorID: actorID, Author: actor.Username, Content: content}
	total, err := s.store.AddComment(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("add comment to post %d: %w", postID, err)
	}

	if err := s.publisher.Publish(ctx, event.NewCommentAdded(comment, total), event.All()); err != nil {
		return comment, fmt.Errorf("comment broadcast: %w", err)
	}
	return comment, nil
}

// DeleteComment allows the comment's author or an admin.
func (s *ModerationService) DeleteComment(ctx context.Context, actorID, commentID int64) error {
	actor, err := s.requireActor(ctx, actorID, false)
	if err != nil {
		return err
	}
	comment, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("locating comment %d: %w", commentID, err)
	}
	if comment.AuthorID != actorID && !actor.IsAdmin() {
		return ErrForbidden
	}

	total, err := s.store.DeleteComment(ctx, commentID)
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return s.publisher.Publish(ctx,
		event.NewCommentDeleted(comment.PostID, commentID, total), event.All())
}

// SetBanned flips the ban flag; banning also force-closes every live
// connection of the target so the ban takes effect immediately.
func (s *ModerationService) SetBanned(ctx context.Context, actorID, targetID int64, banned bool) error {
	if _, err := s.requireActor(ctx, actorID, true); err != nil {
		return err
	}
	if err := s.store.SetBanned(ctx, targetID, banned); err != nil {
		return fmt.Errorf("setting ban for %d: %w", targetID, err)
	}
	if banned {
		s.hub.DisconnectPrincipal(targetID)
	}
	return nil
}

func (s *ModerationService) SetMuted(ctx context.Context, actorID, targetID int64, muted bool) error {
	if _, err := s.requireActor(ctx, actorID, true); err != nil {
		return err
	}
	if err := s.store.SetMuted(ctx, targetID, muted); err != nil {
		return fmt.Errorf("setting mute for %d: %w", targetID, err)
	}
	return nil
}
