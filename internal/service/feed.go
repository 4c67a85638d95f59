package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	"github.com/devconnect/realtime-service/internal/store"
)

// Feeder handles post mutations and their room-scoped notifications.
type Feeder interface {
	Post(ctx context.Context, id int64) (*model.Post, error)
	CreatePost(ctx context.Context, actorID int64, content string) (*model.Post, error)
	UpdatePost(ctx context.Context, actorID, postID int64, content string) (*model.Post, error)
	DeletePost(ctx context.Context, actorID, postID int64) error
}

type FeedService struct {
	store     store.Store
	publisher Publisher
}

func NewFeedService(s store.Store, publisher Publisher) *FeedService {
	return &FeedService{store: s, publisher: publisher}
}

func (s *FeedService) Post(ctx context.Context, id int64) (*model.Post, error) {
	return s.store.PostByID(ctx, id)
}

func (s *FeedService) CreatePost(ctx context.Context, actorID int64, content string) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty post content", ErrValidation)
	}
	actor, err := s.store.PrincipalByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	if actor.Banned {
		return nil, ErrBanned
	}

	post := &model.Post{AuthorID: actorID, Author: actor.Username, Content: content}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.publisher.Publish(ctx, event.NewPostCreated(post),
		event.InRoom(registry.RoomFeed)); err != nil {
		return post, fmt.Errorf("post broadcast: %w", err)
	}
	return post, nil
}

// UpdatePost is owner-only; the broadcast carries counts freshly re-read
// after the update committed.
func (s *FeedService) UpdatePost(ctx context.Context, actorID, postID int64, content string) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty post content", ErrValidation)
	}

	existing, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("update post %d: %w", postID, err)
	}
	if existing.AuthorID != actorID {
		return nil, ErrForbidden
	}

	if err := s.store.UpdatePost(ctx, postID, content); err != nil {
		return nil, fmt.Errorf("update post %d: %w", postID, err)
	}
	post, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("update post %d: %w", postID, err)
	}

	if err := s.publisher.Publish(ctx, event.NewPostUpdated(post),
		event.InRoom(registry.RoomFeed)); err != nil {
		return post, fmt.Errorf("post broadcast: %w", err)
	}
	return post, nil
}

// DeletePost allows the owner or an admin; likes and comments go with it.
func (s *FeedService) DeletePost(ctx context.Context, actorID, postID int64) error {
	actor, err := s.store.PrincipalByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	existing, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	if existing.AuthorID != actorID && !actor.IsAdmin() {
		return ErrForbidden
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	return s.publisher.Publish(ctx, event.NewPostDeleted(postID),
		event.InRoom(registry.RoomFeed))
}
