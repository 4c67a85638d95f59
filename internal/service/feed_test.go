package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	"github.com/devconnect/realtime-service/internal/service"
	"github.com/devconnect/realtime-service/internal/store"
)

type feedFixture struct {
	store *store.Memory
	pub   *capturePublisher
	feed  *service.FeedService
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	s := store.NewMemory()
	pub := &capturePublisher{}
	return &feedFixture{store: s, pub: pub, feed: service.NewFeedService(s, pub)}
}

func (f *feedFixture) addUser(t *testing.T, username string, role model.Role) *model.Principal {
	t.Helper()
	p := &model.Principal{Username: username, Role: role}
	if err := f.store.CreatePrincipal(context.Background(), p); err != nil {
		t.Fatalf("CreatePrincipal failed: %v", err)
	}
	return p
}

func TestCreatePostBroadcastsToFeedRoom(t *testing.T) {
	f := newFeedFixture(t)
	alice := f.addUser(t, "alice", model.RoleUser)

	post, err := f.feed.CreatePost(context.Background(), alice.ID, "hello feed")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.Author != "alice" {
		t.Errorf("author not stamped: %+v", post)
	}

	got := f.pub.last(t)
	if got.ev.GetKind() != event.PostCreated {
		t.Errorf("published %q, want postCreated", got.ev.GetKind())
	}
	if got.scope.Kind != event.ScopeRoom || got.scope.Room != registry.RoomFeed {
		t.Errorf("scope = %+v, want feed room", got.scope)
	}
}

func TestUpdatePostIsOwnerOnly(t *testing.T) {
	f := newFeedFixture(t)
	alice := f.addUser(t, "alice", model.RoleUser)
	admin := f.addUser(t, "mod", model.RoleAdmin)
	ctx := context.Background()

	post, err := f.feed.CreatePost(ctx, alice.ID, "original")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	// Even admins cannot rewrite someone else's words.
	if _, err := f.feed.UpdatePost(ctx, admin.ID, post.ID, "edited"); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("admin edit = %v, want ErrForbidden", err)
	}

	updated, err := f.feed.UpdatePost(ctx, alice.ID, post.ID, "edited")
	if err != nil {
		t.Fatalf("owner edit failed: %v", err)
	}
	if updated.Content != "edited" {
		t.Errorf("content = %q, want %q", updated.Content, "edited")
	}
}

func TestDeletePostAllowsOwnerOrAdmin(t *testing.T) {
	f := newFeedFixture(t)
	alice := f.addUser(t, "alice", model.RoleUser)
	bob := f.addUser(t, "bob", model.RoleUser)
	admin := f.addUser(t, "mod", model.RoleAdmin)
	ctx := context.Background()

	post, _ := f.feed.CreatePost(ctx, alice.ID, "one")
	other, _ := f.feed.CreatePost(ctx, alice.ID, "two")

	if err := f.feed.DeletePost(ctx, bob.ID, post.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("stranger delete = %v, want ErrForbidden", err)
	}
	if err := f.feed.DeletePost(ctx, alice.ID, post.ID); err != nil {
		t.Errorf("owner delete failed: %v", err)
	}
	if err := f.feed.DeletePost(ctx, admin.ID, other.ID); err != nil {
		t.Errorf("admin delete failed: %v", err)
	}

	if got := f.pub.last(t); got.ev.GetKind() != event.PostDeleted {
		t.Errorf("published %q, want postDeleted", got.ev.GetKind())
	}
}

func TestBannedUserCannotPost(t *testing.T) {
	f := newFeedFixture(t)
	alice := f.addUser(t, "alice", model.RoleUser)
	_ = f.store.SetBanned(context.Background(), alice.ID, true)

	if _, err := f.feed.CreatePost(context.Background(), alice.ID, "x"); !errors.Is(err, service.ErrBanned) {
		t.Errorf("got %v, want ErrBanned", err)
	}
}
