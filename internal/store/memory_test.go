package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/store"
)

func seedPrincipal(t *testing.T, s *store.Memory, username string) *model.Principal {
	t.Helper()
	p := &model.Principal{Username: username, Role: model.RoleUser}
	if err := s.CreatePrincipal(context.Background(), p); err != nil {
		t.Fatalf("CreatePrincipal(%s) failed: %v", username, err)
	}
	return p
}

func seedPost(t *testing.T, s *store.Memory, authorID int64) *model.Post {
	t.Helper()
	post := &model.Post{AuthorID: authorID, Content: "a post"}
	if err := s.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	return post
}

func TestToggleLikeIsIdempotentPerUser(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")
	post := seedPost(t, s, alice.ID)

	count, err := s.ToggleLike(ctx, post.ID, alice.ID, model.LikeActionLike)
	if err != nil {
		t.Fatalf("first like failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count after like = %d, want 1", count)
	}

	if _, err := s.ToggleLike(ctx, post.ID, alice.ID, model.LikeActionLike); !errors.Is(err, store.ErrAlreadyLiked) {
		t.Errorf("double like error = %v, want ErrAlreadyLiked", err)
	}

	count, err = s.ToggleLike(ctx, post.ID, alice.ID, model.LikeActionUnlike)
	if err != nil {
		t.Fatalf("unlike failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count after unlike = %d, want 0", count)
	}

	if _, err := s.ToggleLike(ctx, post.ID, alice.ID, model.LikeActionUnlike); !errors.Is(err, store.ErrNotLiked) {
		t.Errorf("double unlike error = %v, want ErrNotLiked", err)
	}
}

func TestToggleLikeUnknownAction(t *testing.T) {
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")
	post := seedPost(t, s, alice.ID)

	if _, err := s.ToggleLike(context.Background(), post.ID, alice.ID, model.LikeAction("boost")); err == nil {
		t.Error("unknown like action accepted")
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")

	if _, err := s.ToggleLike(context.Background(), 999, alice.ID, model.LikeActionLike); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("like on missing post = %v, want ErrNotFound", err)
	}
}

func TestConcurrentLikesConverge(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	author := seedPrincipal(t, s, "author")
	post := seedPost(t, s, author.ID)

	const users = 32
	ids := make([]int64, users)
	for i := range ids {
		p := seedPrincipal(t, s, "user")
		ids[i] = p.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(principalID int64) {
			defer wg.Done()
			if _, err := s.ToggleLike(ctx, post.ID, principalID, model.LikeActionLike); err != nil {
				t.Errorf("concurrent like failed: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if got := s.LikeCount(post.ID); got != users {
		t.Errorf("final like count = %d, want %d", got, users)
	}

	stored, err := s.PostByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("PostByID failed: %v", err)
	}
	if stored.LikeCount != users {
		t.Errorf("post row like count = %d, want %d", stored.LikeCount, users)
	}
}

func TestCommentTotalsComeFromTheStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")
	post := seedPost(t, s, alice.ID)

	c1 := &model.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "first"}
	total, err := s.AddComment(ctx, c1)
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total after first comment = %d, want 1", total)
	}

	c2 := &model.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "second"}
	if total, _ = s.AddComment(ctx, c2); total != 2 {
		t.Errorf("total after second comment = %d, want 2", total)
	}

	if total, err = s.DeleteComment(ctx, c1.ID); err != nil || total != 1 {
		t.Errorf("DeleteComment = (%d, %v), want (1, nil)", total, err)
	}
	if _, err := s.CommentByID(ctx, c1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted comment still readable: %v", err)
	}
}

func TestDeletePostCascades(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")
	post := seedPost(t, s, alice.ID)

	comment := &model.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "gone soon"}
	if _, err := s.AddComment(ctx, comment); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if _, err := s.ToggleLike(ctx, post.ID, alice.ID, model.LikeActionLike); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}

	if err := s.DeletePost(ctx, post.ID); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.PostByID(ctx, post.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted post still readable: %v", err)
	}
	if _, err := s.CommentByID(ctx, comment.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("comment survived post deletion: %v", err)
	}
	if got := s.LikeCount(post.ID); got != 0 {
		t.Errorf("likes survived post deletion: %d", got)
	}
}

func TestRecentChatMessagesKeepsAscendingOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")

	for i := range 5 {
		msg := &model.ChatMessage{AuthorID: alice.ID, Author: alice.Username, Text: "msg", SentAt: int64(1000 + i)}
		if err := s.SaveChatMessage(ctx, msg); err != nil {
			t.Fatalf("SaveChatMessage failed: %v", err)
		}
	}

	msgs, err := s.RecentChatMessages(ctx, 3)
	if err != nil {
		t.Fatalf("RecentChatMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	// Most recent three, oldest first.
	if msgs[0].SentAt != 1002 || msgs[2].SentAt != 1004 {
		t.Errorf("window or order wrong: %+v", msgs)
	}
}

func TestClearChatReportsDeletedRows(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")

	for range 3 {
		if err := s.SaveChatMessage(ctx, &model.ChatMessage{AuthorID: alice.ID, Text: "x"}); err != nil {
			t.Fatalf("SaveChatMessage failed: %v", err)
		}
	}

	n, err := s.ClearChat(ctx)
	if err != nil || n != 3 {
		t.Errorf("ClearChat = (%d, %v), want (3, nil)", n, err)
	}

	// Clearing an already empty log is not an error.
	if n, err = s.ClearChat(ctx); err != nil || n != 0 {
		t.Errorf("second ClearChat = (%d, %v), want (0, nil)", n, err)
	}
	if s.ChatLen() != 0 {
		t.Errorf("chat log not empty after clear")
	}
}

func TestBanAndMuteFlags(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	alice := seedPrincipal(t, s, "alice")

	if err := s.SetBanned(ctx, alice.ID, true); err != nil {
		t.Fatalf("SetBanned failed: %v", err)
	}
	if err := s.SetMuted(ctx, alice.ID, true); err != nil {
		t.Fatalf("SetMuted failed: %v", err)
	}

	p, err := s.PrincipalByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("PrincipalByID failed: %v", err)
	}
	if !p.Banned || !p.Muted {
		t.Errorf("flags not persisted: %+v", p)
	}

	if err := s.SetBanned(ctx, 999, true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetBanned on missing principal = %v, want ErrNotFound", err)
	}
}
