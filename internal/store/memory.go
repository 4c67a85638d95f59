package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devconnect/realtime-service/internal/domain/model"
)

// Memory is an in-process Store used by the "memory" driver and by tests.
// One mutex per store stands in for the database's transaction boundary, so
// toggle semantics match SQLite's: check, mutate and re-read count are atomic.
type Memory struct {
	mu sync.Mutex

	nextID     int64
	principals map[int64]*model.Principal
	chat       []model.ChatMessage
	dms        []model.DirectMessage
	posts      map[int64]*model.Post
	likes      map[int64]map[int64]struct{} // postID → set of principalIDs
	comments   map[int64]*model.Comment
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		principals: make(map[int64]*model.Principal),
		posts:      make(map[int64]*model.Post),
		likes:      make(map[int64]map[int64]struct{}),
		comments:   make(map[int64]*model.Comment),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) Close() error { return nil }

func (m *Memory) PrincipalByID(_ context.Context, id int64) (*model.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) CreatePrincipal(_ context.Context, p *model.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	} else if p.ID > m.nextID {
		m.nextID = p.ID
	}
	cp := *p
	m.principals[p.ID] = &cp
	return nil
}

func (m *Memory) SetBanned(_ context.Context, id int64, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[id]
	if !ok {
		return ErrNotFound
	}
	p.Banned = banned
	return nil
}

func (m *Memory) SetMuted(_ context.Context, id int64, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[id]
	if !ok {
		return ErrNotFound
	}
	p.Muted = muted
	return nil
}

func (m *Memory) SaveChatMessage(_ context.Context, msg *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	if msg.SentAt == 0 {
		msg.SentAt = time.Now().UnixMilli()
	}
	if p, ok := m.principals[msg.AuthorID]; ok {
		msg.Author = p.Username
		msg.Avatar = p.Avatar
	}
	m.chat = append(m.chat, *msg)
	return nil
}

func (m *Memory) RecentChatMessages(_ context.Context, limit int) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := append([]model.ChatMessage(nil), m.chat...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt < msgs[j].SentAt })
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *Memory) DeleteChatMessage(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.chat {
		if msg.ID == id {
			m.chat = append(m.chat[:i], m.chat[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ClearChat(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.chat))
	m.chat = nil
	return n, nil
}

func (m *Memory) SaveDirectMessage(_ context.Context, msg *model.DirectMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	if msg.SentAt == 0 {
		msg.SentAt = time.Now().UnixMilli()
	}
	m.dms = append(m.dms, *msg)
	return nil
}

func (m *Memory) CreatePost(_ context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = m.id()
	if post.CreatedAt == 0 {
		post.CreatedAt = time.Now().UnixMilli()
	}
	if p, ok := m.principals[post.AuthorID]; ok {
		post.Author = p.Username
	}
	cp := *post
	m.posts[post.ID] = &cp
	m.likes[post.ID] = make(map[int64]struct{})
	return nil
}

func (m *Memory) UpdatePost(_ context.Context, id int64, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	post.Content = content
	return nil
}

func (m *Memory) PostByID(_ context.Context, id int64) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *post
	cp.LikeCount = int64(len(m.likes[id]))
	cp.CommentCount = m.commentCountLocked(id)
	return &cp, nil
}

func (m *Memory) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	delete(m.likes, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *Memory) ToggleLike(_ context.Context, postID, principalID int64, action model.LikeAction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[postID]; !ok {
		return 0, ErrNotFound
	}
	set := m.likes[postID]
	_, liked := set[principalID]

	switch action {
	case model.LikeActionLike:
		if liked {
			return 0, ErrAlreadyLiked
		}
		set[principalID] = struct{}{}
	case model.LikeActionUnlike:
		if !liked {
			return 0, ErrNotLiked
		}
		delete(set, principalID)
	default:
		return 0, fmt.Errorf("unknown like action %q", action)
	}
	return int64(len(set)), nil
}

func (m *Memory) AddComment(_ context.Context, comment *model.Comment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[comment.PostID]; !ok {
		return 0, ErrNotFound
	}
	comment.ID = m.id()
	if comment.CreatedAt == 0 {
		comment.CreatedAt = time.Now().UnixMilli()
	}
	if p, ok := m.principals[comment.AuthorID]; ok {
		comment.Author = p.Username
	}
	cp := *comment
	m.comments[comment.ID] = &cp
	return m.commentCountLocked(comment.PostID), nil
}

func (m *Memory) CommentByID(_ context.Context, id int64) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) DeleteComment(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return 0, ErrNotFound
	}
	delete(m.comments, id)
	return m.commentCountLocked(c.PostID), nil
}

func (m *Memory) commentCountLocked(postID int64) int64 {
	var n int64
	for _, c := range m.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

// LikeCount reports the persisted row count for a post, for test assertions.
func (m *Memory) LikeCount(postID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.likes[postID]))
}

// ChatLen reports the number of persisted chat messages, for test assertions.
func (m *Memory) ChatLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chat)
}
