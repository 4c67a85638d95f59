package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/store"
)

// Chatter handles the chat room and direct messages.
type Chatter interface {
	Send(ctx context.Context, senderID int64, text string, sentAt int64) (*model.ChatMessage, error)
	Typing(ctx context.Context, senderConn uuid.UUID, username string) error
	History(ctx context.Context) ([]model.ChatMessage, error)
	SendDirect(ctx context.Context, senderID, recipientID int64, text string) (*model.DirectMessage, error)
}

const historyKey = "global"

// HistoryCache keeps the recent-history snapshot warm between admits and is
// invalidated by any chat mutation. Shared by the chat and moderation
// services so a clear or delete never leaves a stale replay behind.
type HistoryCache struct {
	cache *expirable.LRU[string, []model.ChatMessage]
}

func NewHistoryCache() *HistoryCache {
	return &HistoryCache{cache: expirable.NewLRU[string, []model.ChatMessage](1, nil, 30*time.Second)}
}

func (h *HistoryCache) get() ([]model.ChatMessage, bool) { return h.cache.Get(historyKey) }
func (h *HistoryCache) set(msgs []model.ChatMessage)     { h.cache.Add(historyKey, msgs) }

// Invalidate drops the snapshot; the next replay re-reads the store.
func (h *HistoryCache) Invalidate() { h.cache.Remove(historyKey) }

type ChatService struct {
	store        store.Store
	publisher    Publisher
	enricher     Enricher
	history      *HistoryCache
	historyLimit int
}

func NewChatService(s store.Store, publisher Publisher, enricher Enricher, history *HistoryCache, historyLimit int) *ChatService {
	return &ChatService{
		store:        s,
		publisher:    publisher,
		enricher:     enricher,
		history:      history,
		historyLimit: historyLimit,
	}
}

// Send persists a chat message and broadcasts it to every authenticated
// connection. Mute and ban status come from a fresh store read, so an admin
// action bites the very next send without a reconnect.
func (s *ChatService) Send(ctx context.Context, senderID int64, text string, sentAt int64) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message text", ErrValidation)
	}

	sender, err := s.store.PrincipalByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("chat send: %w", err)
	}
	if sender.Banned {
		return nil, ErrBanned
	}
	if sender.Muted {
		return nil, ErrMuted
	}

	msg := &model.ChatMessage{
		AuthorID: senderID,
		Author:   sender.Username,
		Avatar:   sender.Avatar,
		Text:     text,
		SentAt:   sentAt,
	}
	if err := s.store.SaveChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("chat send: %w", err)
	}
	s.history.Invalidate()

	if err := s.publisher.Publish(ctx, event.NewChatMessage(msg), event.All()); err != nil {
		return nil, fmt.Errorf("chat send: %w", err)
	}
	return msg, nil
}

// Typing relays the indicator to everyone but the sender. Nothing is
// persisted; an empty username clears the indicator client-side.
func (s *ChatService) Typing(ctx context.Context, senderConn uuid.UUID, username string) error {
	return s.publisher.Publish(ctx, event.NewUserTyping(username), event.AllExcept(senderConn))
}

// History returns the recent chat messages ascending by sent time, exactly
// matching persisted row order.
func (s *ChatService) History(ctx context.Context) ([]model.ChatMessage, error) {
	if msgs, ok := s.history.get(); ok {
		return msgs, nil
	}
	msgs, err := s.store.RecentChatMessages(ctx, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	s.history.set(msgs)
	return msgs, nil
}

// SendDirect persists and delivers a DM to the sender's and recipient's
// connections only.
func (s *ChatService) SendDirect(ctx context.Context, senderID, recipientID int64, text string) (*model.DirectMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message text", ErrValidation)
	}
	if recipientID == 0 || recipientID == senderID {
		return nil, fmt.Errorf("%w: missing recipient", ErrValidation)
	}

	sender, err := s.store.PrincipalByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("direct send: %w", err)
	}
	if sender.Banned {
		return nil, ErrBanned
	}

	from, to, err := s.enricher.AuthorPair(ctx, senderID, recipientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown recipient", ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("direct send: %w", err)
	}

	msg := &model.DirectMessage{
		SenderID:    senderID,
		Sender:      from.Username,
		RecipientID: recipientID,
		Recipient:   to.Username,
		Text:        text,
	}
	if err := s.store.SaveDirectMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("direct send: %w", err)
	}

	if err := s.publisher.Publish(ctx, event.NewDirectMessage(msg),
		event.ToPrincipals(senderID, recipientID)); err != nil {
		return nil, fmt.Errorf("direct send: %w", err)
	}
	return msg, nil
}
