package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/domain/registry"
)

// Deliverer is the primary interface for transport handlers: connection
// lifecycle plus presence.
type Deliverer interface {
	Subscribe(ctx context.Context, principal *model.Principal) (*registry.Conn, error)
	Unsubscribe(connID uuid.UUID)
	JoinFeed(connID uuid.UUID) bool
	Presence() []model.PresenceEntry
	Stats() model.HubStats
}

type DeliveryService struct {
	hub       registry.Hubber
	publisher Publisher
	buffer    int
	logger    *slog.Logger
}

func NewDeliveryService(hub registry.Hubber, publisher Publisher, buffer int, logger *slog.Logger) *DeliveryService {
	return &DeliveryService{hub: hub, publisher: publisher, buffer: buffer, logger: logger}
}

// Subscribe admits an authenticated principal's new connection and announces
// the updated presence list to everyone.
func (s *DeliveryService) Subscribe(ctx context.Context, principal *model.Principal) (*registry.Conn, error) {
	conn := registry.NewConn(ctx, principal.ID, principal.Username, s.buffer)
	s.hub.Admit(conn)
	s.publishPresence(ctx)
	return conn, nil
}

// Unsubscribe is idempotent; the hub drops the connection from the principal
// index and every room together.
func (s *DeliveryService) Unsubscribe(connID uuid.UUID) {
	s.hub.Remove(connID)
	s.publishPresence(context.Background())
}

func (s *DeliveryService) JoinFeed(connID uuid.UUID) bool {
	return s.hub.JoinRoom(connID, registry.RoomFeed)
}

func (s *DeliveryService) Presence() []model.PresenceEntry {
	return s.hub.Presence()
}

func (s *DeliveryService) Stats() model.HubStats {
	return s.hub.Stats()
}

func (s *DeliveryService) publishPresence(ctx context.Context) {
	ev := event.NewActiveUsers(s.hub.Presence())
	if err := s.publisher.Publish(ctx, ev, event.All()); err != nil {
		s.logger.Warn("presence publish failed", "error", err)
	}
}
