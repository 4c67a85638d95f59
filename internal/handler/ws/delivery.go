package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/devconnect/realtime-service/config"
	"github.com/devconnect/realtime-service/internal/auth"
	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	wsmarshaller "github.com/devconnect/realtime-service/internal/handler/marshaller/ws"
	"github.com/devconnect/realtime-service/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

type WSHandler struct {
	logger    *slog.Logger
	resolver  *auth.Resolver
	deliverer service.Deliverer
	chatter   service.Chatter
	moderator service.Moderator
	feeder    service.Feeder
	cfg       *config.Config
	upgrader  websocket.Upgrader
}

func NewWSHandler(
	logger *slog.Logger,
	resolver *auth.Resolver,
	deliverer service.Deliverer,
	chatter service.Chatter,
	moderator service.Moderator,
	feeder service.Feeder,
	cfg *config.Config,
) *WSHandler {
	return &WSHandler{
		logger:    logger,
		resolver:  resolver,
		deliverer: deliverer,
		chatter:   chatter,
		moderator: moderator,
		feeder:    feeder,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

// ServeHTTP authenticates the handshake, upgrades the socket and runs the
// read/write pumps until either side goes away.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authenticate(r)
	if err != nil {
		h.logger.Warn("ws handshake rejected", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	// The connection outlives the request context; teardown is owned by
	// Close, not by the HTTP machinery.
	conn, err := h.deliverer.Subscribe(context.Background(), principal)
	if err != nil {
		h.logger.Error("ws subscribe failed", "error", err, "principal_id", principal.ID)
		return
	}
	defer h.deliverer.Unsubscribe(conn.GetID())

	limiter := rate.NewLimiter(rate.Limit(h.cfg.Chat.RatePerSec), h.cfg.Chat.RateBurst)
	session := NewSession(conn, principal, h.chatter, h.moderator, h.feeder, h.deliverer, limiter, h.logger)
	defer session.Close()

	h.logger.Info("ws opened",
		"principal_id", principal.ID,
		"username", principal.Username,
		"conn_id", conn.GetID())

	session.ReplayHistory(r.Context())

	go h.writePump(ws, session)
	h.readPump(ws, session)

	h.logger.Info("ws closed", "conn_id", conn.GetID(), "dropped", conn.Dropped())
}

// authenticate resolves the bearer credential before the upgrade, bounded by
// the handshake timeout so a slow store read cannot hold the port.
func (h *WSHandler) authenticate(r *http.Request) (*model.Principal, error) {
	credential := r.URL.Query().Get("token")
	if credential == "" {
		credential = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Auth.HandshakeTimeout)
	defer cancel()

	return h.resolver.Resolve(ctx, credential)
}

// readPump drains inbound frames and feeds them to the session. It runs on
// the request goroutine; returning unwinds the deferred teardown.
func (h *WSHandler) readPump(ws *websocket.Conn, session *Session) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws read failed", "error", err, "conn_id", session.conn.GetID())
			}
			return
		}
		session.Handle(context.Background(), raw)
	}
}

// writePump pushes fanout events and pings to the peer. A forced disconnect
// (admin ban, hub shutdown) surfaces through the connection's Done channel.
func (h *WSHandler) writePump(ws *websocket.Conn, session *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	conn := session.conn
	for {
		select {
		case <-conn.Done():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return

		case ev := <-conn.Recv():
			data, err := marshalWire(ev)
			if err != nil {
				h.logger.Error("ws marshal failed", "error", err, "event_id", ev.GetID())
				continue
			}

			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("ws send failed", "error", err, "conn_id", conn.GetID())
				session.Close()
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				session.Close()
				return
			}
		}
	}
}

// marshalWire prefers the wire form cached by the fanout pipeline; events
// sent straight to a connection (history, errors) are marshaled here.
func marshalWire(ev event.Eventer) ([]byte, error) {
	if cached := ev.GetCached(); cached != nil {
		return cached, nil
	}
	return wsmarshaller.MarshalEvent(ev)
}
