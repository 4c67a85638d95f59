package lp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devconnect/realtime-service/internal/auth"
	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/handler/httpapi"
	wsmarshaller "github.com/devconnect/realtime-service/internal/handler/marshaller/ws"
	"github.com/devconnect/realtime-service/internal/service"
)

const (
	pollTimeout = 30 * time.Second
	batchLimit  = 15
)

// LPHandler is the long-polling fallback for clients that cannot hold a
// WebSocket. Receive-only: commands still go through the REST API.
type LPHandler struct {
	logger    *slog.Logger
	resolver  *auth.Resolver
	deliverer service.Deliverer
}

func NewLPHandler(logger *slog.Logger, resolver *auth.Resolver, deliverer service.Deliverer) *LPHandler {
	return &LPHandler{
		logger:    logger,
		resolver:  resolver,
		deliverer: deliverer,
	}
}

func (h *LPHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(httpapi.NewAuthMiddleware(h.logger, h.resolver))
	r.Get("/", h.Poll)
	return r
}

// Poll holds the request open until an event arrives or the poll times out.
// The subscription lives only for the duration of this request, so a polling
// client shows as present while a poll is held.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpapi.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.deliverer.Subscribe(r.Context(), principal)
	if err != nil {
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}
	defer h.deliverer.Unsubscribe(conn.GetID())
	defer conn.Close()

	var events []event.Eventer

	select {
	case <-r.Context().Done():
		return

	case <-time.After(pollTimeout):
		w.WriteHeader(http.StatusNoContent)
		return

	case ev := <-conn.Recv():
		events = append(events, ev)

		// Drain what is already buffered so the client needs fewer
		// round trips.
	drainLoop:
		for range batchLimit {
			select {
			case nextEv := <-conn.Recv():
				events = append(events, nextEv)
			default:
				break drainLoop
			}
		}
	}

	batch := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		data := ev.GetCached()
		if data == nil {
			if data, err = wsmarshaller.MarshalEvent(ev); err != nil {
				h.logger.Error("poll marshal failed", "error", err, "event_id", ev.GetID())
				continue
			}
		}
		batch = append(batch, data)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(batch)
}
