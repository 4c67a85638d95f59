package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/devconnect/realtime-service/internal/auth"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/service"
)

// APIHandler exposes the REST surface: feed CRUD, chat history, presence and
// the admin moderation endpoints. Every handler resolves the actor through
// the auth middleware; authorization itself lives in the services.
type APIHandler struct {
	logger    *slog.Logger
	resolver  *auth.Resolver
	chatter   service.Chatter
	moderator service.Moderator
	feeder    service.Feeder
	deliverer service.Deliverer
}

func NewAPIHandler(
	logger *slog.Logger,
	resolver *auth.Resolver,
	chatter service.Chatter,
	moderator service.Moderator,
	feeder service.Feeder,
	deliverer service.Deliverer,
) *APIHandler {
	return &APIHandler{
		logger:    logger,
		resolver:  resolver,
		chatter:   chatter,
		moderator: moderator,
		feeder:    feeder,
		deliverer: deliverer,
	}
}

func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(NewRequestLogger(h.logger))

	r.Get("/healthz", h.health)

	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(h.logger, h.resolver))

		r.Get("/chat/history", h.chatHistory)
		r.Delete("/chat", h.clearChat)
		r.Delete("/chat/messages/{messageID}", h.deleteMessage)

		r.Post("/posts", h.createPost)
		r.Get("/posts/{postID}", h.getPost)
		r.Put("/posts/{postID}", h.updatePost)
		r.Delete("/posts/{postID}", h.deletePost)
		r.Post("/posts/{postID}/like", h.toggleLike)
		r.Post("/posts/{postID}/comments", h.addComment)
		r.Delete("/comments/{commentID}", h.deleteComment)

		r.Get("/presence", h.presence)
		r.Get("/stats", h.stats)

		r.Post("/admin/users/{userID}/ban", h.setBanned)
		r.Post("/admin/users/{userID}/mute", h.setMuted)
	})

	return r
}

func (h *APIHandler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) chatHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chatter.History(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

func (h *APIHandler) clearChat(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	if err := h.moderator.ClearChat(r.Context(), actor.ID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "messageID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.moderator.DeleteMessage(r.Context(), actor.ID, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type postBody struct {
	Content string `json:"content"`
}

func (h *APIHandler) createPost(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	var body postBody
	if err := decodeBody(r, &body); err != nil {
		respondError(w, h.logger, err)
		return
	}
	post, err := h.feeder.CreatePost(r.Context(), actor.ID, body.Content)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

func (h *APIHandler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	post, err := h.feeder.Post(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

func (h *APIHandler) updatePost(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "postID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var body postBody
	if err := decodeBody(r, &body); err != nil {
		respondError(w, h.logger, err)
		return
	}
	post, err := h.feeder.UpdatePost(r.Context(), actor.ID, id, body.Content)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

func (h *APIHandler) deletePost(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "postID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.feeder.DeletePost(r.Context(), actor.ID, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type likeBody struct {
	Action model.LikeAction `json:"action"`
}

type likeResult struct {
	PostID    int64 `json:"post_id"`
	LikeCount int64 `json:"like_count"`
}

func (h *APIHandler) toggleLike(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "postID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var body likeBody
	if err := decodeBody(r, &body); err != nil {
		respondError(w, h.logger, err)
		return
	}

	// HTTP callers hold no live connection, so nobody is excluded from the
	// resulting broadcast.
	count, err := h.moderator.ToggleLike(r.Context(), actor.ID, id, body.Action, uuid.Nil)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, likeResult{PostID: id, LikeCount: count})
}

type commentBody struct {
	Content string `json:"content"`
}

func (h *APIHandler) addComment(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "postID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var body commentBody
	if err := decodeBody(r, &body); err != nil {
		respondError(w, h.logger, err)
		return
	}
	comment, err := h.moderator.AddComment(r.Context(), actor.ID, id, body.Content)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

func (h *APIHandler) deleteComment(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "commentID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.moderator.DeleteComment(r.Context(), actor.ID, id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) presence(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.deliverer.Presence())
}

func (h *APIHandler) stats(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	if !actor.IsAdmin() {
		respondError(w, h.logger, service.ErrForbidden)
		return
	}
	respondJSON(w, http.StatusOK, h.deliverer.Stats())
}

type banBody struct {
	Banned bool `json:"banned"`
}

func (h *APIHandler) setBanned(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "userID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var body banBody
	if err := decodeBody(r, &body); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.moderator.SetBanned(r.Context(), actor.ID, id, body.Banned); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type muteBody struct {
	Muted bool `json:"muted"`
}

func (h *APIHandler) setMuted(w http.ResponseWriter, r *http.Request) {
	actor := mustPrincipal(r)
	id, err := pathID(r, "userID")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var body muteBody
	if err := decodeBody(r, &body); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.moderator.SetMuted(r.Context(), actor.ID, id, body.Muted); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mustPrincipal is safe behind the auth middleware; the group guarantees the
// principal is present.
func mustPrincipal(r *http.Request) *model.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", service.ErrValidation)
	}
	return nil
}
