package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/devconnect/realtime-service/internal/domain/event"
	"github.com/devconnect/realtime-service/internal/domain/model"
	"github.com/devconnect/realtime-service/internal/domain/registry"
	"github.com/devconnect/realtime-service/internal/service"
	"github.com/devconnect/realtime-service/internal/store"
)

// Session lifecycle states.
const (
	stateAuthenticated int32 = iota + 1
	stateClosed
)

const sendErrorTimeout = time.Second

// Session binds one authenticated connection to the command dispatch. It
// holds no mutable principal state beyond the identity snapshot taken at
// admit time; ban and mute checks always hit the services with a fresh read.
type Session struct {
	conn      *registry.Conn
	principal model.Principal
	state     atomic.Int32

	chatter   service.Chatter
	moderator service.Moderator
	feeder    service.Feeder
	deliverer service.Deliverer

	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewSession(
	conn *registry.Conn,
	principal *model.Principal,
	chatter service.Chatter,
	moderator service.Moderator,
	feeder service.Feeder,
	deliverer service.Deliverer,
	limiter *rate.Limiter,
	logger *slog.Logger,
) *Session {
	s := &Session{
		conn:      conn,
		principal: *principal,
		chatter:   chatter,
		moderator: moderator,
		feeder:    feeder,
		deliverer: deliverer,
		limiter:   limiter,
		logger: logger.With(
			"conn_id", conn.GetID(),
			"principal_id", principal.ID,
		),
	}
	s.state.Store(stateAuthenticated)
	return s
}

// Close is idempotent and safe from any goroutine.
func (s *Session) Close() {
	if s.state.CompareAndSwap(stateAuthenticated, stateClosed) {
		s.conn.Close()
	}
}

// ReplayHistory pushes the recent chat log to this connection only. New
// sessions get it unprompted right after admit; requestChatHistory re-runs it
// on demand.
func (s *Session) ReplayHistory(ctx context.Context) {
	msgs, err := s.chatter.History(ctx)
	if err != nil {
		s.logger.Error("history replay failed", "error", err)
		s.sendError("history unavailable")
		return
	}
	s.conn.Send(event.NewChatHistory(msgs), sendErrorTimeout)
}

// Handle dispatches one inbound command. Service failures are reported back
// on this connection as error events and never tear the session down, except
// for a ban which force-closes it.
func (s *Session) Handle(ctx context.Context, raw []byte) {
	if s.state.Load() != stateAuthenticated {
		return
	}

	if !s.limiter.Allow() {
		s.sendError("rate limit exceeded")
		return
	}

	cmd, err := parseCommand(raw)
	if err != nil {
		s.sendError(err.Error())
		return
	}

	if err := s.dispatch(ctx, cmd); err != nil {
		s.fail(cmd.Event, err)
	}
}

func (s *Session) dispatch(ctx context.Context, cmd *Command) error {
	switch cmd.Event {
	case CmdChatMessage:
		var p chatMessageCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		if p.SentAt == 0 {
			p.SentAt = time.Now().UnixMilli()
		}
		_, err := s.chatter.Send(ctx, s.principal.ID, p.Text, p.SentAt)
		return err

	case CmdTyping:
		var p typingCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		return s.chatter.Typing(ctx, s.conn.GetID(), p.Username)

	case CmdRequestHistory:
		s.ReplayHistory(ctx)
		return nil

	case CmdClearChat:
		return s.moderator.ClearChat(ctx, s.principal.ID)

	case CmdDeleteMessage:
		var p deleteMessageCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		return s.moderator.DeleteMessage(ctx, s.principal.ID, p.MessageID)

	case CmdJoinFeed:
		if !s.deliverer.JoinFeed(s.conn.GetID()) {
			return errors.New("connection no longer registered")
		}
		return nil

	case CmdNewPost:
		var p newPostCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		_, err := s.feeder.CreatePost(ctx, s.principal.ID, p.Content)
		return err

	case CmdUpdatePost:
		var p updatePostCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		_, err := s.feeder.UpdatePost(ctx, s.principal.ID, p.PostID, p.Content)
		return err

	case CmdDeletePost:
		var p deletePostCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		return s.feeder.DeletePost(ctx, s.principal.ID, p.PostID)

	case CmdPostLiked:
		var p postLikedCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		_, err := s.moderator.ToggleLike(ctx, s.principal.ID, p.PostID, p.Action, s.conn.GetID())
		return err

	case CmdNewComment:
		var p newCommentCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		_, err := s.moderator.AddComment(ctx, s.principal.ID, p.PostID, p.Content)
		return err

	case CmdDeleteComment:
		var p deleteCommentCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		return s.moderator.DeleteComment(ctx, s.principal.ID, p.CommentID)

	case CmdDirectMessage:
		var p directMessageCmd
		if err := decodePayload(cmd, &p); err != nil {
			return err
		}
		_, err := s.chatter.SendDirect(ctx, s.principal.ID, p.RecipientID, p.Text)
		return err

	default:
		return errors.New("unknown command: " + cmd.Event)
	}
}

// fail translates a service error into a client-facing error event. Internal
// failures are logged but reported generically.
func (s *Session) fail(cmd string, err error) {
	switch {
	case errors.Is(err, service.ErrBanned):
		s.sendError("account banned")
		s.Close()
	case errors.Is(err, service.ErrMuted):
		s.sendError("you are muted")
	case errors.Is(err, service.ErrForbidden):
		s.sendError("not allowed")
	case errors.Is(err, service.ErrValidation):
		s.sendError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		s.sendError("not found")
	case errors.Is(err, store.ErrAlreadyLiked), errors.Is(err, store.ErrNotLiked):
		s.sendError(err.Error())
	case errors.Is(err, store.ErrUnavailable):
		s.sendError("service temporarily unavailable")
	default:
		s.logger.Error("command failed", "command", cmd, "error", err)
		s.sendError("internal error")
	}
}

// sendError goes straight to this connection, bypassing the fanout bus.
func (s *Session) sendError(message string) {
	s.conn.Send(event.NewError(message), sendErrorTimeout)
}
