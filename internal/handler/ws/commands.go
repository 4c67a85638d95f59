package ws

import (
	"encoding/json"
	"fmt"

	"github.com/devconnect/realtime-service/internal/domain/model"
)

// Client command names. Most mirror the event names going the other way;
// the typing indicator is the exception: clients send "typing" and receive
// "userTyping" back.
const (
	CmdChatMessage    = "chatMessage"
	CmdTyping         = "typing"
	CmdClearChat      = "clearChat"
	CmdDeleteMessage  = "deleteMessage"
	CmdRequestHistory = "requestChatHistory"
	CmdJoinFeed       = "joinFeed"
	CmdNewPost        = "newPost"
	CmdUpdatePost     = "updatePost"
	CmdDeletePost     = "deletePost"
	CmdPostLiked      = "postLiked"
	CmdNewComment     = "newComment"
	CmdDeleteComment  = "deleteComment"
	CmdDirectMessage  = "directMessage"
)

// Command is one inbound client frame.
type Command struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func parseCommand(data []byte) (*Command, error) {
	cmd := new(Command)
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if cmd.Event == "" {
		return nil, fmt.Errorf("malformed frame: missing event")
	}
	return cmd, nil
}

// decodePayload unmarshals the command payload into dst; a missing payload
// leaves dst zero-valued so commands like clearChat need no body.
func decodePayload(cmd *Command, dst any) error {
	if len(cmd.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(cmd.Payload, dst); err != nil {
		return fmt.Errorf("malformed %s payload: %w", cmd.Event, err)
	}
	return nil
}

type chatMessageCmd struct {
	Text   string `json:"text"`
	SentAt int64  `json:"sent_at"`
}

type typingCmd struct {
	Username string `json:"username"`
}

type deleteMessageCmd struct {
	MessageID int64 `json:"message_id"`
}

type newPostCmd struct {
	Content string `json:"content"`
}

type updatePostCmd struct {
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
}

type deletePostCmd struct {
	PostID int64 `json:"post_id"`
}

type postLikedCmd struct {
	PostID int64            `json:"post_id"`
	Action model.LikeAction `json:"action"`
}

type newCommentCmd struct {
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
}

type deleteCommentCmd struct {
	CommentID int64 `json:"comment_id"`
}

type directMessageCmd struct {
	RecipientID int64  `json:"recipient_id"`
	Text        string `json:"text"`
}
