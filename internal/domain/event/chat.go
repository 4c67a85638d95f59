package event

import "github.com/devconnect/realtime-service/internal/domain/model"

// TypingPayload carries the typing indicator. An empty username clears the
// indicator on the receiving side.
type TypingPayload struct {
	Username string `json:"username"`
}

type ChatMessageDeletedPayload struct {
	ID int64 `json:"id"`
}

func NewChatHistory(messages []model.ChatMessage) *Event {
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return newEvent(ChatHistory, messages)
}

func NewChatMessage(msg *model.ChatMessage) *Event {
	return newEvent(ChatMessage, msg)
}

func NewUserTyping(username string) *Event {
	return newEvent(UserTyping, &TypingPayload{Username: username})
}

func NewChatCleared() *Event {
	return newEvent(ChatCleared, nil)
}

func NewChatMessageDeleted(id int64) *Event {
	return newEvent(ChatMessageDeleted, &ChatMessageDeletedPayload{ID: id})
}

func NewDirectMessage(msg *model.DirectMessage) *Event {
	return newEvent(DirectMessage, msg)
}
