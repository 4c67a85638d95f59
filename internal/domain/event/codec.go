package event

import (
	"encoding/json"
	"fmt"

	"github.com/devconnect/realtime-service/internal/domain/model"
)

// envelope is the bus wire form: an event plus its delivery scope.
type envelope struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	OccurredAt int64           `json:"occurred_at"`
	Scope      Scope           `json:"scope"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes an event and its scope for the message bus.
func Encode(ev Eventer, scope Scope) ([]byte, error) {
	var payload json.RawMessage
	if ev.GetPayload() != nil {
		data, err := json.Marshal(ev.GetPayload())
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", ev.GetKind(), err)
		}
		payload = data
	}
	return json.Marshal(&envelope{
		ID:         ev.GetID(),
		Kind:       ev.GetKind(),
		OccurredAt: ev.GetOccurredAt(),
		Scope:      scope,
		Payload:    payload,
	})
}

// Decode reverses Encode, reconstructing the typed payload for the kind.
func Decode(data []byte) (*Event, Scope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Scope{}, fmt.Errorf("decoding envelope: %w", err)
	}

	payload, err := decodePayload(env.Kind, env.Payload)
	if err != nil {
		return nil, Scope{}, err
	}

	return &Event{
		ID:         env.ID,
		Kind:       env.Kind,
		OccurredAt: env.OccurredAt,
		Payload:    payload,
	}, env.Scope, nil
}

func decodePayload(kind Kind, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var target any
	switch kind {
	case ChatHistory:
		target = &[]model.ChatMessage{}
	case ChatMessage:
		target = &model.ChatMessage{}
	case UserTyping:
		target = &TypingPayload{}
	case ChatCleared:
		return nil, nil
	case ChatMessageDeleted:
		target = &ChatMessageDeletedPayload{}
	case DirectMessage:
		target = &model.DirectMessage{}
	case PostCreated, PostUpdated:
		target = &model.Post{}
	case PostDeleted:
		target = &PostDeletedPayload{}
	case PostLikeUpdated:
		target = &LikeUpdatedPayload{}
	case CommentAdded:
		target = &CommentAddedPayload{}
	case CommentDeleted:
		target = &CommentDeletedPayload{}
	case ActiveUsers:
		target = &[]model.PresenceEntry{}
	case Error:
		target = &ErrorPayload{}
	default:
		return nil, fmt.Errorf("decoding envelope: unknown event kind %q", kind)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", kind, err)
	}

	// Slice payloads were addressed for unmarshaling; hand back the value.
	switch v := target.(type) {
	case *[]model.ChatMessage:
		return *v, nil
	case *[]model.PresenceEntry:
		return *v, nil
	}
	return target, nil
}
