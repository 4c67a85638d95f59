package event

import "github.com/devconnect/realtime-service/internal/domain/model"

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewActiveUsers(entries []model.PresenceEntry) *Event {
	if entries == nil {
		entries = []model.PresenceEntry{}
	}
	return newEvent(ActiveUsers, entries)
}

func NewError(message string) *Event {
	return newEvent(Error, &ErrorPayload{Message: message})
}
