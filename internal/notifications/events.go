package notifications

import (
	"encoding/json"
	"fmt"
)

// Event types pushed to websocket clients.
const (
	EventMessageNew      = "message.new"
	EventMessagesDropped = "messages.dropped"
)

// Event is the JSON frame written to websocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EncodeEvent marshals an event frame.
func EncodeEvent(eventType string, payload any) (string, error) {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return string(b), nil
}

// UserChannel is the Redis channel carrying a user's events.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}
