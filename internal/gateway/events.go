package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoomEvent is the envelope every websocket message travels in.
type RoomEvent struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"roomId"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewRoomEvent wraps a payload in a broadcast envelope.
func NewRoomEvent(roomKey, eventType string, payload any) (*RoomEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &RoomEvent{
		ID:        uuid.New().String(),
		RoomID:    roomKey,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Gateway-local event types sent to a single connection rather than a
// whole room.
const (
	eventAck   = "ack"
	eventError = "error"
)

// ClientMessage is the inbound websocket message shape.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinPayload subscribes a connection to a room's broadcast group.
type JoinPayload struct {
	RoomID any    `json:"roomId"`
	Role   string `json:"role"`
}

// JoinedPayload acknowledges a join with the current subscriber count.
type JoinedPayload struct {
	RoomID        string `json:"roomId"`
	ClientsInRoom int    `json:"clientsInRoom"`
}

// ControlPayload carries a socket-issued session control command.
// Mutating commands require a credential just like their HTTP
// counterparts.
type ControlPayload struct {
	RoomID any    `json:"roomId"`
	Token  string `json:"token"`
}

// ErrorPayload reports a failed socket command back to its sender.
type ErrorPayload struct {
	Message string `json:"message"`
}
