// Package wire defines the WebSocket protocol shared by the gateway and
// the broadcast hub: a small {event, data} envelope and the payload
// shapes the mobile and web clients already speak.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ridechat/domain/chat"
)

// Client-to-server events.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
)

// Server-to-client events.
const (
	EventPreviousMessages  = "previousMessages"
	EventNewMessage        = "newMessage"
	EventUserJoined        = "userJoined"
	EventUserLeft          = "userLeft"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventError             = "error"
)

// ErrEmptyFrame is returned when a frame has no event name.
var ErrEmptyFrame = errors.New("frame has no event name")

// Frame is the envelope for every message on the socket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomRef is the payload of joinRoom, leaveRoom, typing and stopTyping.
type RoomRef struct {
	RideID string `json:"rideId"`
}

// SendMessagePayload is the payload of sendMessage.
type SendMessagePayload struct {
	RideID  string `json:"rideId"`
	Content string `json:"content"`
}

// Notice is the payload of userJoined and userLeft.
type Notice struct {
	Message string `json:"message"`
}

// TypingUser is the payload of userTyping and userStoppedTyping.
type TypingUser struct {
	User chat.Sender `json:"user"`
}

// ErrorPayload is the payload of the error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode marshals a payload into a ready-to-send frame.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// Decode parses an inbound frame. The payload stays raw; handlers
// unmarshal it against the shape their event expects.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Event == "" {
		return nil, ErrEmptyFrame
	}
	return &f, nil
}
