package wire

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/example/ridechat/domain/chat"
)

func TestDecodeJoinRoom(t *testing.T) {
	frame, err := Decode([]byte(`{"event":"joinRoom","data":{"rideId":"ride-42"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if frame.Event != EventJoinRoom {
		t.Errorf("expected joinRoom, got %s", frame.Event)
	}

	var ref RoomRef
	if err := json.Unmarshal(frame.Data, &ref); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if ref.RideID != "ride-42" {
		t.Errorf("expected ride-42, got %s", ref.RideID)
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	if _, err := Decode([]byte("not json at all")); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := Decode([]byte(`{"data":{"rideId":"ride-42"}}`)); err != ErrEmptyFrame {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestEncodeNewMessageWireShape(t *testing.T) {
	msg := chat.Message{
		ID:        "000000000001-abcd1234",
		ChannelID: "ride-42",
		Sender:    chat.Sender{ID: "user-alice", Name: "Alice"},
		Content:   "hello",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := Encode(EventNewMessage, msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// The clients key on Mongo-style field names.
	raw := string(data)
	for _, want := range []string{`"event":"newMessage"`, `"_id":"000000000001-abcd1234"`, `"sender":{"_id":"user-alice"`, `"content":"hello"`} {
		if !strings.Contains(raw, want) {
			t.Errorf("frame missing %s: %s", want, raw)
		}
	}
	if strings.Contains(raw, "isSystem") {
		t.Errorf("non-system message must omit isSystem: %s", raw)
	}
	if strings.Contains(raw, "ride-42") {
		t.Errorf("channel ID is transport routing, not wire payload: %s", raw)
	}
}

func TestEncodeErrorPayload(t *testing.T) {
	data, err := Encode(EventError, ErrorPayload{Message: "Ride not found"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	frame, err := Decode(data)
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if payload.Message != "Ride not found" {
		t.Errorf("got %q", payload.Message)
	}
}
