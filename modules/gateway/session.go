package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/example/ridechat/modules/broadcast"
	"github.com/example/ridechat/modules/chat"
	"github.com/example/ridechat/modules/rides"
	"github.com/example/ridechat/wire"
)

const (
	// opTimeout bounds each service round trip made on behalf of a frame.
	opTimeout = 5 * time.Second

	maxFrameSize = 8192
	pongWait     = 60 * time.Second
)

// Wire-visible error texts.
const (
	errmsgInvalidFrame   = "Invalid message format"
	errmsgRideIDRequired = "rideId is required"
	errmsgRideNotFound   = "Ride not found"
	errmsgRideInactive   = "Chat is not available for this ride"
	errmsgNotJoined      = "You must join the ride chat first"
	errmsgEmptyMessage   = "Message cannot be empty"
	errmsgTooLong        = "Message is too long"
	errmsgRateLimited    = "Rate limit exceeded, please slow down"
	errmsgInternal       = "Something went wrong, please try again"
)

// frameSink is where the session writes frames addressed to its own
// connection. *broadcast.Client satisfies it.
type frameSink interface {
	Send(data []byte) bool
}

// clientHub is the slice of the hub the session needs.
type clientHub interface {
	JoinChannel(client *broadcast.Client, channelID string)
	LeaveChannel(client *broadcast.Client)
}

// session is the per-connection protocol state machine. A session is
// either idle (channelID empty) or joined to exactly one ride channel.
// All methods run on the connection's read goroutine, so the state
// needs no locking.
type session struct {
	client  *broadcast.Client
	out     frameSink
	hub     clientHub
	chat    chat.ChatPort
	limiter SendLimiter
	logger  *slog.Logger

	userID    string
	name      string
	channelID string
}

func newSession(client *broadcast.Client, hub clientHub, chatPort chat.ChatPort, limiter SendLimiter) *session {
	return &session{
		client:  client,
		out:     client,
		hub:     hub,
		chat:    chatPort,
		limiter: limiter,
		logger:  slog.Default().With("userID", client.UserID),
		userID:  client.UserID,
		name:    client.Name,
	}
}

// run pumps frames off the connection until it closes, then tears the
// session down. Disconnecting while joined counts as leaving.
func (s *session) run(conn *websocket.Conn) {
	defer s.shutdown()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket read error", "error", err)
			}
			return
		}
		s.handleFrame(data)
	}
}

// handleFrame dispatches one inbound frame. Errors are reported to this
// session only and never tear the connection down.
func (s *session) handleFrame(data []byte) {
	frame, err := wire.Decode(data)
	if err != nil {
		s.sendError(errmsgInvalidFrame)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch frame.Event {
	case wire.EventJoinRoom:
		s.handleJoin(ctx, frame.Data)
	case wire.EventLeaveRoom:
		s.handleLeave(ctx, frame.Data)
	case wire.EventSendMessage:
		s.handleSend(ctx, frame.Data)
	case wire.EventTyping:
		s.handleTyping(ctx, frame.Data, true)
	case wire.EventStopTyping:
		s.handleTyping(ctx, frame.Data, false)
	default:
		s.sendError("Unknown event: " + frame.Event)
	}
}

// handleJoin moves the session into a ride channel. Joining a second
// ride implicitly leaves the first. The hub registration happens before
// the chat join so no broadcast published after the join can be missed;
// the client dedupes the rare frame that also lands in the backlog.
func (s *session) handleJoin(ctx context.Context, payload json.RawMessage) {
	var ref wire.RoomRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		s.sendError(errmsgInvalidFrame)
		return
	}
	if ref.RideID == "" {
		s.sendError(errmsgRideIDRequired)
		return
	}
	if s.channelID == ref.RideID {
		// Rejoining the current channel just refreshes the backlog.
		result, err := s.chat.Join(ctx, ref.RideID, s.userID, s.name)
		if err != nil {
			s.sendError(joinErrorText(err))
			return
		}
		s.sendFrame(wire.EventPreviousMessages, result.Backlog)
		return
	}

	if s.channelID != "" {
		s.leaveCurrent(ctx)
	}

	s.hub.JoinChannel(s.client, ref.RideID)
	result, err := s.chat.Join(ctx, ref.RideID, s.userID, s.name)
	if err != nil {
		s.hub.LeaveChannel(s.client)
		s.sendError(joinErrorText(err))
		return
	}

	s.channelID = ref.RideID
	s.sendFrame(wire.EventPreviousMessages, result.Backlog)
}

// handleLeave detaches the session from its channel. Leaving when not
// joined, or naming a different ride, is a silent no-op.
func (s *session) handleLeave(ctx context.Context, payload json.RawMessage) {
	var ref wire.RoomRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		s.sendError(errmsgInvalidFrame)
		return
	}
	if s.channelID == "" || ref.RideID != s.channelID {
		return
	}
	s.leaveCurrent(ctx)
}

func (s *session) leaveCurrent(ctx context.Context) {
	if _, err := s.chat.Leave(ctx, s.channelID, s.userID); err != nil {
		s.logger.Error("Leave failed", "channelID", s.channelID, "error", err)
	}
	s.hub.LeaveChannel(s.client)
	s.channelID = ""
}

// handleSend relays a message into the channel. The sender gets no echo
// frame; delivery to the author is the client's own optimistic render.
func (s *session) handleSend(ctx context.Context, payload json.RawMessage) {
	var req wire.SendMessagePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(errmsgInvalidFrame)
		return
	}
	if s.channelID == "" || req.RideID != s.channelID {
		s.sendError(errmsgNotJoined)
		return
	}

	allowed, err := s.limiter.Allow(ctx, s.userID)
	if err != nil {
		s.logger.Error("Rate limiter error", "error", err)
		allowed = true // fail open
	}
	if !allowed {
		s.sendError(errmsgRateLimited)
		return
	}

	if _, err := s.chat.Send(ctx, s.channelID, s.userID, req.Content); err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			s.sendError(errmsgEmptyMessage)
		case errors.Is(err, chat.ErrMessageTooLong):
			s.sendError(errmsgTooLong)
		case errors.Is(err, chat.ErrNotMember):
			s.sendError(errmsgNotJoined)
		default:
			s.logger.Error("Send failed", "channelID", s.channelID, "error", err)
			s.sendError(errmsgInternal)
		}
	}
}

// handleTyping relays typing hints. Hints sent while not joined, or for
// another ride, are dropped without an error frame.
func (s *session) handleTyping(ctx context.Context, payload json.RawMessage, typing bool) {
	var ref wire.RoomRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		return
	}
	if s.channelID == "" || ref.RideID != s.channelID {
		return
	}
	if err := s.chat.SetTyping(ctx, s.channelID, s.userID, typing); err != nil {
		s.logger.Error("Typing update failed", "error", err)
	}
}

// shutdown runs once when the connection closes: implicit leave, hub
// deregistration, limiter cleanup.
func (s *session) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if s.channelID != "" {
		s.leaveCurrent(ctx)
	}
	s.limiter.Forget(ctx, s.userID)
	s.client.Close()
}

func (s *session) sendFrame(event string, payload any) {
	data, err := wire.Encode(event, payload)
	if err != nil {
		s.logger.Error("Failed to encode frame", "event", event, "error", err)
		return
	}
	s.out.Send(data)
}

func (s *session) sendError(message string) {
	s.sendFrame(wire.EventError, wire.ErrorPayload{Message: message})
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, rides.ErrRideNotFound):
		return errmsgRideNotFound
	case errors.Is(err, chat.ErrChannelUnavailable):
		return errmsgRideInactive
	default:
		return errmsgInternal
	}
}
