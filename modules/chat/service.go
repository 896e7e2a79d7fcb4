package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"

	domain "github.com/example/ridechat/domain/chat"
	"github.com/example/ridechat/events"
	"github.com/example/ridechat/modules/rides"
)

// truncateName caps a display name at MaxNameLength runes. Counting
// runes rather than bytes keeps a multi-byte character from being cut
// in half on its way into notices and sender fields.
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxNameLength {
		return name
	}
	return string(runes[:MaxNameLength])
}

// join handles the join service request: confirm the ride is joinable,
// register the member, emit the join notice to the channel and return
// the backlog snapshot to the joining client.
func (m *Module) join(ctx context.Context, req JoinRequest, _ *mono.Msg) (JoinResponse, error) {
	if req.RideID == "" {
		return JoinResponse{Err: codeChannelIDEmpty}, nil
	}
	name := truncateName(req.Name)

	info, err := m.rides.Lookup(ctx, req.RideID)
	if err != nil {
		if errors.Is(err, rides.ErrRideNotFound) {
			return JoinResponse{Err: codeRideNotFound}, nil
		}
		return JoinResponse{}, fmt.Errorf("ride lookup failed: %w", err)
	}
	if !info.Joinable {
		return JoinResponse{Err: codeChannelUnavailable}, nil
	}

	member, rejoined := m.store.Register(req.RideID, req.UserID, name)
	if !rejoined {
		event := events.PresenceEvent{
			ChannelID: req.RideID,
			UserID:    req.UserID,
			Name:      name,
			Notice:    fmt.Sprintf("%s joined the chat", name),
			Timestamp: time.Now(),
		}
		if err := events.MemberJoinedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[chat] Warning: failed to publish MemberJoined for %s: %v", req.RideID, err)
		}
	}

	backlog := m.store.Backlog(req.RideID, 0)
	return JoinResponse{Member: member, Backlog: backlog, Rejoined: rejoined}, nil
}

// leave handles the leave service request. Leaving while not a member
// is a no-op; no second notice is ever emitted.
func (m *Module) leave(_ context.Context, req LeaveRequest, _ *mono.Msg) (LeaveResponse, error) {
	member, ok := m.store.Deregister(req.RideID, req.UserID)
	if !ok {
		return LeaveResponse{Left: false}, nil
	}

	event := events.PresenceEvent{
		ChannelID: req.RideID,
		UserID:    member.UserID,
		Name:      member.Name,
		Notice:    fmt.Sprintf("%s left the chat", member.Name),
		Timestamp: time.Now(),
	}
	if err := events.MemberLeftV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Warning: failed to publish MemberLeft for %s: %v", req.RideID, err)
	}
	return LeaveResponse{Left: true}, nil
}

// sendMessage appends the message to the channel log and publishes the
// broadcast event while the channel lock is held, so that broadcast
// order equals log order. A publish failure fails the send: delivery is
// the whole point of the operation.
func (m *Module) sendMessage(_ context.Context, req SendMessageRequest, _ *mono.Msg) (SendMessageResponse, error) {
	msg, err := m.store.Append(req.RideID, req.UserID, req.Content, func(stored domain.Message) error {
		event := events.MessageSentEvent{
			ChannelID: req.RideID,
			SenderID:  req.UserID,
			Message:   stored,
		}
		return events.MessageSentV1.Publish(m.eventBus, event, nil)
	})
	if err != nil {
		if code := codeFor(err); code != "" {
			return SendMessageResponse{Err: code}, nil
		}
		return SendMessageResponse{}, fmt.Errorf("failed to publish message: %w", err)
	}
	return SendMessageResponse{Message: msg}, nil
}

// setTyping flips a member's typing flag and relays it. The server does
// no debouncing of its own.
func (m *Module) setTyping(_ context.Context, req SetTypingRequest, _ *mono.Msg) (SetTypingResponse, error) {
	member, err := m.store.SetTyping(req.RideID, req.UserID, req.Typing)
	if err != nil {
		return SetTypingResponse{Err: codeFor(err)}, nil
	}

	event := events.TypingEvent{
		ChannelID: req.RideID,
		UserID:    member.UserID,
		Name:      member.Name,
	}
	def := events.TypingStartedV1
	if !req.Typing {
		def = events.TypingStoppedV1
	}
	if err := def.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[chat] Warning: failed to publish typing event for %s: %v", req.RideID, err)
	}
	return SetTypingResponse{}, nil
}

// members handles the members service request.
func (m *Module) members(_ context.Context, req MembersRequest, _ *mono.Msg) (MembersResponse, error) {
	return MembersResponse{Members: m.store.Members(req.RideID)}, nil
}

// backlog handles the backlog service request.
func (m *Module) backlog(_ context.Context, req BacklogRequest, _ *mono.Msg) (BacklogResponse, error) {
	return BacklogResponse{Messages: m.store.Backlog(req.RideID, req.Limit)}, nil
}
