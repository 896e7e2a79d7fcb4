package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/ridechat/domain/chat"
	"github.com/example/ridechat/events"
	"github.com/example/ridechat/wire"
)

// Module consumes chat events and fans them out to connected websocket
// clients through the hub.
type Module struct {
	hub *Hub
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the broadcast module with a fresh hub.
func NewModule() *Module {
	return &Module{hub: NewHub()}
}

func (m *Module) Name() string { return "broadcast" }

// GetHub exposes the hub so the gateway can register connections.
func (m *Module) GetHub() *Hub { return m.hub }

// RegisterEventConsumers subscribes to every chat event and translates
// each into its wire frame.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageSentV1, m.onMessageSent, m); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberJoinedV1, m.onMemberJoined, m); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberLeftV1, m.onMemberLeft, m); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TypingStartedV1, m.onTypingStarted, m); err != nil {
		return fmt.Errorf("failed to register TypingStarted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TypingStoppedV1, m.onTypingStopped, m); err != nil {
		return fmt.Errorf("failed to register TypingStopped consumer: %w", err)
	}

	log.Printf("[broadcast] Registered event consumers: MessageSent, MemberJoined, MemberLeft, TypingStarted, TypingStopped")
	return nil
}

func (m *Module) onMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	data, err := wire.Encode(wire.EventNewMessage, event.Message)
	if err != nil {
		return fmt.Errorf("encode newMessage: %w", err)
	}
	m.hub.Broadcast(event.ChannelID, event.SenderID, data)
	return nil
}

func (m *Module) onMemberJoined(_ context.Context, event events.PresenceEvent, _ *mono.Msg) error {
	data, err := wire.Encode(wire.EventUserJoined, wire.Notice{Message: event.Notice})
	if err != nil {
		return fmt.Errorf("encode userJoined: %w", err)
	}
	m.hub.Broadcast(event.ChannelID, event.UserID, data)
	return nil
}

func (m *Module) onMemberLeft(_ context.Context, event events.PresenceEvent, _ *mono.Msg) error {
	data, err := wire.Encode(wire.EventUserLeft, wire.Notice{Message: event.Notice})
	if err != nil {
		return fmt.Errorf("encode userLeft: %w", err)
	}
	m.hub.Broadcast(event.ChannelID, event.UserID, data)
	return nil
}

func (m *Module) onTypingStarted(_ context.Context, event events.TypingEvent, _ *mono.Msg) error {
	payload := wire.TypingUser{User: domain.Sender{ID: event.UserID, Name: event.Name}}
	data, err := wire.Encode(wire.EventUserTyping, payload)
	if err != nil {
		return fmt.Errorf("encode userTyping: %w", err)
	}
	m.hub.Broadcast(event.ChannelID, event.UserID, data)
	return nil
}

func (m *Module) onTypingStopped(_ context.Context, event events.TypingEvent, _ *mono.Msg) error {
	payload := wire.TypingUser{User: domain.Sender{ID: event.UserID, Name: event.Name}}
	data, err := wire.Encode(wire.EventUserStoppedTyping, payload)
	if err != nil {
		return fmt.Errorf("encode userStoppedTyping: %w", err)
	}
	m.hub.Broadcast(event.ChannelID, event.UserID, data)
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	go m.hub.Run()
	log.Printf("[broadcast] module started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	m.hub.Shutdown()
	log.Printf("[broadcast] module stopped")
	return nil
}

func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "broadcast module is healthy",
		Details: map[string]any{
			"live_channels": m.hub.ChannelCount(),
		},
	}
}
