package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/ridechat/events"
	"github.com/example/ridechat/modules/rides"
)

// Module is the core chat domain: the in-memory channel store plus the
// join/leave/send/typing operations, exposed as request-reply services
// and emitting broadcast events on the bus.
type Module struct {
	store    *Store
	rides    rides.RidePort
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the chat module. CHAT_BACKLOG_LIMIT overrides the
// per-channel message cap.
func NewModule() *Module {
	limit := DefaultBacklogLimit
	if v := os.Getenv("CHAT_BACKLOG_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return &Module{
		store: NewStore(limit),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Dependencies returns the modules this module depends on.
func (m *Module) Dependencies() []string {
	return []string{"rides"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "rides" {
		m.rides = rides.NewRideAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
		events.TypingStartedV1.ToBase(),
		events.TypingStoppedV1.ToBase(),
	}
}

// RegisterServices registers the chat request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "join", json.Unmarshal, json.Marshal, m.join,
	); err != nil {
		return fmt.Errorf("failed to register join service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "leave", json.Unmarshal, json.Marshal, m.leave,
	); err != nil {
		return fmt.Errorf("failed to register leave service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "send-message", json.Unmarshal, json.Marshal, m.sendMessage,
	); err != nil {
		return fmt.Errorf("failed to register send-message service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "set-typing", json.Unmarshal, json.Marshal, m.setTyping,
	); err != nil {
		return fmt.Errorf("failed to register set-typing service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "members", json.Unmarshal, json.Marshal, m.members,
	); err != nil {
		return fmt.Errorf("failed to register members service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "backlog", json.Unmarshal, json.Marshal, m.backlog,
	); err != nil {
		return fmt.Errorf("failed to register backlog service: %w", err)
	}

	log.Printf("[chat] Registered services: join, leave, send-message, set-typing, members, backlog")
	return nil
}

// Start verifies dependencies are wired.
func (m *Module) Start(_ context.Context) error {
	if m.rides == nil {
		return fmt.Errorf("rides dependency not set")
	}
	if m.eventBus == nil {
		return fmt.Errorf("event bus not set")
	}
	log.Println("[chat] Module started (depends on: rides)")
	return nil
}

// Stop gracefully shuts down the module. Channel state is in-memory
// only and simply dropped.
func (m *Module) Stop(_ context.Context) error {
	log.Printf("[chat] Module stopped - %d channels were live", m.store.ChannelCount())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"live_channels": m.store.ChannelCount(),
		},
	}
}
