package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/ridechat/domain/chat"
)

// MessageSentEvent is emitted when a member's message is appended to a
// channel log. SenderID lets consumers exclude the author from fan-out.
type MessageSentEvent struct {
	ChannelID string       `json:"channel_id"`
	SenderID  string       `json:"sender_id"`
	Message   chat.Message `json:"message"`
}

// PresenceEvent is emitted when a member joins or leaves a channel.
// Notice is the synthesized system text shown to remaining members.
type PresenceEvent struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Notice    string    `json:"notice"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingEvent is emitted when a member starts or stops typing.
type TypingEvent struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	MemberJoinedV1 = helper.EventDefinition[PresenceEvent](
		"chat",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[PresenceEvent](
		"chat",
		"MemberLeft",
		"v1",
	)

	TypingStartedV1 = helper.EventDefinition[TypingEvent](
		"chat",
		"TypingStarted",
		"v1",
	)

	TypingStoppedV1 = helper.EventDefinition[TypingEvent](
		"chat",
		"TypingStopped",
		"v1",
	)
)
