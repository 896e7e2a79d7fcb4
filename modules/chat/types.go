package chat

import (
	"errors"

	domain "github.com/example/ridechat/domain/chat"
	"github.com/example/ridechat/modules/rides"
)

// Validation constants.
const (
	MaxMessageLength = 4096
	MaxNameLength    = 50

	// DefaultBacklogLimit caps every channel's message log. Joining
	// clients receive at most this many messages; older ones are
	// dropped. The cap is part of the backlog contract.
	DefaultBacklogLimit = 200
)

// Domain errors. These cross module boundaries as the Err codes below;
// the adapter converts codes back into these values.
var (
	ErrChannelIDEmpty     = errors.New("ride id cannot be empty")
	ErrEmptyMessage       = errors.New("message content cannot be empty")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrNotMember          = errors.New("user is not a member of the ride channel")
	ErrChannelUnavailable = errors.New("ride is not available for chat")
)

// Error codes carried inside service responses.
const (
	codeChannelIDEmpty     = "ride_id_empty"
	codeEmptyMessage       = "empty_message"
	codeMessageTooLong     = "message_too_long"
	codeNotMember          = "not_member"
	codeChannelUnavailable = "ride_unavailable"
	codeRideNotFound       = "ride_not_found"
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, ErrChannelIDEmpty):
		return codeChannelIDEmpty
	case errors.Is(err, ErrEmptyMessage):
		return codeEmptyMessage
	case errors.Is(err, ErrMessageTooLong):
		return codeMessageTooLong
	case errors.Is(err, ErrNotMember):
		return codeNotMember
	case errors.Is(err, ErrChannelUnavailable):
		return codeChannelUnavailable
	default:
		return ""
	}
}

func errFromCode(code string) error {
	switch code {
	case "":
		return nil
	case codeChannelIDEmpty:
		return ErrChannelIDEmpty
	case codeEmptyMessage:
		return ErrEmptyMessage
	case codeMessageTooLong:
		return ErrMessageTooLong
	case codeNotMember:
		return ErrNotMember
	case codeChannelUnavailable:
		return ErrChannelUnavailable
	case codeRideNotFound:
		return rides.ErrRideNotFound
	default:
		return errors.New(code)
	}
}

// JoinRequest asks to register a user in a ride channel.
type JoinRequest struct {
	RideID string `json:"ride_id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// JoinResponse carries the member record and the backlog snapshot taken
// at registration time.
type JoinResponse struct {
	Member   domain.Member    `json:"member"`
	Backlog  []domain.Message `json:"backlog"`
	Rejoined bool             `json:"rejoined"`
	Err      string           `json:"err,omitempty"`
}

// LeaveRequest asks to deregister a user from a ride channel.
type LeaveRequest struct {
	RideID string `json:"ride_id"`
	UserID string `json:"user_id"`
}

// LeaveResponse reports whether a member was actually removed. Leaving
// while not a member is a no-op, not an error.
type LeaveResponse struct {
	Left bool `json:"left"`
}

// SendMessageRequest asks to append a message to a channel log.
type SendMessageRequest struct {
	RideID  string `json:"ride_id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// SendMessageResponse carries the stored message.
type SendMessageResponse struct {
	Message domain.Message `json:"message"`
	Err     string         `json:"err,omitempty"`
}

// SetTypingRequest updates a member's typing flag.
type SetTypingRequest struct {
	RideID string `json:"ride_id"`
	UserID string `json:"user_id"`
	Typing bool   `json:"typing"`
}

// SetTypingResponse reports the outcome of a typing update.
type SetTypingResponse struct {
	Err string `json:"err,omitempty"`
}

// MembersRequest lists a channel's current members.
type MembersRequest struct {
	RideID string `json:"ride_id"`
}

// MembersResponse carries a consistent snapshot of the member set.
type MembersResponse struct {
	Members []domain.Member `json:"members"`
}

// BacklogRequest fetches the tail of a channel's message log.
type BacklogRequest struct {
	RideID string `json:"ride_id"`
	Limit  int    `json:"limit"`
}

// BacklogResponse carries messages in log order (oldest first).
type BacklogResponse struct {
	Messages []domain.Message `json:"messages"`
}
