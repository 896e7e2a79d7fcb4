package chat

import "time"

// Sender identifies the author of a message as exposed on the wire.
type Sender struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Message is a single chat message in a ride channel. Messages are
// immutable once created; the channel's log owns them.
type Message struct {
	ID        string    `json:"_id"`
	ChannelID string    `json:"-"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// System marks a server-generated notice. The server keeps
	// presence notices out of the channel log and broadcasts them as
	// separate notice frames, so messages it stores always carry
	// false. The field stays on the wire shape for clients that
	// synthesize system entries locally and re-render stored history
	// alongside them.
	System bool `json:"isSystem,omitempty"`
}

// Member is one user's active participation record in one channel.
// (channel, user) is unique; rejoining updates the record in place.
type Member struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	ChannelID string    `json:"channel_id"`
	JoinedAt  time.Time `json:"joined_at"`
	Typing    bool      `json:"typing"`
}

// Sender returns the member's wire identity.
func (m Member) Sender() Sender {
	return Sender{ID: m.UserID, Name: m.Name}
}
