package chat

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domain "github.com/example/ridechat/domain/chat"
)

// channelState holds one ride channel's mutable state. All mutations of
// members and log happen under mu, so log order is a total order per
// channel and readers always see fully-applied appends.
type channelState struct {
	mu      sync.RWMutex
	members map[string]*domain.Member
	log     []domain.Message
}

// Store is the in-memory session registry and message log for all ride
// channels. Channels are created lazily on first join and dropped when
// their member set empties; history does not survive an empty channel.
type Store struct {
	mu           sync.RWMutex
	channels     map[string]*channelState
	seq          atomic.Uint64
	backlogLimit int
}

// NewStore creates a store. backlogLimit <= 0 selects the default cap.
func NewStore(backlogLimit int) *Store {
	if backlogLimit <= 0 {
		backlogLimit = DefaultBacklogLimit
	}
	return &Store{
		channels:     make(map[string]*channelState),
		backlogLimit: backlogLimit,
	}
}

// nextID returns a unique, lexicographically increasing message ID.
func (s *Store) nextID() string {
	return fmt.Sprintf("%012d-%s", s.seq.Add(1), uuid.NewString()[:8])
}

// Register adds (or refreshes) a member in a channel. Registering an
// already-registered user updates the display name and typing flag but
// keeps the original joined-at time; rejoined reports that case so the
// caller can skip the join notice.
func (s *Store) Register(channelID, userID, name string) (domain.Member, bool) {
	// Holding s.mu across the member insert keeps a concurrent
	// last-member Deregister from dropping the channel underneath us.
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[channelID]
	if !ok {
		ch = &channelState{members: make(map[string]*domain.Member)}
		s.channels[channelID] = ch
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if existing, ok := ch.members[userID]; ok {
		existing.Name = name
		existing.Typing = false
		return *existing, true
	}

	member := &domain.Member{
		UserID:    userID,
		Name:      name,
		ChannelID: channelID,
		JoinedAt:  time.Now(),
	}
	ch.members[userID] = member
	return *member, false
}

// Deregister removes a member from a channel. It is idempotent: the
// second return value is false when the user was not a member, and the
// caller emits no leave notice in that case. The last member leaving
// drops the channel state entirely.
func (s *Store) Deregister(channelID, userID string) (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[channelID]
	if !ok {
		return domain.Member{}, false
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	member, ok := ch.members[userID]
	if !ok {
		return domain.Member{}, false
	}
	delete(ch.members, userID)
	if len(ch.members) == 0 {
		delete(s.channels, channelID)
	}
	return *member, true
}

// Append validates content, appends a message to the channel log and
// trims the log to the backlog cap. When emit is non-nil it is invoked
// with the stored message before the channel lock is released, so that
// publish order always matches log order.
func (s *Store) Append(channelID, userID, content string, emit func(domain.Message) error) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	if len(content) > MaxMessageLength {
		return domain.Message{}, ErrMessageTooLong
	}

	ch, ok := s.channel(channelID)
	if !ok {
		return domain.Message{}, ErrNotMember
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	member, ok := ch.members[userID]
	if !ok {
		return domain.Message{}, ErrNotMember
	}

	msg := domain.Message{
		ID:        s.nextID(),
		ChannelID: channelID,
		Sender:    member.Sender(),
		Content:   content,
		Timestamp: time.Now(),
	}
	ch.log = append(ch.log, msg)
	if len(ch.log) > s.backlogLimit {
		ch.log = ch.log[len(ch.log)-s.backlogLimit:]
	}

	if emit != nil {
		if err := emit(msg); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

// SetTyping updates a member's typing flag. The server is a dumb relay:
// no debouncing, no expiry; clients debounce before emitting.
func (s *Store) SetTyping(channelID, userID string, typing bool) (domain.Member, error) {
	ch, ok := s.channel(channelID)
	if !ok {
		return domain.Member{}, ErrNotMember
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	member, ok := ch.members[userID]
	if !ok {
		return domain.Member{}, ErrNotMember
	}
	member.Typing = typing
	return *member, nil
}

// Members returns a snapshot of the channel's member set, ordered by
// join time (user ID breaks ties). Unknown channels yield an empty set.
func (s *Store) Members(channelID string) []domain.Member {
	ch, ok := s.channel(channelID)
	if !ok {
		return []domain.Member{}
	}

	ch.mu.RLock()
	defer ch.mu.RUnlock()

	members := make([]domain.Member, 0, len(ch.members))
	for _, m := range ch.members {
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].UserID < members[j].UserID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members
}

// IsMember reports whether a user is currently registered in a channel.
func (s *Store) IsMember(channelID, userID string) bool {
	ch, ok := s.channel(channelID)
	if !ok {
		return false
	}
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	_, ok = ch.members[userID]
	return ok
}

// Backlog returns a copy of the last limit messages in log order.
// limit <= 0 selects the full capped log.
func (s *Store) Backlog(channelID string, limit int) []domain.Message {
	ch, ok := s.channel(channelID)
	if !ok {
		return []domain.Message{}
	}

	ch.mu.RLock()
	defer ch.mu.RUnlock()

	if limit <= 0 || limit > len(ch.log) {
		limit = len(ch.log)
	}
	tail := ch.log[len(ch.log)-limit:]
	out := make([]domain.Message, len(tail))
	copy(out, tail)
	return out
}

// ChannelCount returns the number of live channels.
func (s *Store) ChannelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

func (s *Store) channel(channelID string) (*channelState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[channelID]
	return ch, ok
}
