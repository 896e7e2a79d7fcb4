package chat

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	domain "github.com/example/ridechat/domain/chat"
)

func TestRegisterAndDeregister(t *testing.T) {
	s := NewStore(0)

	member, rejoined := s.Register("ride-42", "user-alice", "Alice")
	if rejoined {
		t.Error("first join must not report rejoined")
	}
	if member.UserID != "user-alice" || member.ChannelID != "ride-42" {
		t.Errorf("unexpected member: %+v", member)
	}
	if !s.IsMember("ride-42", "user-alice") {
		t.Error("expected alice to be a member")
	}

	if _, removed := s.Deregister("ride-42", "user-alice"); !removed {
		t.Error("expected deregister to remove alice")
	}
	if s.IsMember("ride-42", "user-alice") {
		t.Error("alice should no longer be a member")
	}
}

func TestRegisterTwiceUpdatesInPlace(t *testing.T) {
	s := NewStore(0)

	first, _ := s.Register("ride-42", "user-alice", "Alice")
	second, rejoined := s.Register("ride-42", "user-alice", "Alice B.")

	if !rejoined {
		t.Error("second register must report rejoined")
	}
	if second.Name != "Alice B." {
		t.Errorf("expected updated name, got %s", second.Name)
	}
	if !second.JoinedAt.Equal(first.JoinedAt) {
		t.Error("rejoin must keep the original join time")
	}
	if got := len(s.Members("ride-42")); got != 1 {
		t.Errorf("expected 1 member after rejoin, got %d", got)
	}
}

func TestDeregisterIsIdempotent(t *testing.T) {
	s := NewStore(0)
	s.Register("ride-42", "user-alice", "Alice")

	if _, removed := s.Deregister("ride-42", "user-alice"); !removed {
		t.Fatal("first deregister should remove")
	}
	if _, removed := s.Deregister("ride-42", "user-alice"); removed {
		t.Error("second deregister must be a no-op")
	}
	if _, removed := s.Deregister("ride-404", "user-alice"); removed {
		t.Error("deregister from unknown channel must be a no-op")
	}
}

func TestChannelDroppedWhenEmpty(t *testing.T) {
	s := NewStore(0)

	s.Register("ride-42", "user-alice", "Alice")
	s.Register("ride-42", "user-bob", "Bob")
	if _, err := s.Append("ride-42", "user-alice", "hello", nil); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if s.ChannelCount() != 1 {
		t.Fatalf("expected 1 channel, got %d", s.ChannelCount())
	}

	s.Deregister("ride-42", "user-alice")
	if s.ChannelCount() != 1 {
		t.Error("channel must survive while bob remains")
	}

	s.Deregister("ride-42", "user-bob")
	if s.ChannelCount() != 0 {
		t.Error("channel must be dropped when the last member leaves")
	}

	// History does not survive an empty channel.
	s.Register("ride-42", "user-carol", "Carol")
	if got := len(s.Backlog("ride-42", 0)); got != 0 {
		t.Errorf("expected empty backlog after channel was dropped, got %d", got)
	}
}

func TestAppendValidation(t *testing.T) {
	s := NewStore(0)
	s.Register("ride-42", "user-alice", "Alice")

	cases := []struct {
		name    string
		userID  string
		content string
		wantErr error
	}{
		{"empty", "user-alice", "", ErrEmptyMessage},
		{"whitespace only", "user-alice", "   \t\n ", ErrEmptyMessage},
		{"too long", "user-alice", strings.Repeat("a", MaxMessageLength+1), ErrMessageTooLong},
		{"not a member", "user-mallory", "hi", ErrNotMember},
		{"unknown channel", "user-alice", "hi", ErrNotMember},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			channelID := "ride-42"
			if tc.name == "unknown channel" {
				channelID = "ride-404"
			}
			if _, err := s.Append(channelID, tc.userID, tc.content, nil); err != tc.wantErr {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	// Rejected messages never reach the log.
	if got := len(s.Backlog("ride-42", 0)); got != 0 {
		t.Errorf("expected empty log after rejected appends, got %d", got)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := NewStore(0)
	s.Register("ride-42", "user-alice", "Alice")

	for i := 0; i < 10; i++ {
		if _, err := s.Append("ride-42", "user-alice", fmt.Sprintf("msg-%d", i), nil); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	backlog := s.Backlog("ride-42", 0)
	if len(backlog) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(backlog))
	}
	for i, msg := range backlog {
		if msg.Content != fmt.Sprintf("msg-%d", i) {
			t.Errorf("position %d: got %s", i, msg.Content)
		}
		if i > 0 && backlog[i].ID <= backlog[i-1].ID {
			t.Errorf("IDs must be increasing: %s then %s", backlog[i-1].ID, backlog[i].ID)
		}
	}
}

func TestBacklogCap(t *testing.T) {
	s := NewStore(5)
	s.Register("ride-42", "user-alice", "Alice")

	for i := 0; i < 12; i++ {
		s.Append("ride-42", "user-alice", fmt.Sprintf("msg-%d", i), nil)
	}

	backlog := s.Backlog("ride-42", 0)
	if len(backlog) != 5 {
		t.Fatalf("expected capped backlog of 5, got %d", len(backlog))
	}
	if backlog[0].Content != "msg-7" || backlog[4].Content != "msg-11" {
		t.Errorf("expected the newest 5 messages, got %s .. %s", backlog[0].Content, backlog[4].Content)
	}
}

func TestBacklogLimitParameter(t *testing.T) {
	s := NewStore(0)
	s.Register("ride-42", "user-alice", "Alice")
	for i := 0; i < 8; i++ {
		s.Append("ride-42", "user-alice", fmt.Sprintf("msg-%d", i), nil)
	}

	tail := s.Backlog("ride-42", 3)
	if len(tail) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(tail))
	}
	if tail[0].Content != "msg-5" {
		t.Errorf("expected tail to start at msg-5, got %s", tail[0].Content)
	}

	if got := len(s.Backlog("ride-42", 100)); got != 8 {
		t.Errorf("limit above log size must return everything, got %d", got)
	}
	if got := len(s.Backlog("ride-404", 10)); got != 0 {
		t.Errorf("unknown channel must yield empty backlog, got %d", got)
	}
}

func TestAppendEmitRunsInLogOrder(t *testing.T) {
	s := NewStore(0)
	s.Register("ride-42", "user-alice", "Alice")

	var emitted []string
	emit := func(msg domain.Message) error {
		emitted = append(emitted, msg.Content)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append("ride-42", "user-alice", fmt.Sprintf("msg-%d", i), emit)
		}(i)
	}
	wg.Wait()

	backlog := s.Backlog("ride-42", 0)
	if len(emitted) != len(backlog) {
		t.Fatalf("emitted %d, logged %d", len(emitted), len(backlog))
	}
	for i := range backlog {
		if emitted[i] != backlog[i].Content {
			t.Fatalf("emit order diverged from log order at %d: %s vs %s", i, emitted[i], backlog[i].Content)
		}
	}
}

func TestSetTyping(t *testing.T) {
	s := NewStore(0)
	s.Register("ride-42", "user-alice", "Alice")

	member, err := s.SetTyping("ride-42", "user-alice", true)
	if err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	if !member.Typing {
		t.Error("expected typing flag set")
	}

	member, err = s.SetTyping("ride-42", "user-alice", false)
	if err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	if member.Typing {
		t.Error("expected typing flag cleared")
	}

	if _, err := s.SetTyping("ride-42", "user-mallory", true); err != ErrNotMember {
		t.Errorf("expected ErrNotMember, got %v", err)
	}

	// Rejoin resets the typing flag.
	s.SetTyping("ride-42", "user-alice", true)
	if member, _ := s.Register("ride-42", "user-alice", "Alice"); member.Typing {
		t.Error("rejoin must reset the typing flag")
	}
}

func TestMembersSortedByJoinTime(t *testing.T) {
	s := NewStore(0)
	s.Register("ride-42", "user-carol", "Carol")
	s.Register("ride-42", "user-alice", "Alice")
	s.Register("ride-42", "user-bob", "Bob")

	members := s.Members("ride-42")
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	if members[0].UserID != "user-carol" {
		t.Errorf("expected carol first, got %s", members[0].UserID)
	}

	if got := s.Members("ride-404"); len(got) != 0 {
		t.Errorf("unknown channel must yield empty member set, got %d", len(got))
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	s := NewStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			s.Register("ride-42", userID, userID)
			if i%2 == 0 {
				s.Deregister("ride-42", userID)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.Members("ride-42")); got != 25 {
		t.Errorf("expected 25 remaining members, got %d", got)
	}
}
