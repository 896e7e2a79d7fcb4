package broadcast

import (
	"testing"
	"time"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Shutdown)
	return h
}

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame delivered: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastFansOutToChannelMembers(t *testing.T) {
	h := startHub(t)

	alice := NewClient("c1", "user-alice", "Alice", nil)
	bob := NewClient("c2", "user-bob", "Bob", nil)
	carol := NewClient("c3", "user-carol", "Carol", nil)
	h.JoinChannel(alice, "ride-42")
	h.JoinChannel(bob, "ride-42")
	h.JoinChannel(carol, "ride-7")

	h.Broadcast("ride-42", "", []byte("hello"))

	if got := string(recvFrame(t, alice)); got != "hello" {
		t.Errorf("alice got %q", got)
	}
	if got := string(recvFrame(t, bob)); got != "hello" {
		t.Errorf("bob got %q", got)
	}
	assertNoFrame(t, carol)
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := startHub(t)

	alice := NewClient("c1", "user-alice", "Alice", nil)
	bob := NewClient("c2", "user-bob", "Bob", nil)
	h.JoinChannel(alice, "ride-42")
	h.JoinChannel(bob, "ride-42")

	h.Broadcast("ride-42", "user-alice", []byte("from alice"))

	if got := string(recvFrame(t, bob)); got != "from alice" {
		t.Errorf("bob got %q", got)
	}
	assertNoFrame(t, alice)
}

func TestLeaveChannelStopsDelivery(t *testing.T) {
	h := startHub(t)

	alice := NewClient("c1", "user-alice", "Alice", nil)
	bob := NewClient("c2", "user-bob", "Bob", nil)
	h.JoinChannel(alice, "ride-42")
	h.JoinChannel(bob, "ride-42")
	h.LeaveChannel(bob)

	h.Broadcast("ride-42", "", []byte("still here"))

	recvFrame(t, alice)
	assertNoFrame(t, bob)
}

func TestChannelDroppedWhenLastClientLeaves(t *testing.T) {
	h := startHub(t)

	alice := NewClient("c1", "user-alice", "Alice", nil)
	h.JoinChannel(alice, "ride-42")
	h.LeaveChannel(alice)

	// LeaveChannel is handed to the run loop; broadcast afterwards to
	// observe the ordering, then check the channel map.
	h.Broadcast("ride-42", "", []byte("nobody home"))

	deadline := time.After(time.Second)
	for h.ChannelCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("expected 0 channels, got %d", h.ChannelCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSwitchingChannelsStopsOldDelivery(t *testing.T) {
	h := startHub(t)

	alice := NewClient("c1", "user-alice", "Alice", nil)
	for i := 0; i < 20; i++ {
		h.JoinChannel(alice, "ride-42")
		h.LeaveChannel(alice)
		h.JoinChannel(alice, "ride-1001")

		h.Broadcast("ride-42", "", []byte("stale"))
		assertNoFrame(t, alice)

		h.Broadcast("ride-1001", "", []byte("fresh"))
		if got := string(recvFrame(t, alice)); got != "fresh" {
			t.Fatalf("iteration %d: got %q", i, got)
		}

		h.LeaveChannel(alice)
	}
}

func TestJoinChannelMovesClient(t *testing.T) {
	h := startHub(t)

	alice := NewClient("c1", "user-alice", "Alice", nil)
	h.JoinChannel(alice, "ride-42")
	// Joining another channel without an explicit leave must move the
	// client, not duplicate it.
	h.JoinChannel(alice, "ride-1001")

	h.Broadcast("ride-42", "", []byte("old channel"))
	assertNoFrame(t, alice)

	h.Broadcast("ride-1001", "", []byte("new channel"))
	if got := string(recvFrame(t, alice)); got != "new channel" {
		t.Errorf("got %q", got)
	}

	if got := h.ClientCount("ride-42"); got != 0 {
		t.Errorf("expected old channel to be empty, got %d clients", got)
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := startHub(t)

	slow := NewClient("c1", "user-alice", "Alice", nil)
	h.JoinChannel(slow, "ride-42")

	for i := 0; i < sendBufferSize; i++ {
		if !slow.Send([]byte("fill")) {
			t.Fatalf("queue filled early at %d", i)
		}
	}

	h.Broadcast("ride-42", "", []byte("overflow"))

	deadline := time.After(time.Second)
	for h.ClientCount("ride-42") != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client was not dropped")
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case <-slow.done:
	default:
		t.Error("expected dropped client to be closed")
	}
}

func TestSendAfterCloseReturnsFalse(t *testing.T) {
	c := NewClient("c1", "user-alice", "Alice", nil)
	c.Close()
	c.Close() // idempotent

	if c.Send([]byte("late")) {
		t.Error("expected Send to fail on closed client")
	}
}
