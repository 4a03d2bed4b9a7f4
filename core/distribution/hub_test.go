package distribution

import (
	"testing"
	"time"

	"github.com/appgrid-io/appgrid/core/broadcast"
)

func recvPacket(t *testing.T, c *Client) broadcast.Packet {
	t.Helper()
	select {
	case p, ok := <-c.Send():
		if !ok {
			t.Fatalf("client feed closed")
		}
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for packet")
	}
	return broadcast.Packet{}
}

func expectNoPacket(t *testing.T, c *Client) {
	t.Helper()
	select {
	case p := <-c.Send():
		t.Fatalf("unexpected packet: %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil)
	go h.Run()
	t.Cleanup(h.Close)
	return h
}

func TestHubDeliversToRoomMembers(t *testing.T) {
	h := runHub(t)
	a := h.Join("acme-order")
	b := h.Join("acme-order")
	other := h.Join("globex-order")

	pkt, err := broadcast.NewPacket("acme-order", broadcast.EventCreate, map[string]any{"id": 1})
	if err != nil {
		t.Fatalf("new packet: %v", err)
	}
	h.Deliver(pkt)

	for _, c := range []*Client{a, b} {
		got := recvPacket(t, c)
		if got.Room != "acme-order" || got.Event != broadcast.EventCreate {
			t.Fatalf("unexpected packet: %+v", got)
		}
	}
	expectNoPacket(t, other)
}

func TestHubJoinLeaveRoom(t *testing.T) {
	h := runHub(t)
	c := h.Join()
	h.JoinRoom(c, "acme-order")
	if h.RoomSize("acme-order") != 1 {
		t.Fatalf("expected membership after join")
	}

	pkt, _ := broadcast.NewPacket("acme-order", broadcast.EventUpdate, 1)
	h.Deliver(pkt)
	recvPacket(t, c)

	h.LeaveRoom(c, "acme-order")
	if h.RoomSize("acme-order") != 0 {
		t.Fatalf("expected empty room after leave")
	}
	h.Deliver(pkt)
	expectNoPacket(t, c)
}

func TestHubLeaveClosesFeed(t *testing.T) {
	h := runHub(t)
	c := h.Join("acme-order")
	h.Leave(c)

	if _, ok := <-c.Send(); ok {
		t.Fatalf("expected closed feed")
	}
	// A second leave must be a no-op, not a double close.
	h.Leave(c)
}

func TestHubEvictsSlowClient(t *testing.T) {
	h := runHub(t)
	h.Join("acme-order")
	pkt, _ := broadcast.NewPacket("acme-order", broadcast.EventUpdate, 1)

	// Never read: fill the send queue past its capacity.
	for i := 0; i < clientBuffer+4; i++ {
		h.Deliver(pkt)
	}

	deadline := time.After(2 * time.Second)
	for h.RoomSize("acme-order") != 0 {
		select {
		case <-deadline:
			t.Fatalf("slow client was not evicted")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHubCloseEvictsAll(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	c := h.Join("acme-order")
	h.Close()

	for range c.Send() {
	}
	if h.RoomSize("acme-order") != 0 {
		t.Fatalf("expected empty hub after close")
	}
}
