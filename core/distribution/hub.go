package distribution

import (
	"sync"

	"github.com/appgrid-io/appgrid/core/broadcast"
	"github.com/appgrid-io/appgrid/core/infra/logging"
	"github.com/appgrid-io/appgrid/core/infra/metrics"
)

const (
	// eventBuffer bounds the hub's intake queue; producers never block on
	// slow consumers.
	eventBuffer = 512
	// clientBuffer is the per-client send queue. A client that cannot keep
	// up gets evicted rather than backpressuring the hub.
	clientBuffer = 64
)

// Client is one connected consumer. Packets for rooms the client joined
// arrive on Send; the hub closes Send when it evicts the client.
type Client struct {
	send  chan broadcast.Packet
	rooms map[string]struct{}
}

// Send is the client's packet feed.
func (c *Client) Send() <-chan broadcast.Packet {
	return c.send
}

// Hub fans broadcast packets out to clients joined to rooms. Membership is
// tenant-namespaced through the room name, so isolation falls out of the
// room key itself.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	events  chan broadcast.Packet
	metrics metrics.Observer

	closeOnce sync.Once
	done      chan struct{}
}

// NewHub builds a hub. Call Run to start the fan-out loop.
func NewHub(obs metrics.Observer) *Hub {
	if obs == nil {
		obs = metrics.Noop{}
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		events:  make(chan broadcast.Packet, eventBuffer),
		metrics: obs,
		done:    make(chan struct{}),
	}
}

// Join registers a new client subscribed to the given rooms.
func (h *Hub) Join(rooms ...string) *Client {
	c := &Client{
		send:  make(chan broadcast.Packet, clientBuffer),
		rooms: make(map[string]struct{}, len(rooms)),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	for _, room := range rooms {
		h.JoinRoom(c, room)
	}
	return c
}

// JoinRoom adds an existing client to one more room.
func (h *Hub) JoinRoom(c *Client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// LeaveRoom removes a client from one room, dropping the room when empty.
func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(c, room)
}

func (h *Hub) leaveRoomLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Leave removes the client entirely and closes its feed.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		for room := range c.rooms {
			h.leaveRoomLocked(c, room)
		}
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok {
		close(c.send)
	}
}

// Deliver queues packets for local fan-out. Drops on a full intake queue
// rather than blocking the caller.
func (h *Hub) Deliver(packets ...broadcast.Packet) {
	for _, p := range packets {
		select {
		case h.events <- p:
		default:
			h.metrics.IncBroadcastFailed(p.Event)
			logging.Warn("distribution", "event queue full, packet dropped", "room", p.Room, "event", p.Event)
		}
	}
}

// Run drains the intake queue until Close. Clients whose send queue is full
// are evicted, matching the at-most-once delivery contract.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case p := <-h.events:
			h.fanOut(p)
		}
	}
}

func (h *Hub) fanOut(p broadcast.Packet) {
	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[p.Room] {
		select {
		case c.send <- p:
			h.metrics.IncBroadcastSent(p.Event)
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.metrics.IncBroadcastFailed(p.Event)
		logging.Warn("distribution", "evicting slow client", "room", p.Room)
		h.Leave(c)
	}
}

// RoomSize reports current membership, zero for unknown rooms.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close stops the fan-out loop and evicts every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		clients := make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.Unlock()
		for _, c := range clients {
			h.Leave(c)
		}
	})
}
