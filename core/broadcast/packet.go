package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/appgrid-io/appgrid/core/relay"
)

// ServiceKey is the fixed dispatch key the distribution service listens on.
const ServiceKey = "broadcast.distribution"

// Event names for entity change notifications.
const (
	EventCreate = "entity.create"
	EventUpdate = "entity.update"
	EventDelete = "entity.delete"
)

// Packet is one room/event/data triple delivered to connected clients.
// Data is opaque to this core.
type Packet struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewPacket builds a packet, encoding data as JSON.
func NewPacket(room, event string, data any) (Packet, error) {
	if room == "" {
		return Packet{}, fmt.Errorf("empty room")
	}
	if event == "" {
		return Packet{}, fmt.Errorf("empty event")
	}
	body, err := json.Marshal(data)
	if err != nil {
		return Packet{}, fmt.Errorf("encode packet data: %w", err)
	}
	return Packet{Room: room, Event: event, Data: body}, nil
}

// Room namespaces a broadcast room by tenant so tenants never share one.
// The sentinel stands in when no tenant is set, keeping site-scope rooms
// separated from every tenant's.
func Room(tenantID, key string) string {
	if tenantID == "" {
		tenantID = relay.Sentinel
	}
	return tenantID + "-" + key
}
