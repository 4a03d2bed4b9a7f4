package distribution

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/appgrid-io/appgrid/core/broadcast"
	"github.com/appgrid-io/appgrid/core/infra/logging"
)

// relayChannel is the redis pub/sub channel shared by all hub instances.
const relayChannel = "appgrid.broadcast.relay"

type relayFrame struct {
	Origin  string             `json:"origin"`
	Packets []broadcast.Packet `json:"packets"`
}

// Relay carries packet batches between hub instances through redis pub/sub.
// Each instance tags outgoing frames with its own id and ignores them on the
// way back in.
type Relay struct {
	client goredis.UniversalClient
	origin string
	sub    *goredis.PubSub
}

// NewRelay wraps an existing redis client. The client is borrowed, not
// owned; the caller closes it.
func NewRelay(client goredis.UniversalClient) *Relay {
	return &Relay{client: client, origin: uuid.NewString()}
}

// Publish fans a batch out to peer instances.
func (r *Relay) Publish(packets []broadcast.Packet) error {
	if len(packets) == 0 {
		return nil
	}
	frame, err := json.Marshal(relayFrame{Origin: r.origin, Packets: packets})
	if err != nil {
		return fmt.Errorf("encode relay frame: %w", err)
	}
	if err := r.client.Publish(context.Background(), relayChannel, frame).Err(); err != nil {
		return fmt.Errorf("publish relay frame: %w", err)
	}
	return nil
}

// Start subscribes to the relay channel and feeds inbound batches to the
// hub until Stop.
func (r *Relay) Start(hub *Hub) error {
	sub := r.client.Subscribe(context.Background(), relayChannel)
	if _, err := sub.Receive(context.Background()); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe relay channel: %w", err)
	}
	r.sub = sub

	go func() {
		// Channel() closes when the subscription is closed, ending the loop.
		for msg := range sub.Channel() {
			var frame relayFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				logging.Warn("distribution", "bad relay frame", "error", err)
				continue
			}
			if frame.Origin == r.origin {
				continue
			}
			hub.Deliver(frame.Packets...)
		}
	}()
	return nil
}

// Stop unsubscribes and ends the feed goroutine. Safe to call without Start.
func (r *Relay) Stop() {
	if r.sub != nil {
		if err := r.sub.Close(); err != nil {
			logging.Error("distribution", "relay unsubscribe failed", "error", err)
		}
		r.sub = nil
	}
}
