package distribution

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appgrid-io/appgrid/core/broadcast"
	"github.com/appgrid-io/appgrid/core/infra/bus"
	"github.com/appgrid-io/appgrid/core/infra/logging"
	"github.com/appgrid-io/appgrid/core/relay"
)

// serviceQueue groups hub instances so the bus delivers each batch to one
// instance; the redis relay then carries it to the rest.
const serviceQueue = "distribution"

// Service is the bus-facing end of broadcast distribution: it receives
// packet batches published by services, delivers them locally, and relays
// them to peer instances.
type Service struct {
	hub   *Hub
	relay *Relay
}

// NewService binds a hub and an optional cross-instance relay.
func NewService(hub *Hub, rl *Relay) *Service {
	return &Service{hub: hub, relay: rl}
}

// Attach subscribes the service to the fixed broadcast dispatch subject.
func (s *Service) Attach(b bus.Bus) error {
	if b == nil {
		return errors.New("nil bus")
	}
	subject := bus.ServiceSubject(broadcast.ServiceKey)
	return b.Subscribe(subject, serviceQueue, s.handle)
}

func (s *Service) handle(_ string, data []byte) ([]byte, error) {
	env, err := relay.DecodeEnvelope(data)
	if err != nil {
		logging.Error("distribution", "bad envelope", "error", err)
		return relay.ErrReply(err), nil
	}
	var packets []broadcast.Packet
	if err := json.Unmarshal(env.Param.Data, &packets); err != nil {
		err = fmt.Errorf("decode packets: %w", err)
		logging.Error("distribution", "bad packet batch", "job", env.Param.JobID, "error", err)
		return relay.ErrReply(err), nil
	}

	s.hub.Deliver(packets...)
	if s.relay != nil {
		if err := s.relay.Publish(packets); err != nil {
			logging.Warn("distribution", "relay publish failed", "job", env.Param.JobID, "error", err)
		}
	}

	return relay.OKReply(map[string]any{"delivered": len(packets)})
}
