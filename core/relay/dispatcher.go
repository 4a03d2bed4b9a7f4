package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appgrid-io/appgrid/core/infra/bus"
	"github.com/appgrid-io/appgrid/core/infra/logging"
)

// Dispatcher sends envelopes to sibling services over the bus and resolves
// the reply. One dispatcher is shared across all request contexts in the
// process; the caller's identity travels with every call.
type Dispatcher struct {
	bus bus.Bus
}

// NewDispatcher wraps a bus transport.
func NewDispatcher(b bus.Bus) *Dispatcher {
	return &Dispatcher{bus: b}
}

// Request wraps payload into the standard envelope and performs one
// round-trip to the service addressed by serviceKey.
func (d *Dispatcher) Request(ctx context.Context, id Identity, serviceKey string, payload any) (json.RawMessage, error) {
	if d == nil || d.bus == nil {
		return nil, fmt.Errorf("dispatcher has no transport")
	}
	if serviceKey == "" {
		return nil, fmt.Errorf("empty service key")
	}
	env, err := NewEnvelope(serviceKey, id, payload)
	if err != nil {
		return nil, err
	}
	data, err := env.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	reply, err := d.bus.Request(ctx, bus.ServiceSubject(serviceKey), data)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", serviceKey, err)
	}
	return DecodeReply(reply)
}

// HandlerFunc processes one decoded envelope and returns the reply payload.
type HandlerFunc func(ctx context.Context, env *Envelope) (any, error)

// Serve subscribes a handler for a service key. Inbound bytes are decoded
// into envelopes; handler results and errors are encoded as replies so the
// remote caller always hears back.
func (d *Dispatcher) Serve(serviceKey, queue string, handler HandlerFunc) error {
	if d == nil || d.bus == nil {
		return fmt.Errorf("dispatcher has no transport")
	}
	if handler == nil {
		return fmt.Errorf("nil handler")
	}
	return d.bus.Subscribe(bus.ServiceSubject(serviceKey), queue, func(subject string, data []byte) ([]byte, error) {
		env, err := DecodeEnvelope(data)
		if err != nil {
			logging.Error("relay", "bad envelope", "subject", subject, "error", err)
			return ErrReply(err), nil
		}
		result, err := handler(context.Background(), env)
		if err != nil {
			return ErrReply(err), nil
		}
		reply, err := OKReply(result)
		if err != nil {
			return ErrReply(err), nil
		}
		return reply, nil
	})
}
