package broadcast

import (
	"context"

	"github.com/appgrid-io/appgrid/core/infra/metrics"
	"github.com/appgrid-io/appgrid/core/infra/notify"
	"github.com/appgrid-io/appgrid/core/relay"
)

// Publisher republishes state changes to connected clients through the
// dispatcher. Broadcast loss never fails the originating business operation
// at this layer's callers, but it is escalated to the developer channel
// because silent loss desynchronizes clients.
type Publisher struct {
	dispatcher *relay.Dispatcher
	notifier   notify.Notifier
	metrics    metrics.Observer
}

// NewPublisher wires the dispatcher plus optional notifier and metrics.
func NewPublisher(d *relay.Dispatcher, n notify.Notifier, obs metrics.Observer) *Publisher {
	if n == nil {
		n = notify.Noop{}
	}
	if obs == nil {
		obs = metrics.Noop{}
	}
	return &Publisher{dispatcher: d, notifier: n, metrics: obs}
}

// Broadcast sends packets to the distribution service. On transport error
// the developer channel is alerted with the job/tenant identifiers and the
// error is still returned to the caller.
func (p *Publisher) Broadcast(ctx context.Context, id relay.Identity, packets []Packet) error {
	if len(packets) == 0 {
		return nil
	}
	_, err := p.dispatcher.Request(ctx, id, ServiceKey, packets)
	for _, pkt := range packets {
		if err != nil {
			p.metrics.IncBroadcastFailed(pkt.Event)
		} else {
			p.metrics.IncBroadcastSent(pkt.Event)
		}
	}
	if err != nil {
		_ = p.notifier.Notify(notify.ChannelDeveloper, err, map[string]any{
			"jobID":    id.JobID,
			"tenantID": id.TenantID,
			"packets":  len(packets),
		})
		return err
	}
	return nil
}

// Option configures one convenience send.
type Option func(*opConfig)

type opConfig struct {
	timerName string
	callback  func(error)
}

// WithTimerName overrides the default performance timer name.
func WithTimerName(name string) Option {
	return func(c *opConfig) { c.timerName = name }
}

// WithCallback registers a legacy-style completion callback. It receives
// the same outcome the method returns.
func WithCallback(cb func(error)) Option {
	return func(c *opConfig) { c.callback = cb }
}

// Created notifies clients in the entity's room that item was created.
func (p *Publisher) Created(ctx context.Context, id relay.Identity, entityID string, item any, opts ...Option) error {
	data := map[string]any{"entityID": entityID, "item": item}
	return p.send(ctx, id, EventCreate, "create", entityID, data, opts)
}

// Updated notifies clients in the entity's room that item changed.
func (p *Publisher) Updated(ctx context.Context, id relay.Identity, entityID string, item any, opts ...Option) error {
	data := map[string]any{"entityID": entityID, "item": item}
	return p.send(ctx, id, EventUpdate, "update", entityID, data, opts)
}

// Deleted notifies clients in the entity's room that itemID was removed.
func (p *Publisher) Deleted(ctx context.Context, id relay.Identity, entityID string, itemID any, opts ...Option) error {
	data := map[string]any{"entityID": entityID, "itemID": itemID}
	return p.send(ctx, id, EventDelete, "delete", entityID, data, opts)
}

func (p *Publisher) send(ctx context.Context, id relay.Identity, event, op, entityID string, data any, opts []Option) error {
	cfg := opConfig{timerName: "broadcast." + op + "." + entityID}
	for _, opt := range opts {
		opt(&cfg)
	}

	stop := metrics.StartTimer(p.metrics, cfg.timerName)
	pkt, err := NewPacket(Room(id.TenantID, entityID), event, data)
	if err == nil {
		err = p.Broadcast(ctx, id, []Packet{pkt})
	}
	stop()

	if cfg.callback != nil {
		cfg.callback(err)
	}
	return err
}
