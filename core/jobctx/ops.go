package jobctx

import (
	"context"
	"encoding/json"

	"github.com/appgrid-io/appgrid/core/broadcast"
	"github.com/appgrid-io/appgrid/core/infra/notify"
	infraschema "github.com/appgrid-io/appgrid/core/infra/schema"
	"github.com/appgrid-io/appgrid/core/model"
	"github.com/appgrid-io/appgrid/core/storage"
)

// Query runs a storage query on the connection routed by this context's
// tenant state, with the executor's bounded transient retry.
func (r *Request) Query(ctx context.Context, text string, values []any) (storage.Rows, storage.Fields, error) {
	return r.executor.Query(ctx, r.tenantID, text, values)
}

// Conditions turns a filter map into a predicate and aligned values.
func (r *Request) Conditions(filter map[string]any) (string, []any) {
	return storage.Conditions(filter)
}

// ServiceRequest calls a sibling service with this context's identity
// stamped on the envelope.
func (r *Request) ServiceRequest(ctx context.Context, serviceKey string, payload any) (json.RawMessage, error) {
	return r.dispatcher.Request(ctx, r.Identity(), serviceKey, payload)
}

// Broadcast sends packets to connected clients through the distribution
// service.
func (r *Request) Broadcast(ctx context.Context, packets []broadcast.Packet) error {
	return r.publisher.Broadcast(ctx, r.Identity(), packets)
}

// BroadcastCreated notifies the entity's room of a created item.
func (r *Request) BroadcastCreated(ctx context.Context, entityID string, item any, opts ...broadcast.Option) error {
	return r.publisher.Created(ctx, r.Identity(), entityID, item, opts...)
}

// BroadcastUpdated notifies the entity's room of an updated item.
func (r *Request) BroadcastUpdated(ctx context.Context, entityID string, item any, opts ...broadcast.Option) error {
	return r.publisher.Updated(ctx, r.Identity(), entityID, item, opts...)
}

// BroadcastDeleted notifies the entity's room of a removed item id.
func (r *Request) BroadcastDeleted(ctx context.Context, entityID string, itemID any, opts ...broadcast.Option) error {
	return r.publisher.Deleted(ctx, r.Identity(), entityID, itemID, opts...)
}

// Model resolves an entity accessor bound to this context's tenant, or nil
// when the entity is unknown.
func (r *Request) Model(name string) model.Accessor {
	if r.deps.Models == nil {
		return nil
	}
	return r.deps.Models.Resolve(name, r.tenantID)
}

// Validate checks value against an inline schema and returns the collected
// violations; an empty list means valid.
func (r *Request) Validate(schema map[string]any, value any) []error {
	return infraschema.Validate(schema, value)
}

// NotifyDeveloper raises a developer alert stamped with this job's
// identifiers.
func (r *Request) NotifyDeveloper(err error, info map[string]any) error {
	return r.notifyChannel(notify.ChannelDeveloper, err, info)
}

// NotifyBuilder raises a builder alert stamped with this job's identifiers.
func (r *Request) NotifyBuilder(err error, info map[string]any) error {
	return r.notifyChannel(notify.ChannelBuilder, err, info)
}

func (r *Request) notifyChannel(channel string, err error, info map[string]any) error {
	merged := make(map[string]any, len(info)+2)
	for k, v := range info {
		merged[k] = v
	}
	merged["jobID"] = r.jobID
	merged["tenantID"] = r.tenantID
	return r.deps.Notifier.Notify(channel, err, merged)
}
