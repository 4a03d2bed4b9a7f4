package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/appgrid-io/appgrid/core/infra/bus"
	"github.com/appgrid-io/appgrid/core/infra/notify"
	"github.com/appgrid-io/appgrid/core/relay"
)

// distributionBus fakes the distribution service end of the bus and records
// every packet batch it receives.
type distributionBus struct {
	batches  [][]Packet
	failWith error
}

func (d *distributionBus) Publish(string, []byte) error { return nil }

func (d *distributionBus) Request(_ context.Context, subject string, data []byte) ([]byte, error) {
	if d.failWith != nil {
		return nil, d.failWith
	}
	if subject != bus.ServiceSubject(ServiceKey) {
		return nil, errors.New("unexpected subject " + subject)
	}
	env, err := relay.DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	var packets []Packet
	if err := json.Unmarshal(env.Param.Data, &packets); err != nil {
		return nil, err
	}
	d.batches = append(d.batches, packets)
	return relay.OKReply(map[string]any{"delivered": len(packets)})
}

func (d *distributionBus) Subscribe(string, string, bus.Handler) error { return nil }
func (d *distributionBus) Close()                                      {}

type captureNotifier struct {
	channels []string
	infos    []map[string]any
}

func (c *captureNotifier) Notify(channel string, _ error, info map[string]any) error {
	c.channels = append(c.channels, channel)
	c.infos = append(c.infos, info)
	return nil
}

func testPublisher(db *distributionBus, n notify.Notifier) *Publisher {
	return NewPublisher(relay.NewDispatcher(db), n, nil)
}

func ident() relay.Identity {
	return relay.Identity{JobID: "job-1", TenantID: "acme"}
}

func TestRoom(t *testing.T) {
	if Room("acme", "order") != "acme-order" {
		t.Fatalf("unexpected room: %s", Room("acme", "order"))
	}
	if Room("", "order") != "??-order" {
		t.Fatalf("unexpected site room: %s", Room("", "order"))
	}
	if Room("acme", "order") == Room("globex", "order") {
		t.Fatalf("tenants must never share a room")
	}
}

func TestBroadcastDelivers(t *testing.T) {
	db := &distributionBus{}
	p := testPublisher(db, nil)

	pkt, err := NewPacket("acme-order", EventCreate, map[string]any{"id": 1})
	if err != nil {
		t.Fatalf("packet: %v", err)
	}
	if err := p.Broadcast(context.Background(), ident(), []Packet{pkt}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(db.batches) != 1 || len(db.batches[0]) != 1 {
		t.Fatalf("unexpected batches: %v", db.batches)
	}
	if db.batches[0][0].Room != "acme-order" {
		t.Fatalf("unexpected room on wire: %s", db.batches[0][0].Room)
	}
}

func TestBroadcastEmptyIsNoop(t *testing.T) {
	db := &distributionBus{}
	p := testPublisher(db, nil)
	if err := p.Broadcast(context.Background(), ident(), nil); err != nil {
		t.Fatalf("empty broadcast must succeed: %v", err)
	}
	if len(db.batches) != 0 {
		t.Fatalf("no send expected")
	}
}

func TestBroadcastFailureEscalates(t *testing.T) {
	db := &distributionBus{failWith: errors.New("transport down")}
	n := &captureNotifier{}
	p := testPublisher(db, n)

	pkt, _ := NewPacket("acme-order", EventUpdate, nil)
	err := p.Broadcast(context.Background(), ident(), []Packet{pkt})
	if err == nil {
		t.Fatalf("expected transport error back to caller")
	}
	if len(n.channels) != 1 || n.channels[0] != "developer" {
		t.Fatalf("expected developer alert, got %v", n.channels)
	}
	if n.infos[0]["tenantID"] != "acme" || n.infos[0]["jobID"] != "job-1" {
		t.Fatalf("alert must carry identifiers: %v", n.infos[0])
	}
}

func TestCreatedBuildsOnePacket(t *testing.T) {
	db := &distributionBus{}
	p := testPublisher(db, nil)

	err := p.Created(context.Background(), ident(), "order", map[string]any{"id": 9})
	if err != nil {
		t.Fatalf("created: %v", err)
	}
	if len(db.batches) != 1 || len(db.batches[0]) != 1 {
		t.Fatalf("expected exactly one packet, got %v", db.batches)
	}
	pkt := db.batches[0][0]
	if pkt.Event != EventCreate {
		t.Fatalf("unexpected event: %s", pkt.Event)
	}
	if pkt.Room != "acme-order" {
		t.Fatalf("unexpected room: %s", pkt.Room)
	}
	var data map[string]any
	if err := json.Unmarshal(pkt.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["entityID"] != "order" {
		t.Fatalf("data must include the entity id: %v", data)
	}
	item, ok := data["item"].(map[string]any)
	if !ok || item["id"].(float64) != 9 {
		t.Fatalf("data must include the item payload: %v", data)
	}
}

func TestUpdatedAndDeletedEvents(t *testing.T) {
	db := &distributionBus{}
	p := testPublisher(db, nil)
	ctx := context.Background()

	if err := p.Updated(ctx, ident(), "order", map[string]any{"id": 9}); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if err := p.Deleted(ctx, ident(), "order", 9); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if db.batches[0][0].Event != EventUpdate || db.batches[1][0].Event != EventDelete {
		t.Fatalf("unexpected events: %v", db.batches)
	}
	var data map[string]any
	if err := json.Unmarshal(db.batches[1][0].Data, &data); err != nil {
		t.Fatalf("decode delete data: %v", err)
	}
	if data["itemID"].(float64) != 9 {
		t.Fatalf("delete data must carry the item id: %v", data)
	}
}

func TestCallbackAgreesWithReturn(t *testing.T) {
	db := &distributionBus{failWith: errors.New("down")}
	p := testPublisher(db, nil)

	var cbErr error
	called := false
	err := p.Created(context.Background(), ident(), "order", nil, WithCallback(func(e error) {
		called = true
		cbErr = e
	}))
	if !called {
		t.Fatalf("callback must fire")
	}
	if err == nil || err != cbErr {
		t.Fatalf("callback and return disagree: %v vs %v", cbErr, err)
	}

	db.failWith = nil
	err = p.Updated(context.Background(), ident(), "order", nil, WithCallback(func(e error) {
		cbErr = e
	}))
	if err != nil || cbErr != nil {
		t.Fatalf("expected agreed success, got %v %v", err, cbErr)
	}
}
