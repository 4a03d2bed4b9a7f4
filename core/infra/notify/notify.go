package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/appgrid-io/appgrid/core/infra/bus"
	"github.com/appgrid-io/appgrid/core/infra/logging"
)

// Alert channels. Developer alerts page the platform team; builder alerts
// surface in the tenant's app editor.
const (
	ChannelDeveloper = "developer"
	ChannelBuilder   = "builder"
)

// Notifier raises developer/operator alerts. Best effort: callers must not
// fail their own operation when notification fails.
type Notifier interface {
	Notify(channel string, err error, info map[string]any) error
}

// Alert is the payload published on alert subjects.
type Alert struct {
	ID      string         `json:"id"`
	Channel string         `json:"channel"`
	Error   string         `json:"error"`
	Info    map[string]any `json:"info,omitempty"`
	Time    time.Time      `json:"time"`
}

// BusNotifier publishes alerts on the bus for the alert collector to pick up.
type BusNotifier struct {
	bus bus.Bus
}

func NewBusNotifier(b bus.Bus) *BusNotifier {
	return &BusNotifier{bus: b}
}

func (n *BusNotifier) Notify(channel string, cause error, info map[string]any) error {
	if n == nil || n.bus == nil {
		return fmt.Errorf("notifier has no transport")
	}
	if channel == "" {
		return fmt.Errorf("empty alert channel")
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	alert := Alert{
		ID:      uuid.NewString(),
		Channel: channel,
		Error:   msg,
		Info:    info,
		Time:    time.Now().UTC(),
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := n.bus.Publish(bus.AlertSubject(channel), data); err != nil {
		logging.Error("notify", "alert publish failed", "channel", channel, "error", err)
		return err
	}
	return nil
}

// Noop swallows alerts; used where alerting is wired off.
type Noop struct{}

func (Noop) Notify(string, error, map[string]any) error { return nil }
