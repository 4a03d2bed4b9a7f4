package bus

import (
	"context"
	"fmt"
)

// Handler processes one inbound message. The returned bytes, when non-nil,
// are published as the reply on request/reply subjects.
type Handler func(subject string, data []byte) ([]byte, error)

// Bus is the transport every cross-service call and broadcast rides on.
// Payloads are opaque bytes; the relay package defines the envelope shape.
type Bus interface {
	Publish(subject string, data []byte) error
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
	Subscribe(subject, queue string, handler Handler) error
	Close()
}

// ServiceSubject constructs the request subject for a service key.
func ServiceSubject(serviceKey string) string {
	if serviceKey == "" {
		return ""
	}
	return fmt.Sprintf("service.%s.requests", serviceKey)
}

// AlertSubject constructs the subject alerts for a channel are published on.
func AlertSubject(channel string) string {
	if channel == "" {
		return ""
	}
	return "alert." + channel
}
