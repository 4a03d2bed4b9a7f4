package relay

import (
	"encoding/json"
	"fmt"
)

// Sentinel is the wire marker for an absent jobID or tenantID. A tenantID
// equal to Sentinel means site scope; any other non-empty string is a real
// tenant identifier.
const Sentinel = "??"

// UserRef identifies the acting user inside an envelope. A nil UserRef means
// a system actor.
type UserRef struct {
	ID           string `json:"id,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// Identity is the job/tenant/user triple stamped on every outbound envelope.
type Identity struct {
	JobID    string
	TenantID string
	User     *UserRef
}

// HasTenant reports whether the identity is scoped to a real tenant.
func (id Identity) HasTenant() bool {
	return id.TenantID != "" && id.TenantID != Sentinel
}

// Param is the context block carried alongside every payload. Field names
// are part of the cross-service wire contract and must not change.
type Param struct {
	JobID    string          `json:"jobID"`
	TenantID string          `json:"tenantID"`
	User     *UserRef        `json:"user"`
	Data     json.RawMessage `json:"data"`
}

// Envelope is the standard wrapper for all inter-service calls. Receivers
// dispatch on Type and find job/tenant/user context alongside their data.
type Envelope struct {
	Type  string `json:"type"`
	Param Param  `json:"param"`
}

// NewEnvelope wraps a payload into an envelope stamped with the identity.
// Empty jobID or tenantID fields are replaced by the sentinel so receivers
// always see a well-formed context block.
func NewEnvelope(serviceKey string, id Identity, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	jobID := id.JobID
	if jobID == "" {
		jobID = Sentinel
	}
	tenantID := id.TenantID
	if tenantID == "" {
		tenantID = Sentinel
	}
	return &Envelope{
		Type: serviceKey,
		Param: Param{
			JobID:    jobID,
			TenantID: tenantID,
			User:     id.User,
			Data:     data,
		},
	}, nil
}

// Encode renders the envelope as wire bytes.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses wire bytes back into an envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope has no type")
	}
	return &env, nil
}

// Identity reconstructs the sender identity from the envelope context block.
func (e *Envelope) Identity() Identity {
	return Identity{JobID: e.Param.JobID, TenantID: e.Param.TenantID, User: e.Param.User}
}
