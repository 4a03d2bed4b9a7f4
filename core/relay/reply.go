package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reply is the response half of a service round-trip. Exactly one of Err or
// Data is meaningful: a non-empty Err marks the call failed.
type Reply struct {
	Status string          `json:"status"`
	Err    string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"
)

// OKReply encodes a successful reply carrying result.
func OKReply(result any) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	return json.Marshal(Reply{Status: statusOK, Data: data})
}

// ErrReply encodes a failed reply. Encoding cannot fail for a plain string.
func ErrReply(err error) []byte {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	data, _ := json.Marshal(Reply{Status: statusError, Err: msg})
	return data
}

// DecodeReply parses reply bytes and surfaces a remote failure as an error.
func DecodeReply(data []byte) (json.RawMessage, error) {
	var rep Reply
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if rep.Status == statusError || rep.Err != "" {
		return nil, errors.New(rep.Err)
	}
	return rep.Data, nil
}
