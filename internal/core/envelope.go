package core

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/tandem/internal/domain"
)

// Envelope is the wire shape of every signaling message in both directions.
// Ack is set on request/response exchanges and echoed back in the reply.
type Envelope struct {
	Type string          `json:"type"`
	Ack  string          `json:"ack,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes an event with its payload.
func NewFrame(event string, data any) (Frame, error) {
	return encode(Envelope{Type: event}, data)
}

// NewAckFrame encodes the reply to a request carrying ack.
func NewAckFrame(ack string, data any) (Frame, error) {
	return encode(Envelope{Type: domain.EventAck, Ack: ack}, data)
}

func encode(env Envelope, data any) (Frame, error) {
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", env.Type, err)
		}
		env.Data = raw
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", env.Type, err)
	}
	return b, nil
}
