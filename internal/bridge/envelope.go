// Package bridge defines the transport envelope exchanged with the
// controlling process. This layer only produces and consumes envelopes;
// reconnection, backoff policy and socket lifecycle belong to the
// transport owner on the other side of the boundary.
package bridge

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates envelopes.
type MessageType string

const (
	TypeRegister MessageType = "register"
	TypeExecute  MessageType = "execute"
	TypeResult   MessageType = "result"
	TypeConsole  MessageType = "console"
	TypePing     MessageType = "ping"
	TypePong     MessageType = "pong"
)

// Message is the wire envelope. ID correlates execute/result pairs and
// is absent on fire-and-forget types.
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ResultPayload is the payload of a result envelope.
type ResultPayload struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// ErrorPayload carries a failure across the boundary.
type ErrorPayload struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ConsolePayload forwards a diagnostic line.
type ConsolePayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RegisterPayload announces a client to the controlling process.
type RegisterPayload struct {
	Client  string `json:"client"`
	Version string `json:"version,omitempty"`
}

// Decode parses one envelope.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("decode envelope: missing type")
	}
	return &m, nil
}

// Encode serializes an envelope.
func Encode(m *Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// NewResult builds a success result envelope for id.
func NewResult(id string, result any) (*Message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	payload, err := json.Marshal(ResultPayload{Success: true, Result: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal result payload: %w", err)
	}
	return &Message{Type: TypeResult, ID: id, Payload: payload}, nil
}

// NewErrorResult builds a failure result envelope for id.
func NewErrorResult(id string, errMsg string) *Message {
	payload, _ := json.Marshal(ResultPayload{
		Success: false,
		Error:   &ErrorPayload{Message: errMsg},
	})
	return &Message{Type: TypeResult, ID: id, Payload: payload}
}

// NewConsole builds a console-forwarding envelope.
func NewConsole(level, message string) *Message {
	payload, _ := json.Marshal(ConsolePayload{Level: level, Message: message})
	return &Message{Type: TypeConsole, Payload: payload}
}

// Pong answers a ping, echoing its ID.
func Pong(ping *Message) *Message {
	return &Message{Type: TypePong, ID: ping.ID}
}
