package bridge

import (
	"encoding/json"

	lnbridge "github.com/lightvault/lnbridge-go"
)

// MessageType discriminates the three wire message shapes.
type MessageType string

const (
	// MessageTypeCall is an inbound method invocation awaiting a terminal
	// response.
	MessageTypeCall MessageType = "call"

	// MessageTypeReply is the success completion for a call.
	MessageTypeReply MessageType = "reply"

	// MessageTypeError is the failure completion for a call.
	MessageTypeError MessageType = "error"
)

// Message is the wire unit exchanged across the context boundary. Every
// message carries the correlation id binding a call to its single terminal
// response.
type Message struct {
	ID     string          `json:"id"`
	Type   MessageType     `json:"type"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Origin and Metadata attach page context to calls made on behalf of
	// untrusted content. They are absent on privileged-only requests.
	Origin   *lnbridge.Origin `json:"origin,omitempty"`
	Metadata json.RawMessage  `json:"metadata,omitempty"`

	Result json.RawMessage       `json:"result,omitempty"`
	Error  *lnbridge.BridgeError `json:"error,omitempty"`
}

// roundTrip copies a message through its wire encoding.
func roundTrip(msg *Message) (*Message, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
