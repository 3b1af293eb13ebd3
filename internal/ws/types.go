package ws

import "encoding/json"

const (
	// client - server
	MsgCreate        = "create"
	MsgJoin          = "join"
	MsgMove          = "move"
	MsgCheckTimeout  = "check_timeout"
	MsgRequestReplay = "request_replay"
	MsgGetState      = "get_state"
	MsgPing          = "ping"

	// server - client
	MsgReady = "ready"
	MsgReply = "reply"
	MsgPong  = "pong"
	MsgError = "error"
)

// Inbound is the client envelope; Payload is decoded per type.
type Inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Message is what the server writes to a connection.
type Message struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}
