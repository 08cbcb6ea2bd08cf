package server

import (
	"encoding/json"
	"fmt"

	"cryptodash/pkg/coingecko"
)

// Client operations accepted on the WebSocket.
const (
	OpToggle  = "toggle"
	OpRefresh = "refresh"
	OpPeriod  = "period"
)

// ClientMessage is a command sent by a WebSocket client, e.g.
// {"op":"toggle","id":"bitcoin"} or {"op":"period","period":"30d"}.
type ClientMessage struct {
	Op     string           `json:"op"`
	ID     string           `json:"id,omitempty"`
	Period coingecko.Period `json:"period,omitempty"`
}

// parseClientMessage decodes and checks msg.
func parseClientMessage(msg []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return m, fmt.Errorf("decode client message: %w", err)
	}
	switch m.Op {
	case OpToggle:
		if m.ID == "" {
			return m, fmt.Errorf("toggle without id")
		}
	case OpRefresh:
	case OpPeriod:
		if !m.Period.IsValid() {
			return m, fmt.Errorf("unsupported period %q", m.Period)
		}
	default:
		return m, fmt.Errorf("unknown op %q", m.Op)
	}
	return m, nil
}

// errorMessage is sent back to a WebSocket client whose command was rejected.
type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
