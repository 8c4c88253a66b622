package api

import (
	"encoding/json"

	"github.com/mattjoyce/excbridge/internal/dispatch"
	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/protocol"
)

// CommandRequest is the JSON body for POST /command/{opcode}.
type CommandRequest struct {
	// Arg is the generic payload, a JSON string or number.
	Arg  json.RawMessage `json:"arg,omitempty"`
	Arg1 int64           `json:"arg1,omitempty"`
}

// CommandResponse is the reply to a dispatched command.
type CommandResponse struct {
	Opcode string          `json:"opcode"`
	Status string          `json:"status"`
	Code   uint8           `json:"code"`
	Value  *protocol.Value `json:"value,omitempty"`
}

// AcceptedResponse is returned for commands that produce no reply.
type AcceptedResponse struct {
	Opcode string `json:"opcode"`
	Status string `json:"status"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Fingerprint   string `json:"fingerprint,omitempty"`
	Bindings      int    `json:"bindings"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	Dispatch      dispatch.Stats `json:"dispatch"`
	EventsDropped int64          `json:"events_dropped"`
	// Forward is present when an event forwarder is configured.
	Forward *events.ForwarderStats `json:"forward,omitempty"`
}
