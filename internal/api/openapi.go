package api

import (
	"fmt"

	"github.com/mattjoyce/excbridge/internal/protocol"
)

var opcodeSummaries = map[protocol.Opcode]string{
	protocol.OpIsRegistered:   "Report whether the execution context is registered",
	protocol.OpCreate:         "Reserved; accepted without a reply",
	protocol.OpStart:          "Start the control loop",
	protocol.OpWaitCompletion: "Block until the execution context terminates",
	protocol.OpTerminate:      "Request termination",
	protocol.OpEnable:         "Enable run cycles",
	protocol.OpDisable:        "Disable run cycles",
	protocol.OpGetChUID:       "Reserved; accepted without a reply",
	protocol.OpGetUID:         "Return the unique id",
	protocol.OpSetCPS:         "Set the cycles-per-second goal from arg",
	protocol.OpGetCycleTimeUS: "Return the last cycle time in microseconds",
	protocol.OpCycles:         "Return the completed cycle count",
	protocol.OpDone:           "Report whether the workload is done",
	protocol.OpCurrentAWM:     "Return the assigned working mode",
}

var readRoutes = map[string]struct{ summary, tag string }{
	"/exc":       {"Execution context snapshot (exc:ro)", "exc"},
	"/stats":     {"Dispatcher and forwarder counters (exc:ro)", "exc"},
	"/events":    {"Server-sent lifecycle events; honors Last-Event-ID (events:ro)", "events"},
	"/events/ws": {"Lifecycle events over a websocket; ?since=<id> (events:ro)", "events"},
	"/journal":   {"Recent journal records; ?limit=<n> (events:ro)", "events"},
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document: one path per opcode plus
// the read and streaming routes.
func buildOpenAPIDoc() map[string]any {
	paths := map[string]any{}

	for _, op := range protocol.Opcodes() {
		responses := map[string]any{
			"200": map[string]any{"description": "Command reply"},
			"400": map[string]any{"description": "Bad request"},
			"403": map[string]any{"description": "Insufficient scope"},
			"503": map[string]any{"description": "Mailbox full or service stopped"},
		}
		if op.Reserved() {
			responses = map[string]any{
				"202": map[string]any{"description": "Accepted, no reply"},
				"403": map[string]any{"description": "Insufficient scope"},
			}
		}

		operation := map[string]any{
			"operationId": fmt.Sprintf("command__%s", op),
			"summary":     opcodeSummaries[op],
			"tags":        []string{"command"},
			"responses":   responses,
			"security":    []any{map[string]any{"BearerAuth": []string{}}},
		}
		if op == protocol.OpSetCPS {
			operation["requestBody"] = map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{
							"type":     "object",
							"required": []string{"arg"},
							"properties": map[string]any{
								"arg": map[string]any{"type": []string{"string", "number"}},
							},
						},
					},
				},
			}
		}

		paths[fmt.Sprintf("/command/%s", op)] = map[string]any{
			"post": operation,
		}
	}

	for path, scope := range readRoutes {
		paths[path] = map[string]any{
			"get": map[string]any{
				"summary":  scope.summary,
				"tags":     []string{scope.tag},
				"security": []any{map[string]any{"BearerAuth": []string{}}},
				"responses": map[string]any{
					"200": map[string]any{"description": "OK"},
					"403": map[string]any{"description": "Insufficient scope"},
				},
			},
		}
	}
	paths["/healthz"] = map[string]any{
		"get": map[string]any{
			"summary": "Liveness, uptime and config fingerprint; no auth",
			"tags":    []string{"ops"},
			"responses": map[string]any{
				"200": map[string]any{"description": "Serving"},
				"503": map[string]any{"description": "Stopping"},
			},
		},
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "excbridge",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}
