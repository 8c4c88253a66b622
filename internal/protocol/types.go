package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mattjoyce/excbridge/internal/status"
)

// Opcode identifies a command on the bridge. Values match the message ids
// clients already send and must not be renumbered.
type Opcode uint8

const (
	OpIsRegistered   Opcode = 1
	OpCreate         Opcode = 2 // reserved
	OpStart          Opcode = 3
	OpWaitCompletion Opcode = 4
	OpTerminate      Opcode = 5
	OpEnable         Opcode = 6
	OpDisable        Opcode = 7
	OpGetChUID       Opcode = 8 // reserved
	OpGetUID         Opcode = 9
	OpSetCPS         Opcode = 10
	OpGetCycleTimeUS Opcode = 11
	OpCycles         Opcode = 12
	OpDone           Opcode = 13
	OpCurrentAWM     Opcode = 14
)

// OpcodeNames maps opcodes to their protocol names for logging and the CLI.
var OpcodeNames = map[Opcode]string{
	OpIsRegistered:   "IS_REGISTERED",
	OpCreate:         "CREATE",
	OpStart:          "START",
	OpWaitCompletion: "WAIT_COMPLETION",
	OpTerminate:      "TERMINATE",
	OpEnable:         "ENABLE",
	OpDisable:        "DISABLE",
	OpGetChUID:       "GET_CH_UID",
	OpGetUID:         "GET_UID",
	OpSetCPS:         "SET_CPS",
	OpGetCycleTimeUS: "GET_CYCLE_TIME_US",
	OpCycles:         "CYCLES",
	OpDone:           "DONE",
	OpCurrentAWM:     "CURRENT_AWM",
}

// Opcodes returns every declared opcode in numeric order.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, len(OpcodeNames))
	for op := OpIsRegistered; op <= OpCurrentAWM; op++ {
		out = append(out, op)
	}
	return out
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OPCODE(%d)", uint8(op))
}

// Known reports whether op belongs to the declared opcode set.
func (op Opcode) Known() bool {
	_, ok := OpcodeNames[op]
	return ok
}

// Reserved reports whether op is accepted by the protocol but has no
// defined operation yet. Reserved opcodes never produce a reply.
func (op Opcode) Reserved() bool {
	return op == OpCreate || op == OpGetChUID
}

// ParseOpcode resolves an opcode from its protocol name or numeric id.
func ParseOpcode(s string) (Opcode, error) {
	for op, name := range OpcodeNames {
		if name == s {
			return op, nil
		}
	}
	var n uint8
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && fmt.Sprint(n) == s {
		return Opcode(n), nil
	}
	return 0, fmt.Errorf("unknown opcode %q", s)
}

// ReplyChannel is the caller-supplied destination for a command's reply.
// It is opaque to the dispatcher and used at most once per command.
type ReplyChannel interface {
	Send(ctx context.Context, r Reply) error
}

// Command is a single request to the execution context.
type Command struct {
	Opcode Opcode
	// Arg is the generic payload, e.g. the rate for SET_CPS.
	Arg string
	// Arg1 is the scalar argument slot, e.g. the ignored GET_CYCLE_TIME_US value.
	Arg1    int64
	ReplyTo ReplyChannel
}

// Reply is the single response produced for an accepted command.
type Reply struct {
	Opcode      Opcode            `json:"opcode"`
	Status      status.ExitStatus `json:"status"`
	Value       *Value            `json:"value,omitempty"`
	Correlation string            `json:"reply_to,omitempty"`
}

// Frame is the wire form of a Command on the local socket.
type Frame struct {
	Opcode  Opcode          `json:"opcode"`
	Arg     json.RawMessage `json:"arg,omitempty"`
	Arg1    int64           `json:"arg1,omitempty"`
	ReplyTo string          `json:"reply_to,omitempty"`
}

// Payload renders Arg as the generic string payload the dispatcher parses.
// A JSON string is unquoted; numbers and other literals are kept verbatim.
func (f *Frame) Payload() string {
	if len(f.Arg) == 0 || string(f.Arg) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Arg, &s); err == nil {
		return s
	}
	return string(f.Arg)
}
