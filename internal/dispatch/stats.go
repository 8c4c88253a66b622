package dispatch

import (
	"sync"

	"github.com/mattjoyce/excbridge/internal/protocol"
	"github.com/mattjoyce/excbridge/internal/status"
)

// OpcodeStats counts what happened to commands of one opcode.
type OpcodeStats struct {
	Received    int64 `json:"received"`
	OK          int64 `json:"ok"`
	Faulted     int64 `json:"faulted"`
	ReplyFailed int64 `json:"reply_failed"`
	Rejected    int64 `json:"rejected"`
}

// Stats is a snapshot of dispatcher counters keyed by opcode name.
type Stats struct {
	Opcodes  map[string]OpcodeStats `json:"opcodes"`
	Reserved int64                  `json:"reserved"`
	Unknown  int64                  `json:"unknown"`
	Pending  int                    `json:"pending"`
}

type counters struct {
	mu       sync.Mutex
	byOp     map[protocol.Opcode]*OpcodeStats
	reserve  int64
	unknowns int64
}

func newCounters() *counters {
	return &counters{byOp: make(map[protocol.Opcode]*OpcodeStats)}
}

func (c *counters) get(op protocol.Opcode) *OpcodeStats {
	s, ok := c.byOp[op]
	if !ok {
		s = &OpcodeStats{}
		c.byOp[op] = s
	}
	return s
}

func (c *counters) received(op protocol.Opcode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(op).Received++
}

func (c *counters) handled(op protocol.Opcode, st status.ExitStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st == status.OK {
		c.get(op).OK++
		return
	}
	c.get(op).Faulted++
}

func (c *counters) replyFailed(op protocol.Opcode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(op).ReplyFailed++
}

func (c *counters) rejected(op protocol.Opcode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(op).Rejected++
}

func (c *counters) reserved(protocol.Opcode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserve++
}

func (c *counters) unknown(protocol.Opcode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unknowns++
}

// Stats returns a copy of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	c := d.stats
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Stats{
		Opcodes:  make(map[string]OpcodeStats, len(c.byOp)),
		Reserved: c.reserve,
		Unknown:  c.unknowns,
		Pending:  d.Pending(),
	}
	for op, s := range c.byOp {
		out.Opcodes[op.String()] = *s
	}
	return out
}
