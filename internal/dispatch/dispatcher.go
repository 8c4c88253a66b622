package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/mattjoyce/excbridge/internal/exc"
	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/protocol"
	"github.com/mattjoyce/excbridge/internal/status"
)

const defaultMailboxSize = 64

var (
	ErrMailboxFull = errors.New("dispatch: mailbox full")
	ErrStopped     = errors.New("dispatch: dispatcher stopped")
)

type disposition uint8

const (
	dispUnknown disposition = iota
	dispHandled
	dispReserved
)

// route classifies every opcode. It is total: anything not declared is
// unknown.
func route(op protocol.Opcode) disposition {
	switch op {
	case protocol.OpCreate, protocol.OpGetChUID:
		return dispReserved
	case protocol.OpIsRegistered, protocol.OpStart, protocol.OpWaitCompletion,
		protocol.OpTerminate, protocol.OpEnable, protocol.OpDisable,
		protocol.OpGetUID, protocol.OpSetCPS, protocol.OpGetCycleTimeUS,
		protocol.OpCycles, protocol.OpDone, protocol.OpCurrentAWM:
		return dispHandled
	default:
		return dispUnknown
	}
}

// result is the outcome of one operation, built fresh per command.
type result struct {
	status status.ExitStatus
	value  *protocol.Value
}

func fromErr(err error) result {
	return result{status: status.Of(err)}
}

func valued(v *protocol.Value) result {
	return result{status: status.OK, value: v}
}

// Dispatcher turns commands into execution-context operations.
type Dispatcher struct {
	client  exc.Client
	logger  *slog.Logger
	mailbox chan protocol.Command

	mu sync.Mutex

	stopOnce sync.Once
	stopped  chan struct{}

	stats *counters
}

// New creates a Dispatcher fronting client with a mailbox of mailboxSize
// pending commands.
func New(client exc.Client, mailboxSize int) *Dispatcher {
	if mailboxSize <= 0 {
		mailboxSize = defaultMailboxSize
	}
	return &Dispatcher{
		client:  client,
		logger:  log.WithComponent("dispatch"),
		mailbox: make(chan protocol.Command, mailboxSize),
		stopped: make(chan struct{}),
		stats:   newCounters(),
	}
}

// Submit enqueues cmd without blocking.
func (d *Dispatcher) Submit(cmd protocol.Command) error {
	select {
	case <-d.stopped:
		return ErrStopped
	default:
	}
	select {
	case d.mailbox <- cmd:
		return nil
	default:
		d.stats.rejected(cmd.Opcode)
		return ErrMailboxFull
	}
}

// Start runs the dispatch loop until ctx is cancelled or Stop is called.
// Commands still queued at that point are abandoned without replies.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("dispatch loop started")
	defer d.logger.Info("dispatch loop stopped")

	for {
		// Stop wins over queued work.
		select {
		case <-d.stopped:
			return nil
		default:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stopped:
			return nil
		case cmd := <-d.mailbox:
			d.Handle(ctx, cmd)
		}
	}
}

// Stop makes Submit fail and ends the dispatch loop. Safe to call twice.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
}

// Pending reports the number of queued commands.
func (d *Dispatcher) Pending() int { return len(d.mailbox) }

// Handle dispatches a single command. It has side effects only: the outcome
// goes to cmd.ReplyTo.
func (d *Dispatcher) Handle(ctx context.Context, cmd protocol.Command) {
	d.mu.Lock()
	defer d.mu.Unlock()

	logger := d.logger.With("opcode", cmd.Opcode.String())
	d.stats.received(cmd.Opcode)

	switch route(cmd.Opcode) {
	case dispReserved:
		d.stats.reserved(cmd.Opcode)
		logger.Debug("reserved opcode accepted, no reply")
		return
	case dispUnknown:
		d.stats.unknown(cmd.Opcode)
		d.defaultHandler(logger, cmd)
		return
	}

	res := d.invoke(logger, cmd)
	d.stats.handled(cmd.Opcode, res.status)
	if res.status != status.OK {
		logger.Debug("operation faulted", "status", res.status.String())
	}
	d.deliver(ctx, logger, cmd, res)
}

func (d *Dispatcher) defaultHandler(logger *slog.Logger, cmd protocol.Command) {
	logger.Warn("unknown opcode ignored", "opcode_id", uint8(cmd.Opcode))
}

func (d *Dispatcher) invoke(logger *slog.Logger, cmd protocol.Command) (res result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("client operation panicked", "panic", fmt.Sprint(r))
			res = result{status: status.Error}
		}
	}()

	c := d.client
	switch cmd.Opcode {
	case protocol.OpIsRegistered:
		return valued(protocol.BoolValue(c.IsRegistered()))
	case protocol.OpStart:
		return fromErr(c.Start())
	case protocol.OpWaitCompletion:
		return fromErr(c.WaitCompletion())
	case protocol.OpTerminate:
		return fromErr(c.Terminate())
	case protocol.OpEnable:
		return fromErr(c.Enable())
	case protocol.OpDisable:
		return fromErr(c.Disable())
	case protocol.OpGetUID:
		return valued(protocol.IntValue(int64(c.UniqueID())))
	case protocol.OpSetCPS:
		cps, err := ParseCPS(cmd.Arg)
		if err != nil {
			logger.Debug("bad SET_CPS payload", "arg", cmd.Arg, "error", err)
			return result{status: status.ArgParseFailed}
		}
		return fromErr(c.SetCPS(cps))
	case protocol.OpGetCycleTimeUS:
		return valued(protocol.IntValue(int64(c.CycleTimeMicros())))
	case protocol.OpCycles:
		return valued(protocol.IntValue(int64(c.Cycles())))
	case protocol.OpDone:
		return valued(protocol.BoolValue(c.Done()))
	case protocol.OpCurrentAWM:
		return valued(protocol.IntValue(int64(c.CurrentAWM())))
	}
	return result{status: status.Error}
}

func (d *Dispatcher) deliver(ctx context.Context, logger *slog.Logger, cmd protocol.Command, res result) {
	if cmd.ReplyTo == nil {
		logger.Debug("no reply destination, reply dropped")
		return
	}
	r := protocol.Reply{Opcode: cmd.Opcode, Status: res.status, Value: res.value}
	if err := cmd.ReplyTo.Send(ctx, r); err != nil {
		d.stats.replyFailed(cmd.Opcode)
		logger.Warn("reply delivery failed", "error", err)
	}
}

// ParseCPS parses a SET_CPS payload. Empty, malformed and non-finite rates
// are rejected; range checks are left to the execution context.
func ParseCPS(arg string) (float32, error) {
	s := strings.TrimSpace(arg)
	if s == "" {
		return 0, errors.New("empty rate")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("rate %q is not finite", s)
	}
	return float32(v), nil
}
