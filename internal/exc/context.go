package exc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/status"
)

const defaultIdleInterval = 50 * time.Millisecond

var excSeq atomic.Int32

// Options configures a local execution context.
type Options struct {
	Name   string
	Recipe string
	// CPS is the initial cycles-per-second target; zero disables pacing.
	CPS float32
	// Disabled registers the EXC without making it eligible for scheduling.
	Disabled bool
	// IdleInterval is how long the loop waits while suspended, disabled or
	// waiting for a working mode.
	IdleInterval time.Duration
	Logger       *slog.Logger
	// OnTransition observes every lifecycle transition. It runs with the
	// context lock held and must not block or call back into the Context.
	OnTransition func(from, to State)
}

// Snapshot is a point-in-time view of a Context.
type Snapshot struct {
	Name        string  `json:"name"`
	Recipe      string  `json:"recipe"`
	ExcID       int     `json:"exc_id"`
	UID         int     `json:"uid"`
	State       string  `json:"state"`
	Registered  bool    `json:"registered"`
	Enabled     bool    `json:"enabled"`
	Started     bool    `json:"started"`
	Done        bool    `json:"done"`
	AWM         int     `json:"awm"`
	CPS         float32 `json:"cps"`
	Cycles      int     `json:"cycles"`
	CycleTimeUS int     `json:"cycle_time_us"`
	HookFaults  int     `json:"hook_faults"`
}

// Context is a local execution context: it implements Client and drives a
// Workload through the lifecycle on its own goroutine once started.
type Context struct {
	name         string
	recipe       string
	excID        int
	workload     Workload
	manager      Manager
	logger       *slog.Logger
	onTransition func(from, to State)
	idle         time.Duration

	releaseRequested atomic.Bool
	wake             chan struct{}

	mu         sync.Mutex
	terminated *sync.Cond
	state      State
	registered bool
	revoked    bool
	enabled    bool
	started    bool
	done       bool
	uid        int
	cps        float32
	cycleTime  time.Duration
	cycles     int
	awm        int
	hookFaults int
	cancel     context.CancelFunc
	loopDone   chan struct{}
}

// New registers a new execution context for w, governed by m.
func New(opts Options, w Workload, m Manager) (*Context, error) {
	if w == nil {
		return nil, errors.New("exc: workload is required")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return nil, status.Wrap("register", status.EXCRegistrationFailed, errors.New("missing name"))
	}
	if strings.TrimSpace(opts.Recipe) == "" {
		return nil, status.NewFault("register", status.EXCMissingRecipe)
	}
	if m == nil {
		m = StaticManager{}
	}
	idle := opts.IdleInterval
	if idle <= 0 {
		idle = defaultIdleInterval
	}

	c := &Context{
		name:         opts.Name,
		recipe:       opts.Recipe,
		excID:        int(excSeq.Add(1)),
		workload:     w,
		manager:      m,
		onTransition: opts.OnTransition,
		idle:         idle,
		wake:         make(chan struct{}, 1),
		state:        StateUnregistered,
		enabled:      !opts.Disabled,
		cps:          opts.CPS,
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With("exc", opts.Name, "exc_id", c.excID)
	} else {
		c.logger = log.WithEXC(opts.Name, c.excID)
	}
	c.terminated = sync.NewCond(&c.mu)

	c.mu.Lock()
	c.registered = true
	_ = c.setStateLocked(StateRegistered)
	c.mu.Unlock()

	c.logger.Info("execution context registered", "recipe", opts.Recipe)
	return c, nil
}

func (c *Context) IsRegistered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

// Start launches the control loop.
func (c *Context) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.registered:
		return status.NewFault("start", status.EXCNotRegistered)
	case c.started || c.state.Terminal():
		return status.NewFault("start", status.EXCDuplicate)
	case !c.enabled:
		return status.NewFault("start", status.EXCNotEnabled)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.started = true
	c.cancel = cancel
	c.loopDone = make(chan struct{})
	go c.run(loopCtx)

	c.logger.Info("execution context started")
	return nil
}

// WaitCompletion blocks until the context is terminated.
func (c *Context) WaitCompletion() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started && !c.state.Terminal() {
		return status.NewFault("wait_completion", status.EXCNotStarted)
	}
	for !c.state.Terminal() {
		c.terminated.Wait()
	}
	return nil
}

// Terminate requests the release of the context. A context that was never
// started is terminated immediately since no hook has run yet.
func (c *Context) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.revoked {
		return status.NewFault("terminate", status.RegistrationLost)
	}
	if c.state.Terminal() {
		return nil
	}
	if !c.started {
		c.registered = false
		return c.setStateLocked(StateTerminated)
	}
	c.RequestTermination()
	return nil
}

// RequestTermination marks the context for release at the next cycle
// boundary. It takes no lock and is safe to call from inside a hook.
func (c *Context) RequestTermination() {
	c.releaseRequested.Store(true)
	c.signal()
}

func (c *Context) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered || c.state.Terminal() {
		return status.NewFault("enable", status.EXCEnableFailed)
	}
	c.enabled = true
	c.signal()
	return nil
}

func (c *Context) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered || c.state.Terminal() {
		return status.NewFault("disable", status.EXCDisableFailed)
	}
	c.enabled = false
	return nil
}

func (c *Context) UniqueID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

// SetCPS sets the cycles-per-second target. Zero disables pacing.
func (c *Context) SetCPS(cps float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered {
		return status.NewFault("set_cps", status.EXCNotRegistered)
	}
	if cps < 0 || math.IsNaN(float64(cps)) || math.IsInf(float64(cps), 0) {
		return status.Wrap("set_cps", status.Error, fmt.Errorf("invalid rate %v", cps))
	}
	c.cps = cps
	return nil
}

func (c *Context) CycleTimeMicros() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.cycleTime / time.Microsecond)
}

func (c *Context) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

func (c *Context) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Context) CurrentAWM() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awm
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Revoke drops the registration as the manager would when it loses track of
// the EXC. The running loop is asked to release.
func (c *Context) Revoke() {
	c.mu.Lock()
	c.registered = false
	c.revoked = true
	c.mu.Unlock()
	c.logger.Warn("execution context registration lost")
	c.RequestTermination()
}

// Close terminates the context and waits for the control loop to finish. If
// ctx expires first the loop is cancelled and still runs OnRelease.
func (c *Context) Close(ctx context.Context) error {
	c.RequestTermination()

	c.mu.Lock()
	cancel, loopDone := c.cancel, c.loopDone
	if !c.started && !c.state.Terminal() {
		c.registered = false
		_ = c.setStateLocked(StateTerminated)
	}
	c.mu.Unlock()

	if loopDone == nil {
		return nil
	}
	select {
	case <-loopDone:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-loopDone
		return ctx.Err()
	}
}

// Snapshot returns a consistent copy of the context's state.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Name:        c.name,
		Recipe:      c.recipe,
		ExcID:       c.excID,
		UID:         c.uid,
		State:       c.state.String(),
		Registered:  c.registered,
		Enabled:     c.enabled,
		Started:     c.started,
		Done:        c.done,
		AWM:         c.awm,
		CPS:         c.cps,
		Cycles:      c.cycles,
		CycleTimeUS: int(c.cycleTime / time.Microsecond),
		HookFaults:  c.hookFaults,
	}
}

func (c *Context) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Context) setStateLocked(to State) error {
	from := c.state
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		c.logger.Error("illegal lifecycle transition", "from", from.String(), "to", to.String())
		return fmt.Errorf("exc: illegal transition %s -> %s", from, to)
	}
	c.state = to
	switch to {
	case StateDone:
		c.done = true
	case StateTerminated:
		c.done = true
		c.terminated.Broadcast()
	}
	c.logger.Debug("lifecycle transition", "from", from.String(), "to", to.String())
	if c.onTransition != nil {
		c.onTransition(from, to)
	}
	return nil
}

var _ Client = (*Context)(nil)
