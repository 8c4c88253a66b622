// Package service is the process boundary: it owns the one execution
// context and the one dispatcher fronting it, and hands out the endpoint
// that transports submit commands through.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/excbridge/internal/dispatch"
	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc"
	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/protocol"
	"github.com/mattjoyce/excbridge/internal/workload"
)

var (
	ErrNotRunning     = errors.New("service: not running")
	ErrMailboxFull    = errors.New("service: mailbox full")
	ErrAlreadyStarted = errors.New("service: already started")
)

// Options describes the execution context the service hosts.
type Options struct {
	AppName     string
	Recipe      string
	AWM         int
	CPS         float32
	MaxCycles   int
	Disabled    bool
	MailboxSize int
	// Sink receives hook and transition notifications. Nil discards them.
	Sink    events.Sink
	Manager exc.Manager
	// Body is the real work done on every run cycle.
	Body func() error
}

// Front owns one execution context and one dispatcher.
type Front struct {
	client     exc.Client
	local      *exc.Context
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	started    time.Time

	mu       sync.Mutex
	endpoint *Endpoint
	binds    int
	running  bool
	stopped  bool
	loopDone chan struct{}
}

// New builds the service's execution context, wiring its hooks and state
// transitions to opts.Sink, and the dispatcher in front of it.
func New(opts Options) (*Front, error) {
	origin := time.Now()
	sink := opts.Sink
	if sink == nil {
		sink = events.Discard
	}
	manager := opts.Manager
	if manager == nil {
		manager = exc.StaticManager{AWM: opts.AWM}
	}

	notifier := workload.NewNotifier(opts.AppName, sink, origin)
	notifier.MaxCycles = opts.MaxCycles
	notifier.Body = opts.Body

	ctx, err := exc.New(exc.Options{
		Name:         opts.AppName,
		Recipe:       opts.Recipe,
		CPS:          opts.CPS,
		Disabled:     opts.Disabled,
		OnTransition: TransitionNotifier(opts.AppName, sink, origin),
	}, notifier, manager)
	if err != nil {
		return nil, fmt.Errorf("create execution context: %w", err)
	}
	notifier.Terminate = ctx.RequestTermination

	f := NewWithClient(ctx, opts.MailboxSize)
	f.local = ctx
	f.started = origin
	return f, nil
}

// NewWithClient fronts an existing client, e.g. a remote runtime binding.
func NewWithClient(client exc.Client, mailboxSize int) *Front {
	return &Front{
		client:     client,
		dispatcher: dispatch.New(client, mailboxSize),
		logger:     log.WithComponent("service"),
		started:    time.Now(),
	}
}

// TransitionNotifier reports each lifecycle transition to sink as
// "state FROM -> TO".
func TransitionNotifier(appName string, sink events.Sink, origin time.Time) func(from, to exc.State) {
	return func(from, to exc.State) {
		sink.Emit(events.NewNotification(appName, fmt.Sprintf("state %s -> %s", from, to), origin))
	}
}

// Start runs the dispatch loop in the background until Stop or ctx ends.
func (f *Front) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return ErrNotRunning
	}
	if f.running {
		return ErrAlreadyStarted
	}
	f.running = true
	f.loopDone = make(chan struct{})

	go func() {
		defer close(f.loopDone)
		if err := f.dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Error("dispatch loop ended", "error", err)
		}
	}()
	f.logger.Info("service started")
	return nil
}

// Stop stops accepting commands. Pending replies are not flushed.
func (f *Front) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.running = false
	f.mu.Unlock()

	f.dispatcher.Stop()
	f.logger.Info("service stopped")
}

// Shutdown stops the service and releases the execution context, waiting
// up to ctx for OnRelease to run. A command blocked in WAIT_COMPLETION is
// released by the termination.
func (f *Front) Shutdown(ctx context.Context) error {
	f.Stop()
	if f.local != nil {
		if err := f.local.Close(ctx); err != nil {
			return fmt.Errorf("close execution context: %w", err)
		}
	}

	f.mu.Lock()
	done := f.loopDone
	f.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bind returns the dispatcher endpoint. Every bind returns the same
// endpoint; bindings are counted so Unbind can be balanced.
func (f *Front) Bind() (*Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil, ErrNotRunning
	}
	if f.endpoint == nil {
		f.endpoint = &Endpoint{front: f}
	}
	f.binds++
	f.logger.Debug("endpoint bound", "bindings", f.binds)
	return f.endpoint, nil
}

// Unbind releases one binding. It never affects the execution context.
func (f *Front) Unbind() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.binds > 0 {
		f.binds--
	}
	f.logger.Debug("endpoint unbound", "bindings", f.binds)
}

// Bindings reports the current bind count.
func (f *Front) Bindings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.binds
}

// Running reports whether the dispatch loop accepts commands.
func (f *Front) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Uptime is the time since the service was built.
func (f *Front) Uptime() time.Duration { return time.Since(f.started) }

// Stats returns the dispatcher counters.
func (f *Front) Stats() dispatch.Stats { return f.dispatcher.Stats() }

// Snapshot returns the local execution context's state. ok is false when
// the service fronts an external client.
func (f *Front) Snapshot() (snap exc.Snapshot, ok bool) {
	if f.local == nil {
		return exc.Snapshot{}, false
	}
	return f.local.Snapshot(), true
}

func (f *Front) submit(cmd protocol.Command) error {
	f.mu.Lock()
	stopped := f.stopped
	f.mu.Unlock()
	if stopped {
		return ErrNotRunning
	}

	err := f.dispatcher.Submit(cmd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dispatch.ErrMailboxFull):
		return ErrMailboxFull
	case errors.Is(err, dispatch.ErrStopped):
		return ErrNotRunning
	default:
		return err
	}
}
