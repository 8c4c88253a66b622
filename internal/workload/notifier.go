// Package workload provides the hook implementations driven by an
// execution context's control loop.
package workload

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc"
	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/status"
)

// Notifier is the service workload. Every hook reports "<hook> called" to
// the sink; OnRun optionally does real work through Body.
//
// Hooks are invoked one at a time by the control loop, so the cycle counter
// needs no locking of its own.
type Notifier struct {
	appName string
	origin  time.Time
	sink    events.Sink
	logger  *slog.Logger

	// Body runs inside OnRun after the notification.
	Body func() error
	// MaxCycles makes the MaxCycles-th OnRun report EXC_WORKLOAD_NONE.
	// Zero runs forever.
	MaxCycles int
	// Terminate is called as the last action of OnRelease. It must not take
	// the execution context lock; exc.Context.RequestTermination qualifies.
	Terminate func()

	runs int
}

// NewNotifier returns a workload reporting to sink. Elapsed times are
// measured from origin, normally the service start.
func NewNotifier(appName string, sink events.Sink, origin time.Time) *Notifier {
	if sink == nil {
		sink = events.Discard
	}
	return &Notifier{
		appName: appName,
		origin:  origin,
		sink:    sink,
		logger:  log.WithComponent("workload").With("app_name", appName),
	}
}

func (n *Notifier) notify(hook string) {
	tag := hook + " called"
	n.logger.Debug(tag)
	n.sink.Emit(events.NewNotification(n.appName, tag, n.origin))
}

func (n *Notifier) OnSetup() error {
	n.notify("onSetup")
	return nil
}

func (n *Notifier) OnConfigure(awm int) error {
	n.notify("onConfigure")
	n.logger.Debug("working mode assigned", "awm", awm)
	return nil
}

func (n *Notifier) OnSuspend() error {
	n.notify("onSuspend")
	return nil
}

func (n *Notifier) OnResume() error {
	n.notify("onResume")
	return nil
}

func (n *Notifier) OnRun() error {
	n.notify("onRun")
	n.runs++
	if n.Body != nil {
		if err := n.Body(); err != nil {
			return fmt.Errorf("workload body: %w", err)
		}
	}
	if n.MaxCycles > 0 && n.runs >= n.MaxCycles {
		return status.NewFault("onRun", status.EXCWorkloadNone)
	}
	return nil
}

func (n *Notifier) OnMonitor() error {
	n.notify("onMonitor")
	return nil
}

func (n *Notifier) OnRelease() error {
	n.notify("onRelease")
	if n.Terminate != nil {
		n.Terminate()
	}
	return nil
}

var _ exc.Workload = (*Notifier)(nil)
