package workload

import (
	"fmt"
	"sync"

	"github.com/mattjoyce/excbridge/internal/exc"
)

// Recorder wraps a workload and records the order hooks were called in.
// A nil Inner records only.
type Recorder struct {
	Inner exc.Workload

	mu    sync.Mutex
	calls []string
}

func (r *Recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

// Calls returns a copy of the recorded hook names.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Recorder) OnSetup() error {
	r.record("onSetup")
	if r.Inner == nil {
		return nil
	}
	return r.Inner.OnSetup()
}

func (r *Recorder) OnConfigure(awm int) error {
	r.record(fmt.Sprintf("onConfigure(%d)", awm))
	if r.Inner == nil {
		return nil
	}
	return r.Inner.OnConfigure(awm)
}

func (r *Recorder) OnSuspend() error {
	r.record("onSuspend")
	if r.Inner == nil {
		return nil
	}
	return r.Inner.OnSuspend()
}

func (r *Recorder) OnResume() error {
	r.record("onResume")
	if r.Inner == nil {
		return nil
	}
	return r.Inner.OnResume()
}

func (r *Recorder) OnRun() error {
	r.record("onRun")
	if r.Inner == nil {
		return nil
	}
	return r.Inner.OnRun()
}

func (r *Recorder) OnMonitor() error {
	r.record("onMonitor")
	if r.Inner == nil {
		return nil
	}
	return r.Inner.OnMonitor()
}

func (r *Recorder) OnRelease() error {
	r.record("onRelease")
	if r.Inner == nil {
		return nil
	}
	return r.Inner.OnRelease()
}

var _ exc.Workload = (*Recorder)(nil)
