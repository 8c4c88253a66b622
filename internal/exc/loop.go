package exc

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattjoyce/excbridge/internal/status"
)

// run is the control loop: setup, configure, then cycles of
// [suspend/resume] run monitor until release, finished by onRelease.
func (c *Context) run(ctx context.Context) {
	defer close(c.loopDone)
	defer c.release()

	c.setup()
	if !c.configure(ctx) {
		return
	}

	for {
		if c.releaseRequested.Load() || ctx.Err() != nil {
			return
		}

		d := c.manager.Poll(ctx, c.excID)
		if d.Action == Release {
			c.logger.Info("manager requested release")
			return
		}

		ran, finished := c.cycle(d)
		if finished {
			return
		}
		if !ran {
			if !c.sleep(ctx, c.idle) {
				return
			}
			continue
		}
		if !c.pace(ctx) {
			return
		}
	}
}

func (c *Context) setup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uid = os.Getpid()<<8 | (c.excID & 0xff)
	_ = c.hook("onSetup", c.workload.OnSetup)
}

// configure waits for the manager to grant a working mode.
func (c *Context) configure(ctx context.Context) bool {
	var awm int
	for {
		var err error
		awm, err = c.manager.Assign(ctx, c.excID)
		if err == nil {
			break
		}
		c.logger.Warn("working mode assignment failed", "error", err)
		if !c.sleep(ctx, c.idle) || c.releaseRequested.Load() {
			return false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconfigureLocked(awm)
	return true
}

func (c *Context) reconfigureLocked(awm int) {
	c.awm = awm
	_ = c.hook("onConfigure", func() error { return c.workload.OnConfigure(awm) })
	_ = c.setStateLocked(StateConfigured)
}

// cycle applies d and, unless suspended or disabled, runs one
// onRun/onMonitor pair. finished is true once the workload reports it has
// nothing left to do.
func (c *Context) cycle(d Decision) (ran, finished bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch d.Action {
	case Suspend:
		if c.state == StateRunning || c.state == StateConfigured {
			_ = c.hook("onSuspend", c.workload.OnSuspend)
			_ = c.setStateLocked(StateSuspended)
		}
	case Resume:
		if c.state == StateSuspended {
			_ = c.hook("onResume", c.workload.OnResume)
			_ = c.setStateLocked(StateRunning)
		}
	case Reconfigure:
		// A suspended context takes the new mode but stays suspended; only
		// a Resume decision runs onResume and returns it to RUNNING.
		suspended := c.state == StateSuspended
		c.reconfigureLocked(d.AWM)
		if suspended {
			_ = c.setStateLocked(StateSuspended)
		}
	}

	if c.state == StateSuspended || !c.enabled {
		return false, false
	}
	if c.state == StateConfigured {
		_ = c.setStateLocked(StateRunning)
	}

	start := time.Now()
	runErr := c.hook("onRun", c.workload.OnRun)
	monErr := c.hook("onMonitor", c.workload.OnMonitor)
	c.cycleTime = time.Since(start)
	c.cycles++

	if status.Is(runErr, status.EXCWorkloadNone) || status.Is(monErr, status.EXCWorkloadNone) {
		c.logger.Info("workload completed", "cycles", c.cycles)
		_ = c.setStateLocked(StateDone)
		return true, true
	}
	return true, false
}

// pace sleeps out the remainder of the cycle period. Returns false if the
// loop was cancelled while waiting.
func (c *Context) pace(ctx context.Context) bool {
	c.mu.Lock()
	cps, elapsed := c.cps, c.cycleTime
	c.mu.Unlock()

	if cps <= 0 {
		return true
	}
	period := time.Duration(float64(time.Second) / float64(cps))
	if wait := period - elapsed; wait > 0 {
		return c.sleep(ctx, wait)
	}
	return true
}

func (c *Context) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.wake:
		return true
	case <-t.C:
		return true
	}
}

func (c *Context) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	_ = c.setStateLocked(StateReleasing)
	_ = c.hook("onRelease", c.workload.OnRelease)
	c.registered = false
	_ = c.setStateLocked(StateTerminated)
	c.logger.Info("execution context terminated", "cycles", c.cycles)
}

// hook runs one workload callback. Faults and panics are logged and counted
// but never stop the loop; EXC_WORKLOAD_NONE is passed through as a signal.
func (c *Context) hook(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = status.Wrap(name, status.Error, fmt.Errorf("panic: %v", r))
		}
		if err != nil && !status.Is(err, status.EXCWorkloadNone) {
			c.hookFaults++
			c.logger.Warn("workload hook failed", "hook", name, "error", err)
		}
	}()
	return fn()
}
