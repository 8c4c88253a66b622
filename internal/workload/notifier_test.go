package workload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc"
	"github.com/mattjoyce/excbridge/internal/status"
)

type collectSink struct {
	mu   sync.Mutex
	tags []string
	last events.Notification
}

func (s *collectSink) Emit(n events.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append(s.tags, n.DebugTag)
	s.last = n
}

func (s *collectSink) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tags...)
}

func TestNotifierEmitsOnePerHook(t *testing.T) {
	sink := &collectSink{}
	n := NewNotifier("demo", sink, time.Now())

	require.NoError(t, n.OnSetup())
	require.NoError(t, n.OnConfigure(2))
	require.NoError(t, n.OnSuspend())
	require.NoError(t, n.OnResume())
	require.NoError(t, n.OnRun())
	require.NoError(t, n.OnMonitor())
	require.NoError(t, n.OnRelease())

	assert.Equal(t, []string{
		"onSetup called", "onConfigure called", "onSuspend called", "onResume called",
		"onRun called", "onMonitor called", "onRelease called",
	}, sink.Tags())
	assert.Equal(t, "demo", sink.last.AppName)
}

func TestNotifierReleaseTerminatesLast(t *testing.T) {
	sink := &collectSink{}
	n := NewNotifier("demo", sink, time.Now())
	var tagsAtTerminate []string
	n.Terminate = func() { tagsAtTerminate = sink.Tags() }

	require.NoError(t, n.OnRelease())
	assert.Equal(t, []string{"onRelease called"}, tagsAtTerminate)
}

func TestNotifierMaxCycles(t *testing.T) {
	n := NewNotifier("demo", nil, time.Now())
	n.MaxCycles = 2

	assert.NoError(t, n.OnRun())
	assert.Equal(t, status.EXCWorkloadNone, status.Of(n.OnRun()))
}

func TestNotifierBodyFault(t *testing.T) {
	n := NewNotifier("demo", nil, time.Now())
	boom := errors.New("boom")
	n.Body = func() error { return boom }

	assert.ErrorIs(t, n.OnRun(), boom)
}

func TestNotifierDrivenByContext(t *testing.T) {
	sink := &collectSink{}
	n := NewNotifier("demo", sink, time.Now())
	n.MaxCycles = 2
	rec := &Recorder{Inner: n}

	c, err := exc.New(exc.Options{Name: "demo", Recipe: "r", IdleInterval: time.Millisecond}, rec, exc.StaticManager{AWM: 1})
	require.NoError(t, err)
	n.Terminate = c.RequestTermination
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	require.NoError(t, c.Start())
	require.NoError(t, c.WaitCompletion())

	assert.Equal(t, []string{
		"onSetup", "onConfigure(1)", "onRun", "onMonitor", "onRun", "onMonitor", "onRelease",
	}, rec.Calls())
	tags := sink.Tags()
	assert.Equal(t, "onRelease called", tags[len(tags)-1])
	assert.Equal(t, 2, c.Cycles())
}
