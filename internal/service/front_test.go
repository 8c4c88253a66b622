package service

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc/mocks"
	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/protocol"
	"github.com/mattjoyce/excbridge/internal/reply"
	"github.com/mattjoyce/excbridge/internal/status"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	os.Exit(m.Run())
}

type tagSink struct {
	mu   sync.Mutex
	tags []string
}

func (s *tagSink) Emit(n events.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append(s.tags, n.DebugTag)
}

func (s *tagSink) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tags...)
}

func call(t *testing.T, ep *Endpoint, op protocol.Opcode, arg string) protocol.Reply {
	t.Helper()
	ch := reply.NewChan(1)
	require.NoError(t, ep.Send(protocol.Command{Opcode: op, Arg: arg, ReplyTo: ch}))
	select {
	case r := <-ch.C():
		return r
	case <-time.After(5 * time.Second):
		t.Fatalf("no reply for %s", op)
		return protocol.Reply{}
	}
}

func newRunningFront(t *testing.T, opts Options) *Front {
	t.Helper()
	f, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.Shutdown(ctx)
	})
	return f
}

func TestNewRequiresRecipe(t *testing.T) {
	_, err := New(Options{AppName: "demo"})
	require.Error(t, err)
	assert.Equal(t, status.EXCMissingRecipe, status.Of(err))
}

func TestBindReturnsSameEndpoint(t *testing.T) {
	f := newRunningFront(t, Options{AppName: "demo", Recipe: "r"})

	a, err := f.Bind()
	require.NoError(t, err)
	b, err := f.Bind()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 2, f.Bindings())

	f.Unbind()
	f.Unbind()
	f.Unbind()
	assert.Equal(t, 0, f.Bindings())
}

func TestLifecycleThroughEndpoint(t *testing.T) {
	sink := &tagSink{}
	f := newRunningFront(t, Options{AppName: "demo", Recipe: "r", AWM: 2, MaxCycles: 3, Sink: sink})
	ep, err := f.Bind()
	require.NoError(t, err)

	assert.Equal(t, "true", call(t, ep, protocol.OpIsRegistered, "").Value.String())
	assert.Equal(t, "0", call(t, ep, protocol.OpGetUID, "").Value.String(), "uid is zero before setup")
	assert.Equal(t, status.OK, call(t, ep, protocol.OpStart, "").Status)
	assert.Equal(t, status.OK, call(t, ep, protocol.OpWaitCompletion, "").Status)

	assert.Equal(t, "true", call(t, ep, protocol.OpDone, "").Value.String())
	assert.Equal(t, "3", call(t, ep, protocol.OpCycles, "").Value.String())
	assert.Equal(t, "2", call(t, ep, protocol.OpCurrentAWM, "").Value.String())
	assert.NotEqual(t, "0", call(t, ep, protocol.OpGetUID, "").Value.String())
	assert.Equal(t, status.OK, call(t, ep, protocol.OpTerminate, "").Status)

	tags := sink.Tags()
	assert.Contains(t, tags, "onSetup called")
	assert.Contains(t, tags, "onConfigure called")
	assert.Contains(t, tags, "state RUNNING -> DONE")
	assert.Equal(t, "state RELEASING -> TERMINATED", tags[len(tags)-1])

	var runs int
	for _, tag := range tags {
		if strings.HasPrefix(tag, "onRun") {
			runs++
		}
	}
	assert.Equal(t, 3, runs)

	snap, ok := f.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "TERMINATED", snap.State)
	assert.Equal(t, int64(1), f.Stats().Opcodes["START"].OK)
}

func TestSetCPSThroughEndpoint(t *testing.T) {
	f := newRunningFront(t, Options{AppName: "demo", Recipe: "r"})
	ep, err := f.Bind()
	require.NoError(t, err)

	assert.Equal(t, status.OK, call(t, ep, protocol.OpSetCPS, "12.5").Status)
	assert.Equal(t, status.ArgParseFailed, call(t, ep, protocol.OpSetCPS, "fast").Status)
	assert.Equal(t, status.Error, call(t, ep, protocol.OpSetCPS, "-3").Status)

	snap, _ := f.Snapshot()
	assert.Equal(t, float32(12.5), snap.CPS)
}

func TestShutdownReleasesBlockedWait(t *testing.T) {
	f, err := New(Options{AppName: "demo", Recipe: "r"})
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	ep, err := f.Bind()
	require.NoError(t, err)

	require.Equal(t, status.OK, call(t, ep, protocol.OpStart, "").Status)

	waitCh := reply.NewChan(1)
	require.NoError(t, ep.Send(protocol.Command{Opcode: protocol.OpWaitCompletion, ReplyTo: waitCh}))
	require.Eventually(t, func() bool {
		return f.Stats().Opcodes["WAIT_COMPLETION"].Received == 1
	}, 2*time.Second, time.Millisecond, "WAIT_COMPLETION should be in flight")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.Shutdown(ctx))

	select {
	case r := <-waitCh.C():
		assert.Equal(t, status.OK, r.Status)
	case <-time.After(time.Second):
		t.Fatal("WAIT_COMPLETION never replied")
	}

	assert.ErrorIs(t, ep.Send(protocol.Command{Opcode: protocol.OpCycles}), ErrNotRunning)
	_, err = f.Bind()
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, f.Running())
}

func TestSendMailboxFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Not started: nothing drains the mailbox, so the client is never called.
	f := NewWithClient(mocks.NewMockClient(ctrl), 1)
	ep, err := f.Bind()
	require.NoError(t, err)

	require.NoError(t, ep.Send(protocol.Command{Opcode: protocol.OpCycles}))
	assert.ErrorIs(t, ep.Send(protocol.Command{Opcode: protocol.OpCycles}), ErrMailboxFull)

	_, ok := f.Snapshot()
	assert.False(t, ok)
}

func TestStartTwice(t *testing.T) {
	f := newRunningFront(t, Options{AppName: "demo", Recipe: "r"})
	assert.ErrorIs(t, f.Start(context.Background()), ErrAlreadyStarted)
}
