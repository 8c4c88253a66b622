package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRingKeepsNewest(t *testing.T) {
	h := NewHub(3)
	for i := 0; i < 5; i++ {
		h.Emit(Notification{DebugTag: "onRun called", ElapsedMillis: int64(i), AppName: "app"})
	}

	snap := h.SnapshotSince(0)
	require.Len(t, snap, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{snap[0].ID, snap[1].ID, snap[2].ID})

	var n Notification
	require.NoError(t, json.Unmarshal(snap[2].Data, &n))
	assert.Equal(t, int64(4), n.ElapsedMillis)
	assert.Equal(t, LifecycleEvent, snap[2].Type)

	assert.Len(t, h.SnapshotSince(4), 1)
}

func TestHubSubscribe(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()

	h.Emit(Notification{DebugTag: "onSetup called"})
	select {
	case ev := <-ch:
		assert.Equal(t, int64(1), ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok, "channel closed after cancel")

	// Publishing with no subscribers is fine.
	h.Emit(Notification{DebugTag: "onRelease called"})
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(10)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			h.Emit(Notification{DebugTag: "onRun called"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	assert.Positive(t, h.Dropped())
}

func TestFanout(t *testing.T) {
	var got []string
	a := SinkFunc(func(n Notification) { got = append(got, "a:"+n.DebugTag) })
	b := SinkFunc(func(n Notification) { got = append(got, "b:"+n.DebugTag) })

	Fanout{a, nil, b}.Emit(Notification{DebugTag: "x"})
	assert.Equal(t, []string{"a:x", "b:x"}, got)

	Discard.Emit(Notification{})
}

func TestNewNotification(t *testing.T) {
	origin := time.Now().Add(-1500 * time.Millisecond)
	n := NewNotification("svc", "onMonitor called", origin)
	assert.Equal(t, "svc", n.AppName)
	assert.Equal(t, "onMonitor called", n.DebugTag)
	assert.GreaterOrEqual(t, n.ElapsedMillis, int64(1500))
}
