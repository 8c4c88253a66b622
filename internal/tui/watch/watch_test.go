package watch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc"
)

func lifecycleEvent(t *testing.T, id int64, tag string) events.Event {
	t.Helper()
	data, err := json.Marshal(events.Notification{AppName: "demo", DebugTag: tag, ElapsedMillis: 5})
	require.NoError(t, err)
	return events.Event{ID: id, Type: events.LifecycleEvent, At: time.Now(), Data: data}
}

func TestStreamURL(t *testing.T) {
	got, err := streamURL("http://127.0.0.1:8787/", 0)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8787/events/ws", got)

	got, err = streamURL("https://bridge.example", 42)
	require.NoError(t, err)
	assert.Equal(t, "wss://bridge.example/events/ws?since=42", got)

	_, err = streamURL("ftp://bridge.example", 0)
	assert.Error(t, err)
}

func TestSubscribeToEvents(t *testing.T) {
	var upgrader websocket.Upgrader
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		assert.Equal(t, "3", r.URL.Query().Get("since"))
		_ = conn.WriteJSON(lifecycleEvent(t, 4, "onSetup called"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(lifecycleEvent(t, 5, "onRun called"))
	}))
	defer ts.Close()

	ch := make(chan events.Event, 4)
	msg := subscribeToEvents(ts.URL, "k", 3, ch)()
	assert.IsType(t, streamClosedMsg{}, msg)
	close(ch)

	var got []events.Event
	for e := range ch {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].ID)
	assert.Equal(t, events.LifecycleEvent, got[1].Type)
	assert.JSONEq(t, `{"debug_tag":"onRun called","elapsed_ms":5,"app_name":"demo"}`, string(got[1].Data))

	_, ok := subscribeToEvents(ts.URL, "wrong", 0, make(chan events.Event, 1))().(errMsg)
	assert.True(t, ok)
}

func TestEXCStateTallies(t *testing.T) {
	s := newEXCState()
	s.apply(lifecycleEvent(t, 1, "onSetup called"))
	s.apply(lifecycleEvent(t, 2, "onRun called"))
	s.apply(lifecycleEvent(t, 3, "onRun called"))
	s.apply(events.Event{Type: "other", Data: json.RawMessage(`{}`)})
	for i := 0; i < maxTransitions+2; i++ {
		s.apply(lifecycleEvent(t, int64(10+i), "state RUNNING -> SUSPENDED"))
	}

	assert.Equal(t, 1, s.Hooks["onSetup"])
	assert.Equal(t, 2, s.Hooks["onRun"])
	assert.Len(t, s.Transitions, maxTransitions)
	assert.Equal(t, "RUNNING -> SUSPENDED", s.Transitions[0])
}

func TestModelUpdateAndView(t *testing.T) {
	m := *New("http://unused", "")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Contains(t, m.View(), "Waiting for snapshot")

	next, _ = m.Update(eventMsg(lifecycleEvent(t, 7, "onConfigure called")))
	m = next.(Model)
	assert.Equal(t, int64(7), m.lastID)
	assert.Equal(t, 1, m.exc.Hooks["onConfigure"])

	next, _ = m.Update(snapshotMsg(exc.Snapshot{Name: "demo", Recipe: "r", State: "RUNNING", Cycles: 12}))
	m = next.(Model)
	next, _ = m.Update(healthMsg{Status: "ok", Bindings: 2, Fingerprint: "abcdef"})
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "EXCBRIDGE WATCH")
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "cycles 12")
	assert.Contains(t, view, "onConfigure called")
}

func TestFetchSnapshot(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(exc.Snapshot{Name: "demo", State: "DONE", Done: true})
	}))
	defer ts.Close()

	msg := fetchSnapshot(ts.URL, "k")
	snap, ok := msg.(snapshotMsg)
	require.True(t, ok, "%T", msg)
	assert.Equal(t, "DONE", snap.State)
	assert.True(t, snap.Done)

	_, ok = fetchSnapshot(ts.URL, "wrong").(snapshotErrMsg)
	assert.True(t, ok)
}

func TestActivityFades(t *testing.T) {
	var a Activity
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, 0, a.Level(now))

	a.Mark(now)
	assert.Equal(t, activityDots, a.Level(now))
	assert.Equal(t, activityDots-1, a.Level(now.Add(activityFade)))
	assert.Equal(t, 0, a.Level(now.Add(time.Minute)))
	assert.Equal(t, now, a.Last())
}

func TestRateMeter(t *testing.T) {
	var r RateMeter
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r.Observe(0, start)
	assert.Zero(t, r.Current())
	assert.Empty(t, r.Sparkline())

	r.Observe(10, start.Add(time.Second))
	r.Observe(15, start.Add(2*time.Second))
	assert.InDelta(t, 5.0, r.Current(), 0.001)
	assert.Equal(t, "█▄", r.Sparkline())

	// A restarted run resets the counter without producing a negative rate.
	r.Observe(2, start.Add(3*time.Second))
	assert.Len(t, r.samples, 2)
	r.Observe(4, start.Add(4*time.Second))
	assert.InDelta(t, 2.0, r.Current(), 0.001)

	for i := range rateSamples + 5 {
		r.Observe(10*(i+1), start.Add(time.Duration(5+i)*time.Second))
	}
	assert.Len(t, r.samples, rateSamples)
}

func TestModelTracksRate(t *testing.T) {
	m := *New("http://unused", "")
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return clock }

	next, _ := m.Update(snapshotMsg(exc.Snapshot{State: "RUNNING", Cycles: 0}))
	m = next.(Model)
	clock = clock.Add(2 * time.Second)
	next, _ = m.Update(snapshotMsg(exc.Snapshot{State: "RUNNING", Cycles: 20}))
	m = next.(Model)

	assert.InDelta(t, 10.0, m.rate.Current(), 0.001)
	next, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Contains(t, m.View(), "10.0/s")
}
