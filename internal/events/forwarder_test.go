package events

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwarderPostsNotifications(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Notification
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var n Notification
		if err := json.NewDecoder(r.Body).Decode(&n); err == nil {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f, err := NewForwarder(ForwarderOptions{URL: srv.URL})
	require.NoError(t, err)

	f.Emit(Notification{DebugTag: "onSetup called", AppName: "svc", ElapsedMillis: 3})
	f.Emit(Notification{DebugTag: "onRun called", AppName: "svc", ElapsedMillis: 9})
	require.NoError(t, f.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "onRun called", got[1].DebugTag)
	assert.Equal(t, int64(2), f.Stats().Sent)
}

func TestForwarderBreakerOpens(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, err := NewForwarder(ForwarderOptions{URL: srv.URL, MaxFailures: 2, ResetAfter: time.Hour})
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		f.Emit(Notification{DebugTag: "onRun called"})
	}
	require.NoError(t, f.Close())

	stats := f.Stats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(4), stats.Rejected)
	assert.Equal(t, "open", stats.Breaker)
	mu.Lock()
	assert.Equal(t, 2, calls, "no posts while the breaker is open")
	mu.Unlock()
}

func TestForwarderSignsBodies(t *testing.T) {
	verified := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		verified <- VerifySignature(body, r.Header.Get(SignatureHeader), "s3cret")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f, err := NewForwarder(ForwarderOptions{URL: srv.URL, Secret: "s3cret"})
	require.NoError(t, err)
	f.Emit(Notification{DebugTag: "onSetup called", AppName: "svc"})
	require.NoError(t, f.Close())

	require.NoError(t, <-verified)
}

func TestForwarderRequiresURL(t *testing.T) {
	_, err := NewForwarder(ForwarderOptions{})
	assert.Error(t, err)
}

func TestForwarderEmitAfterClose(t *testing.T) {
	f, err := NewForwarder(ForwarderOptions{URL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f.Emit(Notification{DebugTag: "late"})
	assert.Zero(t, f.Stats().Dropped)
}
