package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mattjoyce/excbridge/internal/log"
)

// ForwarderOptions configures a Forwarder.
type ForwarderOptions struct {
	URL     string
	Timeout time.Duration
	Buffer  int
	// Secret signs each body; see Sign.
	Secret string
	// MaxFailures consecutive failed posts open the breaker.
	MaxFailures uint32
	// ResetAfter is how long the breaker stays open before a trial post.
	ResetAfter time.Duration
	Client     *http.Client
	Logger     *slog.Logger
}

// ForwarderStats counts forwarding outcomes.
type ForwarderStats struct {
	Sent     int64  `json:"sent"`
	Failed   int64  `json:"failed"`
	Rejected int64  `json:"rejected"`
	Dropped  int64  `json:"dropped"`
	Breaker  string `json:"breaker"`
}

// Forwarder POSTs each notification as JSON to a remote receiver. Posts are
// never retried; a circuit breaker stops posting while the receiver is down.
type Forwarder struct {
	url     string
	secret  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	sent, failed, rejected, dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	queue  chan Notification
	done   chan struct{}
}

// NewForwarder validates opts and starts the delivery goroutine.
func NewForwarder(opts ForwarderOptions) (*Forwarder, error) {
	if opts.URL == "" {
		return nil, errors.New("events: forward url is empty")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.ResetAfter <= 0 {
		opts.ResetAfter = 30 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = log.WithComponent("forwarder")
	}

	f := &Forwarder{
		url:    opts.URL,
		secret: opts.Secret,
		client: opts.Client,
		logger: opts.Logger,
		queue:  make(chan Notification, opts.Buffer),
		done:   make(chan struct{}),
	}
	maxFailures := opts.MaxFailures
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "event-forwarder",
		MaxRequests: 1,
		Timeout:     opts.ResetAfter,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("forwarder breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	go f.deliver(opts.Timeout)
	return f, nil
}

func (f *Forwarder) Emit(n Notification) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.queue <- n:
	default:
		f.dropped.Add(1)
	}
}

// Stats returns a snapshot of the forwarding counters.
func (f *Forwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Sent:     f.sent.Load(),
		Failed:   f.failed.Load(),
		Rejected: f.rejected.Load(),
		Dropped:  f.dropped.Load(),
		Breaker:  f.breaker.State().String(),
	}
}

// Close stops accepting notifications and waits for queued posts.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()
	<-f.done
	return nil
}

func (f *Forwarder) deliver(timeout time.Duration) {
	defer close(f.done)
	for n := range f.queue {
		_, err := f.breaker.Execute(func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return nil, f.post(ctx, n)
		})
		switch {
		case err == nil:
			f.sent.Add(1)
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			f.rejected.Add(1)
		default:
			f.failed.Add(1)
			f.logger.Debug("forward failed", "debug_tag", n.DebugTag, "error", err)
		}
	}
}

func (f *Forwarder) post(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, f.secret))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post notification: receiver returned %s", resp.Status)
	}
	return nil
}
