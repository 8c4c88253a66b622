// Package reply provides ReplyChannel implementations: the opaque
// destinations a caller attaches to a command.
package reply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mattjoyce/excbridge/internal/protocol"
)

var (
	ErrClosed = errors.New("reply: channel closed")
	ErrFull   = errors.New("reply: channel full")
)

// Func adapts a function to protocol.ReplyChannel.
type Func func(ctx context.Context, r protocol.Reply) error

func (f Func) Send(ctx context.Context, r protocol.Reply) error { return f(ctx, r) }

// Chan delivers replies to an in-process Go channel. Sending never blocks: a
// full buffer or a closed Chan is a delivery failure for that reply only.
type Chan struct {
	mu     sync.Mutex
	ch     chan protocol.Reply
	closed bool
}

// NewChan returns a Chan buffering up to size replies.
func NewChan(size int) *Chan {
	if size <= 0 {
		size = 1
	}
	return &Chan{ch: make(chan protocol.Reply, size)}
}

// C returns the receive side.
func (c *Chan) C() <-chan protocol.Reply { return c.ch }

func (c *Chan) Send(ctx context.Context, r protocol.Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

// Close marks the channel gone; later sends fail with ErrClosed.
func (c *Chan) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// DefaultWriteTimeout bounds a single reply write on a stream.
const DefaultWriteTimeout = 2 * time.Second

type deadlineSetter interface {
	SetWriteDeadline(t time.Time) error
}

// Stream is one connection shared by every Conn replying on it. Writes are
// serialized and, when the writer supports deadlines, bounded by the stream
// timeout. The first failed write breaks the stream: the writer is closed
// and every later reply fails with ErrClosed.
type Stream struct {
	mu      sync.Mutex
	w       io.Writer
	timeout time.Duration
	err     error
}

// NewStream wraps w. A timeout <= 0 means DefaultWriteTimeout.
func NewStream(w io.Writer, timeout time.Duration) *Stream {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Stream{w: w, timeout: timeout}
}

// Conn returns a reply destination on s tagged with token.
func (s *Stream) Conn(token string) *Conn {
	return &Conn{stream: s, token: token}
}

// Err reports why the stream broke, or nil.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) write(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return ErrClosed
	}
	if d, ok := s.w.(deadlineSetter); ok {
		deadline := time.Now().Add(s.timeout)
		if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
			deadline = dl
		}
		_ = d.SetWriteDeadline(deadline)
	}
	if _, err := s.w.Write(frame); err != nil {
		s.err = err
		if c, ok := s.w.(io.Closer); ok {
			_ = c.Close()
		}
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// Conn writes replies as JSON lines on a Stream, tagging each with the
// caller's correlation token.
type Conn struct {
	stream *Stream
	token  string
}

func (c *Conn) Send(ctx context.Context, r protocol.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Correlation = c.token
	var buf bytes.Buffer
	if err := protocol.EncodeReply(&buf, &r); err != nil {
		return err
	}
	return c.stream.write(ctx, buf.Bytes())
}

var (
	_ protocol.ReplyChannel = Func(nil)
	_ protocol.ReplyChannel = (*Chan)(nil)
	_ protocol.ReplyChannel = (*Conn)(nil)
)
