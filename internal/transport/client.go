package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/mattjoyce/excbridge/internal/protocol"
)

// ErrClientClosed is returned for requests on a closed or broken client.
var ErrClientClosed = errors.New("transport: client closed")

// Client sends commands over the socket and matches replies to requests by
// a per-request correlation token.
type Client struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan protocol.Reply
	err     error
	done    chan struct{}
}

// Dial connects to the bridge socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[string]chan protocol.Reply),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Do sends one command and waits for its reply. Reserved and unknown
// opcodes never reply, so Do returns ctx.Err() for them.
func (c *Client) Do(ctx context.Context, op protocol.Opcode, arg string) (protocol.Reply, error) {
	token := uuid.NewString()
	ch := make(chan protocol.Reply, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return protocol.Reply{}, c.err
	}
	c.pending[token] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, token)
		c.mu.Unlock()
	}()

	if err := c.write(op, arg, token); err != nil {
		return protocol.Reply{}, err
	}

	select {
	case r := <-ch:
		return r, nil
	case <-c.done:
		return protocol.Reply{}, c.closedErr()
	case <-ctx.Done():
		return protocol.Reply{}, ctx.Err()
	}
}

// Send submits a command without a reply destination.
func (c *Client) Send(op protocol.Opcode, arg string) error {
	return c.write(op, arg, "")
}

// Close closes the connection; outstanding Do calls fail.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) write(op protocol.Opcode, arg, token string) error {
	f := &protocol.Frame{Opcode: op, ReplyTo: token}
	if arg != "" {
		raw, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("encode arg: %w", err)
		}
		f.Arg = raw
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.EncodeFrame(c.conn, f); err != nil {
		return fmt.Errorf("send %s: %w", op, err)
	}
	return nil
}

func (c *Client) readLoop() {
	rr := protocol.NewReplyReader(c.conn)
	for {
		r, err := rr.Next()
		if err != nil {
			c.mu.Lock()
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.err = ErrClientClosed
			} else {
				c.err = fmt.Errorf("%w: %v", ErrClientClosed, err)
			}
			c.mu.Unlock()
			close(c.done)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[r.Correlation]
		c.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case ch <- *r:
		default:
		}
	}
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
