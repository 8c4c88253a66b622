// Package transport carries bridge commands over a local unix-domain
// socket as newline-delimited JSON frames.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/protocol"
	"github.com/mattjoyce/excbridge/internal/reply"
	"github.com/mattjoyce/excbridge/internal/storage"
)

const maxFrameBytes = 64 * 1024

// Sender accepts commands for dispatch; *service.Endpoint implements it.
type Sender interface {
	Send(cmd protocol.Command) error
}

// Server accepts socket connections and turns each frame into a command
// whose reply is written back on the same connection.
type Server struct {
	path   string
	sender Sender
	logger *slog.Logger

	// replyTimeout bounds each reply write; a peer that stops reading
	// loses its connection instead of stalling dispatch.
	replyTimeout time.Duration

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
	ready chan struct{}
}

// NewServer builds a server listening on path once Run is called.
func NewServer(path string, sender Sender) *Server {
	return &Server{
		path:         path,
		sender:       sender,
		logger:       log.WithComponent("transport").With("socket", path),
		replyTimeout: reply.DefaultWriteTimeout,
		conns:        make(map[net.Conn]struct{}),
		ready:        make(chan struct{}),
	}
}

// WithReplyTimeout sets the per-reply write deadline. Call before Run.
func (s *Server) WithReplyTimeout(d time.Duration) *Server {
	if d > 0 {
		s.replyTimeout = d
	}
	return s
}

// Ready is closed once the socket is listening.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Run listens until ctx is cancelled. Callers must hold the instance lock
// for path; a stale socket file left by a dead process is removed.
func (s *Server) Run(ctx context.Context) error {
	if err := storage.CheckLocalFilesystem(s.path); err != nil {
		return err
	}
	_ = os.Remove(s.path)
	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	defer func() {
		_ = os.Remove(s.path)
	}()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
		s.closeConns()
	}()

	s.logger.Info("socket listening")
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.logger.Info("socket closed")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.track(conn)
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	stream := reply.NewStream(conn, s.replyTimeout)
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxFrameBytes)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		frame, err := protocol.DecodeFrame(line)
		if err != nil {
			s.logger.Warn("malformed frame ignored", "error", err)
			continue
		}

		cmd := protocol.Command{
			Opcode: frame.Opcode,
			Arg:    frame.Payload(),
			Arg1:   frame.Arg1,
		}
		if frame.ReplyTo != "" {
			cmd.ReplyTo = stream.Conn(frame.ReplyTo)
		}
		if err := s.sender.Send(cmd); err != nil {
			// No reply channel exists for a rejected command; the caller's
			// context deadline covers it.
			s.logger.Warn("command rejected", "opcode", frame.Opcode.String(), "error", err)
		}
	}
	if err := stream.Err(); err != nil {
		s.logger.Warn("peer stopped reading replies, connection dropped", "error", err)
		return
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("connection ended", "error", err)
	}
}
