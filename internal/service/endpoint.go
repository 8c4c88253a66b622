package service

import "github.com/mattjoyce/excbridge/internal/protocol"

// Endpoint is the handle bound clients send commands through.
type Endpoint struct {
	front *Front
}

// Send enqueues cmd for dispatch. The reply, if any, arrives on
// cmd.ReplyTo. Send fails with ErrNotRunning after Stop and ErrMailboxFull
// when the dispatcher is saturated.
func (e *Endpoint) Send(cmd protocol.Command) error {
	return e.front.submit(cmd)
}
