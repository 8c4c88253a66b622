package api

import (
	"context"
	"time"

	"github.com/mattjoyce/excbridge/internal/events"
)

const streamKeepAlive = 15 * time.Second

// eventSink is one streaming transport: server-sent events or a websocket.
type eventSink interface {
	send(ev events.Event) error
	// idle is called when nothing has been sent for streamKeepAlive.
	idle() error
}

// streamEvents replays buffered events after since and then follows the
// hub until ctx ends or the sink fails. It subscribes before taking the
// replay so nothing published in between is lost; IDs at or below the last
// replayed one are dropped from the live feed.
func (s *Server) streamEvents(ctx context.Context, since int64, sink eventSink) {
	live, cancel := s.hub.Subscribe()
	defer cancel()

	last := since
	for _, ev := range s.hub.SnapshotSince(since) {
		if err := sink.send(ev); err != nil {
			return
		}
		last = ev.ID
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-live:
			if !ok {
				return
			}
			if ev.ID <= last {
				continue
			}
			if err := sink.send(ev); err != nil {
				return
			}
			last = ev.ID
			keepAlive.Reset(streamKeepAlive)
		case <-keepAlive.C:
			if err := sink.idle(); err != nil {
				return
			}
		}
	}
}
