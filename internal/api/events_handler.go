package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/excbridge/internal/events"
)

// handleEvents handles GET /events as a server-sent event stream. A client
// reconnecting with Last-Event-ID first receives what it missed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	// The stream outlives the server's WriteTimeout.
	_ = rc.SetWriteDeadline(time.Time{})
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Debug("sse flush unsupported", "error", err)
		return
	}

	since := parseEventID(r.Header.Get("Last-Event-ID"))
	s.streamEvents(r.Context(), since, sseSink{w: w, rc: rc})
}

type sseSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s sseSink) send(ev events.Event) error {
	// Payloads are single-line JSON, so one data: line suffices.
	frame := fmt.Sprintf("id: %d\n", ev.ID)
	if ev.Type != "" {
		frame += "event: " + ev.Type + "\n"
	}
	frame += "data: " + string(ev.Data) + "\n\n"
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s sseSink) idle() error {
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// parseEventID reads a resume point; anything unparsable means "from the
// start of the buffer".
func parseEventID(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
