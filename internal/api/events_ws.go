package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mattjoyce/excbridge/internal/events"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleEventsWS handles GET /events/ws: the same events as GET /events, one
// JSON object per text frame. ?since=<id> replays buffered events after id.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	since := parseEventID(r.URL.Query().Get("since"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Clients never send data; reading only notices when they go away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.streamEvents(ctx, since, wsSink{conn})
}

type wsSink struct{ conn *websocket.Conn }

func (s wsSink) send(ev events.Event) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(ev)
}

func (s wsSink) idle() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}
