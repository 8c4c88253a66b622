package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/mattjoyce/excbridge/internal/events"
	"github.com/mattjoyce/excbridge/internal/exc"
)

// --- Message types ---

type eventMsg events.Event

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Fingerprint   string `json:"fingerprint"`
	Bindings      int    `json:"bindings"`
}

type snapshotMsg exc.Snapshot

type tickMsg time.Time

type errMsg error

// snapshotErrMsg reports a failed /exc poll. The tick loop retries it.
type snapshotErrMsg struct{ err error }

type streamClosedMsg struct{}
type reconnectMsg struct{}

// --- Commands ---

func newRequest(apiURL, apiKey, path string) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	return req, nil
}

// subscribeToEvents follows /events/ws and feeds events into ch. lastID
// resumes the stream after a reconnect. It returns streamClosedMsg when
// the connection drops.
func subscribeToEvents(apiURL, apiKey string, lastID int64, ch chan<- events.Event) tea.Cmd {
	return func() tea.Msg {
		wsURL, err := streamURL(apiURL, lastID)
		if err != nil {
			return errMsg(err)
		}
		header := http.Header{}
		if apiKey != "" {
			header.Set("Authorization", "Bearer "+apiKey)
		}

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err != nil {
			if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
				return errMsg(fmt.Errorf("GET /events/ws: %s", resp.Status))
			}
			return streamClosedMsg{}
		}
		defer conn.Close()

		readStream(conn, ch)
		return streamClosedMsg{}
	}
}

// streamURL turns the API base URL into the websocket event stream URL.
func streamURL(apiURL string, since int64) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/") + "/events/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	if since > 0 {
		u.RawQuery = "since=" + strconv.FormatInt(since, 10)
	}
	return u.String(), nil
}

// readStream sends each JSON frame to ch until the connection fails.
// Undecodable frames are skipped.
func readStream(conn *websocket.Conn, ch chan<- events.Event) {
	for {
		var ev events.Event
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if json.Unmarshal(data, &ev) != nil {
			continue
		}
		ch <- ev
	}
}

// receiveNextEvent waits for the next event from the channel.
func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func getJSON(apiURL, apiKey, path string, v any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := newRequest(apiURL, apiKey, path)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// /healthz answers 503 with a body once the service stops.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// fetchHealth queries the /healthz endpoint.
func fetchHealth(apiURL, apiKey string) tea.Msg {
	var h healthMsg
	if err := getJSON(apiURL, apiKey, "/healthz", &h); err != nil {
		return errMsg(err)
	}
	return h
}

// fetchSnapshot queries the /exc endpoint.
func fetchSnapshot(apiURL, apiKey string) tea.Msg {
	var s exc.Snapshot
	if err := getJSON(apiURL, apiKey, "/exc", &s); err != nil {
		return snapshotErrMsg{err: err}
	}
	return snapshotMsg(s)
}
