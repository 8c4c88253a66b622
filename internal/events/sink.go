package events

import "time"

// LifecycleEvent is the hub event type carrying a Notification.
const LifecycleEvent = "exc.lifecycle"

// Notification is one lifecycle telemetry record: which hook (or state
// transition) was observed, how long after service start, and by whom.
type Notification struct {
	DebugTag      string `json:"debug_tag"`
	ElapsedMillis int64  `json:"elapsed_ms"`
	AppName       string `json:"app_name"`
}

// NewNotification stamps tag with the time elapsed since origin.
func NewNotification(appName, tag string, origin time.Time) Notification {
	return Notification{
		DebugTag:      tag,
		ElapsedMillis: time.Since(origin).Milliseconds(),
		AppName:       appName,
	}
}

// Sink receives notifications. Emit is fire-and-forget: it must not block
// and has no way to report failure.
type Sink interface {
	Emit(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification)

func (f SinkFunc) Emit(n Notification) { f(n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})

// Fanout delivers each notification to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(n Notification) {
	for _, s := range f {
		if s != nil {
			s.Emit(n)
		}
	}
}

var (
	_ Sink = SinkFunc(nil)
	_ Sink = Fanout(nil)
	_ Sink = (*Hub)(nil)
	_ Sink = (*Journal)(nil)
	_ Sink = (*Forwarder)(nil)
)
