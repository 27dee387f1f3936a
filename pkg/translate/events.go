// ABOUTME: Session state and event types
// ABOUTME: Typed events published by a translation session
package translate

import "time"

// State is the connection-level session state
type State int

const (
	Idle State = iota
	Connecting
	Online
	Error
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Online:
		return "online"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// StatusKind identifies a user-facing status
type StatusKind int

const (
	StatusReady StatusKind = iota
	StatusConnecting
	StatusOnline
	StatusStopped
	StatusDisconnected
	StatusDeviceUnavailable
	StatusRejected
	StatusQuotaExceeded
	StatusNetworkError
)

var statusMessages = map[StatusKind]string{
	StatusReady:             "Ready",
	StatusConnecting:        "Connecting...",
	StatusOnline:            "Online",
	StatusStopped:           "Stopped",
	StatusDisconnected:      "Disconnected",
	StatusDeviceUnavailable: "Microphone unavailable",
	StatusRejected:          "Connection rejected",
	StatusQuotaExceeded:     "Limit reached (wait a moment)",
	StatusNetworkError:      "Network error",
}

// Message returns the default text for the status
func (k StatusKind) Message() string {
	return statusMessages[k]
}

// Warning reports whether the status should be highlighted
func (k StatusKind) Warning() bool {
	return k == StatusQuotaExceeded
}

// Event is published on the session's event channel
type Event interface {
	isEvent()
}

// StateEvent reports a state transition
type StateEvent struct {
	From, To State
}

// StatusEvent carries a user-facing status line
type StatusEvent struct {
	Kind    StatusKind
	Message string
	Err     error
}

// AudioSentEvent reports a captured chunk sent to the service
type AudioSentEvent struct {
	Samples int
	Total   int64
}

// AudioReceivedEvent reports synthesized audio scheduled for playback
type AudioReceivedEvent struct {
	Samples    int
	SampleRate int
	Start      time.Duration
	Clamped    bool
}

// TurnEvent reports a model turn boundary
type TurnEvent struct {
	Complete    bool
	Interrupted bool
}

func (StateEvent) isEvent()         {}
func (StatusEvent) isEvent()        {}
func (AudioSentEvent) isEvent()     {}
func (AudioReceivedEvent) isEvent() {}
func (TurnEvent) isEvent()          {}
