package protocol

import (
	"encoding/json"
	"time"
)

// Every frame on the wire, in either direction, is {"kind": ..., "payload": {...}}.

// Client -> Server intents
const (
	KindReady    = "ready"
	KindNotReady = "notReady"
	KindUpdate   = "update"
	KindFinish   = "finish"
)

// Server -> Client events
const (
	KindInit    = "init"
	KindJoin    = "join"
	KindLeave   = "leave"
	KindPrepare = "prepare"
	KindError   = "error"
	// ready, notReady, update and finish reuse the intent kinds.
)

// Envelope is the inbound frame; the payload stays raw until the kind is known.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Event is the outbound frame with a typed payload. Marshalling an Event
// produces the same envelope shape the client parses.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// Duration crosses the wire as {secs, nanos}.
type Duration struct {
	Secs  int64 `json:"secs"`
	Nanos int64 `json:"nanos"`
}

func DurationFrom(d time.Duration) Duration {
	return Duration{Secs: int64(d / time.Second), Nanos: int64(d % time.Second)}
}

func (d Duration) Std() time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

type UpdateIntent struct {
	Progress int `json:"progress"`
}

type FinishIntent struct {
	Duration Duration `json:"duration"`
}

type InitEvent struct {
	OtherPlayerUsernames []string `json:"otherPlayerUsernames"`
}

type JoinEvent struct {
	JoiningPlayer string `json:"joiningPlayer"`
}

type LeaveEvent struct {
	LeavingPlayer string `json:"leavingPlayer"`
}

type ReadyEvent struct {
	ReadyPlayer string `json:"readyPlayer"`
}

type NotReadyEvent struct {
	NotReadyPlayer string `json:"notReadyPlayer"`
}

// Countdown carries whole seconds only; the client renders "race starts in N".
type Countdown struct {
	Secs int64 `json:"secs"`
}

type PrepareEvent struct {
	TimeUntilRaceStart Countdown `json:"timeUntilRaceStart"`
}

type UpdateEvent struct {
	Player   string `json:"player"`
	Progress int    `json:"progress"`
}

type FinishEvent struct {
	Player   string   `json:"player"`
	Duration Duration `json:"duration"`
}

type ErrorEvent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
