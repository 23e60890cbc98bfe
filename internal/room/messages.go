package room

import "github.com/fastfingers/race-backend/internal/protocol"

type Msg interface{ isRoomMsg() }

// Join attaches a connection to the room. Reply receives false when the room
// is draining (last participant already left); the caller should re-ensure
// the room and try again.
type Join struct {
	ConnID   string
	Username string
	Outbox   chan protocol.Event // where this connection receives events
	Reply    chan bool
}

type Leave struct{ ConnID string }

type Ready struct{ ConnID string }

type NotReady struct{ ConnID string }

// Progress reports the sender's completed word count. The session trusts the
// index but clamps it to be monotonically non-decreasing.
type Progress struct {
	ConnID string
	Words  int
}

type Finish struct {
	ConnID   string
	Duration protocol.Duration
}

// SendError asks the room to deliver an error event to one connection. The
// gateway routes its own protocol errors through here so the room stays the
// outbox's only writer; errors for a connection that has already been
// dropped are silently discarded.
type SendError struct {
	ConnID string
	Title  string
	Body   string
}

type Shutdown struct{}

// GetState reflects internal state without data races. Test-only.
type GetState struct {
	Reply chan View
}

// tick is the countdown timer's message into the mailbox; gen drops stale
// fires from a cancelled countdown.
type tick struct{ gen int }

func (Join) isRoomMsg()      {}
func (Leave) isRoomMsg()     {}
func (Ready) isRoomMsg()     {}
func (NotReady) isRoomMsg()  {}
func (Progress) isRoomMsg()  {}
func (Finish) isRoomMsg()    {}
func (SendError) isRoomMsg() {}
func (Shutdown) isRoomMsg()  {}
func (GetState) isRoomMsg()  {}
func (tick) isRoomMsg()      {}

type MemberView struct {
	Username string
	Ready    bool
	InRace   bool
	Progress int
	Finished bool
	Duration protocol.Duration
}

type View struct {
	State     State
	Members   []MemberView
	Countdown int64
	TextLen   int
	Draining  bool
}
