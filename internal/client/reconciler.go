package client

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/fastfingers/race-backend/internal/protocol"
)

type Phase string

const (
	PhaseNotReady Phase = "notReady"
	PhaseReady    Phase = "ready"
	PhaseRacing   Phase = "racing"
	PhaseFinished Phase = "finished"
)

type PlayerState struct {
	Phase    Phase
	Progress int
	Duration protocol.Duration
}

type OtherPlayer struct {
	Username string
	State    PlayerState
}

type Notice struct {
	Title string
	Body  string
}

// Reconciler rebuilds the local view of the room from the authoritative
// event stream. It never originates state: local intents are hints applied
// through the Hint methods, and any inbound event overwrites them. Events
// naming unknown players are ignored rather than faulted, since joins and
// leaves may interleave arbitrarily with other players' events.
type Reconciler struct {
	Self      PlayerState
	Countdown int64 // seconds until race start; -1 outside a countdown
	Others    []OtherPlayer
	Notices   []Notice
}

func New() *Reconciler {
	return &Reconciler{Self: PlayerState{Phase: PhaseNotReady}, Countdown: -1}
}

func (rc *Reconciler) Apply(env protocol.Envelope) error {
	switch env.Kind {
	case protocol.KindInit:
		var p protocol.InitEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.Others = lo.Map(p.OtherPlayerUsernames, func(u string, _ int) OtherPlayer {
			return OtherPlayer{Username: u, State: PlayerState{Phase: PhaseNotReady}}
		})

	case protocol.KindJoin:
		var p protocol.JoinEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.Others = append(rc.Others, OtherPlayer{Username: p.JoiningPlayer, State: PlayerState{Phase: PhaseNotReady}})

	case protocol.KindLeave:
		var p protocol.LeaveEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.Others = lo.Filter(rc.Others, func(o OtherPlayer, _ int) bool {
			return o.Username != p.LeavingPlayer
		})

	case protocol.KindReady:
		var p protocol.ReadyEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.setOther(p.ReadyPlayer, PlayerState{Phase: PhaseReady})

	case protocol.KindNotReady:
		var p protocol.NotReadyEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.setOther(p.NotReadyPlayer, PlayerState{Phase: PhaseNotReady})

	case protocol.KindPrepare:
		var p protocol.PrepareEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.Self.Phase = PhaseReady
		rc.Countdown = p.TimeUntilRaceStart.Secs
		if rc.Countdown == 0 {
			// Racing begins implicitly on the receiving end.
			rc.Self = PlayerState{Phase: PhaseRacing}
			rc.Countdown = -1
			for i := range rc.Others {
				rc.Others[i].State = PlayerState{Phase: PhaseRacing}
			}
		}

	case protocol.KindUpdate:
		var p protocol.UpdateEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.setOther(p.Player, PlayerState{Phase: PhaseRacing, Progress: p.Progress})

	case protocol.KindFinish:
		var p protocol.FinishEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.setOther(p.Player, PlayerState{Phase: PhaseFinished, Duration: p.Duration})

	case protocol.KindError:
		var p protocol.ErrorEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		rc.Notices = append(rc.Notices, Notice{Title: p.Title, Body: p.Body})
	}
	return nil
}

// Local intent hints; the server's stream wins on any conflict.

func (rc *Reconciler) HintReady()    { rc.Self.Phase = PhaseReady }
func (rc *Reconciler) HintNotReady() { rc.Self.Phase = PhaseNotReady }

func (rc *Reconciler) HintFinished(d protocol.Duration) {
	rc.Self = PlayerState{Phase: PhaseFinished, Duration: d}
}

func (rc *Reconciler) setOther(username string, state PlayerState) {
	for i := range rc.Others {
		if rc.Others[i].Username == username {
			rc.Others[i].State = state
			return
		}
	}
}

func decode(env protocol.Envelope, into any) error {
	if err := json.Unmarshal(env.Payload, into); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	return nil
}
