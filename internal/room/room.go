package room

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fastfingers/race-backend/internal/protocol"
)

// State is the room lifecycle, not a participant's: readiness is a sub-state
// of Lobby. Finished is terminal; no reset message exists in the protocol,
// so a rematch needs a fresh room.
type State string

const (
	StateLobby    State = "lobby"
	StateStarting State = "starting"
	StateRacing   State = "racing"
	StateFinished State = "finished"
)

type Config struct {
	ID            string
	CountdownSecs int64
	Clock         clockwork.Clock
	Text          func() []string // picked once, at the Lobby->Starting transition
	OnEmpty       func(*Room)     // notified after the last participant leaves
	Logger        *zap.Logger
}

type participant struct {
	username string
	ready    bool
	inRace   bool
	progress int
	finished bool
	duration protocol.Duration
	outbox   chan protocol.Event
}

// Room is the authoritative race session for one room key. All mutable state
// lives behind a single mailbox, so client intents and countdown ticks are
// totally ordered; fan-out never blocks on a connection.
type Room struct {
	cfg     Config
	inbox   chan Msg
	state   State
	members map[string]*participant
	text    []string

	countdown int64
	timerGen  int
	stopTick  func()
	startAt   time.Time

	draining bool
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

func New(parent context.Context, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := &Room{
		cfg:     cfg,
		inbox:   make(chan Msg, 64),
		state:   StateLobby,
		members: make(map[string]*participant),
		ctx:     ctx,
		cancel:  cancel,
		log:     cfg.Logger.With(zap.String("room", cfg.ID)),
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.removeParticipant(msg.ConnID)
			case Ready:
				r.handleReady(msg.ConnID, true)
			case NotReady:
				r.handleReady(msg.ConnID, false)
			case Progress:
				r.handleProgress(msg)
			case Finish:
				r.handleFinish(msg)
			case SendError:
				r.sendError(msg.ConnID, msg.Title, msg.Body)
			case tick:
				r.handleTick(msg)
			case GetState:
				msg.Reply <- r.view()
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	if r.draining {
		msg.Reply <- false
		return
	}

	others := lo.Map(lo.Values(r.members), func(p *participant, _ int) string {
		return p.username
	})
	r.members[msg.ConnID] = &participant{username: msg.Username, outbox: msg.Outbox}
	msg.Reply <- true

	r.sendTo(msg.ConnID, protocol.Event{
		Kind:    protocol.KindInit,
		Payload: protocol.InitEvent{OtherPlayerUsernames: others},
	})
	r.fanout(msg.ConnID, protocol.Event{
		Kind:    protocol.KindJoin,
		Payload: protocol.JoinEvent{JoiningPlayer: msg.Username},
	})
	r.log.Info("participant joined", zap.String("username", msg.Username))
}

func (r *Room) handleReady(connID string, ready bool) {
	p, ok := r.members[connID]
	if !ok {
		return
	}
	if r.state != StateLobby {
		// Readiness is frozen once the countdown begins.
		r.sendError(connID, "Cannot change readiness", "The race is already starting.")
		return
	}

	p.ready = ready
	if ready {
		r.fanout(connID, protocol.Event{
			Kind:    protocol.KindReady,
			Payload: protocol.ReadyEvent{ReadyPlayer: p.username},
		})
		r.maybeStart()
	} else {
		r.fanout(connID, protocol.Event{
			Kind:    protocol.KindNotReady,
			Payload: protocol.NotReadyEvent{NotReadyPlayer: p.username},
		})
	}
}

func (r *Room) handleProgress(msg Progress) {
	p, ok := r.members[msg.ConnID]
	if !ok {
		return
	}
	if r.state != StateRacing || !p.inRace {
		r.sendError(msg.ConnID, "No race in progress", "Progress updates are only accepted during a race.")
		return
	}
	if p.finished || msg.Words <= p.progress {
		// Regressions and post-finish updates are dropped, keeping
		// wordsCompleted monotonically non-decreasing.
		return
	}

	p.progress = min(msg.Words, len(r.text))
	r.fanout(msg.ConnID, protocol.Event{
		Kind:    protocol.KindUpdate,
		Payload: protocol.UpdateEvent{Player: p.username, Progress: p.progress},
	})
}

func (r *Room) handleFinish(msg Finish) {
	p, ok := r.members[msg.ConnID]
	if !ok {
		return
	}
	if r.state != StateRacing || !p.inRace {
		r.sendError(msg.ConnID, "No race in progress", "Finish reports are only accepted during a race.")
		return
	}
	if p.finished {
		// Idempotent: a second finish from the same participant is a no-op.
		return
	}

	p.finished = true
	p.progress = len(r.text)
	p.duration = msg.Duration
	r.fanout(msg.ConnID, protocol.Event{
		Kind:    protocol.KindFinish,
		Payload: protocol.FinishEvent{Player: p.username, Duration: msg.Duration},
	})
	r.log.Info("participant finished",
		zap.String("username", p.username),
		zap.Duration("reported", msg.Duration.Std()),
		zap.Duration("observed", r.cfg.Clock.Since(r.startAt)))

	r.maybeFinishRace()
}

func (r *Room) handleTick(msg tick) {
	if msg.gen != r.timerGen || r.state != StateStarting {
		return
	}

	r.countdown--
	r.fanout("", protocol.Event{
		Kind:    protocol.KindPrepare,
		Payload: protocol.PrepareEvent{TimeUntilRaceStart: protocol.Countdown{Secs: r.countdown}},
	})
	if r.countdown == 0 {
		r.startRace()
	}
}

// maybeStart fires the Lobby->Starting transition: at least one participant,
// and every participant ready.
func (r *Room) maybeStart() {
	if r.state != StateLobby || len(r.members) == 0 {
		return
	}
	if !lo.EveryBy(lo.Values(r.members), func(p *participant) bool { return p.ready }) {
		return
	}

	r.state = StateStarting
	r.text = r.cfg.Text()
	r.countdown = r.cfg.CountdownSecs
	r.startCountdown()
	r.fanout("", protocol.Event{
		Kind:    protocol.KindPrepare,
		Payload: protocol.PrepareEvent{TimeUntilRaceStart: protocol.Countdown{Secs: r.countdown}},
	})
	r.log.Info("countdown started", zap.Int64("secs", r.countdown), zap.Int("textLen", len(r.text)))
}

func (r *Room) startCountdown() {
	r.timerGen++
	gen := r.timerGen
	ticker := r.cfg.Clock.NewTicker(time.Second)
	stop := make(chan struct{})
	r.stopTick = func() {
		ticker.Stop()
		close(stop)
	}

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-r.ctx.Done():
				ticker.Stop()
				return
			case <-ticker.Chan():
				select {
				case r.inbox <- tick{gen: gen}:
				case <-stop:
					return
				case <-r.ctx.Done():
					return
				}
			}
		}
	}()
}

func (r *Room) cancelCountdown() {
	if r.stopTick != nil {
		r.stopTick()
		r.stopTick = nil
	}
	r.timerGen++
}

func (r *Room) startRace() {
	r.cancelCountdown()
	r.state = StateRacing
	r.startAt = r.cfg.Clock.Now()
	for _, p := range r.members {
		p.inRace = true
		p.progress = 0
		p.finished = false
	}
	r.log.Info("race started", zap.Int("participants", len(r.members)))
}

// maybeFinishRace moves Racing->Finished once every racing participant has
// finished. Participants who joined mid-race spectate and do not block.
func (r *Room) maybeFinishRace() {
	if r.state != StateRacing {
		return
	}
	racers := lo.Filter(lo.Values(r.members), func(p *participant, _ int) bool { return p.inRace })
	if !lo.EveryBy(racers, func(p *participant) bool { return p.finished }) {
		return
	}

	r.state = StateFinished
	r.log.Info("race finished")
}

// removeParticipant handles both explicit leaves and drops of slow
// connections. The last leave drains the room: joins are refused from then
// on and the registry is told to forget this instance.
func (r *Room) removeParticipant(connID string) {
	p, ok := r.members[connID]
	if !ok {
		return
	}
	delete(r.members, connID)
	close(p.outbox)
	r.log.Info("participant left", zap.String("username", p.username))

	if len(r.members) == 0 {
		r.drain()
		return
	}

	r.fanout("", protocol.Event{
		Kind:    protocol.KindLeave,
		Payload: protocol.LeaveEvent{LeavingPlayer: p.username},
	})

	switch r.state {
	case StateLobby:
		r.maybeStart()
	case StateRacing:
		r.maybeFinishRace()
	}
}

func (r *Room) drain() {
	r.draining = true
	r.cancelCountdown()
	if r.cfg.OnEmpty != nil {
		r.cfg.OnEmpty(r)
	}
	r.log.Info("room empty, draining")
}

// fanout delivers an event to every connection except the given one (the
// subject of player-scoped events must not receive them; pass "" to reach
// everyone). Delivery is best-effort: a connection with a full outbox is
// dropped rather than allowed to stall the room.
func (r *Room) fanout(except string, ev protocol.Event) {
	var dropped []string
	for id, p := range r.members {
		if id == except {
			continue
		}
		select {
		case p.outbox <- ev:
		default:
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		// A cascaded drop may have removed this one already.
		if p, ok := r.members[id]; ok {
			r.log.Warn("dropping slow connection", zap.String("username", p.username))
			r.removeParticipant(id)
		}
	}
}

func (r *Room) sendTo(connID string, ev protocol.Event) {
	p, ok := r.members[connID]
	if !ok {
		return
	}
	select {
	case p.outbox <- ev:
	default:
		r.removeParticipant(connID)
	}
}

// sendError reports a protocol error to the offending connection only; it is
// never propagated to other participants.
func (r *Room) sendError(connID, title, body string) {
	r.sendTo(connID, protocol.Event{
		Kind:    protocol.KindError,
		Payload: protocol.ErrorEvent{Title: title, Body: body},
	})
}

func (r *Room) view() View {
	members := lo.Map(lo.Values(r.members), func(p *participant, _ int) MemberView {
		return MemberView{
			Username: p.username,
			Ready:    p.ready,
			InRace:   p.inRace,
			Progress: p.progress,
			Finished: p.finished,
			Duration: p.duration,
		}
	})
	return View{
		State:     r.state,
		Members:   members,
		Countdown: r.countdown,
		TextLen:   len(r.text),
		Draining:  r.draining,
	}
}

func (r *Room) shutdown() {
	r.cancelCountdown()
	for id, p := range r.members {
		close(p.outbox)
		delete(r.members, id)
	}
	r.cancel()
}
