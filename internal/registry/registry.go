package registry

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fastfingers/race-backend/internal/room"
	"github.com/fastfingers/race-backend/internal/words"
)

type Msg interface{ isRegistryMsg() }

// Ensure hands back the live room for an id, creating it on first join.
type Ensure struct {
	ID    string
	Reply chan *room.Room
}

// Get replies with the room for an id, or nil.
type Get struct {
	ID    string
	Reply chan *room.Room
}

// roomEmpty is posted by a room after its last participant left. The mapping
// is only removed when the pointer still matches, so a room recreated under
// the same id is never torn down by a stale notification.
type roomEmpty struct {
	id string
	rm *room.Room
}

type Shutdown struct{}

func (Ensure) isRegistryMsg()    {}
func (Get) isRegistryMsg()       {}
func (roomEmpty) isRegistryMsg() {}
func (Shutdown) isRegistryMsg()  {}

type Config struct {
	CountdownSecs int64
	RaceWordCount int
	Clock         clockwork.Clock
	Logger        *zap.Logger
}

// Registry owns the room-key -> race-session map. It is an explicit object,
// not a process global, so tests can run isolated instances; create-on-first-
// join and destroy-on-last-leave are serialized through its single loop.
type Registry struct {
	cfg    Config
	inbox  chan Msg
	rooms  map[string]*room.Room
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

func New(parent context.Context, cfg Config) *Registry {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CountdownSecs <= 0 {
		cfg.CountdownSecs = 5
	}
	if cfg.RaceWordCount <= 0 {
		cfg.RaceWordCount = 40
	}
	reg := &Registry{
		cfg:    cfg,
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]*room.Room),
		ctx:    ctx,
		cancel: cancel,
		log:    cfg.Logger.Named("registry"),
	}
	go reg.loop()
	return reg
}

func (reg *Registry) Inbox() chan<- Msg { return reg.inbox }

func (reg *Registry) loop() {
	for {
		select {
		case <-reg.ctx.Done():
			reg.shutdown()
			return

		case m := <-reg.inbox:
			switch msg := m.(type) {
			case Ensure:
				if rm := reg.rooms[msg.ID]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := reg.create(msg.ID)
				reg.rooms[msg.ID] = rm
				msg.Reply <- rm

			case Get:
				msg.Reply <- reg.rooms[msg.ID] // may be nil

			case roomEmpty:
				if reg.rooms[msg.id] != msg.rm {
					break
				}
				delete(reg.rooms, msg.id)
				msg.rm.Inbox() <- room.Shutdown{}
				reg.log.Info("room destroyed", zap.String("room", msg.id))

			case Shutdown:
				reg.shutdown()
				return
			}
		}
	}
}

func (reg *Registry) create(id string) *room.Room {
	reg.log.Info("room created", zap.String("room", id))
	return room.New(reg.ctx, room.Config{
		ID:            id,
		CountdownSecs: reg.cfg.CountdownSecs,
		Clock:         reg.cfg.Clock,
		Logger:        reg.cfg.Logger,
		Text: func() []string {
			return words.Random(words.NewSeed(), words.English, reg.cfg.RaceWordCount)
		},
		OnEmpty: func(rm *room.Room) {
			// Called from the room's own loop. Posted from a fresh goroutine
			// so a busy registry can never block the room, which would close
			// the cycle between the two loops.
			go func() { reg.inbox <- roomEmpty{id: id, rm: rm} }()
		},
	})
}

func (reg *Registry) shutdown() {
	for id, rm := range reg.rooms {
		rm.Inbox() <- room.Shutdown{}
		delete(reg.rooms, id)
	}
	reg.cancel()
}
