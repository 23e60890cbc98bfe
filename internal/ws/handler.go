package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fastfingers/race-backend/internal/identity"
	"github.com/fastfingers/race-backend/internal/protocol"
	"github.com/fastfingers/race-backend/internal/registry"
	"github.com/fastfingers/race-backend/internal/room"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32

	// Update intents arrive roughly per keystroke; anything past this is
	// dropped rather than used as a reason to close the connection.
	intentRate  = 40
	intentBurst = 80
)

// Handler is the session gateway: one instance of this handler's body per
// connection. It decodes inbound envelopes, hands accepted intents to the
// room, and pumps the room's broadcasts back out.
func Handler(reg *registry.Registry, ident identity.Provider, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("roomId")
		if roomID == "" {
			http.Error(w, "missing roomId", http.StatusBadRequest)
			return
		}
		username := ident.Username(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan protocol.Event, outboxSize)
		rm, ok := joinRoom(reg, roomID, connID, username, out)
		if !ok {
			conn.Close(websocket.StatusTryAgainLater, "room unavailable")
			return
		}
		defer func() { rm.Inbox() <- room.Leave{ConnID: connID} }()

		log := logger.Named("ws").With(zap.String("room", roomID), zap.String("username", username))
		log.Info("connection joined")

		// Writer goroutine: sole writer on the connection. Ends when the room
		// closes the outbox (leave, drop, or shutdown).
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for ev := range out {
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Error("marshal event", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
			conn.Close(websocket.StatusGoingAway, "room closed")
		}()

		lim := rate.NewLimiter(rate.Limit(intentRate), intentBurst)

		// Reader loop: inbound messages are processed strictly in arrival
		// order. A malformed message costs the sender an error event, which
		// goes through the room so the outbox keeps a single writer.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("connection closed")
				default:
					log.Info("connection lost", zap.Error(err))
				}
				return // leave in defer
			}

			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				rm.Inbox() <- room.SendError{ConnID: connID, Title: "Malformed message", Body: "Could not parse the message envelope."}
				continue
			}
			msg, ok := toRoomMsg(connID, env)
			if !ok {
				rm.Inbox() <- room.SendError{ConnID: connID, Title: "Unknown message", Body: "Unsupported message kind " + env.Kind + "."}
				continue
			}
			if !lim.Allow() {
				continue
			}
			rm.Inbox() <- msg
		}
	}
}

// joinRoom attaches the connection, re-ensuring once if the first instance
// was draining (a join racing the destroy of an emptied room).
func joinRoom(reg *registry.Registry, roomID, connID, username string, out chan protocol.Event) (*room.Room, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		roomReply := make(chan *room.Room, 1)
		reg.Inbox() <- registry.Ensure{ID: roomID, Reply: roomReply}
		rm := <-roomReply

		joined := make(chan bool, 1)
		rm.Inbox() <- room.Join{ConnID: connID, Username: username, Outbox: out, Reply: joined}
		if <-joined {
			return rm, true
		}
	}
	return nil, false
}

func toRoomMsg(connID string, env protocol.Envelope) (room.Msg, bool) {
	switch env.Kind {
	case protocol.KindReady:
		return room.Ready{ConnID: connID}, true
	case protocol.KindNotReady:
		return room.NotReady{ConnID: connID}, true
	case protocol.KindUpdate:
		var in protocol.UpdateIntent
		if err := json.Unmarshal(env.Payload, &in); err != nil || in.Progress < 0 {
			return nil, false
		}
		return room.Progress{ConnID: connID, Words: in.Progress}, true
	case protocol.KindFinish:
		var in protocol.FinishIntent
		if err := json.Unmarshal(env.Payload, &in); err != nil || in.Duration.Secs < 0 || in.Duration.Nanos < 0 {
			return nil, false
		}
		return room.Finish{ConnID: connID, Duration: in.Duration}, true
	default:
		return nil, false
	}
}
