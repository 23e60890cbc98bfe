package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fastfingers/race-backend/internal/identity"
	"github.com/fastfingers/race-backend/internal/protocol"
	"github.com/fastfingers/race-backend/internal/registry"
	"github.com/fastfingers/race-backend/internal/room"
)

func newGateway(t *testing.T, cfg registry.Config) (*registry.Registry, *httptest.Server) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	reg := registry.New(context.Background(), cfg)
	srv := httptest.NewServer(Handler(reg, identity.QueryProvider{}, zap.NewNop()))
	t.Cleanup(srv.Close)
	return reg, srv
}

func dialRoom(t *testing.T, srv *httptest.Server, roomID, username string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "?roomId=" + roomID + "&username=" + username
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, raw []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, raw))
}

func sendIntent(t *testing.T, conn *websocket.Conn, kind string, payload any) {
	t.Helper()
	raw, err := json.Marshal(protocol.Event{Kind: kind, Payload: payload})
	require.NoError(t, err)
	writeFrame(t, conn, raw)
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func readKind(t *testing.T, conn *websocket.Conn, kind string) protocol.Envelope {
	t.Helper()
	env := readFrame(t, conn)
	require.Equal(t, kind, env.Kind, "payload: %s", env.Payload)
	return env
}

func liveView(t *testing.T, reg *registry.Registry, roomID string) room.View {
	t.Helper()
	roomReply := make(chan *room.Room, 1)
	reg.Inbox() <- registry.Get{ID: roomID, Reply: roomReply}
	rm := <-roomReply
	require.NotNil(t, rm, "room %q gone", roomID)
	viewReply := make(chan room.View, 1)
	rm.Inbox() <- room.GetState{Reply: viewReply}
	return <-viewReply
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestGatewayReportsBadFramesWithoutClosing(t *testing.T) {
	reg, srv := newGateway(t, registry.Config{})
	conn := dialRoom(t, srv, "lobby", "alice")
	readKind(t, conn, protocol.KindInit)

	writeFrame(t, conn, []byte(`{`))
	readKind(t, conn, protocol.KindError)

	sendIntent(t, conn, "teleport", struct{}{})
	readKind(t, conn, protocol.KindError)

	// The connection survived both faults: a real intent still goes through.
	sendIntent(t, conn, protocol.KindReady, struct{}{})
	waitFor(t, func() bool {
		v := liveView(t, reg, "lobby")
		return len(v.Members) == 1 && v.Members[0].Ready
	}, "ready intent never reached the room")
}

func TestGatewayDropsUpdateBurstsWithoutClosing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg, srv := newGateway(t, registry.Config{
		Clock:         clock,
		CountdownSecs: 1,
		RaceWordCount: 300,
	})
	conn := dialRoom(t, srv, "burst", "bob")
	readKind(t, conn, protocol.KindInit)

	sendIntent(t, conn, protocol.KindReady, struct{}{})
	readKind(t, conn, protocol.KindPrepare)
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	readKind(t, conn, protocol.KindPrepare) // zero; the race is on

	// A burst far past the limiter's allowance. The excess is dropped, so
	// the recorded progress stays behind the last value sent.
	total := 3 * intentBurst
	for i := 1; i <= total; i++ {
		sendIntent(t, conn, protocol.KindUpdate, protocol.UpdateIntent{Progress: i})
	}

	// Let the room drain what the limiter let through, and the limiter
	// refill enough for one more intent.
	time.Sleep(time.Second)
	v := liveView(t, reg, "burst")
	require.Len(t, v.Members, 1)
	require.Greater(t, v.Members[0].Progress, 0)
	require.Less(t, v.Members[0].Progress, total)

	// The connection was throttled, not closed: a later intent still lands.
	sendIntent(t, conn, protocol.KindFinish, protocol.FinishIntent{Duration: protocol.Duration{Secs: 42}})
	waitFor(t, func() bool {
		return liveView(t, reg, "burst").Members[0].Finished
	}, "finish intent never reached the room")
}
