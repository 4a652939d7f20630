package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/examroom/internal/exam"
)

type fakeCommander struct {
	ack *exam.Ack
	err error

	lastCommand exam.Command
}

func (f *fakeCommander) Dispatch(ctx context.Context, cmd exam.Command) (*exam.Ack, error) {
	f.lastCommand = cmd
	return f.ack, f.err
}

type fakeAuthorizer struct {
	validToken string
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, token string) (string, error) {
	if token == f.validToken {
		return "teacher", nil
	}
	return "", exam.ErrMissingRoomID // any error will do; handlers only branch on nil
}

func newTestManager() *ConnectionManager {
	cm := NewConnectionManager(DefaultConnectionConfig(), &fakeAuthorizer{validToken: "good-token"})
	cm.BindCommander(&fakeCommander{ack: &exam.Ack{RoomKey: "42", TimeLeft: 30, Message: "countdown paused"}})
	return cm
}

func newTestConnection(cm *ConnectionManager) *Connection {
	return &Connection{
		ID:          uuid.New().String(),
		Send:        make(chan []byte, 8),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
}

func TestJoinRoomCountsSubscribers(t *testing.T) {
	cm := newTestManager()

	first := newTestConnection(cm)
	second := newTestConnection(cm)

	assert.Equal(t, 1, cm.joinRoom(first, "42", "teacher"))
	assert.Equal(t, 2, cm.joinRoom(second, "42", "student"))
	assert.Equal(t, 2, cm.SubscriberCount("42"))
	assert.Equal(t, 0, cm.SubscriberCount("99"))
}

func TestJoinRoomMovesConnectionBetweenRooms(t *testing.T) {
	cm := newTestManager()
	conn := newTestConnection(cm)

	cm.joinRoom(conn, "42", "student")
	require.Equal(t, 1, cm.SubscriberCount("42"))

	cm.joinRoom(conn, "43", "student")
	assert.Equal(t, 0, cm.SubscriberCount("42"), "old room must forget the connection")
	assert.Equal(t, 1, cm.SubscriberCount("43"))

	room, role := conn.roomAndRole()
	assert.Equal(t, "43", room)
	assert.Equal(t, "student", role)
}

func TestUnregisterConnectionIsIdempotent(t *testing.T) {
	cm := newTestManager()
	conn := newTestConnection(cm)
	cm.joinRoom(conn, "42", "student")

	cm.unregisterConnection(conn)
	assert.Equal(t, 0, cm.SubscriberCount("42"))

	// A second unregister must not panic on the closed send channel.
	cm.unregisterConnection(conn)

	assert.False(t, conn.trySend([]byte("late")), "closed connection must refuse sends")
}

func TestHandleBroadcastDeliversToRoomOnly(t *testing.T) {
	cm := newTestManager()

	inRoom := newTestConnection(cm)
	otherRoom := newTestConnection(cm)
	cm.joinRoom(inRoom, "42", "student")
	cm.joinRoom(otherRoom, "99", "student")

	event, err := NewRoomEvent("42", "msg", map[string]int{"timeLeft": 10})
	require.NoError(t, err)
	cm.handleBroadcast(broadcastMessage{RoomKey: "42", Event: event})

	select {
	case data := <-inRoom.Send:
		var got RoomEvent
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "42", got.RoomID)
		assert.Equal(t, "msg", got.Type)
	default:
		t.Fatal("subscriber in room received nothing")
	}

	select {
	case <-otherRoom.Send:
		t.Fatal("subscriber of another room must not receive the event")
	default:
	}
}

func TestBroadcastQueuesEnvelope(t *testing.T) {
	cm := newTestManager()

	cm.Broadcast("42", "msg", map[string]int{"timeLeft": 5})

	select {
	case msg := <-cm.broadcastCh:
		assert.Equal(t, "42", msg.RoomKey)
		assert.Equal(t, "msg", msg.Event.Type)
	case <-time.After(time.Second):
		t.Fatal("broadcast was not queued")
	}
}

func TestConnectionStats(t *testing.T) {
	cm := newTestManager()

	cm.joinRoom(newTestConnection(cm), "42", "student")
	cm.joinRoom(newTestConnection(cm), "42", "student")
	cm.joinRoom(newTestConnection(cm), "99", "teacher")

	stats := cm.GetConnectionStats()
	assert.Equal(t, 3, stats.TotalConnections)
	assert.Equal(t, 2, stats.ActiveRooms)
	assert.Equal(t, 2, stats.RoomConnections["42"])
	assert.Equal(t, 1, stats.RoomConnections["99"])
}

// dialTestServer upgrades a live websocket client against the manager.
func dialTestServer(t *testing.T, cm *ConnectionManager) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := cm.UpgradeConnection(w, r); err != nil {
			t.Errorf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) RoomEvent {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var event RoomEvent
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestWebSocketJoinAndBroadcast(t *testing.T) {
	cm := newTestManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	ws := dialTestServer(t, cm)

	require.NoError(t, ws.WriteJSON(ClientMessage{
		Event: "join",
		Data:  json.RawMessage(`{"roomId": 42, "role": "student"}`),
	}))

	joined := readEvent(t, ws)
	assert.Equal(t, exam.EventJoined, joined.Type)

	var payload JoinedPayload
	require.NoError(t, json.Unmarshal(joined.Data, &payload))
	assert.Equal(t, "42", payload.RoomID, "numeric join id must normalize")
	assert.Equal(t, 1, payload.ClientsInRoom)

	cm.Broadcast("42", exam.EventStatus, map[string]int{"timeLeft": 10})

	status := readEvent(t, ws)
	assert.Equal(t, exam.EventStatus, status.Type)
	assert.Equal(t, "42", status.RoomID)
}

func TestWebSocketControlRequiresToken(t *testing.T) {
	cm := newTestManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	ws := dialTestServer(t, cm)

	require.NoError(t, ws.WriteJSON(ClientMessage{
		Event: "control:pause",
		Data:  json.RawMessage(`{"roomId": "42", "token": "wrong"}`),
	}))

	event := readEvent(t, ws)
	assert.Equal(t, eventError, event.Type)

	require.NoError(t, ws.WriteJSON(ClientMessage{
		Event: "control:pause",
		Data:  json.RawMessage(`{"roomId": "42", "token": "good-token"}`),
	}))

	event = readEvent(t, ws)
	assert.Equal(t, eventAck, event.Type)

	var ack exam.Ack
	require.NoError(t, json.Unmarshal(event.Data, &ack))
	assert.Equal(t, "countdown paused", ack.Message)
}

func TestWebSocketJoinRejectsMissingRoom(t *testing.T) {
	cm := newTestManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	ws := dialTestServer(t, cm)

	require.NoError(t, ws.WriteJSON(ClientMessage{
		Event: "join",
		Data:  json.RawMessage(`{"role": "student"}`),
	}))

	event := readEvent(t, ws)
	assert.Equal(t, eventError, event.Type)
}
