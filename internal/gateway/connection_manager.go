package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/examroom/internal/exam"
)

// Commander is what the gateway needs from the command layer.
type Commander interface {
	Dispatch(ctx context.Context, cmd exam.Command) (*exam.Ack, error)
}

// Authorizer validates a caller credential before a mutating command
// runs, returning the caller's role.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (string, error)
}

// ConnectionManager manages websocket connections organized into
// room-scoped broadcast pools.
type ConnectionManager struct {
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	commander  Commander
	authorizer Authorizer

	broadcastCh chan broadcastMessage
}

// Connection represents one websocket client. A connection starts
// unjoined; a join message subscribes it to a room.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	mu     sync.Mutex
	room   string
	role   string
	closed bool

	ConnectedAt time.Time
}

func (c *Connection) setRoom(room, role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
	c.role = role
}

func (c *Connection) roomAndRole() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.role
}

// trySend queues data for delivery without blocking. Returns false if
// the connection is closed or its buffer is full.
func (c *Connection) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// ConnectionConfig holds configuration for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	RoomKey string
	Event   *RoomEvent
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a websocket connection manager. The
// manager is also the command layer's broadcaster, so the commander is
// bound afterwards with BindCommander.
func NewConnectionManager(config ConnectionConfig, authorizer Authorizer) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		authorizer:  authorizer,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// BindCommander wires the command layer that socket control messages
// dispatch into. Must be called before Start.
func (cm *ConnectionManager) BindCommander(commander Commander) {
	cm.commander = commander
}

// Start begins processing broadcast messages until the context ends.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Broadcast implements the exam broadcaster contract: it wraps the
// payload in an event envelope and fans it out to every subscriber of
// the room. Best effort; a full queue drops the message.
func (cm *ConnectionManager) Broadcast(roomKey string, eventType string, payload any) {
	event, err := NewRoomEvent(roomKey, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("room", roomKey).Msg("failed to build broadcast event")
		return
	}
	select {
	case cm.broadcastCh <- broadcastMessage{RoomKey: roomKey, Event: event}:
	default:
		log.Warn().Str("room", roomKey).Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket connection.
// The connection subscribes to a room later via a join message.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().Str("connection_id", connection.ID).Msg("websocket connection established")
	return nil
}

// joinRoom subscribes a connection to a room pool and returns the new
// subscriber count.
func (cm *ConnectionManager) joinRoom(conn *Connection, roomKey, role string) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Re-joining moves the connection to the new room.
	if prev, _ := conn.roomAndRole(); prev != "" && prev != roomKey {
		cm.leaveRoomLocked(conn, prev)
	}

	if cm.roomConnections[roomKey] == nil {
		cm.roomConnections[roomKey] = make(map[*Connection]bool)
	}
	cm.roomConnections[roomKey][conn] = true
	conn.setRoom(roomKey, role)

	count := len(cm.roomConnections[roomKey])
	log.Info().
		Str("connection_id", conn.ID).
		Str("room", roomKey).
		Str("role", role).
		Int("clients_in_room", count).
		Msg("connection joined room")
	return count
}

func (cm *ConnectionManager) leaveRoomLocked(conn *Connection, roomKey string) {
	if connections, exists := cm.roomConnections[roomKey]; exists {
		if _, ok := connections[conn]; ok {
			delete(connections, conn)
			if len(connections) == 0 {
				delete(cm.roomConnections, roomKey)
			}
		}
	}
}

// unregisterConnection removes a connection from its room pool and
// closes its send channel. Safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn.mu.Lock()
	room := conn.room
	alreadyClosed := conn.closed
	conn.closed = true
	conn.room = ""
	conn.role = ""
	if !alreadyClosed {
		close(conn.Send)
	}
	conn.mu.Unlock()

	if room != "" {
		cm.leaveRoomLocked(conn, room)
	}
	if alreadyClosed {
		return
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("room", room).
		Msg("connection unregistered")
}

// SubscriberCount returns the number of connections subscribed to a
// room.
func (cm *ConnectionManager) SubscriberCount(roomKey string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.roomConnections[roomKey])
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	rooms := make(map[string]int, len(cm.roomConnections))
	for roomKey, connections := range cm.roomConnections {
		rooms[roomKey] = len(connections)
		total += len(connections)
	}
	return ConnectionStats{
		TotalConnections: total,
		ActiveRooms:      len(cm.roomConnections),
		RoomConnections:  rooms,
	}
}

// ConnectionStats summarizes the gateway's live connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// handleBroadcast fans one event out to a room's subscribers.
func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.roomConnections[message.RoomKey]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		if !conn.trySend(data) {
			// Connection is slow or dead; drop it.
			log.Warn().
				Str("connection_id", conn.ID).
				Str("room", message.RoomKey).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", message.Event.Type).
		Str("room", message.RoomKey).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// sendDirect delivers an event to a single connection, bypassing the
// room fan-out. Used for join acks and command results.
func (cm *ConnectionManager) sendDirect(conn *Connection, eventType string, payload any) {
	event, err := NewRoomEvent("", eventType, payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build direct event")
		return
	}
	if room, _ := conn.roomAndRole(); room != "" {
		event.RoomID = room
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal direct event")
		return
	}
	if !conn.trySend(data) {
		log.Warn().Str("connection_id", conn.ID).Msg("send buffer full, dropping direct event")
	}
}

// writePump handles sending messages to the websocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to websocket")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads messages from the websocket connection and dispatches
// them.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close error")
			}
			break
		}
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage processes a message received from the client:
// join subscriptions and socket-issued control commands.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.Manager.sendDirect(c, eventError, ErrorPayload{Message: "malformed message"})
		return
	}

	switch msg.Event {
	case "join":
		c.handleJoin(msg.Data)
	case "control:pause":
		c.handleControl(msg.Data, exam.ActionPause)
	case "control:continue":
		c.handleControl(msg.Data, exam.ActionContinue)
	case "control:stop":
		c.handleControl(msg.Data, exam.ActionStop)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("event", msg.Event).
			Msg("ignoring unknown client event")
	}
}

func (c *Connection) handleJoin(data json.RawMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.Manager.sendDirect(c, eventError, ErrorPayload{Message: "malformed join payload"})
		return
	}

	roomKey, err := exam.NormalizeRoomKey(payload.RoomID)
	if err != nil {
		c.Manager.sendDirect(c, eventError, ErrorPayload{Message: err.Error()})
		return
	}

	count := c.Manager.joinRoom(c, roomKey, payload.Role)
	c.Manager.sendDirect(c, exam.EventJoined, JoinedPayload{RoomID: roomKey, ClientsInRoom: count})
}

func (c *Connection) handleControl(data json.RawMessage, action exam.Action) {
	var payload ControlPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.Manager.sendDirect(c, eventError, ErrorPayload{Message: "malformed control payload"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.Manager.authorizer.Authorize(ctx, payload.Token); err != nil {
		c.Manager.sendDirect(c, eventError, ErrorPayload{Message: "invalid or missing token"})
		return
	}

	ack, err := c.Manager.commander.Dispatch(ctx, exam.Command{Action: action, RoomID: payload.RoomID})
	if err != nil {
		c.Manager.sendDirect(c, eventError, ErrorPayload{Message: err.Error()})
		return
	}
	c.Manager.sendDirect(c, eventAck, ack)
}
