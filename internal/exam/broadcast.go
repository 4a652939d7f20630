package exam

// Event names broadcast to room subscribers. These are the client-facing
// contract.
const (
	EventStart  = "start"
	EventStatus = "msg"
	EventJoined = "joined"
)

// StartPayload announces that a countdown began for a room.
type StartPayload struct {
	RoomID          string `json:"roomId"`
	DurationSeconds int    `json:"duration"`
}

// Broadcaster publishes a room-scoped event to every subscriber of a
// room. Delivery is best effort and at most once per call; disconnected
// subscribers simply miss the message and re-synchronize on the next
// tick.
type Broadcaster interface {
	Broadcast(roomKey string, event string, payload any)
}

// MultiBroadcaster fans a broadcast out to several sinks, e.g. the
// websocket gateway plus a JetStream mirror.
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) Broadcast(roomKey string, event string, payload any) {
	for _, b := range m {
		b.Broadcast(roomKey, event, payload)
	}
}
