package exam

import (
	"sync"
	"time"

	"github.com/mcdev12/examroom/internal/models"
)

// RoomSession is the mutable per-room record tracking remaining time,
// status and the live timer handle. The embedded mutex serializes every
// state-machine operation for one room key; the timer field is non-nil
// iff a countdown is actively ticking, and its presence is the sole
// authority for "this room is running".
type RoomSession struct {
	mu sync.Mutex

	roomKey          string
	remainingSeconds int
	plannedSeconds   int
	status           models.ExamStatus
	timer            TimerHandle
	startedAt        time.Time
}

// RoomKey returns the session's normalized identity.
func (s *RoomSession) RoomKey() string {
	return s.roomKey
}

// Remaining returns the current remaining seconds. Intended for tests
// and diagnostics; command handlers read state through the controller.
func (s *RoomSession) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingSeconds
}

// Status returns the session's current phase.
func (s *RoomSession) Status() models.ExamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Running reports whether a live timer handle is present.
func (s *RoomSession) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Registry owns the mapping from normalized room key to RoomSession. It
// is the single source of truth for which rooms exist. The map lock is
// held only for lookup and insert; all session mutation happens under
// the per-session mutex.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*RoomSession
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*RoomSession),
	}
}

// Get returns the session for a normalized key, if present.
func (r *Registry) Get(key string) (*RoomSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[key]
	return sess, ok
}

// GetOrCreate returns the session for a normalized key, creating an
// empty one if the room has no session yet.
func (r *Registry) GetOrCreate(key string) *RoomSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[key]; ok {
		return sess
	}
	sess := &RoomSession{roomKey: key}
	r.sessions[key] = sess
	return sess
}

// Len returns the number of known rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
