package exam

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/examroom/internal/models"
)

// HistoryRecorder archives sessions that reached a terminal state.
type HistoryRecorder interface {
	RecordFinished(ctx context.Context, rec models.SessionRecord) error
}

// ControllerConfig holds tuning knobs for the session controller.
type ControllerConfig struct {
	// TickPeriod is the countdown decrement interval. Defaults to one
	// second.
	TickPeriod time.Duration
	// Timezone renders the human-readable serverTime snapshot field.
	// Defaults to time.Local.
	Timezone *time.Location
	// Recorder archives terminal sessions. Nil disables archiving.
	Recorder HistoryRecorder
}

// Controller implements the room session state machine: start, pause,
// continue, stop and the recurring tick. All mutations of a session
// happen under that session's mutex, so for a given room key commands
// and ticks are totally ordered. Rooms are independent; there is no
// cross-room lock.
type Controller struct {
	registry    *Registry
	broadcaster Broadcaster
	scheduler   Scheduler
	clock       clockwork.Clock

	tickPeriod time.Duration
	timezone   *time.Location
	recorder   HistoryRecorder
}

// NewController creates a session controller.
func NewController(registry *Registry, broadcaster Broadcaster, scheduler Scheduler, clock clockwork.Clock, cfg ControllerConfig) *Controller {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = time.Second
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.Local
	}
	return &Controller{
		registry:    registry,
		broadcaster: broadcaster,
		scheduler:   scheduler,
		clock:       clock,
		tickPeriod:  cfg.TickPeriod,
		timezone:    cfg.Timezone,
		recorder:    cfg.Recorder,
	}
}

// Start creates (or reuses) the session for a room and begins the
// countdown. A duplicate start on a room with a live timer is a guarded
// no-op: the single-timer invariant means a second ticking loop is
// never spawned.
func (c *Controller) Start(ctx context.Context, roomID any, durationSeconds int) (*Ack, error) {
	key, err := NormalizeRoomKey(roomID)
	if err != nil {
		return nil, err
	}
	if durationSeconds <= 0 {
		return nil, ErrInvalidDuration
	}

	sess := c.registry.GetOrCreate(key)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.timer != nil {
		log.Warn().Str("room", key).Msg("countdown already running, ignoring duplicate start")
		return c.ackLocked(sess), ErrAlreadyRunning
	}

	sess.remainingSeconds = durationSeconds
	sess.plannedSeconds = durationSeconds
	sess.startedAt = c.clock.Now()

	c.broadcaster.Broadcast(key, EventStart, StartPayload{RoomID: key, DurationSeconds: durationSeconds})
	c.emitStatusLocked(sess, models.StatusStarted, "")
	c.scheduleLocked(sess)

	log.Info().
		Str("room", key).
		Str("duration", FormatHMS(durationSeconds)).
		Msg("countdown started")

	return c.ackLocked(sess), nil
}

// Pause cancels the live timer and freezes the remaining time. Pausing
// a room that is not running is an idempotent no-op.
func (c *Controller) Pause(ctx context.Context, roomID any) (*Ack, error) {
	key, err := NormalizeRoomKey(roomID)
	if err != nil {
		return nil, err
	}
	sess, ok := c.registry.Get(key)
	if !ok {
		return nil, ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.timer == nil {
		return c.ackLocked(sess), ErrNothingToPause
	}

	sess.timer.Cancel()
	sess.timer = nil
	c.emitStatusLocked(sess, models.StatusPaused, "")

	log.Info().
		Str("room", key).
		Str("time_left", FormatHMS(sess.remainingSeconds)).
		Msg("countdown paused")

	return c.ackLocked(sess), nil
}

// Continue resumes a paused countdown from the exact frozen remaining
// time. Continuing a running room or a room with no time left is an
// idempotent no-op.
func (c *Controller) Continue(ctx context.Context, roomID any) (*Ack, error) {
	key, err := NormalizeRoomKey(roomID)
	if err != nil {
		return nil, err
	}
	sess, ok := c.registry.Get(key)
	if !ok {
		return nil, ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.timer != nil {
		return c.ackLocked(sess), ErrAlreadyRunning
	}
	if sess.remainingSeconds <= 0 {
		return c.ackLocked(sess), ErrNothingToResume
	}

	c.emitStatusLocked(sess, models.StatusContinued, "")
	c.scheduleLocked(sess)

	log.Info().
		Str("room", key).
		Str("time_left", FormatHMS(sess.remainingSeconds)).
		Msg("countdown resumed")

	return c.ackLocked(sess), nil
}

// Stop cancels any live timer, zeroes the remaining time and broadcasts
// a terminal snapshot. The session entry is retained at zero so late
// status reads still see the terminal state; stopping an already
// terminal session is a no-op without a second broadcast.
func (c *Controller) Stop(ctx context.Context, roomID any) (*Ack, error) {
	key, err := NormalizeRoomKey(roomID)
	if err != nil {
		return nil, err
	}
	sess, ok := c.registry.Get(key)
	if !ok {
		return nil, ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.timer == nil && sess.remainingSeconds == 0 {
		return c.ackLocked(sess), nil
	}

	left := sess.remainingSeconds
	if sess.timer != nil {
		sess.timer.Cancel()
		sess.timer = nil
	}
	sess.remainingSeconds = 0
	c.emitStatusLocked(sess, models.StatusStopped, models.ReasonStopped)
	c.recordFinishedLocked(sess, models.ReasonStopped, left)

	log.Info().Str("room", key).Msg("countdown stopped by operator")

	return c.ackLocked(sess), nil
}

// Snapshot returns the current status snapshot for a room without
// mutating it.
func (c *Controller) Snapshot(roomID any) (*models.StatusSnapshot, error) {
	key, err := NormalizeRoomKey(roomID)
	if err != nil {
		return nil, err
	}
	sess, ok := c.registry.Get(key)
	if !ok {
		return nil, ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var reason models.CompletionReason
	switch sess.status {
	case models.StatusCompleted:
		reason = models.ReasonTimeUp
	case models.StatusStopped:
		reason = models.ReasonStopped
	}
	snap := c.snapshotLocked(sess, reason)
	return &snap, nil
}

// scheduleLocked begins the recurring tick loop for a session. Caller
// holds the session lock and has verified no live timer exists; storing
// the new handle is the check-then-set that upholds the single-timer
// invariant.
func (c *Controller) scheduleLocked(sess *RoomSession) {
	var handle TimerHandle
	handle = c.scheduler.Schedule(c.tickPeriod, func() {
		c.tick(sess, handle)
	})
	sess.timer = handle
}

// tick applies one countdown decrement. A tick whose handle no longer
// matches the session's live handle was cancelled or replaced while in
// flight and must be a guaranteed no-op.
func (c *Controller) tick(sess *RoomSession, handle TimerHandle) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.timer != handle {
		return
	}

	sess.remainingSeconds--
	if sess.remainingSeconds <= 0 {
		sess.remainingSeconds = 0
		handle.Cancel()
		sess.timer = nil
		c.emitStatusLocked(sess, models.StatusCompleted, models.ReasonTimeUp)
		c.recordFinishedLocked(sess, models.ReasonTimeUp, 0)

		log.Info().Str("room", sess.roomKey).Msg("countdown completed, time is up")
		return
	}

	log.Debug().
		Str("room", sess.roomKey).
		Str("time_left", FormatHMS(sess.remainingSeconds)).
		Msg("tick")

	c.emitStatusLocked(sess, models.StatusStarted, "")
}

// emitStatusLocked records the new phase and broadcasts a fresh
// snapshot. Caller holds the session lock.
func (c *Controller) emitStatusLocked(sess *RoomSession, status models.ExamStatus, reason models.CompletionReason) {
	sess.status = status
	snap := c.snapshotLocked(sess, reason)
	c.broadcaster.Broadcast(sess.roomKey, EventStatus, snap)
}

func (c *Controller) snapshotLocked(sess *RoomSession, reason models.CompletionReason) models.StatusSnapshot {
	return models.StatusSnapshot{
		Status:           sess.status,
		TimeLeft:         sess.remainingSeconds,
		TimeFormatted:    FormatHMS(sess.remainingSeconds),
		ServerTime:       c.clock.Now().In(c.timezone).Format("15:04:05"),
		ExamCompleted:    reason == models.ReasonTimeUp,
		CompletionReason: reason,
	}
}

// recordFinishedLocked hands a terminal session to the history recorder
// without blocking the tick path. Caller holds the session lock;
// remainingBefore is the remaining time before it was zeroed.
func (c *Controller) recordFinishedLocked(sess *RoomSession, reason models.CompletionReason, remainingBefore int) {
	if c.recorder == nil {
		return
	}
	rec := models.SessionRecord{
		RoomKey:        sess.roomKey,
		PlannedSeconds: sess.plannedSeconds,
		ElapsedSeconds: sess.plannedSeconds - remainingBefore,
		Reason:         reason,
		StartedAt:      sess.startedAt,
		EndedAt:        c.clock.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.recorder.RecordFinished(ctx, rec); err != nil {
			log.Error().Err(err).Str("room", rec.RoomKey).Msg("failed to archive finished session")
		}
	}()
}

func (c *Controller) ackLocked(sess *RoomSession) *Ack {
	return &Ack{
		RoomKey:         sess.roomKey,
		DurationSeconds: sess.plannedSeconds,
		TimeLeft:        sess.remainingSeconds,
	}
}
