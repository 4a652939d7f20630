package exam

import "errors"

// Hard failures: the command cannot be applied and the caller must be
// told so.
var (
	ErrMissingRoomID   = errors.New("room id is required")
	ErrInvalidDuration = errors.New("duration must be greater than zero")
	ErrRoomNotFound    = errors.New("room not found")
)

// Soft signals: the command is an idempotent no-op. The session is left
// exactly as it was.
var (
	ErrAlreadyRunning  = errors.New("exam is already running")
	ErrNothingToPause  = errors.New("no running countdown to pause")
	ErrNothingToResume = errors.New("no time left to resume")
)

// IsSoft reports whether err is an idempotent no-op signal rather than
// a real failure.
func IsSoft(err error) bool {
	return errors.Is(err, ErrAlreadyRunning) ||
		errors.Is(err, ErrNothingToPause) ||
		errors.Is(err, ErrNothingToResume)
}
