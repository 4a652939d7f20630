package exam

import (
	"context"
	"fmt"
)

// Action identifies a session control command.
type Action string

const (
	ActionStart    Action = "start"
	ActionPause    Action = "pause"
	ActionContinue Action = "continue"
	ActionStop     Action = "stop"
)

// Command is a transport-agnostic inbound control request. RoomID is
// the raw client-supplied identifier; normalization happens inside the
// controller.
type Command struct {
	Action          Action
	RoomID          any
	DurationSeconds int
}

// Ack reports the outcome of a command back to the caller.
type Ack struct {
	RoomKey         string `json:"roomId"`
	DurationSeconds int    `json:"duration,omitempty"`
	TimeLeft        int    `json:"timeLeft"`
	Message         string `json:"message"`
}

// Router translates an inbound command into exactly one controller
// call. Soft no-op signals resolve to a successful ack carrying the
// signal's message; hard failures are returned for the transport to map
// to its own error shape.
type Router struct {
	controller *Controller
}

// NewRouter creates a command router over the given controller.
func NewRouter(controller *Controller) *Router {
	return &Router{controller: controller}
}

// Dispatch routes a command to the controller.
func (r *Router) Dispatch(ctx context.Context, cmd Command) (*Ack, error) {
	switch cmd.Action {
	case ActionStart:
		ack, err := r.controller.Start(ctx, cmd.RoomID, cmd.DurationSeconds)
		return resolve(ack, err, "countdown started")
	case ActionPause:
		ack, err := r.controller.Pause(ctx, cmd.RoomID)
		return resolve(ack, err, "countdown paused")
	case ActionContinue:
		ack, err := r.controller.Continue(ctx, cmd.RoomID)
		return resolve(ack, err, "countdown resumed")
	case ActionStop:
		ack, err := r.controller.Stop(ctx, cmd.RoomID)
		return resolve(ack, err, "countdown stopped")
	default:
		return nil, fmt.Errorf("unknown command action %q", cmd.Action)
	}
}

func resolve(ack *Ack, err error, okMessage string) (*Ack, error) {
	if err != nil {
		if IsSoft(err) && ack != nil {
			ack.Message = err.Error()
			return ack, nil
		}
		return nil, err
	}
	ack.Message = okMessage
	return ack, nil
}
