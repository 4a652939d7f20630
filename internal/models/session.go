package models

import "time"

// ExamStatus defines the broadcast phase of a room's countdown.
// The values are part of the wire contract toward clients.
type ExamStatus string

const (
	StatusStarted   ExamStatus = "started"
	StatusCompleted ExamStatus = "completed"
	StatusPaused    ExamStatus = "paused"
	StatusContinued ExamStatus = "continued"
	StatusStopped   ExamStatus = "stopped"
)

// CompletionReason explains why a countdown reached a terminal state.
type CompletionReason string

const (
	ReasonTimeUp  CompletionReason = "timeup"
	ReasonStopped CompletionReason = "stopped"
)

// StatusSnapshot is the outbound representation of a room's countdown,
// produced fresh on every emission and never stored. The field names
// (including isStarted carrying the status string) are the client-facing
// contract and must not change.
type StatusSnapshot struct {
	Status           ExamStatus       `json:"isStarted"`
	TimeLeft         int              `json:"timeLeft"`
	TimeFormatted    string           `json:"timeFormatted"`
	ServerTime       string           `json:"serverTime"`
	ExamCompleted    bool             `json:"examCompleted,omitempty"`
	CompletionReason CompletionReason `json:"completionReason,omitempty"`
}

// SessionRecord is the archival row written when a session reaches a
// terminal state.
type SessionRecord struct {
	RoomKey        string           `json:"room_key"`
	PlannedSeconds int              `json:"planned_seconds"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	Reason         CompletionReason `json:"completion_reason"`
	StartedAt      time.Time        `json:"started_at"`
	EndedAt        time.Time        `json:"ended_at"`
}
