package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/examroom/internal/exam"
)

// CommandHandler exposes the session control commands over HTTP. It is
// a thin adapter: decode, authorize, dispatch, map the result to a
// status code. Error meanings are never altered on the way out.
type CommandHandler struct {
	commander   Commander
	authorizer  Authorizer
	connections *ConnectionManager
}

// NewCommandHandler creates an HTTP command handler.
func NewCommandHandler(commander Commander, authorizer Authorizer, connections *ConnectionManager) *CommandHandler {
	return &CommandHandler{
		commander:   commander,
		authorizer:  authorizer,
		connections: connections,
	}
}

type commandRequest struct {
	RoomID   any    `json:"roomId"`
	Duration int    `json:"duration,omitempty"`
	Token    string `json:"token,omitempty"`
}

type commandResponse struct {
	Message  string `json:"message"`
	RoomID   string `json:"roomId"`
	Duration int    `json:"duration,omitempty"`
	TimeLeft int    `json:"timeLeft"`
	Clients  int    `json:"clients,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// HandleStart handles POST /emit/start-evaluation.
func (h *CommandHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, exam.ActionStart)
}

// HandlePause handles POST /emit/pause-evaluation.
func (h *CommandHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, exam.ActionPause)
}

// HandleContinue handles POST /emit/continue-evaluation.
func (h *CommandHandler) HandleContinue(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, exam.ActionContinue)
}

// HandleStop handles POST /emit/stop-evaluation.
func (h *CommandHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, exam.ActionStop)
}

func (h *CommandHandler) handleCommand(w http.ResponseWriter, r *http.Request, action exam.Action) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "method not allowed"})
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "malformed request body"})
		return
	}

	token := req.Token
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "token required"})
		return
	}
	if _, err := h.authorizer.Authorize(r.Context(), token); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "invalid token"})
		return
	}

	ack, err := h.commander.Dispatch(r.Context(), exam.Command{
		Action:          action,
		RoomID:          req.RoomID,
		DurationSeconds: req.Duration,
	})
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Message: err.Error()})
		return
	}

	resp := commandResponse{
		Message:  ack.Message,
		RoomID:   ack.RoomKey,
		TimeLeft: ack.TimeLeft,
	}
	if action == exam.ActionStart {
		resp.Duration = ack.DurationSeconds
		resp.Clients = h.connections.SubscriberCount(ack.RoomKey)
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegisterRoutes registers the command endpoints with an HTTP mux. The
// paths are part of the client contract.
func (h *CommandHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/emit/start-evaluation", h.HandleStart)
	mux.HandleFunc("/emit/pause-evaluation", h.HandlePause)
	mux.HandleFunc("/emit/continue-evaluation", h.HandleContinue)
	mux.HandleFunc("/emit/stop-evaluation", h.HandleStop)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, exam.ErrMissingRoomID), errors.Is(err, exam.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, exam.ErrRoomNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// bearerToken extracts a credential from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
