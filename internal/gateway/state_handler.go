package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/examroom/internal/exam"
	"github.com/mcdev12/examroom/internal/models"
)

// StateProvider is what the state handler needs from the session
// engine.
type StateProvider interface {
	Snapshot(roomID any) (*models.StatusSnapshot, error)
}

// StateHandler serves read-only room state over HTTP so late joiners
// and reconnecting clients can resynchronize without waiting for the
// next tick.
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler.
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleRoomState handles GET /api/rooms/{id}/state.
func (h *StateHandler) HandleRoomState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "method not allowed"})
		return
	}

	roomID := extractRoomIDFromPath(r.URL.Path)
	if roomID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "room id is required"})
		return
	}

	snap, err := h.stateProvider.Snapshot(roomID)
	if err != nil {
		if errors.Is(err, exam.ErrRoomNotFound) || errors.Is(err, exam.ErrMissingRoomID) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: exam.ErrRoomNotFound.Error()})
			return
		}
		log.Error().Err(err).Str("room", roomID).Msg("failed to read room state")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "failed to read room state"})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// RegisterStateRoutes registers state routes with an HTTP mux.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/state") {
			h.HandleRoomState(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// extractRoomIDFromPath extracts the room id from a path like
// /api/rooms/{id}/state.
func extractRoomIDFromPath(path string) string {
	const prefix = "/api/rooms/"
	const suffix = "/state"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}
