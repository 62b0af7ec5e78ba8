package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/signalhunt/market/internal/market"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

type MeetingsHandler struct {
	engine      *market.Engine
	meetingRepo repository.MeetingRepo
}

func NewMeetingsHandler(engine *market.Engine, mr repository.MeetingRepo) *MeetingsHandler {
	return &MeetingsHandler{engine: engine, meetingRepo: mr}
}

// ListMeetings returns meetings where the caller is host or guest.
func (h *MeetingsHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	userID := profileIDFromContext(r.Context())

	var meetings []models.Meeting
	var err error
	if r.URL.Query().Get("as") == "guest" {
		meetings, err = h.meetingRepo.ListMeetingsByGuest(r.Context(), userID, limit, offset)
	} else {
		meetings, err = h.meetingRepo.ListMeetingsByHost(r.Context(), userID, limit, offset)
	}
	if err != nil {
		http.Error(w, "failed to list meetings", http.StatusInternalServerError)
		return
	}

	if meetings == nil {
		meetings = []models.Meeting{}
	}
	writeJSON(w, map[string]any{"limit": limit, "offset": offset, "items": meetings}, http.StatusOK)
}

type scheduleMeetingRequest struct {
	ScheduledAt int64  `json:"scheduled_at"`
	MeetingLink string `json:"meeting_link"`
}

func (h *MeetingsHandler) ScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	var req scheduleMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ScheduledAt <= 0 {
		http.Error(w, "scheduled_at is required", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	m, err := h.engine.ScheduleMeeting(r.Context(), profileIDFromContext(r.Context()), id, req.ScheduledAt, req.MeetingLink)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, m, http.StatusOK)
}

func (h *MeetingsHandler) CompleteMeeting(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := h.engine.CompleteMeeting(r.Context(), profileIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, m, http.StatusOK)
}

func (h *MeetingsHandler) CancelMeeting(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := h.engine.CancelMeeting(r.Context(), profileIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, m, http.StatusOK)
}
