package api

import (
	"encoding/json"
	"net/http"

	"github.com/signalhunt/market/internal/jobs"
	"github.com/signalhunt/market/pkg/repository"
)

// ChatHandler accepts onboarding chat transcripts and queues them for
// background profile extraction. Extraction never blocks the request.
type ChatHandler struct {
	profileRepo repository.ProfileRepo
	pool        *jobs.WorkerPool
}

func NewChatHandler(pr repository.ProfileRepo, pool *jobs.WorkerPool) *ChatHandler {
	return &ChatHandler{profileRepo: pr, pool: pool}
}

type chatRequest struct {
	Transcript string `json:"transcript"`
}

type chatResponse struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}

func (h *ChatHandler) SubmitTranscript(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		http.Error(w, "extraction is not enabled", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Transcript == "" {
		http.Error(w, "transcript is required", http.StatusBadRequest)
		return
	}

	id := profileIDFromContext(r.Context())
	p, err := h.profileRepo.GetProfile(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeJSON(w, errorResponse{Error: "profile not found", Code: "not_found"}, http.StatusNotFound)
		return
	}

	jobID, err := h.pool.Enqueue(r.Context(), jobs.TypeProfileChat, jobs.ProfileChatPayload{
		ProfileID:  p.ID,
		Role:       p.Role,
		Transcript: req.Transcript,
	}, 0, 0)
	if err != nil {
		http.Error(w, "failed to enqueue extraction", http.StatusInternalServerError)
		return
	}

	writeJSON(w, chatResponse{JobID: jobID, Status: "queued"}, http.StatusAccepted)
}
