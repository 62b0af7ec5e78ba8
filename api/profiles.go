package api

import (
	"encoding/json"
	"net/http"

	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

type ProfilesHandler struct {
	profileRepo repository.ProfileRepo
}

func NewProfilesHandler(pr repository.ProfileRepo) *ProfilesHandler {
	return &ProfilesHandler{profileRepo: pr}
}

// profileView hides the password hash from API responses.
type profileView struct {
	ID       string                 `json:"id"`
	Role     string                 `json:"role"`
	FullName string                 `json:"full_name"`
	Email    string                 `json:"email"`
	Company  string                 `json:"company,omitempty"`
	Verified bool                   `json:"verified"`
	Metadata models.ProfileMetadata `json:"metadata"`
	Created  int64                  `json:"created"`
	Updated  int64                  `json:"updated"`
}

func viewOf(p *models.Profile) profileView {
	return profileView{
		ID:       p.ID,
		Role:     p.Role,
		FullName: p.FullName,
		Email:    p.Email,
		Company:  p.Company,
		Verified: p.Verified,
		Metadata: p.Metadata,
		Created:  p.Created,
		Updated:  p.Updated,
	}
}

func (h *ProfilesHandler) GetMe(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, viewOf(p), http.StatusOK)
}

type updateProfileRequest struct {
	FullName string                  `json:"full_name"`
	Company  string                  `json:"company"`
	Metadata *models.ProfileMetadata `json:"metadata"`
}

// UpdateMe updates the caller's profile. Role and email are immutable here;
// the repository never writes role regardless of what is sent.
func (h *ProfilesHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
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

	if req.FullName != "" {
		p.FullName = req.FullName
	}
	if req.Company != "" {
		p.Company = req.Company
	}
	if req.Metadata != nil {
		p.Metadata = *req.Metadata
	}

	if err := h.profileRepo.UpdateProfile(r.Context(), p); err != nil {
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, viewOf(p), http.StatusOK)
}
