package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/signalhunt/market/internal/anonymize"
	"github.com/signalhunt/market/internal/market"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

type ListingsHandler struct {
	engine      *market.Engine
	profileRepo repository.ProfileRepo
	listingRepo repository.ListingRepo
}

func NewListingsHandler(engine *market.Engine, pr repository.ProfileRepo, lr repository.ListingRepo) *ListingsHandler {
	return &ListingsHandler{engine: engine, profileRepo: pr, listingRepo: lr}
}

type listingRequest struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       int      `json:"price"`
	Tags        []string `json:"tags"`
}

func (h *ListingsHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	owner, ok := h.actor(w, r)
	if !ok {
		return
	}

	l, err := h.engine.CreateListing(r.Context(), owner, market.ListingInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, l, http.StatusCreated)
}

func (h *ListingsHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	l, err := h.engine.UpdateListing(r.Context(), profileIDFromContext(r.Context()), id, market.ListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, l, http.StatusOK)
}

type listingStatusRequest struct {
	Status string `json:"status"`
}

func (h *ListingsHandler) SetListingStatus(w http.ResponseWriter, r *http.Request) {
	var req listingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	l, err := h.engine.SetListingStatus(r.Context(), profileIDFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, l, http.StatusOK)
}

// GetMyListing returns the caller's own (non-deleted) listing.
func (h *ListingsHandler) GetMyListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.listingRepo.GetActiveListingByOwner(r.Context(), profileIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, "failed to load listing", http.StatusInternalServerError)
		return
	}
	if l == nil {
		writeJSON(w, errorResponse{Error: "no listing", Code: "not_found"}, http.StatusNotFound)
		return
	}

	writeJSON(w, l, http.StatusOK)
}

// anonymizedListing is the browse shape shown to Hunters: the owner's
// identity is replaced by a category label and a stable pseudonym.
type anonymizedListing struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       int      `json:"price"`
	Tags        []string `json:"tags,omitempty"`
	Company     string   `json:"company"`
	OwnerAlias  string   `json:"owner_alias"`
}

// BrowseListings lists active listings with owner identity anonymized.
func (h *ListingsHandler) BrowseListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	offset := 0
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	listings, err := h.listingRepo.ListListings(r.Context(), models.ListingActive, limit, offset)
	if err != nil {
		http.Error(w, "failed to list listings", http.StatusInternalServerError)
		return
	}

	out := make([]anonymizedListing, 0, len(listings))
	for _, l := range listings {
		company := ""
		if owner, err := h.profileRepo.GetProfile(r.Context(), l.UserID); err == nil && owner != nil {
			company = owner.Company
		}
		out = append(out, anonymizedListing{
			ID:          l.ID,
			Type:        l.Type,
			Title:       l.Title,
			Description: l.Description,
			Price:       l.Price,
			Tags:        l.Tags,
			Company:     anonymize.Company(company),
			OwnerAlias:  anonymize.AnonymousID(l.UserID),
		})
	}

	resp := map[string]any{
		"limit":  limit,
		"offset": offset,
		"items":  out,
	}
	writeJSON(w, resp, http.StatusOK)
}

func (h *ListingsHandler) actor(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id := profileIDFromContext(r.Context())
	if id == "" {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return nil, false
	}
	p, err := h.profileRepo.GetProfile(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return nil, false
	}
	if p == nil {
		writeError(w, fmt.Errorf("profile %s: %w", id, repository.ErrNotFound))
		return nil, false
	}
	return p, true
}
