package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/signalhunt/market/internal/market"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

type BidsHandler struct {
	engine      *market.Engine
	profileRepo repository.ProfileRepo
	bidRepo     repository.BidRepo
}

func NewBidsHandler(engine *market.Engine, pr repository.ProfileRepo, br repository.BidRepo) *BidsHandler {
	return &BidsHandler{engine: engine, profileRepo: pr, bidRepo: br}
}

type placeBidRequest struct {
	ListingID     string `json:"listing_id"`
	Amount        int    `json:"amount"`
	Message       string `json:"message"`
	PreferredTime string `json:"preferred_time"`
}

func (h *BidsHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ListingID == "" || req.Amount <= 0 {
		http.Error(w, "missing fields", http.StatusBadRequest)
		return
	}

	bidder, ok := h.actor(w, r)
	if !ok {
		return
	}

	b, err := h.engine.PlaceBid(r.Context(), bidder, req.ListingID, req.Amount, req.Message, req.PreferredTime)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, b, http.StatusCreated)
}

type respondBidRequest struct {
	Decision string `json:"decision"`
}

type respondBidResponse struct {
	Bid     *models.Bid     `json:"bid"`
	Meeting *models.Meeting `json:"meeting,omitempty"`
}

func (h *BidsHandler) RespondToBid(w http.ResponseWriter, r *http.Request) {
	var req respondBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	decision := market.Decision(req.Decision)
	if decision != market.DecisionAccept && decision != market.DecisionReject {
		http.Error(w, "decision must be accept or reject", http.StatusBadRequest)
		return
	}

	bidID := mux.Vars(r)["id"]
	b, m, err := h.engine.RespondToBid(r.Context(), profileIDFromContext(r.Context()), bidID, decision)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, respondBidResponse{Bid: b, Meeting: m}, http.StatusOK)
}

// ListIncomingBids lists bids against the caller's listing (the caller is the
// owner). Optional ?status= filter.
func (h *BidsHandler) ListIncomingBids(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	bids, err := h.bidRepo.ListBidsByOwner(r.Context(), profileIDFromContext(r.Context()), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		http.Error(w, "failed to list bids", http.StatusInternalServerError)
		return
	}

	if bids == nil {
		bids = []models.Bid{}
	}
	writeJSON(w, map[string]any{"limit": limit, "offset": offset, "items": bids}, http.StatusOK)
}

// ListMyBids lists bids the caller placed as a Hunter.
func (h *BidsHandler) ListMyBids(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	bids, err := h.bidRepo.ListBidsByBidder(r.Context(), profileIDFromContext(r.Context()), limit, offset)
	if err != nil {
		http.Error(w, "failed to list bids", http.StatusInternalServerError)
		return
	}

	if bids == nil {
		bids = []models.Bid{}
	}
	writeJSON(w, map[string]any{"limit": limit, "offset": offset, "items": bids}, http.StatusOK)
}

func (h *BidsHandler) actor(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
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

func pageParams(r *http.Request) (int, int) {
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
	return limit, offset
}
