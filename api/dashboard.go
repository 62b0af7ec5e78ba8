package api

import (
	"net/http"

	"github.com/signalhunt/market/internal/dashboard"
)

type DashboardHandler struct {
	agg *dashboard.Aggregator
}

func NewDashboardHandler(agg *dashboard.Aggregator) *DashboardHandler {
	return &DashboardHandler{agg: agg}
}

// Stats returns the caller's dashboard projections. Values may be up to the
// configured staleness window behind the write path.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.agg.StatsFor(r.Context(), profileIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats, http.StatusOK)
}
