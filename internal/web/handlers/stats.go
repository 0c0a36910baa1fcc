package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-catalog/internal/catalog"
	"github.com/kozaktomas/face-catalog/internal/web/middleware"
)

// StatsHandler reports per-account catalog totals.
type StatsHandler struct {
	catalog *catalog.Catalog
}

func NewStatsHandler(cat *catalog.Catalog) *StatsHandler {
	return &StatsHandler{catalog: cat}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
