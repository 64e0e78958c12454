package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RefreshLeagueBaseline recomputes a league's goal average from the archive
// @Summary Refresh League Baseline
// @Description Recomputes avg goals per match from archived finished matches and invalidates the cache
// @Tags Leagues
// @Produce json
// @Param id path string true "League ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Not Found"
// @Router /leagues/{id}/refresh-baseline [post]
func (h *Handler) RefreshLeagueBaseline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing league ID")
		return
	}

	avg, err := h.leagues.RefreshBaseline(r.Context(), id)
	if err != nil {
		h.logger.Errorw("Failed to refresh league baseline", "error", err, "leagueID", id)
		h.serviceError(w, err, "Failed to refresh league baseline")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"league_id":           id,
		"avg_goals_per_match": avg,
	})
}
