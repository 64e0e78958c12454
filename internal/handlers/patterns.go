package handlers

import (
	"net/http"
	"strings"

	"github.com/winmix/prediction-api/internal/models"
)

// patternRequest builds the detection request from either the JSON body
// (POST) or query parameters (GET).
func (h *Handler) patternRequest(w http.ResponseWriter, r *http.Request) (*models.DetectPatternsRequest, bool) {
	var req models.DetectPatternsRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.TeamID = q.Get("team_id")
		req.TeamName = q.Get("team_name")
		if raw := q.Get("pattern_types"); raw != "" {
			for _, pt := range strings.Split(raw, ",") {
				if pt = strings.TrimSpace(pt); pt != "" {
					req.PatternTypes = append(req.PatternTypes, models.PatternType(pt))
				}
			}
		}
	} else if !h.decodeBody(w, r, &req) {
		return nil, false
	}
	if req.TeamID == "" && req.TeamName == "" {
		h.errorResponse(w, http.StatusBadRequest, "team_id or team_name is required")
		return nil, false
	}
	return &req, true
}

// DetectPatterns runs the pattern detectors for a team
// @Summary Detect Team Patterns
// @Tags Patterns
// @Accept json
// @Produce json
// @Param body body models.DetectPatternsRequest true "Team"
// @Success 200 {object} models.DetectPatternsResponse
// @Failure 404 {object} map[string]string "Not Found"
// @Router /patterns/detect [post]
func (h *Handler) DetectPatterns(w http.ResponseWriter, r *http.Request) {
	req, ok := h.patternRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.patterns.Detect(r.Context(), *req)
	if err != nil {
		h.logger.Errorw("Failed to detect patterns", "error", err, "teamID", req.TeamID)
		h.serviceError(w, err, "Failed to detect patterns")
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// VerifyPatterns reconciles stored patterns against fresh detection
// @Summary Verify Team Patterns
// @Tags Patterns
// @Accept json
// @Produce json
// @Param body body models.DetectPatternsRequest true "Team"
// @Success 200 {object} models.VerifyPatternsResponse
// @Failure 404 {object} map[string]string "Not Found"
// @Router /patterns/verify [post]
func (h *Handler) VerifyPatterns(w http.ResponseWriter, r *http.Request) {
	req, ok := h.patternRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.patterns.Verify(r.Context(), *req)
	if err != nil {
		h.logger.Errorw("Failed to verify patterns", "error", err, "teamID", req.TeamID)
		h.serviceError(w, err, "Failed to verify patterns")
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// GetTeamPatterns lists a team's active and expired patterns
// @Summary Get Team Patterns
// @Tags Patterns
// @Produce json
// @Param team_id query string false "Team ID"
// @Param team_name query string false "Team Name"
// @Success 200 {object} models.TeamPatternsResponse
// @Failure 404 {object} map[string]string "Not Found"
// @Router /patterns/team [get]
func (h *Handler) GetTeamPatterns(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	teamName := r.URL.Query().Get("team_name")
	if teamID == "" && teamName == "" {
		h.errorResponse(w, http.StatusBadRequest, "team_id or team_name is required")
		return
	}

	resp, err := h.patterns.TeamPatterns(r.Context(), teamID, teamName)
	if err != nil {
		h.logger.Errorw("Failed to get team patterns", "error", err, "teamID", teamID)
		h.serviceError(w, err, "Failed to get team patterns")
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}
