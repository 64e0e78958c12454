package handlers

import (
	"net/http"

	"github.com/winmix/prediction-api/internal/models"
)

// AnalyzeMatch produces a prediction for a scheduled match
// @Summary Analyze Match
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.AnalyzeMatchRequest true "Match"
// @Success 200 {object} models.PredictionResponse
// @Failure 404 {object} map[string]string "Not Found"
// @Router /predictions/analyze [post]
func (h *Handler) AnalyzeMatch(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeMatchRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	resp, err := h.predictions.Analyze(r.Context(), req.MatchID)
	if err != nil {
		h.logger.Errorw("Failed to analyze match", "error", err, "matchID", req.MatchID)
		h.serviceError(w, err, "Failed to analyze match")
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// TrackPrediction records an externally-computed prediction
// @Summary Track Prediction
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.TrackPredictionRequest true "Prediction"
// @Success 201 {object} models.Prediction
// @Failure 404 {object} map[string]string "Not Found"
// @Router /predictions/track [post]
func (h *Handler) TrackPrediction(w http.ResponseWriter, r *http.Request) {
	var req models.TrackPredictionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	pred, err := h.predictions.Track(r.Context(), req)
	if err != nil {
		h.logger.Errorw("Failed to track prediction", "error", err, "matchID", req.MatchID)
		h.serviceError(w, err, "Failed to track prediction")
		return
	}
	h.jsonResponse(w, http.StatusCreated, pred)
}

// ShadowRun records a shadow prediction attributed to a model
// @Summary Shadow Run
// @Description Duplicates the live prediction under a registered model for offline comparison
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body models.ShadowRunRequest true "Shadow Run"
// @Success 201 {object} models.Prediction
// @Failure 404 {object} map[string]string "Not Found"
// @Router /predictions/shadow [post]
func (h *Handler) ShadowRun(w http.ResponseWriter, r *http.Request) {
	var req models.ShadowRunRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	pred, err := h.predictions.ShadowRun(r.Context(), req.MatchID, req.ModelID)
	if err != nil {
		h.logger.Errorw("Failed to run shadow prediction", "error", err,
			"matchID", req.MatchID, "modelID", req.ModelID)
		h.serviceError(w, err, "Failed to run shadow prediction")
		return
	}
	h.jsonResponse(w, http.StatusCreated, pred)
}
