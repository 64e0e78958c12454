package handlers

import (
	"net/http"

	"github.com/winmix/prediction-api/internal/models"
)

// SubmitFeedback applies a final result and evaluates the prediction
// @Summary Submit Match Feedback
// @Description Records the final score, evaluates the stored prediction and updates pattern calibration
// @Tags Feedback
// @Accept json
// @Produce json
// @Param body body models.SubmitFeedbackRequest true "Result"
// @Success 200 {object} models.FeedbackResult
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Already Evaluated"
// @Router /feedback [post]
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitFeedbackRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	res, err := h.feedback.Submit(r.Context(), req)
	if err != nil {
		h.logger.Errorw("Failed to submit feedback", "error", err, "matchID", req.MatchID)
		h.serviceError(w, err, "Failed to submit feedback")
		return
	}
	h.jsonResponse(w, http.StatusOK, res)
}
