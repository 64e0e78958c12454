package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/winmix/prediction-api/internal/logic"
	"github.com/winmix/prediction-api/internal/models"
)

// RegisterModel registers a prediction model
// @Summary Register Model
// @Tags Models
// @Accept json
// @Produce json
// @Param body body models.RegisterModelRequest true "Model"
// @Success 201 {object} models.ModelRegistry
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /models [post]
func (h *Handler) RegisterModel(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterModelRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	m, err := h.models.Register(r.Context(), req)
	if err != nil {
		h.logger.Errorw("Failed to register model", "error", err, "name", req.ModelName)
		h.serviceError(w, err, "Failed to register model")
		return
	}
	h.jsonResponse(w, http.StatusCreated, m)
}

// ListModels returns every registered model
// @Summary List Models
// @Tags Models
// @Produce json
// @Success 200 {array} models.ModelRegistry
// @Router /models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.models.List(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to list models", "error", err)
		h.serviceError(w, err, "Failed to list models")
		return
	}
	if list == nil {
		list = []models.ModelRegistry{}
	}
	h.jsonResponse(w, http.StatusOK, list)
}

// CreateExperiment opens a champion/challenger experiment
// @Summary Create Experiment
// @Tags Models
// @Accept json
// @Produce json
// @Param body body models.CreateExperimentRequest true "Experiment"
// @Success 201 {object} models.ModelExperiment
// @Failure 404 {object} map[string]string "Not Found"
// @Router /experiments [post]
func (h *Handler) CreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExperimentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	exp, err := h.models.CreateExperiment(r.Context(), req)
	if err != nil {
		h.logger.Errorw("Failed to create experiment", "error", err, "name", req.ExperimentName)
		h.serviceError(w, err, "Failed to create experiment")
		return
	}
	h.jsonResponse(w, http.StatusCreated, exp)
}

// EvaluateExperiment runs the significance test and persists the verdict
// @Summary Evaluate Experiment
// @Tags Models
// @Produce json
// @Param id path string true "Experiment ID"
// @Success 200 {object} models.ModelExperiment
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Already Completed"
// @Router /experiments/{id}/evaluate [post]
func (h *Handler) EvaluateExperiment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing experiment ID")
		return
	}

	exp, err := h.models.EvaluateExperiment(r.Context(), id)
	if err != nil {
		h.logger.Errorw("Failed to evaluate experiment", "error", err, "experimentID", id)
		h.serviceError(w, err, "Failed to evaluate experiment")
		return
	}
	h.jsonResponse(w, http.StatusOK, exp)
}

// SelectModel routes a request to a model via epsilon-greedy selection
// @Summary Select Model
// @Tags Models
// @Produce json
// @Param epsilon query number false "Exploration rate (default 0.1)"
// @Success 200 {object} models.ModelSelection
// @Failure 404 {object} map[string]string "No Models"
// @Router /models/select [get]
func (h *Handler) SelectModel(w http.ResponseWriter, r *http.Request) {
	epsilon := logic.DefaultEpsilon
	if raw := r.URL.Query().Get("epsilon"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.errorResponse(w, http.StatusBadRequest, "epsilon must be a number between 0 and 1")
			return
		}
		epsilon = parsed
	}

	sel, err := h.models.Select(r.Context(), epsilon)
	if err != nil {
		h.logger.Errorw("Failed to select model", "error", err)
		h.serviceError(w, err, "Failed to select model")
		return
	}
	h.jsonResponse(w, http.StatusOK, sel)
}

// AutoPruneTemplates deactivates persistently underperforming templates
// @Summary Auto-Prune Templates
// @Tags Models
// @Accept json
// @Produce json
// @Param body body models.AutoPruneRequest false "Overrides"
// @Success 200 {object} models.AutoPruneResult
// @Router /models/auto-prune [post]
func (h *Handler) AutoPruneTemplates(w http.ResponseWriter, r *http.Request) {
	var req models.AutoPruneRequest
	if r.ContentLength > 0 && !h.decodeBody(w, r, &req) {
		return
	}

	var threshold float64
	var minSamples int
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if req.MinSampleSize != nil {
		minSamples = *req.MinSampleSize
	}

	res, err := h.models.AutoPrune(r.Context(), threshold, minSamples)
	if err != nil {
		h.logger.Errorw("Failed to auto-prune templates", "error", err)
		h.serviceError(w, err, "Failed to auto-prune templates")
		return
	}
	h.jsonResponse(w, http.StatusOK, res)
}
