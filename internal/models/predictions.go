package models

import "time"

// FormScores are the 0-100 recent-performance scores used by the
// prediction engine (20 per win, 10 per draw, capped at 100; neutral 50
// with no history).
type FormScores struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// PredictionFactors is the audit payload stored alongside a prediction:
// the patterns that contributed, the form scores, and the context the
// engine saw at prediction time.
type PredictionFactors struct {
	Patterns             []DetectionResult `json:"patterns"`
	FormScores           FormScores        `json:"form_scores"`
	H2HMatchesConsidered int               `json:"h2h_matches_considered"`
	LeagueAvgGoals       float64           `json:"league_avg_goals"`
}

// Prediction is one forecast for a match. At most one live prediction
// exists per match; shadow rows (IsShadow) may duplicate it for model
// comparison and are never shown as the primary tip. Once EvaluatedAt is
// set the row is immutable apart from audit metadata.
type Prediction struct {
	ID               string            `json:"id"`
	MatchID          string            `json:"match_id"`
	ModelID          *string           `json:"model_id,omitempty"`
	ModelName        string            `json:"model_name,omitempty"`
	ModelVersion     string            `json:"model_version,omitempty"`
	PredictedOutcome Outcome           `json:"predicted_outcome"`
	ConfidenceScore  float64           `json:"confidence_score"`
	CSSScore         float64           `json:"css_score"`
	Factors          PredictionFactors `json:"prediction_factors"`
	BTTSPrediction   *bool             `json:"btts_prediction,omitempty"`
	IsShadow         bool              `json:"is_shadow"`
	ActualOutcome    *Outcome          `json:"actual_outcome,omitempty"`
	WasCorrect       *bool             `json:"was_correct,omitempty"`
	CalibrationError *float64          `json:"calibration_error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	EvaluatedAt      *time.Time        `json:"evaluated_at,omitempty"`
}

// Evaluated reports whether feedback has already been applied to this
// prediction. Evaluated predictions must never be counted twice.
func (p *Prediction) Evaluated() bool {
	return p.EvaluatedAt != nil
}

// PredictionResponse is the analyze-match payload returned to callers.
type PredictionResponse struct {
	Prediction *Prediction       `json:"prediction"`
	Patterns   []DetectionResult `json:"patterns"`
	FormScores FormScores        `json:"form_scores"`
}

// FeedbackResult summarizes one feedback submission.
type FeedbackResult struct {
	WasCorrect       bool    `json:"was_correct"`
	ActualOutcome    Outcome `json:"actual_outcome"`
	PredictedOutcome Outcome `json:"predicted_outcome"`
	CalibrationError float64 `json:"calibration_error"`
}
