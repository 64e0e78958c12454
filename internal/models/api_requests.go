package models

import "encoding/json"

// DetectPatternsRequest drives both patterns/detect and patterns/verify.
// Either TeamID or TeamName must be present; PatternTypes limits the
// detectors that run (empty means all).
type DetectPatternsRequest struct {
	TeamID       string        `json:"team_id"`
	TeamName     string        `json:"team_name"`
	PatternTypes []PatternType `json:"pattern_types"`
}

type AnalyzeMatchRequest struct {
	MatchID string `json:"match_id" validate:"required"`
}

type TrackPredictionRequest struct {
	MatchID          string          `json:"match_id" validate:"required"`
	PredictedOutcome Outcome         `json:"predicted_outcome" validate:"required,oneof=home_win draw away_win"`
	ConfidenceScore  float64         `json:"confidence_score" validate:"gte=0,lte=100"`
	CSSScore         *float64        `json:"css_score"`
	Factors          json.RawMessage `json:"prediction_factors"`
	BTTSPrediction   *bool           `json:"btts_prediction"`
}

type ShadowRunRequest struct {
	MatchID string `json:"match_id" validate:"required"`
	ModelID string `json:"model_id" validate:"required"`
}

type SubmitFeedbackRequest struct {
	MatchID           string `json:"match_id" validate:"required"`
	HomeScore         *int   `json:"home_score" validate:"required,gte=0"`
	AwayScore         *int   `json:"away_score" validate:"required,gte=0"`
	HalftimeHomeScore *int   `json:"halftime_home_score" validate:"omitempty,gte=0"`
	HalftimeAwayScore *int   `json:"halftime_away_score" validate:"omitempty,gte=0"`
}

type RegisterModelRequest struct {
	ModelName         string          `json:"model_name" validate:"required"`
	ModelVersion      string          `json:"model_version" validate:"required"`
	ModelType         ModelType       `json:"model_type" validate:"required,oneof=champion challenger"`
	Algorithm         string          `json:"algorithm"`
	Hyperparameters   json.RawMessage `json:"hyperparameters"`
	TrafficAllocation *float64        `json:"traffic_allocation" validate:"omitempty,gte=0,lte=100"`
}

type CreateExperimentRequest struct {
	ExperimentName        string   `json:"experiment_name" validate:"required"`
	ChampionModelID       string   `json:"champion_model_id" validate:"required"`
	ChallengerModelID     string   `json:"challenger_model_id" validate:"required"`
	TargetSampleSize      *int     `json:"target_sample_size" validate:"omitempty,gt=0"`
	SignificanceThreshold *float64 `json:"significance_threshold" validate:"omitempty,gt=0,lt=1"`
}

type AutoPruneRequest struct {
	Threshold     *float64 `json:"threshold" validate:"omitempty,gt=0,lte=100"`
	MinSampleSize *int     `json:"min_sample_size" validate:"omitempty,gt=0"`
}

// AutoPruneResult reports which templates fell below the accuracy
// threshold and were deactivated.
type AutoPruneResult struct {
	Threshold     float64           `json:"threshold"`
	MinSampleSize int               `json:"min_sample_size"`
	Candidates    int               `json:"candidates"`
	Deactivated   []PatternTemplate `json:"deactivated"`
}

// TeamPatternsResponse splits a team's pattern history by validity.
type TeamPatternsResponse struct {
	TeamID          string        `json:"team_id"`
	TeamName        string        `json:"team_name"`
	ActivePatterns  []TeamPattern `json:"active_patterns"`
	ExpiredPatterns []TeamPattern `json:"expired_patterns"`
}

// VerifyPatternsResponse reports the verify workflow's diff: refreshed
// rows and the ids of patterns that no longer hold.
type VerifyPatternsResponse struct {
	Updated []TeamPattern `json:"updated"`
	Expired []string      `json:"expired"`
}

// DetectPatternsResponse is the detect endpoint payload.
type DetectPatternsResponse struct {
	TeamID   string        `json:"team_id"`
	TeamName string        `json:"team_name"`
	Patterns []TeamPattern `json:"patterns"`
}
