package models

import (
	"encoding/json"
	"time"
)

// ModelType is the lifecycle state of a registered predictor. At most
// one champion exists at any time; promotion retires the incumbent in
// the same transaction.
type ModelType string

const (
	ModelChampion   ModelType = "champion"
	ModelChallenger ModelType = "challenger"
	ModelRetired    ModelType = "retired"
)

// ExperimentDecision is the evaluator's verdict for an A/B experiment.
// "continue" keeps the experiment open; "promote" and "keep" are
// terminal.
type ExperimentDecision string

const (
	DecisionContinue ExperimentDecision = "continue"
	DecisionPromote  ExperimentDecision = "promote"
	DecisionKeep     ExperimentDecision = "keep"
)

// ModelRegistry is a named, versioned predictor competing for live
// traffic.
type ModelRegistry struct {
	ID                string          `json:"id"`
	ModelName         string          `json:"model_name"`
	ModelVersion      string          `json:"model_version"`
	ModelType         ModelType       `json:"model_type"`
	Algorithm         string          `json:"algorithm,omitempty"`
	Hyperparameters   json.RawMessage `json:"hyperparameters,omitempty"`
	TrafficAllocation float64         `json:"traffic_allocation"`
	Accuracy          float64         `json:"accuracy"`
	TotalPredictions  int             `json:"total_predictions"`
	RegisteredAt      time.Time       `json:"registered_at"`
}

// ModelExperiment is a champion/challenger A/B test. Mutated only by the
// evaluator; immutable once CompletedAt is set.
type ModelExperiment struct {
	ID                    string             `json:"id"`
	ExperimentName        string             `json:"experiment_name"`
	ChampionModelID       string             `json:"champion_model_id"`
	ChallengerModelID     string             `json:"challenger_model_id"`
	TargetSampleSize      int                `json:"target_sample_size"`
	CurrentSampleSize     int                `json:"current_sample_size"`
	SignificanceThreshold float64            `json:"significance_threshold"`
	PValue                *float64           `json:"p_value,omitempty"`
	AccuracyDiff          *float64           `json:"accuracy_diff,omitempty"`
	WinnerModelID         *string            `json:"winner_model_id,omitempty"`
	Decision              ExperimentDecision `json:"decision"`
	StartedAt             time.Time          `json:"started_at"`
	CompletedAt           *time.Time         `json:"completed_at,omitempty"`
}

// Completed reports whether the experiment reached a terminal decision.
func (e *ModelExperiment) Completed() bool {
	return e.CompletedAt != nil
}

// ModelSelection is the epsilon-greedy routing decision. Strategy names
// the branch taken so tests and dashboards can observe exploration.
type ModelSelection struct {
	SelectedModelID string  `json:"selected_model_id"`
	Strategy        string  `json:"strategy"` // "explore" or "exploit"
	ExplorationRate float64 `json:"exploration_rate"`
}
