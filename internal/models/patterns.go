package models

import (
	"encoding/json"
	"time"
)

// PatternType is the stable key identifying a detection heuristic.
type PatternType string

const (
	PatternHomeWinningStreak   PatternType = "home_winning_streak"
	PatternAwayWinningStreak   PatternType = "away_winning_streak"
	PatternH2HDominance        PatternType = "h2h_dominance"
	PatternRecentFormAdvantage PatternType = "recent_form_advantage"
	PatternHighScoringLeague   PatternType = "high_scoring_league"
)

// PatternTemplate is a named heuristic rule. BaseConfidenceBoost is
// nudged over time by the feedback processor and the template can be
// auto-deactivated when its accuracy stays below the prune threshold.
type PatternTemplate struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	DisplayName         string    `json:"display_name"`
	Category            string    `json:"category"`
	BaseConfidenceBoost float64   `json:"base_confidence_boost"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
}

// PatternEvidence is the raw data that justified a detection. Each
// pattern type has its own concrete evidence struct so the payload stays
// typed end to end; it is serialized to jsonb for audit.
type PatternEvidence interface {
	evidence()
}

// StreakEvidence backs the home/away winning streak patterns.
type StreakEvidence struct {
	Wins    int `json:"wins"`
	Matches int `json:"matches"`
}

// H2HEvidence backs the head-to-head dominance pattern.
type H2HEvidence struct {
	Wins    int `json:"wins"`
	Matches int `json:"matches"`
}

// FormEvidence backs the recent form advantage pattern.
type FormEvidence struct {
	HomeForm float64 `json:"home_form"`
	AwayForm float64 `json:"away_form"`
}

// LeagueEvidence backs the high-scoring league pattern.
type LeagueEvidence struct {
	AvgGoals float64 `json:"avg_goals"`
}

func (StreakEvidence) evidence() {}
func (H2HEvidence) evidence()    {}
func (FormEvidence) evidence()   {}
func (LeagueEvidence) evidence() {}

// EvidenceJSON serializes evidence for jsonb storage. A nil evidence
// becomes an empty object rather than SQL null.
func EvidenceJSON(ev PatternEvidence) []byte {
	if ev == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// DetectionResult is the pure output of one detector run. It carries no
// identity; the verify workflow maps it onto team_patterns rows.
type DetectionResult struct {
	PatternType      PatternType     `json:"pattern_type"`
	PatternName      string          `json:"pattern_name"`
	ConfidenceBoost  float64         `json:"confidence_boost"`
	Strength         float64         `json:"strength"`
	PredictionImpact float64         `json:"prediction_impact"`
	Evidence         PatternEvidence `json:"evidence"`
}

// TeamPattern is a detected pattern instance bound to a team with a
// validity window. ValidUntil == nil means currently active.
type TeamPattern struct {
	ID                 string          `json:"id"`
	TeamID             string          `json:"team_id"`
	PatternType        PatternType     `json:"pattern_type"`
	PatternName        string          `json:"pattern_name"`
	Confidence         float64         `json:"confidence"`
	Strength           float64         `json:"strength"`
	PredictionImpact   float64         `json:"prediction_impact"`
	Metadata           json.RawMessage `json:"pattern_metadata"`
	HistoricalAccuracy float64         `json:"historical_accuracy"`
	ValidFrom          time.Time       `json:"valid_from"`
	ValidUntil         *time.Time      `json:"valid_until"`
}

// PatternAccuracy holds per-template rolling correctness statistics.
// AccuracyRate is a percentage derived from correct/total.
type PatternAccuracy struct {
	ID                 string    `json:"id"`
	TemplateID         string    `json:"template_id"`
	TotalPredictions   int       `json:"total_predictions"`
	CorrectPredictions int       `json:"correct_predictions"`
	AccuracyRate       float64   `json:"accuracy_rate"`
	LastUpdated        time.Time `json:"last_updated"`
}
