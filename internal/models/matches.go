package models

import "time"

// MatchStatus tracks the lifecycle of a fixture. Matches are created as
// scheduled and flipped to finished by the feedback processor; rows are
// never deleted.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchFinished  MatchStatus = "finished"
)

// Outcome is the 1X2 result of a match from the home side's perspective.
type Outcome string

const (
	OutcomeHomeWin Outcome = "home_win"
	OutcomeDraw    Outcome = "draw"
	OutcomeAwayWin Outcome = "away_win"
)

// League groups teams and carries the scoring baseline used by the
// high-scoring-league pattern and the BTTS signal.
type League struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	AvgGoalsPerMatch float64 `json:"avg_goals_per_match"`
}

type Team struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LeagueID string `json:"league_id"`
}

// Match is a fixture between two teams. Score fields are nil until the
// match is finished. Invariant: halftime goals never exceed final goals
// per side.
type Match struct {
	ID                string      `json:"id"`
	HomeTeamID        string      `json:"home_team_id"`
	AwayTeamID        string      `json:"away_team_id"`
	LeagueID          string      `json:"league_id"`
	MatchDate         time.Time   `json:"match_date"`
	Status            MatchStatus `json:"status"`
	HomeScore         *int        `json:"home_score"`
	AwayScore         *int        `json:"away_score"`
	HalftimeHomeScore *int        `json:"halftime_home_score"`
	HalftimeAwayScore *int        `json:"halftime_away_score"`
}

// IsHome reports whether teamID played this match at home.
func (m *Match) IsHome(teamID string) bool {
	return m.HomeTeamID == teamID
}

// GoalsFor returns the goals scored by teamID, or -1 if the match has no
// final score yet.
func (m *Match) GoalsFor(teamID string) int {
	if m.HomeScore == nil || m.AwayScore == nil {
		return -1
	}
	if m.IsHome(teamID) {
		return *m.HomeScore
	}
	return *m.AwayScore
}

// GoalsAgainst returns the goals conceded by teamID, or -1 if the match
// has no final score yet.
func (m *Match) GoalsAgainst(teamID string) int {
	if m.HomeScore == nil || m.AwayScore == nil {
		return -1
	}
	if m.IsHome(teamID) {
		return *m.AwayScore
	}
	return *m.HomeScore
}

// WonBy reports whether teamID won this match. False for draws, losses
// and unfinished matches.
func (m *Match) WonBy(teamID string) bool {
	gf, ga := m.GoalsFor(teamID), m.GoalsAgainst(teamID)
	return gf >= 0 && gf > ga
}

// OutcomeFromScore maps a final score to the 1X2 outcome.
func OutcomeFromScore(homeScore, awayScore int) Outcome {
	switch {
	case homeScore > awayScore:
		return OutcomeHomeWin
	case homeScore < awayScore:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}
