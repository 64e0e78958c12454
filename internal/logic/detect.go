package logic

import (
	"math"

	"github.com/winmix/prediction-api/internal/models"
)

// Detection design parameters. These are tuning knobs, not protocol
// constants; the boost values feed the confidence computation directly.
const (
	recentWindow     = 5
	headToHeadWindow = 5

	streakMinWins    = 3
	h2hMinMatches    = 3
	h2hMinWins       = 3
	formGapThreshold = 40.0
	highScoringAvg   = 3.0
	bttsAvgGoals     = 2.5

	boostHomeStreak    = 8.0
	boostAwayStreak    = 7.0
	boostH2HDominance  = 10.0
	boostFormAdvantage = 6.0
	boostHighScoring   = 3.0

	baseConfidence = 50.0
	maxConfidence  = 95.0

	// Form gap that tips the outcome decision away from a draw.
	outcomeFormGap = 20.0

	// Initial historical accuracy for a first-time detection.
	defaultHistoricalAccuracy = 70.0
)

// formScore awards 20 points per win and 10 per draw over the given
// matches, capped at 100. An empty history yields a neutral 50.
func formScore(matches []models.Match, teamID string) float64 {
	if len(matches) == 0 {
		return 50
	}
	score := 0.0
	for i := range matches {
		m := &matches[i]
		gf, ga := m.GoalsFor(teamID), m.GoalsAgainst(teamID)
		if gf < 0 {
			continue
		}
		switch {
		case gf > ga:
			score += 20
		case gf == ga:
			score += 10
		}
	}
	return math.Min(score, 100)
}

// detectWinningStreak fires when the team has won at least streakMinWins
// of its home (or away) matches within the recent window.
func detectWinningStreak(recent []models.Match, teamID string, home bool) *models.DetectionResult {
	var wins, total int
	for i := range recent {
		m := &recent[i]
		if m.IsHome(teamID) != home {
			continue
		}
		total++
		if m.WonBy(teamID) {
			wins++
		}
	}
	if wins < streakMinWins {
		return nil
	}

	res := &models.DetectionResult{
		Evidence: models.StreakEvidence{Wins: wins, Matches: total},
	}
	if home {
		res.PatternType = models.PatternHomeWinningStreak
		res.PatternName = "Home winning streak"
		res.ConfidenceBoost = boostHomeStreak
	} else {
		res.PatternType = models.PatternAwayWinningStreak
		res.PatternName = "Away winning streak"
		res.ConfidenceBoost = boostAwayStreak
	}
	res.Strength = float64(wins) / float64(total) * 100
	res.PredictionImpact = res.ConfidenceBoost
	return res
}

// detectH2HDominance fires when the team won at least h2hMinWins of at
// least h2hMinMatches head-to-head meetings with the opponent.
func detectH2HDominance(h2h []models.Match, teamID string) *models.DetectionResult {
	if len(h2h) < h2hMinMatches {
		return nil
	}
	wins := 0
	for i := range h2h {
		if h2h[i].WonBy(teamID) {
			wins++
		}
	}
	if wins < h2hMinWins {
		return nil
	}
	return &models.DetectionResult{
		PatternType:      models.PatternH2HDominance,
		PatternName:      "Head-to-head dominance",
		ConfidenceBoost:  boostH2HDominance,
		Strength:         float64(wins) / float64(len(h2h)) * 100,
		PredictionImpact: boostH2HDominance,
		Evidence:         models.H2HEvidence{Wins: wins, Matches: len(h2h)},
	}
}

// detectFormAdvantage fires when the first team's form score leads the
// second's by at least formGapThreshold points.
func detectFormAdvantage(ownForm, oppForm float64) *models.DetectionResult {
	if ownForm-oppForm < formGapThreshold {
		return nil
	}
	return &models.DetectionResult{
		PatternType:      models.PatternRecentFormAdvantage,
		PatternName:      "Recent form advantage",
		ConfidenceBoost:  boostFormAdvantage,
		Strength:         ownForm - oppForm,
		PredictionImpact: boostFormAdvantage,
		Evidence:         models.FormEvidence{HomeForm: ownForm, AwayForm: oppForm},
	}
}

// detectHighScoringLeague fires when the league averages more than
// highScoringAvg goals per match.
func detectHighScoringLeague(avgGoals float64) *models.DetectionResult {
	if avgGoals <= highScoringAvg {
		return nil
	}
	return &models.DetectionResult{
		PatternType:      models.PatternHighScoringLeague,
		PatternName:      "High-scoring league context",
		ConfidenceBoost:  boostHighScoring,
		Strength:         avgGoals / highScoringAvg * 100,
		PredictionImpact: boostHighScoring,
		Evidence:         models.LeagueEvidence{AvgGoals: avgGoals},
	}
}

// confidenceScore combines the base confidence with every detected
// pattern's boost, capped at maxConfidence to avoid false certainty.
func confidenceScore(patterns []models.DetectionResult) float64 {
	conf := baseConfidence
	for i := range patterns {
		conf += patterns[i].ConfidenceBoost
	}
	return math.Min(conf, maxConfidence)
}

// decideOutcome applies the asymmetric form-gap rule: a side must lead
// by more than outcomeFormGap points to be predicted the winner.
func decideOutcome(homeForm, awayForm float64) models.Outcome {
	switch {
	case homeForm > awayForm+outcomeFormGap:
		return models.OutcomeHomeWin
	case awayForm > homeForm+outcomeFormGap:
		return models.OutcomeAwayWin
	default:
		return models.OutcomeDraw
	}
}

// wantedTypes normalizes an optional pattern-type filter; nil means all.
func wantedTypes(types []models.PatternType) map[models.PatternType]bool {
	if len(types) == 0 {
		return nil
	}
	want := make(map[models.PatternType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	return want
}

func wanted(want map[models.PatternType]bool, t models.PatternType) bool {
	return want == nil || want[t]
}
