package logic

import (
	"math"
	"testing"
	"time"

	"github.com/winmix/prediction-api/internal/models"
)

func intPtr(v int) *int { return &v }

// mkMatch builds a finished match. Day offsets keep ordering stable.
func mkMatch(homeID, awayID string, homeScore, awayScore, daysAgo int) models.Match {
	return models.Match{
		ID:         homeID + "-" + awayID,
		HomeTeamID: homeID,
		AwayTeamID: awayID,
		LeagueID:   "league-1",
		MatchDate:  time.Now().AddDate(0, 0, -daysAgo),
		Status:     models.MatchFinished,
		HomeScore:  intPtr(homeScore),
		AwayScore:  intPtr(awayScore),
	}
}

func TestFormScore(t *testing.T) {
	team := "team-a"
	tests := []struct {
		name    string
		matches []models.Match
		want    float64
	}{
		{
			name:    "Empty history is neutral",
			matches: nil,
			want:    50,
		},
		{
			name: "Three wins one draw one loss",
			matches: []models.Match{
				mkMatch(team, "x", 2, 0, 1),
				mkMatch(team, "y", 1, 0, 2),
				mkMatch("z", team, 0, 3, 3),
				mkMatch(team, "w", 1, 1, 4),
				mkMatch("v", team, 2, 0, 5),
			},
			want: 70,
		},
		{
			name: "All wins capped at 100",
			matches: []models.Match{
				mkMatch(team, "a", 1, 0, 1),
				mkMatch(team, "b", 2, 0, 2),
				mkMatch(team, "c", 3, 0, 3),
				mkMatch(team, "d", 4, 0, 4),
				mkMatch(team, "e", 5, 0, 5),
				mkMatch(team, "f", 6, 0, 6),
			},
			want: 100,
		},
		{
			name: "All losses",
			matches: []models.Match{
				mkMatch("a", team, 1, 0, 1),
				mkMatch("b", team, 2, 0, 2),
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formScore(tt.matches, team)
			if got != tt.want {
				t.Errorf("formScore() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("formScore() = %v out of [0,100]", got)
			}
		})
	}
}

func TestDetectWinningStreak(t *testing.T) {
	team := "team-a"

	t.Run("Three home wins fires with boost 8", func(t *testing.T) {
		recent := []models.Match{
			mkMatch(team, "x", 2, 0, 1),
			mkMatch(team, "y", 1, 0, 2),
			mkMatch(team, "z", 3, 1, 3),
			mkMatch("w", team, 1, 1, 4),
			mkMatch("v", team, 2, 0, 5),
		}
		r := detectWinningStreak(recent, team, true)
		if r == nil {
			t.Fatal("expected home winning streak to fire")
		}
		if r.PatternType != models.PatternHomeWinningStreak {
			t.Errorf("pattern type = %v", r.PatternType)
		}
		if r.ConfidenceBoost != 8.0 {
			t.Errorf("boost = %v, want 8.0", r.ConfidenceBoost)
		}
		ev, ok := r.Evidence.(models.StreakEvidence)
		if !ok {
			t.Fatalf("evidence type %T", r.Evidence)
		}
		if ev.Wins != 3 || ev.Matches != 3 {
			t.Errorf("evidence = %+v", ev)
		}
	})

	t.Run("Two home wins does not fire", func(t *testing.T) {
		recent := []models.Match{
			mkMatch(team, "x", 2, 0, 1),
			mkMatch(team, "y", 1, 0, 2),
			mkMatch(team, "z", 0, 1, 3),
		}
		if r := detectWinningStreak(recent, team, true); r != nil {
			t.Errorf("unexpected detection: %+v", r)
		}
	})

	t.Run("Away streak uses away matches and boost 7", func(t *testing.T) {
		recent := []models.Match{
			mkMatch("x", team, 0, 2, 1),
			mkMatch("y", team, 1, 3, 2),
			mkMatch("z", team, 0, 1, 3),
			mkMatch(team, "w", 0, 2, 4), // home loss, irrelevant to away streak
		}
		r := detectWinningStreak(recent, team, false)
		if r == nil {
			t.Fatal("expected away winning streak to fire")
		}
		if r.PatternType != models.PatternAwayWinningStreak || r.ConfidenceBoost != 7.0 {
			t.Errorf("got %v boost %v", r.PatternType, r.ConfidenceBoost)
		}
	})
}

func TestDetectH2HDominance(t *testing.T) {
	team, opp := "team-a", "team-b"

	t.Run("Three wins of three fires with boost 10", func(t *testing.T) {
		h2h := []models.Match{
			mkMatch(team, opp, 2, 0, 10),
			mkMatch(opp, team, 0, 1, 20),
			mkMatch(team, opp, 3, 2, 30),
		}
		r := detectH2HDominance(h2h, team)
		if r == nil {
			t.Fatal("expected h2h dominance to fire")
		}
		if r.ConfidenceBoost != 10.0 {
			t.Errorf("boost = %v, want 10.0", r.ConfidenceBoost)
		}
	})

	t.Run("Too few meetings never fires", func(t *testing.T) {
		h2h := []models.Match{
			mkMatch(team, opp, 2, 0, 10),
			mkMatch(opp, team, 0, 1, 20),
		}
		if r := detectH2HDominance(h2h, team); r != nil {
			t.Errorf("unexpected detection with %d meetings", len(h2h))
		}
	})

	t.Run("Two wins of four does not fire", func(t *testing.T) {
		h2h := []models.Match{
			mkMatch(team, opp, 2, 0, 10),
			mkMatch(opp, team, 1, 0, 20),
			mkMatch(team, opp, 1, 1, 30),
			mkMatch(opp, team, 0, 1, 40),
		}
		if r := detectH2HDominance(h2h, team); r != nil {
			t.Errorf("unexpected detection: %+v", r)
		}
	})
}

func TestDetectFormAdvantage(t *testing.T) {
	if r := detectFormAdvantage(90, 50); r == nil || r.ConfidenceBoost != 6.0 {
		t.Errorf("gap 40 should fire with boost 6.0, got %+v", r)
	}
	if r := detectFormAdvantage(70, 50); r != nil {
		t.Errorf("gap 20 should not fire, got %+v", r)
	}
	if r := detectFormAdvantage(50, 90); r != nil {
		t.Errorf("negative gap should not fire, got %+v", r)
	}
}

func TestDetectHighScoringLeague(t *testing.T) {
	if r := detectHighScoringLeague(3.2); r == nil || r.ConfidenceBoost != 3.0 {
		t.Errorf("avg 3.2 should fire with boost 3.0, got %+v", r)
	}
	if r := detectHighScoringLeague(3.0); r != nil {
		t.Errorf("avg 3.0 should not fire, got %+v", r)
	}
}

func TestConfidenceScore(t *testing.T) {
	t.Run("No patterns is exactly base", func(t *testing.T) {
		if got := confidenceScore(nil); got != 50.0 {
			t.Errorf("confidence = %v, want 50", got)
		}
	})

	t.Run("Streak plus league scenario", func(t *testing.T) {
		patterns := []models.DetectionResult{
			{PatternType: models.PatternHomeWinningStreak, ConfidenceBoost: 8.0},
			{PatternType: models.PatternHighScoringLeague, ConfidenceBoost: 3.0},
		}
		if got := confidenceScore(patterns); got != 61.0 {
			t.Errorf("confidence = %v, want 61", got)
		}
	})

	t.Run("Capped at 95", func(t *testing.T) {
		patterns := []models.DetectionResult{
			{ConfidenceBoost: 8}, {ConfidenceBoost: 7}, {ConfidenceBoost: 10},
			{ConfidenceBoost: 6}, {ConfidenceBoost: 3}, {ConfidenceBoost: 30},
		}
		if got := confidenceScore(patterns); got != 95.0 {
			t.Errorf("confidence = %v, want cap 95", got)
		}
	})

	t.Run("Always within bounds", func(t *testing.T) {
		for boost := 0.0; boost < 120; boost += 7.5 {
			got := confidenceScore([]models.DetectionResult{{ConfidenceBoost: boost}})
			if got < 50 || got > 95 {
				t.Errorf("confidence(%v) = %v out of [50,95]", boost, got)
			}
		}
	})
}

func TestDecideOutcome(t *testing.T) {
	tests := []struct {
		name     string
		home     float64
		away     float64
		expected models.Outcome
	}{
		{"Strong home lead", 80, 40, models.OutcomeHomeWin},
		{"Strong away lead", 30, 70, models.OutcomeAwayWin},
		{"Close forms draw", 60, 50, models.OutcomeDraw},
		{"Gap exactly at threshold stays draw", 70, 50, models.OutcomeDraw},
		{"Gap just past threshold", 70.5, 50, models.OutcomeHomeWin},
		{"Equal forms", 50, 50, models.OutcomeDraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decideOutcome(tt.home, tt.away); got != tt.expected {
				t.Errorf("decideOutcome(%v, %v) = %v, want %v", tt.home, tt.away, got, tt.expected)
			}
		})
	}
}

func TestScenarioStreakPlusHighScoringLeague(t *testing.T) {
	// Recent form W,W,W,D,L with the wins at home, league averaging 3.2
	// goals: expect home streak (8.0) + high-scoring league (3.0) on top
	// of base 50.
	team := "team-a"
	recent := []models.Match{
		mkMatch(team, "a", 2, 0, 1),
		mkMatch(team, "b", 1, 0, 2),
		mkMatch(team, "c", 2, 1, 3),
		mkMatch("d", team, 1, 1, 4),
		mkMatch("e", team, 2, 0, 5),
	}

	var patterns []models.DetectionResult
	if r := detectWinningStreak(recent, team, true); r != nil {
		patterns = append(patterns, *r)
	}
	if r := detectHighScoringLeague(3.2); r != nil {
		patterns = append(patterns, *r)
	}

	if len(patterns) != 2 {
		t.Fatalf("detected %d patterns, want 2", len(patterns))
	}
	got := confidenceScore(patterns)
	if math.Abs(got-61.0) > 1e-9 {
		t.Errorf("confidence = %v, want 61", got)
	}
}
