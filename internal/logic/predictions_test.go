package logic

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/winmix/prediction-api/internal/models"
)

func analyzeHistory() *fakeHistory {
	return &fakeHistory{
		match: &models.Match{
			ID: "match-1", HomeTeamID: "home", AwayTeamID: "away",
			LeagueID: "league-1", Status: models.MatchScheduled,
			MatchDate: time.Now().AddDate(0, 0, 2),
		},
		recent: map[string][]models.Match{
			"home": {
				mkMatch("home", "x1", 2, 0, 1),
				mkMatch("home", "x2", 1, 0, 8),
				mkMatch("home", "x3", 3, 1, 15),
			},
			"away": {
				mkMatch("x4", "away", 2, 0, 2),
				mkMatch("x5", "away", 1, 1, 9),
			},
		},
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("Streak plus high scoring league", func(t *testing.T) {
		pool := &stubPool{}
		svc := NewPredictionService(pool, analyzeHistory(), &fakeLeagues{avg: 3.2}, zap.NewNop())

		resp, err := svc.Analyze(context.Background(), "match-1")
		if err != nil {
			t.Fatalf("Analyze() error: %v", err)
		}

		// Home: three wins, 20 points each. Away: a loss and a draw.
		if resp.FormScores.Home != 60 {
			t.Errorf("home form = %v, want 60", resp.FormScores.Home)
		}
		if resp.FormScores.Away != 10 {
			t.Errorf("away form = %v, want 10", resp.FormScores.Away)
		}

		types := map[models.PatternType]bool{}
		for _, p := range resp.Patterns {
			types[p.PatternType] = true
		}
		for _, want := range []models.PatternType{
			models.PatternHomeWinningStreak,
			models.PatternRecentFormAdvantage,
			models.PatternHighScoringLeague,
		} {
			if !types[want] {
				t.Errorf("missing pattern %v (got %v)", want, resp.Patterns)
			}
		}

		// 50 + 8 + 6 + 3.
		if resp.Prediction.ConfidenceScore != 67 {
			t.Errorf("confidence = %v, want 67", resp.Prediction.ConfidenceScore)
		}
		if resp.Prediction.PredictedOutcome != models.OutcomeHomeWin {
			t.Errorf("outcome = %v, want home_win", resp.Prediction.PredictedOutcome)
		}
		if resp.Prediction.BTTSPrediction == nil || !*resp.Prediction.BTTSPrediction {
			t.Error("league averaging 3.2 goals should predict both teams to score")
		}
		if resp.Prediction.Factors.LeagueAvgGoals != 3.2 {
			t.Errorf("factors league avg = %v", resp.Prediction.Factors.LeagueAvgGoals)
		}
		if n := pool.execCount("INSERT INTO predictions"); n != 1 {
			t.Errorf("inserted %d prediction rows, want 1", n)
		}
	})

	t.Run("No history degrades to neutral", func(t *testing.T) {
		history := analyzeHistory()
		history.recent = map[string][]models.Match{}
		pool := &stubPool{}
		svc := NewPredictionService(pool, history, &fakeLeagues{avg: 2.1}, zap.NewNop())

		resp, err := svc.Analyze(context.Background(), "match-1")
		if err != nil {
			t.Fatalf("Analyze() error: %v", err)
		}
		if resp.FormScores.Home != 50 || resp.FormScores.Away != 50 {
			t.Errorf("form = (%v, %v), want neutral 50/50", resp.FormScores.Home, resp.FormScores.Away)
		}
		if len(resp.Patterns) != 0 {
			t.Errorf("patterns = %v, want none", resp.Patterns)
		}
		if resp.Prediction.ConfidenceScore != 50 {
			t.Errorf("confidence = %v, want base 50", resp.Prediction.ConfidenceScore)
		}
		if resp.Prediction.PredictedOutcome != models.OutcomeDraw {
			t.Errorf("outcome = %v, want draw", resp.Prediction.PredictedOutcome)
		}
		if resp.Prediction.BTTSPrediction == nil || *resp.Prediction.BTTSPrediction {
			t.Error("league averaging 2.1 goals should not predict both teams to score")
		}
	})

	t.Run("Missing league baseline is tolerated", func(t *testing.T) {
		pool := &stubPool{}
		leagues := &fakeLeagues{avgErr: NotFoundf("no baseline")}
		svc := NewPredictionService(pool, analyzeHistory(), leagues, zap.NewNop())

		resp, err := svc.Analyze(context.Background(), "match-1")
		if err != nil {
			t.Fatalf("Analyze() error: %v", err)
		}
		if resp.Prediction.Factors.LeagueAvgGoals != 0 {
			t.Errorf("league avg = %v, want degraded 0", resp.Prediction.Factors.LeagueAvgGoals)
		}
	})

	t.Run("Unknown match is not found", func(t *testing.T) {
		svc := NewPredictionService(&stubPool{}, &fakeHistory{}, &fakeLeagues{}, zap.NewNop())
		_, err := svc.Analyze(context.Background(), "missing")
		if KindOf(err) != KindNotFound {
			t.Errorf("kind = %v, want not_found", KindOf(err))
		}
	})

	t.Run("Active template writes audit rows", func(t *testing.T) {
		pool := &stubPool{}
		pool.rowFunc = func(sql string, args []any) stubRow {
			if strings.Contains(sql, "FROM pattern_templates") {
				return stubRow{vals: []any{"tmpl-" + args[0].(string)}}
			}
			return stubRow{err: pgx.ErrNoRows}
		}
		svc := NewPredictionService(pool, analyzeHistory(), &fakeLeagues{avg: 3.2}, zap.NewNop())

		resp, err := svc.Analyze(context.Background(), "match-1")
		if err != nil {
			t.Fatalf("Analyze() error: %v", err)
		}
		if n := pool.execCount("INSERT INTO detected_patterns"); n != len(resp.Patterns) {
			t.Errorf("wrote %d audit rows for %d patterns", n, len(resp.Patterns))
		}
	})
}

func TestTrack(t *testing.T) {
	t.Run("CSS defaults to confidence", func(t *testing.T) {
		pool := &stubPool{}
		svc := NewPredictionService(pool, analyzeHistory(), &fakeLeagues{}, zap.NewNop())

		pred, err := svc.Track(context.Background(), models.TrackPredictionRequest{
			MatchID: "match-1", PredictedOutcome: models.OutcomeDraw, ConfidenceScore: 58,
		})
		if err != nil {
			t.Fatalf("Track() error: %v", err)
		}
		if pred.CSSScore != 58 {
			t.Errorf("css = %v, want confidence 58", pred.CSSScore)
		}
		if n := pool.execCount("INSERT INTO predictions"); n != 1 {
			t.Errorf("inserted %d rows, want 1", n)
		}
	})

	t.Run("Unknown match rejects", func(t *testing.T) {
		svc := NewPredictionService(&stubPool{}, &fakeHistory{}, &fakeLeagues{}, zap.NewNop())
		_, err := svc.Track(context.Background(), models.TrackPredictionRequest{
			MatchID: "missing", PredictedOutcome: models.OutcomeDraw, ConfidenceScore: 50,
		})
		if KindOf(err) != KindNotFound {
			t.Errorf("kind = %v, want not_found", KindOf(err))
		}
	})
}

func TestShadowRun(t *testing.T) {
	t.Run("Copies the live prediction under the model", func(t *testing.T) {
		pool := &stubPool{}
		pool.rowFunc = func(sql string, args []any) stubRow {
			switch {
			case strings.Contains(sql, "FROM model_registry"):
				return stubRow{vals: []any{"form-v2", "2.0.0"}}
			case strings.Contains(sql, "FROM predictions"):
				btts := true
				return stubRow{vals: []any{"home_win", 67.0, 67.0, []byte(`{}`), &btts}}
			}
			return stubRow{err: pgx.ErrNoRows}
		}
		svc := NewPredictionService(pool, analyzeHistory(), &fakeLeagues{}, zap.NewNop())

		shadow, err := svc.ShadowRun(context.Background(), "match-1", "model-1")
		if err != nil {
			t.Fatalf("ShadowRun() error: %v", err)
		}
		if !shadow.IsShadow {
			t.Error("shadow run must be flagged is_shadow")
		}
		if shadow.ModelID == nil || *shadow.ModelID != "model-1" {
			t.Errorf("model id = %v, want model-1", shadow.ModelID)
		}
		if shadow.ModelName != "form-v2" || shadow.ModelVersion != "2.0.0" {
			t.Errorf("model = %s/%s", shadow.ModelName, shadow.ModelVersion)
		}
		if shadow.PredictedOutcome != models.OutcomeHomeWin || shadow.ConfidenceScore != 67 {
			t.Errorf("copied prediction = %v/%v", shadow.PredictedOutcome, shadow.ConfidenceScore)
		}
	})

	t.Run("Unknown model is not found", func(t *testing.T) {
		svc := NewPredictionService(&stubPool{}, &fakeHistory{}, &fakeLeagues{}, zap.NewNop())
		_, err := svc.ShadowRun(context.Background(), "match-1", "missing")
		if KindOf(err) != KindNotFound {
			t.Errorf("kind = %v, want not_found", KindOf(err))
		}
	})

	t.Run("No live prediction is not found", func(t *testing.T) {
		pool := &stubPool{}
		pool.rowFunc = func(sql string, args []any) stubRow {
			if strings.Contains(sql, "FROM model_registry") {
				return stubRow{vals: []any{"form-v2", "2.0.0"}}
			}
			return stubRow{err: pgx.ErrNoRows}
		}
		svc := NewPredictionService(pool, analyzeHistory(), &fakeLeagues{}, zap.NewNop())
		_, err := svc.ShadowRun(context.Background(), "match-1", "model-1")
		if KindOf(err) != KindNotFound {
			t.Errorf("kind = %v, want not_found", KindOf(err))
		}
	})
}
