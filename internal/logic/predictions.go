package logic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/winmix/prediction-api/internal/models"
)

type predictionService struct {
	pg      PgPool
	history MatchHistory
	leagues LeagueStats
	logger  *zap.SugaredLogger
}

// NewPredictionService returns the match outcome prediction engine.
func NewPredictionService(pg PgPool, history MatchHistory, leagues LeagueStats, logger *zap.Logger) PredictionService {
	return &predictionService{pg: pg, history: history, leagues: leagues, logger: logger.Sugar()}
}

// Analyze produces and persists a prediction for a scheduled match.
// Missing history degrades to neutral form scores; a missing match is a
// hard NotFound.
func (s *predictionService) Analyze(ctx context.Context, matchID string) (*models.PredictionResponse, error) {
	match, err := s.history.MatchByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var (
		homeRecent, awayRecent, h2h []models.Match
		leagueAvg                   float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		homeRecent, err = s.history.RecentMatches(gctx, match.HomeTeamID, recentWindow)
		return err
	})
	g.Go(func() error {
		var err error
		awayRecent, err = s.history.RecentMatches(gctx, match.AwayTeamID, recentWindow)
		return err
	})
	g.Go(func() error {
		var err error
		h2h, err = s.history.HeadToHead(gctx, match.HomeTeamID, match.AwayTeamID, headToHeadWindow)
		return err
	})
	g.Go(func() error {
		avg, err := s.leagues.AvgGoalsPerMatch(gctx, match.LeagueID)
		if err != nil {
			// A missing baseline degrades to zero; only store failures
			// abort the prediction.
			if KindOf(err) == KindNotFound {
				return nil
			}
			return err
		}
		leagueAvg = avg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	homeForm := formScore(homeRecent, match.HomeTeamID)
	awayForm := formScore(awayRecent, match.AwayTeamID)

	var patterns []models.DetectionResult
	if r := detectWinningStreak(homeRecent, match.HomeTeamID, true); r != nil {
		patterns = append(patterns, *r)
	}
	if r := detectWinningStreak(awayRecent, match.AwayTeamID, false); r != nil {
		patterns = append(patterns, *r)
	}
	if r := detectH2HDominance(h2h, match.HomeTeamID); r != nil {
		patterns = append(patterns, *r)
	}
	if r := detectFormAdvantage(homeForm, awayForm); r != nil {
		patterns = append(patterns, *r)
	}
	if r := detectHighScoringLeague(leagueAvg); r != nil {
		patterns = append(patterns, *r)
	}
	for i := range patterns {
		patternsDetected.WithLabelValues(string(patterns[i].PatternType)).Inc()
	}

	confidence := confidenceScore(patterns)
	outcome := decideOutcome(homeForm, awayForm)
	btts := leagueAvg > bttsAvgGoals

	pred := &models.Prediction{
		ID:               uuid.New().String(),
		MatchID:          match.ID,
		PredictedOutcome: outcome,
		ConfidenceScore:  confidence,
		CSSScore:         confidence,
		Factors: models.PredictionFactors{
			Patterns:             patterns,
			FormScores:           models.FormScores{Home: homeForm, Away: awayForm},
			H2HMatchesConsidered: len(h2h),
			LeagueAvgGoals:       leagueAvg,
		},
		BTTSPrediction: &btts,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.persistPrediction(ctx, pred, patterns); err != nil {
		return nil, err
	}
	predictionsCreated.Inc()
	s.logger.Infow("Prediction created", "matchID", match.ID,
		"outcome", outcome, "confidence", confidence)

	return &models.PredictionResponse{
		Prediction: pred,
		Patterns:   patterns,
		FormScores: pred.Factors.FormScores,
	}, nil
}

// persistPrediction writes the prediction row together with the
// per-match detected_patterns rows that feedback later uses to update
// template accuracy. One transaction so a half-written audit trail never
// survives.
func (s *predictionService) persistPrediction(ctx context.Context, pred *models.Prediction, patterns []models.DetectionResult) error {
	factors, err := json.Marshal(pred.Factors)
	if err != nil {
		return Validationf("marshal prediction factors: %v", err)
	}

	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return TransientStore("begin prediction tx", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO predictions (id, match_id, predicted_outcome, confidence_score,
			css_score, prediction_factors, btts_prediction, is_shadow, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, pred.ID, pred.MatchID, pred.PredictedOutcome, pred.ConfidenceScore,
		pred.CSSScore, factors, pred.BTTSPrediction, pred.CreatedAt)
	if err != nil {
		return TransientStore("insert prediction", err)
	}

	for i := range patterns {
		det := &patterns[i]
		var templateID string
		err := tx.QueryRow(ctx,
			`SELECT id FROM pattern_templates WHERE name = $1 AND is_active`,
			string(det.PatternType)).Scan(&templateID)
		if errors.Is(err, pgx.ErrNoRows) {
			// No active template registered for this heuristic; the
			// prediction still stands, it just won't feed calibration.
			continue
		}
		if err != nil {
			return TransientStore("lookup pattern template", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO detected_patterns (id, match_id, template_id, confidence_contribution, pattern_data)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), pred.MatchID, templateID, det.ConfidenceBoost, models.EvidenceJSON(det.Evidence))
		if err != nil {
			return TransientStore("insert detected pattern", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return TransientStore("commit prediction tx", err)
	}
	return nil
}

// Track records an externally-computed prediction for a match.
func (s *predictionService) Track(ctx context.Context, req models.TrackPredictionRequest) (*models.Prediction, error) {
	if _, err := s.history.MatchByID(ctx, req.MatchID); err != nil {
		return nil, err
	}

	css := req.ConfidenceScore
	if req.CSSScore != nil {
		css = *req.CSSScore
	}
	factors := req.Factors
	if len(factors) == 0 {
		factors = json.RawMessage("{}")
	}

	pred := &models.Prediction{
		ID:               uuid.New().String(),
		MatchID:          req.MatchID,
		PredictedOutcome: req.PredictedOutcome,
		ConfidenceScore:  req.ConfidenceScore,
		CSSScore:         css,
		BTTSPrediction:   req.BTTSPrediction,
		CreatedAt:        time.Now().UTC(),
	}

	_, err := s.pg.Exec(ctx, `
		INSERT INTO predictions (id, match_id, predicted_outcome, confidence_score,
			css_score, prediction_factors, btts_prediction, is_shadow, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, pred.ID, pred.MatchID, pred.PredictedOutcome, pred.ConfidenceScore,
		pred.CSSScore, factors, pred.BTTSPrediction, pred.CreatedAt)
	if err != nil {
		return nil, TransientStore("track prediction", err)
	}
	predictionsCreated.Inc()
	return pred, nil
}

// ShadowRun duplicates the match's live prediction as a shadow row
// attributed to the given model. Shadow rows feed experiment evaluation
// but are never the primary tip.
func (s *predictionService) ShadowRun(ctx context.Context, matchID, modelID string) (*models.Prediction, error) {
	var modelName, modelVersion string
	err := s.pg.QueryRow(ctx,
		`SELECT model_name, model_version FROM model_registry WHERE id = $1`, modelID).
		Scan(&modelName, &modelVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("model %s not found", modelID)
	}
	if err != nil {
		return nil, TransientStore("load model", err)
	}

	var live models.Prediction
	var factors json.RawMessage
	err = s.pg.QueryRow(ctx, `
		SELECT predicted_outcome, confidence_score, css_score, prediction_factors, btts_prediction
		FROM predictions
		WHERE match_id = $1 AND NOT is_shadow
		ORDER BY created_at DESC
		LIMIT 1
	`, matchID).Scan(&live.PredictedOutcome, &live.ConfidenceScore, &live.CSSScore,
		&factors, &live.BTTSPrediction)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("no live prediction for match %s", matchID)
	}
	if err != nil {
		return nil, TransientStore("load live prediction", err)
	}

	shadow := &models.Prediction{
		ID:               uuid.New().String(),
		MatchID:          matchID,
		ModelID:          &modelID,
		ModelName:        modelName,
		ModelVersion:     modelVersion,
		PredictedOutcome: live.PredictedOutcome,
		ConfidenceScore:  live.ConfidenceScore,
		CSSScore:         live.CSSScore,
		BTTSPrediction:   live.BTTSPrediction,
		IsShadow:         true,
		CreatedAt:        time.Now().UTC(),
	}

	_, err = s.pg.Exec(ctx, `
		INSERT INTO predictions (id, match_id, model_id, model_name, model_version,
			predicted_outcome, confidence_score, css_score, prediction_factors,
			btts_prediction, is_shadow, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true, $11)
	`, shadow.ID, shadow.MatchID, modelID, modelName, modelVersion,
		shadow.PredictedOutcome, shadow.ConfidenceScore, shadow.CSSScore, factors,
		shadow.BTTSPrediction, shadow.CreatedAt)
	if err != nil {
		return nil, TransientStore("insert shadow prediction", err)
	}
	return shadow, nil
}
