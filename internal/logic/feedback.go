package logic

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/winmix/prediction-api/internal/models"
)

// Template boost nudge parameters: after minNudgeSamples evaluated
// predictions, a template gains nudgeStep when its accuracy rate exceeds
// nudgeUpperRate and loses nudgeStep below nudgeLowerRate. Plain online
// rule, no momentum or decay.
const (
	minNudgeSamples = 10
	nudgeUpperRate  = 60.0
	nudgeLowerRate  = 45.0
	nudgeStep       = 0.5
)

type feedbackService struct {
	pg      PgPool
	leagues LeagueStats
	logger  *zap.SugaredLogger
}

// NewFeedbackService returns the feedback / calibration processor.
func NewFeedbackService(pg PgPool, leagues LeagueStats, logger *zap.Logger) FeedbackService {
	return &feedbackService{pg: pg, leagues: leagues, logger: logger.Sugar()}
}

// validateFeedbackScores enforces the halftime <= final invariant per
// side.
func validateFeedbackScores(req *models.SubmitFeedbackRequest) error {
	if req.HomeScore == nil || req.AwayScore == nil {
		return Validationf("home_score and away_score are required")
	}
	if req.HalftimeHomeScore != nil && *req.HalftimeHomeScore > *req.HomeScore {
		return Validationf("halftime home score cannot exceed final home score")
	}
	if req.HalftimeAwayScore != nil && *req.HalftimeAwayScore > *req.AwayScore {
		return Validationf("halftime away score cannot exceed final away score")
	}
	return nil
}

// calibrationError is |confidence/100 - correctness|, rounded to four
// decimals.
func calibrationError(confidenceScore float64, wasCorrect bool) float64 {
	outcome := 0.0
	if wasCorrect {
		outcome = 1.0
	}
	return math.Round(math.Abs(confidenceScore/100-outcome)*10000) / 10000
}

// boostAdjustment returns the confidence nudge for a template given its
// updated totals. Zero below the sample floor or inside the neutral
// band.
func boostAdjustment(totalPredictions int, accuracyRate float64) float64 {
	if totalPredictions < minNudgeSamples {
		return 0
	}
	if accuracyRate > nudgeUpperRate {
		return nudgeStep
	}
	if accuracyRate < nudgeLowerRate {
		return -nudgeStep
	}
	return 0
}

// Submit applies a final result: marks the match finished, evaluates the
// live prediction, updates each implicated template's accuracy and
// nudges its confidence boost. The whole sequence runs in one
// transaction; a second submission for an evaluated prediction is a
// conflict, never a double count.
func (s *feedbackService) Submit(ctx context.Context, req models.SubmitFeedbackRequest) (*models.FeedbackResult, error) {
	if err := validateFeedbackScores(&req); err != nil {
		return nil, err
	}
	homeScore, awayScore := *req.HomeScore, *req.AwayScore
	actual := models.OutcomeFromScore(homeScore, awayScore)

	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return nil, TransientStore("begin feedback tx", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE matches
		SET home_score = $1, away_score = $2, halftime_home_score = $3,
		    halftime_away_score = $4, status = 'finished'
		WHERE id = $5
	`, homeScore, awayScore, req.HalftimeHomeScore, req.HalftimeAwayScore, req.MatchID)
	if err != nil {
		return nil, TransientStore("update match", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, NotFoundf("match %s not found", req.MatchID)
	}

	var (
		predID      string
		predModelID *string
		predicted   models.Outcome
		confidence  float64
		evaluatedAt *time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT id, model_id, predicted_outcome, confidence_score, evaluated_at
		FROM predictions
		WHERE match_id = $1 AND NOT is_shadow
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`, req.MatchID).Scan(&predID, &predModelID, &predicted, &confidence, &evaluatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("no prediction found for match %s", req.MatchID)
	}
	if err != nil {
		return nil, TransientStore("load prediction", err)
	}
	if evaluatedAt != nil {
		return nil, Conflictf("prediction for match %s already evaluated", req.MatchID)
	}

	wasCorrect := predicted == actual
	calErr := calibrationError(confidence, wasCorrect)
	now := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE predictions
		SET actual_outcome = $1, was_correct = $2, calibration_error = $3, evaluated_at = $4
		WHERE id = $5
	`, actual, wasCorrect, calErr, now, predID)
	if err != nil {
		return nil, TransientStore("update prediction", err)
	}

	if err := s.updatePatternStats(ctx, tx, req.MatchID, wasCorrect, now); err != nil {
		return nil, err
	}

	if predModelID != nil {
		if err := updateModelCounters(ctx, tx, *predModelID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, TransientStore("commit feedback tx", err)
	}
	feedbackEvaluations.WithLabelValues(strconv.FormatBool(wasCorrect)).Inc()

	// Mirror into the analytics archive. The transactional record is
	// authoritative, so an archive failure only logs.
	ht, hta := req.HalftimeHomeScore, req.HalftimeAwayScore
	archived := &models.Match{
		ID: req.MatchID, Status: models.MatchFinished,
		HomeScore: &homeScore, AwayScore: &awayScore,
		HalftimeHomeScore: ht, HalftimeAwayScore: hta,
	}
	if err := s.fillArchiveFields(ctx, archived); err == nil {
		if err := s.leagues.ArchiveMatch(ctx, archived); err != nil {
			s.logger.Warnw("Failed to archive match", "error", err, "matchID", req.MatchID)
		}
	}

	s.logger.Infow("Feedback submitted", "matchID", req.MatchID,
		"actual", actual, "wasCorrect", wasCorrect)

	return &models.FeedbackResult{
		WasCorrect:       wasCorrect,
		ActualOutcome:    actual,
		PredictedOutcome: predicted,
		CalibrationError: calErr,
	}, nil
}

// updatePatternStats increments accuracy counters for every template
// implicated in this match's prediction and applies the boost nudge.
// The FOR UPDATE lock serializes concurrent feedback touching the same
// template.
func (s *feedbackService) updatePatternStats(ctx context.Context, tx pgx.Tx, matchID string, wasCorrect bool, now time.Time) error {
	rows, err := tx.Query(ctx,
		`SELECT DISTINCT template_id FROM detected_patterns WHERE match_id = $1`, matchID)
	if err != nil {
		return TransientStore("load detected patterns", err)
	}
	var templateIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return TransientStore("scan template id", err)
		}
		templateIDs = append(templateIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return TransientStore("iterate detected patterns", err)
	}

	for _, templateID := range templateIDs {
		var accID string
		var total, correct int
		err := tx.QueryRow(ctx, `
			SELECT id, total_predictions, correct_predictions
			FROM pattern_accuracy
			WHERE template_id = $1
			FOR UPDATE
		`, templateID).Scan(&accID, &total, &correct)
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warnw("Pattern accuracy row missing", "templateID", templateID)
			continue
		}
		if err != nil {
			return TransientStore("load pattern accuracy", err)
		}

		total++
		if wasCorrect {
			correct++
		}
		rate := float64(correct) / float64(total) * 100

		_, err = tx.Exec(ctx, `
			UPDATE pattern_accuracy
			SET total_predictions = $1, correct_predictions = $2, accuracy_rate = $3, last_updated = $4
			WHERE id = $5
		`, total, correct, rate, now, accID)
		if err != nil {
			return TransientStore("update pattern accuracy", err)
		}

		if adj := boostAdjustment(total, rate); adj != 0 {
			_, err = tx.Exec(ctx, `
				UPDATE pattern_templates
				SET base_confidence_boost = base_confidence_boost + $1
				WHERE id = $2
			`, adj, templateID)
			if err != nil {
				return TransientStore("adjust template confidence", err)
			}
			s.logger.Infow("Adjusted template confidence", "templateID", templateID, "adjustment", adj)
		}
	}
	return nil
}

// updateModelCounters refreshes the registry row's rolling accuracy from
// its evaluated predictions.
func updateModelCounters(ctx context.Context, tx pgx.Tx, modelID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE model_registry m
		SET total_predictions = agg.total,
		    accuracy = CASE WHEN agg.total > 0 THEN agg.correct::float / agg.total * 100 ELSE 0 END
		FROM (
			SELECT count(*) AS total, count(*) FILTER (WHERE was_correct) AS correct
			FROM predictions
			WHERE model_id = $1 AND was_correct IS NOT NULL
		) agg
		WHERE m.id = $1
	`, modelID)
	if err != nil {
		return TransientStore("update model counters", err)
	}
	return nil
}

// fillArchiveFields loads the identity columns the archive row needs.
func (s *feedbackService) fillArchiveFields(ctx context.Context, m *models.Match) error {
	return s.pg.QueryRow(ctx,
		`SELECT home_team_id, away_team_id, league_id, match_date FROM matches WHERE id = $1`,
		m.ID).Scan(&m.HomeTeamID, &m.AwayTeamID, &m.LeagueID, &m.MatchDate)
}
