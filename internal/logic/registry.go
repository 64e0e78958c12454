package logic

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/winmix/prediction-api/internal/models"
)

const (
	defaultChampionAllocation   = 90.0
	defaultChallengerAllocation = 10.0
	defaultTargetSampleSize     = 100
	defaultSignificance         = 0.05
	// DefaultEpsilon is the exploration rate used when the caller does
	// not supply one.
	DefaultEpsilon = 0.1
)

type modelService struct {
	pg     PgPool
	logger *zap.SugaredLogger

	// Randomness is injected so selection tests can pin both branches.
	randFloat func() float64
	randIntn  func(n int) int
}

// NewModelService returns the model registry, experiment evaluator and
// selection policy.
func NewModelService(pg PgPool, logger *zap.Logger) ModelService {
	return &modelService{
		pg:        pg,
		logger:    logger.Sugar(),
		randFloat: rand.Float64,
		randIntn:  rand.Intn,
	}
}

// Register creates a registry row. Registering a champion retires the
// incumbent in the same transaction so the at-most-one-champion
// invariant holds at every point in time.
func (s *modelService) Register(ctx context.Context, req models.RegisterModelRequest) (*models.ModelRegistry, error) {
	allocation := defaultChallengerAllocation
	if req.ModelType == models.ModelChampion {
		allocation = defaultChampionAllocation
	}
	if req.TrafficAllocation != nil {
		allocation = *req.TrafficAllocation
	}

	hyper := req.Hyperparameters
	if len(hyper) == 0 {
		hyper = json.RawMessage("null")
	}

	m := &models.ModelRegistry{
		ID:                uuid.New().String(),
		ModelName:         req.ModelName,
		ModelVersion:      req.ModelVersion,
		ModelType:         req.ModelType,
		Algorithm:         req.Algorithm,
		Hyperparameters:   req.Hyperparameters,
		TrafficAllocation: allocation,
		RegisteredAt:      time.Now().UTC(),
	}

	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return nil, TransientStore("begin register tx", err)
	}
	defer tx.Rollback(ctx)

	if req.ModelType == models.ModelChampion {
		if err := retireChampion(ctx, tx); err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO model_registry (id, model_name, model_version, model_type, algorithm,
			hyperparameters, traffic_allocation, accuracy, total_predictions, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8)
	`, m.ID, m.ModelName, m.ModelVersion, m.ModelType, nullIfEmpty(m.Algorithm),
		hyper, m.TrafficAllocation, m.RegisteredAt)
	if err != nil {
		return nil, TransientStore("insert model", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, TransientStore("commit register tx", err)
	}
	s.logger.Infow("Model registered", "modelID", m.ID, "name", m.ModelName, "type", m.ModelType)
	return m, nil
}

func (s *modelService) List(ctx context.Context) ([]models.ModelRegistry, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, model_name, model_version, model_type, COALESCE(algorithm, ''),
		       hyperparameters, traffic_allocation, accuracy, total_predictions, registered_at
		FROM model_registry
		ORDER BY registered_at DESC
	`)
	if err != nil {
		return nil, TransientStore("list models", err)
	}
	defer rows.Close()

	var out []models.ModelRegistry
	for rows.Next() {
		var m models.ModelRegistry
		err := rows.Scan(&m.ID, &m.ModelName, &m.ModelVersion, &m.ModelType, &m.Algorithm,
			&m.Hyperparameters, &m.TrafficAllocation, &m.Accuracy, &m.TotalPredictions, &m.RegisteredAt)
		if err != nil {
			return nil, TransientStore("scan model", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, TransientStore("iterate models", err)
	}
	return out, nil
}

// CreateExperiment opens an A/B test between a champion and a
// challenger.
func (s *modelService) CreateExperiment(ctx context.Context, req models.CreateExperimentRequest) (*models.ModelExperiment, error) {
	for _, id := range []string{req.ChampionModelID, req.ChallengerModelID} {
		var exists bool
		err := s.pg.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM model_registry WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return nil, TransientStore("check model", err)
		}
		if !exists {
			return nil, NotFoundf("model %s not found", id)
		}
	}

	exp := &models.ModelExperiment{
		ID:                    uuid.New().String(),
		ExperimentName:        req.ExperimentName,
		ChampionModelID:       req.ChampionModelID,
		ChallengerModelID:     req.ChallengerModelID,
		TargetSampleSize:      defaultTargetSampleSize,
		SignificanceThreshold: defaultSignificance,
		Decision:              models.DecisionContinue,
		StartedAt:             time.Now().UTC(),
	}
	if req.TargetSampleSize != nil {
		exp.TargetSampleSize = *req.TargetSampleSize
	}
	if req.SignificanceThreshold != nil {
		exp.SignificanceThreshold = *req.SignificanceThreshold
	}

	_, err := s.pg.Exec(ctx, `
		INSERT INTO model_experiments (id, experiment_name, champion_model_id,
			challenger_model_id, target_sample_size, current_sample_size,
			significance_threshold, decision, started_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
	`, exp.ID, exp.ExperimentName, exp.ChampionModelID, exp.ChallengerModelID,
		exp.TargetSampleSize, exp.SignificanceThreshold, exp.Decision, exp.StartedAt)
	if err != nil {
		return nil, TransientStore("insert experiment", err)
	}
	return exp, nil
}

// EvaluateExperiment runs the 2x2 chi-square test over both models'
// evaluated predictions and persists the verdict. A "continue" decision
// leaves the experiment re-evaluatable; promote and keep are terminal.
// Promotion of the winner happens in the same transaction as the
// verdict.
func (s *modelService) EvaluateExperiment(ctx context.Context, experimentID string) (*models.ModelExperiment, error) {
	exp, err := s.experimentByID(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	if exp.Completed() {
		return nil, Conflictf("experiment %s already completed", experimentID)
	}

	x1, n1, err := s.outcomeCounts(ctx, exp.ChampionModelID)
	if err != nil {
		return nil, err
	}
	x2, n2, err := s.outcomeCounts(ctx, exp.ChallengerModelID)
	if err != nil {
		return nil, err
	}

	chi2 := chiSquare2x2(x1, n1, x2, n2)
	pValue := chiSquarePValue1DF(chi2)

	var p1, p2 float64
	if n1 > 0 {
		p1 = float64(x1) / float64(n1)
	}
	if n2 > 0 {
		p2 = float64(x2) / float64(n2)
	}
	accuracyDiff := p2 - p1

	decision := models.DecisionContinue
	if pValue < exp.SignificanceThreshold {
		if accuracyDiff > 0 {
			decision = models.DecisionPromote
		} else {
			decision = models.DecisionKeep
		}
	}

	var winner *string
	switch decision {
	case models.DecisionPromote:
		winner = &exp.ChallengerModelID
	case models.DecisionKeep:
		winner = &exp.ChampionModelID
	}

	var completedAt *time.Time
	if decision != models.DecisionContinue {
		now := time.Now().UTC()
		completedAt = &now
	}

	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return nil, TransientStore("begin evaluate tx", err)
	}
	defer tx.Rollback(ctx)

	// Guard against a concurrent evaluation completing the experiment
	// between our read and this write.
	tag, err := tx.Exec(ctx, `
		UPDATE model_experiments
		SET current_sample_size = $1, p_value = $2, accuracy_diff = $3,
		    winner_model_id = $4, decision = $5, completed_at = $6
		WHERE id = $7 AND completed_at IS NULL
	`, n1+n2, pValue, accuracyDiff, winner, decision, completedAt, experimentID)
	if err != nil {
		return nil, TransientStore("update experiment", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, Conflictf("experiment %s already completed", experimentID)
	}

	if decision == models.DecisionPromote {
		if err := promoteChallenger(ctx, tx, exp.ChallengerModelID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, TransientStore("commit evaluate tx", err)
	}

	experimentDecisions.WithLabelValues(string(decision)).Inc()
	if decision == models.DecisionPromote {
		modelPromotions.Inc()
		s.logger.Infow("Challenger promoted", "experimentID", experimentID,
			"modelID", exp.ChallengerModelID, "pValue", pValue, "accuracyDiff", accuracyDiff)
	}

	exp.CurrentSampleSize = n1 + n2
	exp.PValue = &pValue
	exp.AccuracyDiff = &accuracyDiff
	exp.WinnerModelID = winner
	exp.Decision = decision
	exp.CompletedAt = completedAt
	return exp, nil
}

// Select routes traffic with the epsilon-greedy policy. The DB supplies
// the arms; pickModel applies the rule.
func (s *modelService) Select(ctx context.Context, epsilon float64) (*models.ModelSelection, error) {
	var championID string
	err := s.pg.QueryRow(ctx,
		`SELECT id FROM model_registry WHERE model_type = 'champion' LIMIT 1`).Scan(&championID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, TransientStore("load champion", err)
	}

	rows, err := s.pg.Query(ctx,
		`SELECT id FROM model_registry WHERE model_type = 'challenger'`)
	if err != nil {
		return nil, TransientStore("load challengers", err)
	}
	defer rows.Close()
	var challengerIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, TransientStore("scan challenger", err)
		}
		challengerIDs = append(challengerIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, TransientStore("iterate challengers", err)
	}

	sel, err := pickModel(championID, challengerIDs, epsilon, s.randFloat, s.randIntn)
	if err == nil {
		return sel, nil
	}
	if KindOf(err) != KindNotFound {
		return nil, err
	}

	// No champion, no challenger: fall back to any registered model.
	var anyID string
	ferr := s.pg.QueryRow(ctx, `SELECT id FROM model_registry LIMIT 1`).Scan(&anyID)
	if errors.Is(ferr, pgx.ErrNoRows) {
		return nil, NotFoundf("no models registered")
	}
	if ferr != nil {
		return nil, TransientStore("fallback model", ferr)
	}
	return &models.ModelSelection{SelectedModelID: anyID, Strategy: "exploit", ExplorationRate: epsilon}, nil
}

// AutoPrune deactivates templates whose accuracy stayed below the
// threshold over a sufficient sample.
func (s *modelService) AutoPrune(ctx context.Context, threshold float64, minSampleSize int) (*models.AutoPruneResult, error) {
	if threshold <= 0 {
		threshold = 45
	}
	if minSampleSize <= 0 {
		minSampleSize = 20
	}

	var candidates int
	err := s.pg.QueryRow(ctx, `
		SELECT count(*)
		FROM pattern_templates t
		JOIN pattern_accuracy a ON a.template_id = t.id
		WHERE t.is_active
		  AND a.total_predictions >= $1
		  AND a.accuracy_rate < $2
	`, minSampleSize, threshold).Scan(&candidates)
	if err != nil {
		return nil, TransientStore("count prune candidates", err)
	}

	rows, err := s.pg.Query(ctx, `
		UPDATE pattern_templates t
		SET is_active = false
		FROM pattern_accuracy a
		WHERE a.template_id = t.id
		  AND t.is_active
		  AND a.total_predictions >= $1
		  AND a.accuracy_rate < $2
		RETURNING t.id, t.name, t.display_name, t.category, t.base_confidence_boost, t.is_active, t.created_at
	`, minSampleSize, threshold)
	if err != nil {
		return nil, TransientStore("auto prune", err)
	}
	defer rows.Close()

	result := &models.AutoPruneResult{
		Threshold:     threshold,
		MinSampleSize: minSampleSize,
		Candidates:    candidates,
		Deactivated:   []models.PatternTemplate{},
	}
	for rows.Next() {
		var t models.PatternTemplate
		err := rows.Scan(&t.ID, &t.Name, &t.DisplayName, &t.Category,
			&t.BaseConfidenceBoost, &t.IsActive, &t.CreatedAt)
		if err != nil {
			return nil, TransientStore("scan pruned template", err)
		}
		result.Deactivated = append(result.Deactivated, t)
	}
	if err := rows.Err(); err != nil {
		return nil, TransientStore("iterate pruned templates", err)
	}
	templatesDeactivated.Add(float64(len(result.Deactivated)))

	if len(result.Deactivated) > 0 {
		s.logger.Infow("Templates deactivated by auto-prune",
			"count", len(result.Deactivated), "threshold", threshold, "minSampleSize", minSampleSize)
	}
	return result, nil
}

// pickModel applies the epsilon-greedy rule to already-loaded arms.
// With probability epsilon, and only when challengers exist, a uniformly
// random challenger is explored; otherwise the champion is exploited.
// Returns NotFound when neither branch has an arm.
func pickModel(championID string, challengerIDs []string, epsilon float64,
	randFloat func() float64, randIntn func(n int) int) (*models.ModelSelection, error) {

	if len(challengerIDs) > 0 && randFloat() < epsilon {
		picked := challengerIDs[randIntn(len(challengerIDs))]
		return &models.ModelSelection{
			SelectedModelID: picked,
			Strategy:        "explore",
			ExplorationRate: epsilon,
		}, nil
	}
	if championID != "" {
		return &models.ModelSelection{
			SelectedModelID: championID,
			Strategy:        "exploit",
			ExplorationRate: epsilon,
		}, nil
	}
	return nil, NotFoundf("no champion available")
}

// experimentByID loads an experiment row.
func (s *modelService) experimentByID(ctx context.Context, id string) (*models.ModelExperiment, error) {
	var exp models.ModelExperiment
	err := s.pg.QueryRow(ctx, `
		SELECT id, experiment_name, champion_model_id, challenger_model_id,
		       target_sample_size, current_sample_size, significance_threshold,
		       p_value, accuracy_diff, winner_model_id, decision, started_at, completed_at
		FROM model_experiments
		WHERE id = $1
	`, id).Scan(&exp.ID, &exp.ExperimentName, &exp.ChampionModelID, &exp.ChallengerModelID,
		&exp.TargetSampleSize, &exp.CurrentSampleSize, &exp.SignificanceThreshold,
		&exp.PValue, &exp.AccuracyDiff, &exp.WinnerModelID, &exp.Decision,
		&exp.StartedAt, &exp.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("experiment %s not found", id)
	}
	if err != nil {
		return nil, TransientStore("load experiment", err)
	}
	return &exp, nil
}

// outcomeCounts returns (correct, total) over a model's evaluated
// predictions.
func (s *modelService) outcomeCounts(ctx context.Context, modelID string) (int, int, error) {
	var correct, total int
	err := s.pg.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE was_correct), count(*)
		FROM predictions
		WHERE model_id = $1 AND was_correct IS NOT NULL
	`, modelID).Scan(&correct, &total)
	if err != nil {
		return 0, 0, TransientStore("outcome counts", err)
	}
	return correct, total, nil
}

// retireChampion demotes any current champion and zeroes its traffic.
func retireChampion(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		UPDATE model_registry
		SET model_type = 'retired', traffic_allocation = 0
		WHERE model_type = 'champion'
	`)
	if err != nil {
		return TransientStore("retire champion", err)
	}
	return nil
}

// promoteChallenger retires the incumbent and promotes the challenger
// inside the caller's transaction, so no window exists with zero or two
// champions.
func promoteChallenger(ctx context.Context, tx pgx.Tx, challengerID string) error {
	if err := retireChampion(ctx, tx); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE model_registry
		SET model_type = 'champion', traffic_allocation = $1
		WHERE id = $2 AND model_type = 'challenger'
	`, defaultChampionAllocation, challengerID)
	if err != nil {
		return TransientStore("promote challenger", err)
	}
	if tag.RowsAffected() == 0 {
		return Conflictf("model %s is not a challenger", challengerID)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
