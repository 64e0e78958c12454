package logic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/winmix/prediction-api/internal/models"
)

type patternService struct {
	pg      PgPool
	history MatchHistory
	leagues LeagueStats
	logger  *zap.SugaredLogger
}

// NewPatternService returns the pattern detection and verification
// service.
func NewPatternService(pg PgPool, history MatchHistory, leagues LeagueStats, logger *zap.Logger) PatternService {
	return &patternService{pg: pg, history: history, leagues: leagues, logger: logger.Sugar()}
}

// runDetections executes the team-scoped detectors. Detection itself is
// pure; this method only gathers the inputs. Opponent-relative patterns
// (head-to-head, form advantage) are checked against the team's next
// scheduled opponent and simply don't fire when none is scheduled.
func (s *patternService) runDetections(ctx context.Context, team *models.Team, types []models.PatternType) ([]models.DetectionResult, error) {
	want := wantedTypes(types)

	recent, err := s.history.RecentMatches(ctx, team.ID, recentWindow)
	if err != nil {
		return nil, err
	}

	var results []models.DetectionResult
	if wanted(want, models.PatternHomeWinningStreak) {
		if r := detectWinningStreak(recent, team.ID, true); r != nil {
			results = append(results, *r)
		}
	}
	if wanted(want, models.PatternAwayWinningStreak) {
		if r := detectWinningStreak(recent, team.ID, false); r != nil {
			results = append(results, *r)
		}
	}

	if wanted(want, models.PatternH2HDominance) || wanted(want, models.PatternRecentFormAdvantage) {
		opponentID, err := s.history.NextScheduledOpponent(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		if opponentID != "" {
			if wanted(want, models.PatternH2HDominance) {
				h2h, err := s.history.HeadToHead(ctx, team.ID, opponentID, headToHeadWindow)
				if err != nil {
					return nil, err
				}
				if r := detectH2HDominance(h2h, team.ID); r != nil {
					results = append(results, *r)
				}
			}
			if wanted(want, models.PatternRecentFormAdvantage) {
				oppRecent, err := s.history.RecentMatches(ctx, opponentID, recentWindow)
				if err != nil {
					return nil, err
				}
				own := formScore(recent, team.ID)
				opp := formScore(oppRecent, opponentID)
				if r := detectFormAdvantage(own, opp); r != nil {
					results = append(results, *r)
				}
			}
		}
	}

	if wanted(want, models.PatternHighScoringLeague) {
		avg, err := s.leagues.AvgGoalsPerMatch(ctx, team.LeagueID)
		if err != nil && KindOf(err) != KindNotFound {
			return nil, err
		}
		if err == nil {
			if r := detectHighScoringLeague(avg); r != nil {
				results = append(results, *r)
			}
		}
	}

	for i := range results {
		patternsDetected.WithLabelValues(string(results[i].PatternType)).Inc()
	}
	return results, nil
}

// Detect runs the detectors for a team and refreshes the active
// team_patterns rows, preserving historical accuracy across
// re-detections of the same type.
func (s *patternService) Detect(ctx context.Context, req models.DetectPatternsRequest) (*models.DetectPatternsResponse, error) {
	team, err := s.history.ResolveTeam(ctx, req.TeamID, req.TeamName)
	if err != nil {
		return nil, err
	}

	detections, err := s.runDetections(ctx, team, req.PatternTypes)
	if err != nil {
		return nil, err
	}

	active, err := s.activePatterns(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	patterns := []models.TeamPattern{}
	for i := range detections {
		p, err := s.upsertPattern(ctx, team.ID, &detections[i], findByType(active, detections[i].PatternType))
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *p)
	}

	return &models.DetectPatternsResponse{TeamID: team.ID, TeamName: team.Name, Patterns: patterns}, nil
}

// Verify re-runs detection and reconciles the active rows: patterns no
// longer detected are expired, the rest are refreshed or created.
func (s *patternService) Verify(ctx context.Context, req models.DetectPatternsRequest) (*models.VerifyPatternsResponse, error) {
	team, err := s.history.ResolveTeam(ctx, req.TeamID, req.TeamName)
	if err != nil {
		return nil, err
	}

	detections, err := s.runDetections(ctx, team, req.PatternTypes)
	if err != nil {
		return nil, err
	}
	detected := make(map[models.PatternType]bool, len(detections))
	for i := range detections {
		detected[detections[i].PatternType] = true
	}

	active, err := s.activePatterns(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	resp := &models.VerifyPatternsResponse{Updated: []models.TeamPattern{}, Expired: []string{}}
	for i := range active {
		if detected[active[i].PatternType] {
			continue
		}
		tag, err := s.pg.Exec(ctx,
			`UPDATE team_patterns SET valid_until = $1 WHERE id = $2 AND valid_until IS NULL`,
			time.Now().UTC(), active[i].ID)
		if err != nil {
			return nil, TransientStore("expire pattern", err)
		}
		if tag.RowsAffected() > 0 {
			resp.Expired = append(resp.Expired, active[i].ID)
		}
	}

	for i := range detections {
		p, err := s.upsertPattern(ctx, team.ID, &detections[i], findByType(active, detections[i].PatternType))
		if err != nil {
			return nil, err
		}
		resp.Updated = append(resp.Updated, *p)
	}

	return resp, nil
}

// TeamPatterns lists a team's patterns split into active and expired
// sets.
func (s *patternService) TeamPatterns(ctx context.Context, teamID, teamName string) (*models.TeamPatternsResponse, error) {
	team, err := s.history.ResolveTeam(ctx, teamID, teamName)
	if err != nil {
		return nil, err
	}

	rows, err := s.pg.Query(ctx, `
		SELECT id, team_id, pattern_type, pattern_name, confidence, strength,
		       prediction_impact, pattern_metadata, historical_accuracy, valid_from, valid_until
		FROM team_patterns
		WHERE team_id = $1
		ORDER BY valid_from DESC
	`, team.ID)
	if err != nil {
		return nil, TransientStore("list team patterns", err)
	}
	defer rows.Close()

	resp := &models.TeamPatternsResponse{
		TeamID:          team.ID,
		TeamName:        team.Name,
		ActivePatterns:  []models.TeamPattern{},
		ExpiredPatterns: []models.TeamPattern{},
	}
	now := time.Now().UTC()
	for rows.Next() {
		var p models.TeamPattern
		if err := scanTeamPattern(rows, &p); err != nil {
			return nil, err
		}
		if p.ValidUntil == nil || p.ValidUntil.After(now) {
			resp.ActivePatterns = append(resp.ActivePatterns, p)
		} else {
			resp.ExpiredPatterns = append(resp.ExpiredPatterns, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, TransientStore("iterate team patterns", err)
	}
	return resp, nil
}

// activePatterns returns the currently valid rows for a team.
func (s *patternService) activePatterns(ctx context.Context, teamID string) ([]models.TeamPattern, error) {
	rows, err := s.pg.Query(ctx, `
		SELECT id, team_id, pattern_type, pattern_name, confidence, strength,
		       prediction_impact, pattern_metadata, historical_accuracy, valid_from, valid_until
		FROM team_patterns
		WHERE team_id = $1 AND valid_until IS NULL
	`, teamID)
	if err != nil {
		return nil, TransientStore("active patterns", err)
	}
	defer rows.Close()

	var patterns []models.TeamPattern
	for rows.Next() {
		var p models.TeamPattern
		if err := scanTeamPattern(rows, &p); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, TransientStore("iterate active patterns", err)
	}
	return patterns, nil
}

// upsertPattern refreshes an existing active row or inserts a new one.
// Historical accuracy carries over from the prior instance; a first
// detection starts at the default. Last value wins on re-detection.
func (s *patternService) upsertPattern(ctx context.Context, teamID string, det *models.DetectionResult, existing *models.TeamPattern) (*models.TeamPattern, error) {
	now := time.Now().UTC()
	p := models.TeamPattern{
		TeamID:             teamID,
		PatternType:        det.PatternType,
		PatternName:        det.PatternName,
		Confidence:         det.ConfidenceBoost,
		Strength:           det.Strength,
		PredictionImpact:   det.PredictionImpact,
		Metadata:           models.EvidenceJSON(det.Evidence),
		HistoricalAccuracy: defaultHistoricalAccuracy,
		ValidFrom:          now,
	}
	if existing != nil {
		p.ID = existing.ID
		p.HistoricalAccuracy = existing.HistoricalAccuracy
		p.ValidFrom = existing.ValidFrom

		_, err := s.pg.Exec(ctx, `
			UPDATE team_patterns
			SET pattern_name = $1, confidence = $2, strength = $3, prediction_impact = $4,
			    pattern_metadata = $5
			WHERE id = $6
		`, p.PatternName, p.Confidence, p.Strength, p.PredictionImpact, p.Metadata, p.ID)
		if err != nil {
			return nil, TransientStore("update pattern", err)
		}
		return &p, nil
	}

	p.ID = uuid.New().String()
	_, err := s.pg.Exec(ctx, `
		INSERT INTO team_patterns (id, team_id, pattern_type, pattern_name, confidence,
			strength, prediction_impact, pattern_metadata, historical_accuracy, valid_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.TeamID, p.PatternType, p.PatternName, p.Confidence,
		p.Strength, p.PredictionImpact, p.Metadata, p.HistoricalAccuracy, p.ValidFrom)
	if err != nil {
		return nil, TransientStore("insert pattern", err)
	}
	return &p, nil
}

func findByType(patterns []models.TeamPattern, t models.PatternType) *models.TeamPattern {
	for i := range patterns {
		if patterns[i].PatternType == t {
			return &patterns[i]
		}
	}
	return nil
}

func scanTeamPattern(rows pgx.Rows, p *models.TeamPattern) error {
	err := rows.Scan(&p.ID, &p.TeamID, &p.PatternType, &p.PatternName, &p.Confidence,
		&p.Strength, &p.PredictionImpact, &p.Metadata, &p.HistoricalAccuracy,
		&p.ValidFrom, &p.ValidUntil)
	if err != nil {
		return TransientStore("scan team pattern", err)
	}
	return nil
}
