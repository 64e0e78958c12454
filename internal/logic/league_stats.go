package logic

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/winmix/prediction-api/internal/models"
)

const leagueBaselineCacheTTL = 10 * time.Minute

type leagueStatsService struct {
	pg     PgPool
	ch     driver.Conn
	redis  RedisClient
	logger *zap.SugaredLogger
}

// NewLeagueStatsService returns the league scoring baseline provider.
// Postgres holds the authoritative avg_goals_per_match column, Redis
// caches reads, and ClickHouse keeps the finished-match archive used to
// recompute the baseline.
func NewLeagueStatsService(pg PgPool, ch driver.Conn, rdb RedisClient, logger *zap.Logger) LeagueStats {
	return &leagueStatsService{pg: pg, ch: ch, redis: rdb, logger: logger.Sugar()}
}

func leagueBaselineKey(leagueID string) string {
	return "league_avg_goals:" + leagueID
}

func (s *leagueStatsService) AvgGoalsPerMatch(ctx context.Context, leagueID string) (float64, error) {
	if cached, err := s.redis.Get(ctx, leagueBaselineKey(leagueID)).Result(); err == nil {
		if avg, perr := strconv.ParseFloat(cached, 64); perr == nil {
			return avg, nil
		}
	}

	var avg float64
	err := s.pg.QueryRow(ctx,
		`SELECT avg_goals_per_match FROM leagues WHERE id = $1`, leagueID).Scan(&avg)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, NotFoundf("league %s not found", leagueID)
	}
	if err != nil {
		return 0, TransientStore("league baseline", err)
	}

	if err := s.redis.Set(ctx, leagueBaselineKey(leagueID),
		strconv.FormatFloat(avg, 'f', -1, 64), leagueBaselineCacheTTL).Err(); err != nil {
		s.logger.Warnw("Failed to cache league baseline", "error", err, "leagueID", leagueID)
	}
	return avg, nil
}

// RefreshBaseline recomputes avg goals per match from the ClickHouse
// archive, writes it back to the leagues row and drops the cache entry.
func (s *leagueStatsService) RefreshBaseline(ctx context.Context, leagueID string) (float64, error) {
	var avg float64
	err := s.ch.QueryRow(ctx, `
		SELECT avg(home_score + away_score)
		FROM match_archive
		WHERE league_id = ?
	`, leagueID).Scan(&avg)
	if err != nil {
		return 0, TransientStore("archive baseline query", err)
	}

	tag, err := s.pg.Exec(ctx,
		`UPDATE leagues SET avg_goals_per_match = $1 WHERE id = $2`, avg, leagueID)
	if err != nil {
		return 0, TransientStore("update league baseline", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, NotFoundf("league %s not found", leagueID)
	}

	if err := s.redis.Del(ctx, leagueBaselineKey(leagueID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warnw("Failed to invalidate league baseline cache", "error", err, "leagueID", leagueID)
	}
	return avg, nil
}

// ArchiveMatch mirrors a finished match into the ClickHouse archive.
// Callers treat failures as non-fatal; the transactional record in
// Postgres stays authoritative.
func (s *leagueStatsService) ArchiveMatch(ctx context.Context, m *models.Match) error {
	if m.HomeScore == nil || m.AwayScore == nil {
		return Validationf("cannot archive a match without a final score")
	}
	err := s.ch.Exec(ctx, `
		INSERT INTO match_archive (match_id, league_id, home_team_id, away_team_id,
			match_date, home_score, away_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.LeagueID, m.HomeTeamID, m.AwayTeamID, m.MatchDate, *m.HomeScore, *m.AwayScore)
	if err != nil {
		return TransientStore("archive match", err)
	}
	return nil
}
