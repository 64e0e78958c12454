package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/winmix/prediction-api/internal/models"
)

type matchHistoryService struct {
	pg PgPool
}

// NewMatchHistoryService returns the read-only accessor over team and
// match records.
func NewMatchHistoryService(pg PgPool) MatchHistory {
	return &matchHistoryService{pg: pg}
}

const matchColumns = `id, home_team_id, away_team_id, league_id, match_date, status,
	home_score, away_score, halftime_home_score, halftime_away_score`

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	err := row.Scan(&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.LeagueID, &m.MatchDate,
		&m.Status, &m.HomeScore, &m.AwayScore, &m.HalftimeHomeScore, &m.HalftimeAwayScore)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ResolveTeam looks a team up by id or, failing that, by exact name.
// Missing identity is a hard NotFound; empty history never is.
func (s *matchHistoryService) ResolveTeam(ctx context.Context, teamID, teamName string) (*models.Team, error) {
	if teamID == "" && teamName == "" {
		return nil, Validationf("team_id or team_name is required")
	}

	var t models.Team
	var err error
	if teamID != "" {
		err = s.pg.QueryRow(ctx,
			`SELECT id, name, league_id FROM teams WHERE id = $1`, teamID).
			Scan(&t.ID, &t.Name, &t.LeagueID)
	} else {
		err = s.pg.QueryRow(ctx,
			`SELECT id, name, league_id FROM teams WHERE name = $1`, teamName).
			Scan(&t.ID, &t.Name, &t.LeagueID)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("team not found")
	}
	if err != nil {
		return nil, TransientStore("resolve team", err)
	}
	return &t, nil
}

func (s *matchHistoryService) MatchByID(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := scanMatch(s.pg.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM matches WHERE id = $1`, matchColumns), matchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("match %s not found", matchID)
	}
	if err != nil {
		return nil, TransientStore("load match", err)
	}
	return m, nil
}

// RecentMatches returns the team's most recent finished matches, newest
// first. An empty result is not an error.
func (s *matchHistoryService) RecentMatches(ctx context.Context, teamID string, limit int) ([]models.Match, error) {
	if limit <= 0 {
		limit = recentWindow
	}
	rows, err := s.pg.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE (home_team_id = $1 OR away_team_id = $1) AND status = 'finished'
		ORDER BY match_date DESC
		LIMIT $2
	`, matchColumns), teamID, limit)
	if err != nil {
		return nil, TransientStore("recent matches", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

// HeadToHead returns the most recent finished meetings between two
// teams, newest first.
func (s *matchHistoryService) HeadToHead(ctx context.Context, teamID, opponentID string, limit int) ([]models.Match, error) {
	if limit <= 0 {
		limit = headToHeadWindow
	}
	rows, err := s.pg.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM matches
		WHERE ((home_team_id = $1 AND away_team_id = $2)
		    OR (home_team_id = $2 AND away_team_id = $1))
		  AND status = 'finished'
		ORDER BY match_date DESC
		LIMIT $3
	`, matchColumns), teamID, opponentID, limit)
	if err != nil {
		return nil, TransientStore("head to head", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

// NextScheduledOpponent returns the opposing team id of the team's next
// scheduled match, or "" when nothing is scheduled.
func (s *matchHistoryService) NextScheduledOpponent(ctx context.Context, teamID string) (string, error) {
	var home, away string
	err := s.pg.QueryRow(ctx, `
		SELECT home_team_id, away_team_id FROM matches
		WHERE (home_team_id = $1 OR away_team_id = $1) AND status = 'scheduled'
		ORDER BY match_date ASC
		LIMIT 1
	`, teamID).Scan(&home, &away)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", TransientStore("next scheduled opponent", err)
	}
	if home == teamID {
		return away, nil
	}
	return home, nil
}

func collectMatches(rows pgx.Rows) ([]models.Match, error) {
	var matches []models.Match
	for rows.Next() {
		var m models.Match
		err := rows.Scan(&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.LeagueID, &m.MatchDate,
			&m.Status, &m.HomeScore, &m.AwayScore, &m.HalftimeHomeScore, &m.HalftimeAwayScore)
		if err != nil {
			return nil, TransientStore("scan match", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, TransientStore("iterate matches", err)
	}
	return matches, nil
}
