package logic

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/winmix/prediction-api/internal/models"
)

// PgPool defines the interface for the PostgreSQL connection pool.
// Begin is required by the feedback and promotion transactions.
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RedisClient defines the interface for the Redis cache client.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// MatchHistory provides read-only access to team and match records.
type MatchHistory interface {
	ResolveTeam(ctx context.Context, teamID, teamName string) (*models.Team, error)
	MatchByID(ctx context.Context, matchID string) (*models.Match, error)
	RecentMatches(ctx context.Context, teamID string, limit int) ([]models.Match, error)
	HeadToHead(ctx context.Context, teamID, opponentID string, limit int) ([]models.Match, error)
	NextScheduledOpponent(ctx context.Context, teamID string) (string, error)
}

// LeagueStats provides the league scoring baseline and the analytics
// archive behind it.
type LeagueStats interface {
	AvgGoalsPerMatch(ctx context.Context, leagueID string) (float64, error)
	RefreshBaseline(ctx context.Context, leagueID string) (float64, error)
	ArchiveMatch(ctx context.Context, m *models.Match) error
}

// PatternService detects, verifies and lists team behavioral patterns.
type PatternService interface {
	Detect(ctx context.Context, req models.DetectPatternsRequest) (*models.DetectPatternsResponse, error)
	Verify(ctx context.Context, req models.DetectPatternsRequest) (*models.VerifyPatternsResponse, error)
	TeamPatterns(ctx context.Context, teamID, teamName string) (*models.TeamPatternsResponse, error)
}

// PredictionService produces and records match outcome predictions.
type PredictionService interface {
	Analyze(ctx context.Context, matchID string) (*models.PredictionResponse, error)
	Track(ctx context.Context, req models.TrackPredictionRequest) (*models.Prediction, error)
	ShadowRun(ctx context.Context, matchID, modelID string) (*models.Prediction, error)
}

// FeedbackService applies final match results to stored predictions and
// pattern statistics.
type FeedbackService interface {
	Submit(ctx context.Context, req models.SubmitFeedbackRequest) (*models.FeedbackResult, error)
}

// ModelService manages the champion/challenger registry, experiments and
// traffic selection.
type ModelService interface {
	Register(ctx context.Context, req models.RegisterModelRequest) (*models.ModelRegistry, error)
	List(ctx context.Context) ([]models.ModelRegistry, error)
	CreateExperiment(ctx context.Context, req models.CreateExperimentRequest) (*models.ModelExperiment, error)
	EvaluateExperiment(ctx context.Context, experimentID string) (*models.ModelExperiment, error)
	Select(ctx context.Context, epsilon float64) (*models.ModelSelection, error)
	AutoPrune(ctx context.Context, threshold float64, minSampleSize int) (*models.AutoPruneResult, error)
}
