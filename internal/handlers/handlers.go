package handlers

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/winmix/prediction-api/internal/logic"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

type Config struct {
	Postgres   *pgxpool.Pool
	ClickHouse driver.Conn
	Redis      *redis.Client
	Logger     *zap.Logger
	// Services
	Patterns    logic.PatternService
	Predictions logic.PredictionService
	Feedback    logic.FeedbackService
	Models      logic.ModelService
	Leagues     logic.LeagueStats
	History     logic.MatchHistory
}

type Handler struct {
	pg          *pgxpool.Pool
	ch          driver.Conn
	redis       *redis.Client
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	patterns    logic.PatternService
	predictions logic.PredictionService
	feedback    logic.FeedbackService
	models      logic.ModelService
	leagues     logic.LeagueStats
	history     logic.MatchHistory
}

func New(cfg Config) *Handler {
	return &Handler{
		pg:          cfg.Postgres,
		ch:          cfg.ClickHouse,
		redis:       cfg.Redis,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
		patterns:    cfg.Patterns,
		predictions: cfg.Predictions,
		feedback:    cfg.Feedback,
		models:      cfg.Models,
		leagues:     cfg.Leagues,
		history:     cfg.History,
	}
}
