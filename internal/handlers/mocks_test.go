package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/winmix/prediction-api/internal/models"
)

// newTestHandler builds a Handler with a nop logger and a live
// validator; tests fill in the service fields they exercise.
func newTestHandler() *Handler {
	return &Handler{
		logger:    zap.NewNop().Sugar(),
		validator: validator.New(),
	}
}

// MockPatternService
type MockPatternService struct {
	DetectFunc       func(ctx context.Context, req models.DetectPatternsRequest) (*models.DetectPatternsResponse, error)
	VerifyFunc       func(ctx context.Context, req models.DetectPatternsRequest) (*models.VerifyPatternsResponse, error)
	TeamPatternsFunc func(ctx context.Context, teamID, teamName string) (*models.TeamPatternsResponse, error)
}

func (m *MockPatternService) Detect(ctx context.Context, req models.DetectPatternsRequest) (*models.DetectPatternsResponse, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, req)
	}
	return &models.DetectPatternsResponse{}, nil
}

func (m *MockPatternService) Verify(ctx context.Context, req models.DetectPatternsRequest) (*models.VerifyPatternsResponse, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, req)
	}
	return &models.VerifyPatternsResponse{}, nil
}

func (m *MockPatternService) TeamPatterns(ctx context.Context, teamID, teamName string) (*models.TeamPatternsResponse, error) {
	if m.TeamPatternsFunc != nil {
		return m.TeamPatternsFunc(ctx, teamID, teamName)
	}
	return &models.TeamPatternsResponse{}, nil
}

// MockPredictionService
type MockPredictionService struct {
	AnalyzeFunc   func(ctx context.Context, matchID string) (*models.PredictionResponse, error)
	TrackFunc     func(ctx context.Context, req models.TrackPredictionRequest) (*models.Prediction, error)
	ShadowRunFunc func(ctx context.Context, matchID, modelID string) (*models.Prediction, error)
}

func (m *MockPredictionService) Analyze(ctx context.Context, matchID string) (*models.PredictionResponse, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, matchID)
	}
	return &models.PredictionResponse{}, nil
}

func (m *MockPredictionService) Track(ctx context.Context, req models.TrackPredictionRequest) (*models.Prediction, error) {
	if m.TrackFunc != nil {
		return m.TrackFunc(ctx, req)
	}
	return &models.Prediction{}, nil
}

func (m *MockPredictionService) ShadowRun(ctx context.Context, matchID, modelID string) (*models.Prediction, error) {
	if m.ShadowRunFunc != nil {
		return m.ShadowRunFunc(ctx, matchID, modelID)
	}
	return &models.Prediction{}, nil
}

// MockFeedbackService
type MockFeedbackService struct {
	SubmitFunc func(ctx context.Context, req models.SubmitFeedbackRequest) (*models.FeedbackResult, error)
}

func (m *MockFeedbackService) Submit(ctx context.Context, req models.SubmitFeedbackRequest) (*models.FeedbackResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return &models.FeedbackResult{}, nil
}

// MockModelService
type MockModelService struct {
	RegisterFunc           func(ctx context.Context, req models.RegisterModelRequest) (*models.ModelRegistry, error)
	ListFunc               func(ctx context.Context) ([]models.ModelRegistry, error)
	CreateExperimentFunc   func(ctx context.Context, req models.CreateExperimentRequest) (*models.ModelExperiment, error)
	EvaluateExperimentFunc func(ctx context.Context, experimentID string) (*models.ModelExperiment, error)
	SelectFunc             func(ctx context.Context, epsilon float64) (*models.ModelSelection, error)
	AutoPruneFunc          func(ctx context.Context, threshold float64, minSampleSize int) (*models.AutoPruneResult, error)
}

func (m *MockModelService) Register(ctx context.Context, req models.RegisterModelRequest) (*models.ModelRegistry, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return &models.ModelRegistry{}, nil
}

func (m *MockModelService) List(ctx context.Context) ([]models.ModelRegistry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockModelService) CreateExperiment(ctx context.Context, req models.CreateExperimentRequest) (*models.ModelExperiment, error) {
	if m.CreateExperimentFunc != nil {
		return m.CreateExperimentFunc(ctx, req)
	}
	return &models.ModelExperiment{}, nil
}

func (m *MockModelService) EvaluateExperiment(ctx context.Context, experimentID string) (*models.ModelExperiment, error) {
	if m.EvaluateExperimentFunc != nil {
		return m.EvaluateExperimentFunc(ctx, experimentID)
	}
	return &models.ModelExperiment{}, nil
}

func (m *MockModelService) Select(ctx context.Context, epsilon float64) (*models.ModelSelection, error) {
	if m.SelectFunc != nil {
		return m.SelectFunc(ctx, epsilon)
	}
	return &models.ModelSelection{}, nil
}

func (m *MockModelService) AutoPrune(ctx context.Context, threshold float64, minSampleSize int) (*models.AutoPruneResult, error) {
	if m.AutoPruneFunc != nil {
		return m.AutoPruneFunc(ctx, threshold, minSampleSize)
	}
	return &models.AutoPruneResult{}, nil
}

// MockLeagueStats
type MockLeagueStats struct {
	RefreshBaselineFunc func(ctx context.Context, leagueID string) (float64, error)
}

func (m *MockLeagueStats) AvgGoalsPerMatch(ctx context.Context, leagueID string) (float64, error) {
	return 0, nil
}

func (m *MockLeagueStats) RefreshBaseline(ctx context.Context, leagueID string) (float64, error) {
	if m.RefreshBaselineFunc != nil {
		return m.RefreshBaselineFunc(ctx, leagueID)
	}
	return 0, nil
}

func (m *MockLeagueStats) ArchiveMatch(ctx context.Context, match *models.Match) error {
	return nil
}
