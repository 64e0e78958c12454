package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	predictionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmix_predictions_created_total",
		Help: "Total number of predictions created",
	})

	patternsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winmix_patterns_detected_total",
		Help: "Total number of pattern detections by type",
	}, []string{"pattern_type"})

	feedbackEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winmix_feedback_evaluations_total",
		Help: "Total number of predictions evaluated by feedback",
	}, []string{"correct"})

	experimentDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winmix_experiment_decisions_total",
		Help: "Total number of experiment evaluation decisions",
	}, []string{"decision"})

	modelPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmix_model_promotions_total",
		Help: "Total number of challenger promotions",
	})

	templatesDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmix_templates_deactivated_total",
		Help: "Total number of pattern templates deactivated by auto-prune",
	})
)
