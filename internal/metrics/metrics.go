package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// Workflow metrics
	WorkflowsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimcheck_workflows_started_total",
			Help: "Total number of claim verification workflows started",
		},
	)

	WorkflowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_workflows_completed_total",
			Help: "Total number of workflows that reached a terminal stage",
		},
		[]string{"stage"},
	)

	WorkflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claimcheck_workflow_duration_seconds",
			Help:    "Workflow execution duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Branch metrics
	BranchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claimcheck_branch_duration_seconds",
			Help:    "Per sub-claim verification branch duration in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 180},
		},
		[]string{"label"},
	)

	// Tool metrics
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_tool_calls_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "outcome"}, // outcome: ok, error, cached
	)

	// Parse fallbacks
	ParseFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_parse_fallbacks_total",
			Help: "Model answers that could not be parsed and fell back to a default",
		},
		[]string{"component"}, // decomposer, synthesizer, planner
	)

	// Materials metrics
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_recommendations_total",
			Help: "Material recommendations by scheduling outcome",
		},
		[]string{"status"}, // selected, queued
	)

	HandoffOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_handoff_total",
			Help: "Content generation handoffs by status",
		},
		[]string{"status"},
	)
)

// RecordToolCall records one tool invocation
func RecordToolCall(tool string, cached bool, err error) {
	outcome := "ok"
	switch {
	case cached:
		outcome = "cached"
	case err != nil:
		outcome = "error"
	}
	ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// RecordWorkflow records a finished workflow
func RecordWorkflow(stage string, duration time.Duration) {
	WorkflowsCompleted.WithLabelValues(stage).Inc()
	WorkflowDuration.Observe(duration.Seconds())
}

// RecordSchedule records how many recommendations were selected and queued
func RecordSchedule(selected, queued int) {
	Recommendations.WithLabelValues("selected").Add(float64(selected))
	Recommendations.WithLabelValues("queued").Add(float64(queued))
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics server listening", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
