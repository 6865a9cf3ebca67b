// Package metrics records batch run statistics as Prometheus collectors. Runs
// are short-lived, so the registry is exported to a node-exporter textfile
// rather than served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rewired-gh/vietoracle/internal/models"
)

const namespace = "vietoracle"

var (
	// Registry holds the pipeline collectors.
	Registry = prometheus.NewRegistry()

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs per game and outcome.",
		},
		[]string{"game", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of a per-game pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"game"},
	)

	drawsAnalyzed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "draws",
			Name:      "analyzed",
			Help:      "Normalized draws in the latest run.",
		},
		[]string{"game"},
	)

	drawsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draws",
			Name:      "rejected_total",
			Help:      "Raw draw records rejected at ingestion.",
		},
		[]string{"game"},
	)

	templatesKnown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "templates",
			Name:      "registered",
			Help:      "Templates in the registry after the latest run.",
		},
		[]string{"game"},
	)

	templatesMinted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "templates",
			Name:      "minted_total",
			Help:      "Template ids minted by pipeline runs.",
		},
		[]string{"game"},
	)

	topProbability = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "templates",
			Name:      "top_probability_percent",
			Help:      "Overall probability of the best-ranked template.",
		},
		[]string{"game"},
	)

	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed for every game.",
		},
	)
)

func init() {
	Registry.MustRegister(
		runsTotal,
		runDuration,
		drawsAnalyzed,
		drawsRejected,
		templatesKnown,
		templatesMinted,
		topProbability,
		lastSuccess,
	)
}

// GameRun is the outcome of one game's pipeline run.
type GameRun struct {
	Game           models.Game
	Duration       time.Duration
	Err            error
	Draws          int
	Rejected       int
	Templates      int
	Minted         int
	TopProbability float64
}

// ObserveGameRun records a per-game run.
func ObserveGameRun(r GameRun) {
	game := string(r.Game)
	runDuration.WithLabelValues(game).Observe(r.Duration.Seconds())
	if r.Err != nil {
		runsTotal.WithLabelValues(game, "error").Inc()
		return
	}
	runsTotal.WithLabelValues(game, "ok").Inc()
	drawsAnalyzed.WithLabelValues(game).Set(float64(r.Draws))
	drawsRejected.WithLabelValues(game).Add(float64(r.Rejected))
	templatesKnown.WithLabelValues(game).Set(float64(r.Templates))
	templatesMinted.WithLabelValues(game).Add(float64(r.Minted))
	topProbability.WithLabelValues(game).Set(r.TopProbability)
}

// MarkSuccess stamps the completion time of a full run.
func MarkSuccess(at time.Time) {
	lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile exports Registry to path in the text exposition format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
