package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed trainings and predictions.
	OutcomeSuccess = "success"
	// OutcomeError labels failed trainings and predictions.
	OutcomeError = "error"
)

var (
	trainingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noshow",
			Name:      "trainings_total",
			Help:      "Total training runs, partitioned by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	trainingDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "noshow",
			Name:      "training_seconds",
			Help:      "Training run latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noshow",
			Name:      "predictions_total",
			Help:      "Total prediction requests, partitioned by model and outcome.",
		},
		[]string{"model", "outcome"},
	)
)

// Register attaches noshow-engine collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		trainingsTotal,
		trainingDurationSeconds,
		predictionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTraining records one training run.
func ObserveTraining(model string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	trainingsTotal.WithLabelValues(model, label).Inc()
	if duration < 0 {
		duration = 0
	}
	trainingDurationSeconds.WithLabelValues(model).Observe(duration.Seconds())
}

// ObservePrediction records one prediction request.
func ObservePrediction(model string, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(model, label).Inc()
}
