// Package predictor defines the trainable-model capability the pipeline
// depends on, plus two lightweight implementations. Callers treat models
// as opaque: feed labeled samples in, get a trained scorer back. Nothing
// outside this package may assume model internals.
package predictor

import (
	"context"
	"errors"

	"github.com/clinicstack/noshow-engine/internal/models"
)

// ErrNotTrained is returned by Run when no training has completed yet.
var ErrNotTrained = errors.New("model not trained yet")

// ErrNoSamples is returned by Train when the sample list is empty.
var ErrNoSamples = errors.New("no training samples")

// Options controls a training run. Log and Progress are invoked every
// LogEvery iterations; both may be nil.
type Options struct {
	Iterations     int
	ErrorThreshold float64
	LearningRate   float64
	LogEvery       int
	Log            func(message string)
	Progress       func(iteration int, errValue float64)
}

// Result reports how a training run finished.
type Result struct {
	Iterations int
	Error      float64
}

// VectorModel is a trainable scorer over fixed-size numeric vectors.
// Train replaces any previously learned state wholesale.
type VectorModel interface {
	Train(ctx context.Context, samples []models.VectorSample, opts Options) (Result, error)
	Run(input []float64) (float64, error)
}

// TextModel is a trainable classifier over cleaned token strings.
type TextModel interface {
	Train(ctx context.Context, samples []models.TextSample, opts Options) (Result, error)
	Run(text string) (string, error)
}

// cadence returns the iteration interval for callbacks, defaulting to a
// tenth of the run when unset.
func cadence(opts Options) int {
	if opts.LogEvery > 0 {
		return opts.LogEvery
	}
	every := opts.Iterations / 10
	if every < 1 {
		every = 1
	}
	return every
}
