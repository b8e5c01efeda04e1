package predictor

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicstack/noshow-engine/internal/models"
)

// TokenPerceptron is a binary perceptron over bag-of-token features. It
// stands in for a sequence model: cheap to train, consumes the same
// cleaned token strings, emits the same label surface ("yes"/"no").
type TokenPerceptron struct {
	weights map[string]float64
	bias    float64
	trained bool
}

// NewTokenPerceptron creates an untrained text classifier.
func NewTokenPerceptron() *TokenPerceptron {
	return &TokenPerceptron{}
}

// Train runs opts.Iterations epochs over the samples, updating weights on
// every misclassification. Reported error is the per-epoch misclassified
// fraction; training stops early when it drops below opts.ErrorThreshold.
func (p *TokenPerceptron) Train(ctx context.Context, samples []models.TextSample, opts Options) (Result, error) {
	if len(samples) == 0 {
		return Result{}, ErrNoSamples
	}

	rate := opts.LearningRate
	if rate <= 0 {
		rate = 0.1
	}
	every := cadence(opts)

	p.weights = make(map[string]float64)
	p.bias = 0
	p.trained = false

	tokenized := make([][]string, len(samples))
	targets := make([]float64, len(samples))
	for i, s := range samples {
		tokenized[i] = strings.Fields(s.Text)
		if s.Label == models.LabelNoShow {
			targets[i] = 1
		} else {
			targets[i] = -1
		}
	}

	var epochError float64
	iteration := 0
	for iteration = 1; iteration <= opts.Iterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		missed := 0
		for i, tokens := range tokenized {
			// Same tie rule as Run: only a strictly positive score counts
			// as a no-show prediction.
			score := p.score(tokens)
			predicted := -1.0
			if score > 0 {
				predicted = 1
			}
			if predicted != targets[i] {
				missed++
				for _, tok := range tokens {
					p.weights[tok] += rate * targets[i]
				}
				p.bias += rate * targets[i]
			}
		}
		epochError = float64(missed) / float64(len(samples))

		if iteration%every == 0 {
			if opts.Log != nil {
				opts.Log(fmt.Sprintf("iteration %d, error %.5f", iteration, epochError))
			}
			if opts.Progress != nil {
				opts.Progress(iteration, epochError)
			}
		}
		if epochError <= opts.ErrorThreshold {
			break
		}
	}
	if iteration > opts.Iterations {
		iteration = opts.Iterations
	}

	p.trained = true
	return Result{Iterations: iteration, Error: epochError}, nil
}

// Run classifies a cleaned token string. Ties score toward attendance:
// only a strictly positive score predicts a no-show.
func (p *TokenPerceptron) Run(text string) (string, error) {
	if !p.trained {
		return "", ErrNotTrained
	}
	if p.score(strings.Fields(text)) > 0 {
		return models.LabelNoShow, nil
	}
	return models.LabelShow, nil
}

func (p *TokenPerceptron) score(tokens []string) float64 {
	score := p.bias
	for _, tok := range tokens {
		score += p.weights[tok]
	}
	return score
}
