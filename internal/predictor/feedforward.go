package predictor

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/clinicstack/noshow-engine/internal/models"
)

// FeedForward is a single-hidden-layer sigmoid network trained by
// stochastic gradient descent. One instance serves one model slot; Train
// discards previous weights entirely.
type FeedForward struct {
	hiddenSize int
	rng        *rand.Rand

	inputSize int
	weightsIH [][]float64
	biasH     []float64
	weightsHO []float64
	biasO     float64
	trained   bool
}

// NewFeedForward creates an untrained network with the given hidden layer
// width. The rng seeds weight initialisation.
func NewFeedForward(hiddenSize int, rng *rand.Rand) *FeedForward {
	if hiddenSize <= 0 {
		hiddenSize = 6
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &FeedForward{hiddenSize: hiddenSize, rng: rng}
}

// Train fits the network to the samples. It runs opts.Iterations epochs of
// per-sample SGD, stopping early once mean squared error drops below
// opts.ErrorThreshold. The context is checked between epochs so an
// abandoned run stops promptly.
func (n *FeedForward) Train(ctx context.Context, samples []models.VectorSample, opts Options) (Result, error) {
	if len(samples) == 0 {
		return Result{}, ErrNoSamples
	}

	n.initWeights(len(samples[0].Input))
	rate := opts.LearningRate
	if rate <= 0 {
		rate = 0.3
	}
	every := cadence(opts)

	var epochError float64
	iteration := 0
	for iteration = 1; iteration <= opts.Iterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		epochError = 0
		for _, s := range samples {
			epochError += n.update(s.Input, s.Target, rate)
		}
		epochError /= float64(len(samples))

		if iteration%every == 0 {
			if opts.Log != nil {
				opts.Log(fmt.Sprintf("iteration %d, error %.5f", iteration, epochError))
			}
			if opts.Progress != nil {
				opts.Progress(iteration, epochError)
			}
		}
		if opts.ErrorThreshold > 0 && epochError < opts.ErrorThreshold {
			break
		}
	}
	if iteration > opts.Iterations {
		iteration = opts.Iterations
	}

	n.trained = true
	return Result{Iterations: iteration, Error: epochError}, nil
}

// Run scores one input vector, returning the sigmoid output in (0,1).
// Safe for concurrent use once training has completed.
func (n *FeedForward) Run(input []float64) (float64, error) {
	if !n.trained {
		return 0, ErrNotTrained
	}
	if len(input) != n.inputSize {
		return 0, fmt.Errorf("input size %d, want %d", len(input), n.inputSize)
	}
	_, out := n.forward(input)
	return out, nil
}

func (n *FeedForward) initWeights(inputSize int) {
	n.inputSize = inputSize
	n.weightsIH = make([][]float64, n.hiddenSize)
	for h := range n.weightsIH {
		n.weightsIH[h] = make([]float64, inputSize)
		for i := range n.weightsIH[h] {
			n.weightsIH[h][i] = n.rng.Float64()*0.8 - 0.4
		}
	}
	n.biasH = make([]float64, n.hiddenSize)
	n.weightsHO = make([]float64, n.hiddenSize)
	for h := range n.weightsHO {
		n.weightsHO[h] = n.rng.Float64()*0.8 - 0.4
	}
	n.biasO = 0
	n.trained = false
}

// forward allocates its own hidden activations so concurrent Run calls
// never share state.
func (n *FeedForward) forward(input []float64) ([]float64, float64) {
	hidden := make([]float64, n.hiddenSize)
	for h := 0; h < n.hiddenSize; h++ {
		sum := n.biasH[h]
		for i, v := range input {
			sum += n.weightsIH[h][i] * v
		}
		hidden[h] = sigmoid(sum)
	}
	sum := n.biasO
	for h, v := range hidden {
		sum += n.weightsHO[h] * v
	}
	return hidden, sigmoid(sum)
}

// update performs one backpropagation step and returns the squared error.
func (n *FeedForward) update(input []float64, target, rate float64) float64 {
	hidden, out := n.forward(input)

	diff := out - target
	deltaO := diff * out * (1 - out)

	for h, hv := range hidden {
		deltaH := deltaO * n.weightsHO[h] * hv * (1 - hv)
		n.weightsHO[h] -= rate * deltaO * hv
		for i, iv := range input {
			n.weightsIH[h][i] -= rate * deltaH * iv
		}
		n.biasH[h] -= rate * deltaH
	}
	n.biasO -= rate * deltaO

	return diff * diff
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
