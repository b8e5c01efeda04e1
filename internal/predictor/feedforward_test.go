package predictor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/clinicstack/noshow-engine/internal/models"
)

func separableSamples() []models.VectorSample {
	// First feature decides the class; clearly separable.
	return []models.VectorSample{
		{Input: []float64{0.9, 0.1}, Target: 1},
		{Input: []float64{0.85, 0.3}, Target: 1},
		{Input: []float64{0.95, 0.6}, Target: 1},
		{Input: []float64{0.1, 0.2}, Target: 0},
		{Input: []float64{0.05, 0.7}, Target: 0},
		{Input: []float64{0.15, 0.4}, Target: 0},
	}
}

func TestFeedForwardLearnsSeparableData(t *testing.T) {
	model := NewFeedForward(4, rand.New(rand.NewSource(42)))
	result, err := model.Train(context.Background(), separableSamples(), Options{
		Iterations:     3000,
		ErrorThreshold: 0.01,
		LearningRate:   0.5,
	})
	if err != nil {
		t.Fatalf("unexpected training error: %v", err)
	}
	if result.Iterations == 0 {
		t.Fatalf("expected at least one iteration")
	}

	high, err := model.Run([]float64{0.9, 0.5})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	low, err := model.Run([]float64{0.1, 0.5})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if high <= low {
		t.Fatalf("expected positive-class score %v above negative-class score %v", high, low)
	}
	if high <= 0.5 {
		t.Fatalf("expected positive-class score above threshold, got %v", high)
	}
}

func TestFeedForwardRunBeforeTrain(t *testing.T) {
	model := NewFeedForward(4, rand.New(rand.NewSource(1)))
	if _, err := model.Run([]float64{0.5, 0.5}); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}

func TestFeedForwardEmptySamples(t *testing.T) {
	model := NewFeedForward(4, rand.New(rand.NewSource(1)))
	if _, err := model.Train(context.Background(), nil, Options{Iterations: 10}); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
}

func TestFeedForwardHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := NewFeedForward(4, rand.New(rand.NewSource(1)))
	_, err := model.Train(ctx, separableSamples(), Options{Iterations: 1000})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFeedForwardProgressCadence(t *testing.T) {
	var iterations []int
	model := NewFeedForward(4, rand.New(rand.NewSource(7)))
	_, err := model.Train(context.Background(), separableSamples(), Options{
		Iterations:   100,
		LearningRate: 0.1,
		LogEvery:     10,
		Progress: func(iteration int, errValue float64) {
			iterations = append(iterations, iteration)
		},
	})
	if err != nil {
		t.Fatalf("unexpected training error: %v", err)
	}

	if len(iterations) == 0 {
		t.Fatalf("expected progress callbacks")
	}
	for i, iter := range iterations {
		if iter%10 != 0 {
			t.Fatalf("progress at unexpected iteration %d", iter)
		}
		if i > 0 && iter <= iterations[i-1] {
			t.Fatalf("progress iterations not increasing: %v", iterations)
		}
	}
}

func TestFeedForwardConcurrentRun(t *testing.T) {
	model := NewFeedForward(4, rand.New(rand.NewSource(3)))
	if _, err := model.Train(context.Background(), separableSamples(), Options{Iterations: 200, LearningRate: 0.3}); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	want, err := model.Run([]float64{0.9, 0.5})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				got, err := model.Run([]float64{0.9, 0.5})
				if err != nil {
					errCh <- err
					return
				}
				if got != want {
					errCh <- fmt.Errorf("score %v, want %v", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		t.Fatalf("concurrent run: %v", err)
	}
}

func TestFeedForwardRunInputSize(t *testing.T) {
	model := NewFeedForward(4, rand.New(rand.NewSource(1)))
	if _, err := model.Train(context.Background(), separableSamples(), Options{Iterations: 10, LearningRate: 0.1}); err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if _, err := model.Run([]float64{0.5}); err == nil {
		t.Fatalf("expected error for wrong input size")
	}
}
