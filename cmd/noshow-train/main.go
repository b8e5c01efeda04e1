// Command noshow-train runs both training pipelines from the terminal:
// useful for cross-checking model quality without standing up the
// service. It exercises the same pipeline code the server uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/progress"

	"github.com/clinicstack/noshow-engine/internal/config"
	"github.com/clinicstack/noshow-engine/internal/dataset"
	"github.com/clinicstack/noshow-engine/internal/engine"
	"github.com/clinicstack/noshow-engine/internal/evaluation"
	"github.com/clinicstack/noshow-engine/internal/features"
	"github.com/clinicstack/noshow-engine/internal/predictor"
	"github.com/clinicstack/noshow-engine/internal/sampling"
)

func main() {
	var (
		configPath string
		model      string
		seed       int64
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&model, "model", "both", "Model to train: numeric, text, or both")
	flag.Int64Var(&seed, "seed", 0, "RNG seed for reproducible sampling (0 = unseeded)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if seed != 0 {
		cfg.Training.Seed = seed
	}

	var store *dataset.Store
	if cfg.Dataset.Path != "" {
		store, err = dataset.LoadFile(cfg.Dataset.Path)
	} else {
		store, err = dataset.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("dataset: %d records, %d no-shows (%.1f%%)\n",
		store.Len(), store.NoShowCount(),
		float64(store.NoShowCount())/float64(store.Len())*100)

	pw := progress.NewWriter()
	pw.SetTrackerLength(30)
	pw.SetMessageLength(28)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	go pw.Render()

	ok := true
	if model == "numeric" || model == "both" {
		ok = trainNumeric(cfg, store, pw) && ok
	}
	if model == "text" || model == "both" {
		ok = trainText(cfg, store, pw) && ok
	}

	for pw.IsRenderInProgress() && pw.LengthActive() > 0 {
		time.Sleep(20 * time.Millisecond)
	}
	pw.Stop()

	if !ok {
		os.Exit(1)
	}
}

func trainNumeric(cfg *config.Config, store *dataset.Store, pw progress.Writer) bool {
	tracker := &progress.Tracker{
		Message: "numeric model",
		Total:   int64(cfg.Training.Numeric.Iterations),
	}
	pw.AppendTracker(tracker)

	rng := trainingRNG(cfg.Training.Seed)
	builder := features.NewBuilder(store.Bounds())
	samples := sampling.OversampleVectors(builder.Samples(store.Records()), rng)

	model := predictor.NewFeedForward(cfg.Training.Numeric.HiddenSize, rng)
	result, err := model.Train(context.Background(), samples, predictor.Options{
		Iterations:     cfg.Training.Numeric.Iterations,
		ErrorThreshold: cfg.Training.Numeric.ErrorThreshold,
		LearningRate:   cfg.Training.Numeric.LearningRate,
		LogEvery:       cfg.Training.Numeric.LogEvery,
		Progress: func(iteration int, errValue float64) {
			tracker.SetValue(int64(iteration))
		},
	})
	if err != nil {
		tracker.MarkAsErrored()
		color.Red("numeric training failed: %v", err)
		return false
	}
	tracker.MarkAsDone()

	report, err := evaluation.EvaluateVector(model, store.Records(), builder)
	if err != nil {
		color.Red("numeric evaluation failed: %v", err)
		return false
	}

	color.New(color.FgGreen, color.Bold).Printf("\nnumeric model: %d iterations, error %.5f\n", result.Iterations, result.Error)
	fmt.Printf("  accuracy %s%%  recall(no-show) %s%%  recall(show) %s%%\n",
		report.Overall, report.RecallNoShow, report.RecallShow)
	return true
}

func trainText(cfg *config.Config, store *dataset.Store, pw progress.Writer) bool {
	tracker := &progress.Tracker{
		Message: "text model",
		Total:   int64(cfg.Training.Text.Iterations),
	}
	pw.AppendTracker(tracker)

	pipeline := engine.NewTextPipeline(
		nil,
		func() predictor.TextModel { return predictor.NewTokenPerceptron() },
		predictor.Options{
			Iterations:     cfg.Training.Text.Iterations,
			ErrorThreshold: cfg.Training.Text.ErrorThreshold,
			LearningRate:   cfg.Training.Text.LearningRate,
			LogEvery:       cfg.Training.Text.LogEvery,
		},
		cfg.Training.Seed,
	)

	outcome, err := pipeline.Run(context.Background(), store.Records(), func(ev engine.Event) {
		switch ev.Type {
		case engine.EventSamples:
			for _, example := range ev.Examples {
				fmt.Printf("  sample: %s\n", example)
			}
		case engine.EventProgress:
			tracker.SetValue(int64(ev.PercentComplete / 100 * float64(cfg.Training.Text.Iterations)))
		}
	})
	if err != nil {
		tracker.MarkAsErrored()
		color.Red("text training failed: %v", err)
		return false
	}
	tracker.MarkAsDone()

	color.New(color.FgGreen, color.Bold).Printf("\ntext model: %d iterations, error %.5f\n", outcome.Result.Iterations, outcome.Result.Error)
	fmt.Printf("  validation %s%%  test %s%%  recall(no-show) %s%%  recall(show) %s%%\n",
		outcome.Metrics.ValidationAccuracy, outcome.Metrics.TestAccuracy,
		outcome.Metrics.TestRecallNoShow, outcome.Metrics.TestRecallShow)
	return true
}

func trainingRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
