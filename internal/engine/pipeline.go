// Package engine orchestrates model training: the split/oversample/train/
// evaluate pipeline for the text model and the background host that runs
// it off the request path.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/clinicstack/noshow-engine/internal/evaluation"
	"github.com/clinicstack/noshow-engine/internal/features"
	"github.com/clinicstack/noshow-engine/internal/models"
	"github.com/clinicstack/noshow-engine/internal/predictor"
	"github.com/clinicstack/noshow-engine/internal/sampling"
)

// samplePreviewCount bounds the encoded-string preview in the samples event.
const samplePreviewCount = 5

// TextPipeline runs one full text-model training flow: encode records,
// split 70/15/15, oversample the train partition only, fit a fresh model,
// then evaluate against the untouched validation and test partitions.
type TextPipeline struct {
	logger   *slog.Logger
	newModel func() predictor.TextModel
	opts     predictor.Options
	seed     int64
}

// TextOutcome is the result of a successful pipeline run. The trained
// model replaces the host's previous one wholesale.
type TextOutcome struct {
	Model   predictor.TextModel
	Result  predictor.Result
	Metrics models.TextMetrics
}

// NewTextPipeline constructs a pipeline. newModel must return a fresh
// untrained model per call. seed 0 keeps the default unseeded shuffling;
// any other value makes runs reproducible.
func NewTextPipeline(logger *slog.Logger, newModel func() predictor.TextModel, opts predictor.Options, seed int64) *TextPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if newModel == nil {
		newModel = func() predictor.TextModel { return predictor.NewTokenPerceptron() }
	}
	return &TextPipeline{logger: logger, newModel: newModel, opts: opts, seed: seed}
}

// Run executes the pipeline, streaming samples/log/progress events through
// emit. Terminal done/error delivery is the caller's responsibility so it
// can guarantee ordering.
func (p *TextPipeline) Run(ctx context.Context, records []models.Record, emit func(Event)) (TextOutcome, error) {
	if emit == nil {
		emit = func(Event) {}
	}
	if len(records) == 0 {
		return TextOutcome{}, fmt.Errorf("no records to train on")
	}

	rng := p.rng()
	parts := sampling.Split(records, rng)

	trainSamples := features.TextSamples(parts.Train)
	trainSamples = sampling.OversampleTexts(trainSamples, rng)

	emit(Event{Type: EventSamples, Examples: previewSamples(trainSamples)})
	emit(Event{Type: EventLog, Message: fmt.Sprintf(
		"split %d records: train %d (%d after oversampling), validation %d, test %d",
		len(records), len(parts.Train), len(trainSamples), len(parts.Validation), len(parts.Test))})

	opts := p.opts
	opts.Log = func(message string) {
		emit(Event{Type: EventLog, Message: message})
	}
	opts.Progress = func(iteration int, errValue float64) {
		emit(Event{
			Type:            EventProgress,
			PercentComplete: float64(iteration) / float64(p.opts.Iterations) * 100,
			CurrentError:    errValue,
		})
	}

	model := p.newModel()
	result, err := model.Train(ctx, trainSamples, opts)
	if err != nil {
		return TextOutcome{}, fmt.Errorf("train text model: %w", err)
	}

	valReport, err := evaluation.EvaluateText(model, parts.Validation)
	if err != nil {
		return TextOutcome{}, fmt.Errorf("evaluate validation: %w", err)
	}
	testReport, err := evaluation.EvaluateText(model, parts.Test)
	if err != nil {
		return TextOutcome{}, fmt.Errorf("evaluate test: %w", err)
	}

	metrics := models.TextMetrics{
		ValidationAccuracy: valReport.Overall,
		TestAccuracy:       testReport.Overall,
		TestRecallNoShow:   testReport.RecallNoShow,
		TestRecallShow:     testReport.RecallShow,
	}
	p.logger.Debug("text pipeline finished",
		slog.Int("iterations", result.Iterations),
		slog.String("validation", metrics.ValidationAccuracy),
		slog.String("test", metrics.TestAccuracy))

	return TextOutcome{Model: model, Result: result, Metrics: metrics}, nil
}

func (p *TextPipeline) rng() *rand.Rand {
	seed := p.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func previewSamples(samples []models.TextSample) []string {
	limit := samplePreviewCount
	if len(samples) < limit {
		limit = len(samples)
	}
	preview := make([]string, 0, limit)
	for _, s := range samples[:limit] {
		preview = append(preview, fmt.Sprintf("%s -> %s", s.Text, s.Label))
	}
	return preview
}
