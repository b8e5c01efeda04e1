// Package services exposes the engine's operations to transport layers:
// synchronous numeric training, background text training, predictions,
// and the run history.
package services

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicstack/noshow-engine/internal/dataset"
	"github.com/clinicstack/noshow-engine/internal/engine"
	"github.com/clinicstack/noshow-engine/internal/evaluation"
	"github.com/clinicstack/noshow-engine/internal/features"
	"github.com/clinicstack/noshow-engine/internal/metrics"
	"github.com/clinicstack/noshow-engine/internal/models"
	"github.com/clinicstack/noshow-engine/internal/predictor"
	"github.com/clinicstack/noshow-engine/internal/sampling"
	"github.com/clinicstack/noshow-engine/internal/utils"
)

// NumericOptions configures the synchronous numeric training path.
type NumericOptions struct {
	Iterations     int
	ErrorThreshold float64
	LearningRate   float64
	LogEvery       int
	HiddenSize     int
}

// NoShowService wires the dataset, models and background host together.
// The numeric model lives here and is replaced wholesale on retraining;
// the text model is owned by the host and reachable only via messages.
type NoShowService struct {
	logger    *slog.Logger
	store     *dataset.Store
	builder   *features.Builder
	host      *engine.Host
	numOpts   NumericOptions
	seed      int64
	latencies *utils.LatencyTracker

	mu      sync.RWMutex
	numeric predictor.VectorModel

	history *runHistory

	subMu     sync.Mutex
	subs      map[int]chan engine.Event
	nextSubID int

	startMu    sync.Mutex
	runStarted map[string]time.Time
}

// NewNoShowService constructs the service facade and starts pumping host
// events to subscribers.
func NewNoShowService(logger *slog.Logger, store *dataset.Store, host *engine.Host, numOpts NumericOptions, seed int64, historyLimit int) *NoShowService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &NoShowService{
		logger:     logger,
		store:      store,
		builder:    features.NewBuilder(store.Bounds()),
		host:       host,
		numOpts:    numOpts,
		seed:       seed,
		latencies:  utils.NewLatencyTracker(1024),
		history:    newRunHistory(historyLimit),
		subs:       make(map[int]chan engine.Event),
		runStarted: make(map[string]time.Time),
	}
	if host != nil {
		go s.pumpEvents()
	}
	return s
}

// TrainNumeric trains the feed-forward model synchronously on the full
// balanced record set and evaluates it over all records. It blocks the
// caller for the duration of training; that is an accepted property of
// the numeric path, not a defect.
func (s *NoShowService) TrainNumeric(ctx context.Context) (models.TrainingReport, error) {
	const op = "train_numeric"

	rng := s.rng()
	samples := s.builder.Samples(s.store.Records())
	samples = sampling.OversampleVectors(samples, rng)

	model := predictor.NewFeedForward(s.numOpts.HiddenSize, rng)
	start := time.Now()
	result, err := model.Train(ctx, samples, predictor.Options{
		Iterations:     s.numOpts.Iterations,
		ErrorThreshold: s.numOpts.ErrorThreshold,
		LearningRate:   s.numOpts.LearningRate,
		LogEvery:       s.numOpts.LogEvery,
		Log: func(message string) {
			s.logger.Debug("numeric training", slog.String("progress", message))
		},
	})
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveTraining(string(models.ModelNumeric), duration, metrics.OutcomeError)
		return models.TrainingReport{}, utils.NewAppError(op, "training failed", err)
	}

	report, err := evaluation.EvaluateVector(model, s.store.Records(), s.builder)
	if err != nil {
		metrics.ObserveTraining(string(models.ModelNumeric), duration, metrics.OutcomeError)
		return models.TrainingReport{}, utils.NewAppError(op, "evaluation failed", err)
	}

	s.mu.Lock()
	s.numeric = model
	s.mu.Unlock()

	metrics.ObserveTraining(string(models.ModelNumeric), duration, metrics.OutcomeSuccess)
	tr := models.TrainingReport{
		RunID:      uuid.NewString(),
		Model:      models.ModelNumeric,
		Iterations: result.Iterations,
		Error:      result.Error,
		Report:     &report,
		Duration:   duration,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	s.history.add(tr)
	s.logger.Info("numeric model trained",
		slog.Int("iterations", result.Iterations),
		slog.String("accuracy", report.Overall),
		slog.Duration("duration", duration))
	return tr, nil
}

// PredictNumeric scores one input through the trained numeric model.
func (s *NoShowService) PredictNumeric(ctx context.Context, in models.PredictionInput) (models.NumericPrediction, error) {
	const op = "predict_numeric"

	s.mu.RLock()
	model := s.numeric
	s.mu.RUnlock()
	if model == nil {
		metrics.ObservePrediction(string(models.ModelNumeric), metrics.OutcomeError)
		return models.NumericPrediction{}, utils.NewAppError(op, "not trained yet", predictor.ErrNotTrained)
	}

	vector := s.builder.FromInput(in)
	start := time.Now()
	score, err := model.Run(vector)
	if err != nil {
		metrics.ObservePrediction(string(models.ModelNumeric), metrics.OutcomeError)
		return models.NumericPrediction{}, utils.NewAppError(op, "inference failed", err)
	}
	s.observeLatency(time.Since(start))

	metrics.ObservePrediction(string(models.ModelNumeric), metrics.OutcomeSuccess)
	return models.NumericPrediction{
		Score:  score,
		NoShow: score > 0.5,
		Vector: vector,
	}, nil
}

// TrainText starts a background text-model run, superseding any run in
// flight, and returns its run ID.
func (s *NoShowService) TrainText(ctx context.Context) (string, error) {
	runID, err := s.host.Train(ctx, s.store.Records())
	if err != nil {
		metrics.ObserveTraining(string(models.ModelText), 0, metrics.OutcomeError)
		return "", utils.NewAppError("train_text", "submit failed", err)
	}
	s.startMu.Lock()
	s.runStarted[runID] = time.Now()
	s.startMu.Unlock()
	return runID, nil
}

// PredictText encodes the input and asks the background host for a label.
func (s *NoShowService) PredictText(ctx context.Context, in models.PredictionInput) (models.TextPrediction, error) {
	const op = "predict_text"

	text := features.RecordText(in.ToRecord())
	start := time.Now()
	label, cleaned, err := s.host.Predict(ctx, text)
	if err != nil {
		metrics.ObservePrediction(string(models.ModelText), metrics.OutcomeError)
		return models.TextPrediction{}, utils.NewAppError(op, "prediction failed", err)
	}
	s.observeLatency(time.Since(start))

	metrics.ObservePrediction(string(models.ModelText), metrics.OutcomeSuccess)
	return models.TextPrediction{
		Label:       label,
		NoShow:      evaluation.PredictsNoShow(label),
		CleanedText: cleaned,
	}, nil
}

// Runs lists recent training reports, newest first.
func (s *NoShowService) Runs() []models.TrainingReport {
	return s.history.list()
}

// DatasetInfo summarises the loaded record set.
func (s *NoShowService) DatasetInfo() models.DatasetInfo {
	bounds := s.store.Bounds()
	return models.DatasetInfo{
		Records:        s.store.Len(),
		NoShows:        s.store.NoShowCount(),
		Neighbourhoods: s.store.Neighbourhoods(),
		AgeMin:         bounds.Age.Min,
		AgeMax:         bounds.Age.Max,
		DaysWaitMin:    bounds.DaysWait.Min,
		DaysWaitMax:    bounds.DaysWait.Max,
	}
}

// Subscribe registers an event listener for host messages. The returned
// cancel func must be called when the listener goes away.
func (s *NoShowService) Subscribe() (<-chan engine.Event, func()) {
	ch := make(chan engine.Event, 64)
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
		s.subMu.Unlock()
	}
}

// pumpEvents fans host events out to subscribers and folds terminal text
// events into the run history.
func (s *NoShowService) pumpEvents() {
	for ev := range s.host.Events() {
		if ev.Type == engine.EventDone || ev.Type == engine.EventError {
			s.recordTextRun(ev)
		}

		s.subMu.Lock()
		for _, ch := range s.subs {
			select {
			case ch <- ev:
			default:
				// Slow subscriber; skip rather than stall the pump.
			}
		}
		s.subMu.Unlock()
	}
}

func (s *NoShowService) recordTextRun(ev engine.Event) {
	s.startMu.Lock()
	started, ok := s.runStarted[ev.RunID]
	delete(s.runStarted, ev.RunID)
	s.startMu.Unlock()

	duration := time.Duration(0)
	if ok {
		duration = time.Since(started)
	}

	if ev.Type == engine.EventError {
		metrics.ObserveTraining(string(models.ModelText), duration, metrics.OutcomeError)
		s.logger.Warn("text training failed", slog.String("run_id", ev.RunID), slog.String("message", ev.Message))
		return
	}

	metrics.ObserveTraining(string(models.ModelText), duration, metrics.OutcomeSuccess)
	tr := models.TrainingReport{
		RunID:      ev.RunID,
		Model:      models.ModelText,
		Text:       ev.Metrics,
		Duration:   duration,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	s.history.add(tr)
}

func (s *NoShowService) observeLatency(d time.Duration) {
	s.latencies.Observe(d)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Debug("prediction latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
}

// rng returns a fresh random source per training run. Seed 0 preserves
// the default non-reproducible behaviour.
func (s *NoShowService) rng() *rand.Rand {
	seed := s.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// runHistory is a bounded, newest-first list of training reports.
type runHistory struct {
	mu    sync.Mutex
	runs  []models.TrainingReport
	limit int
}

func newRunHistory(limit int) *runHistory {
	if limit <= 0 {
		limit = 50
	}
	return &runHistory{limit: limit}
}

func (h *runHistory) add(tr models.TrainingReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append([]models.TrainingReport{tr}, h.runs...)
	if len(h.runs) > h.limit {
		h.runs = h.runs[:h.limit]
	}
}

func (h *runHistory) list() []models.TrainingReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.TrainingReport, len(h.runs))
	copy(out, h.runs)
	return out
}
