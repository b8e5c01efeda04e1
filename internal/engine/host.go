package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clinicstack/noshow-engine/internal/features"
	"github.com/clinicstack/noshow-engine/internal/models"
	"github.com/clinicstack/noshow-engine/internal/predictor"
)

// ErrHostStopped is returned for requests after the host shut down.
var ErrHostStopped = errors.New("training host stopped")

// Runner abstracts the training flow the host executes, so hosts can be
// exercised without a real pipeline.
type Runner interface {
	Run(ctx context.Context, records []models.Record, emit func(Event)) (TextOutcome, error)
}

// Host runs text-model training off the interactive path. It owns the
// trained model exclusively; callers interact only through Train/Predict
// and the ordered event stream. At most one run is active: a new Train
// force-abandons the previous run, and abandoned runs never deliver
// another event.
type Host struct {
	logger   *slog.Logger
	pipeline Runner

	trainCh   chan trainRequest
	predictCh chan predictRequest
	events    chan Event
	stopped   chan struct{}
}

type trainRequest struct {
	records []models.Record
	runID   string
}

type predictRequest struct {
	text  string
	reply chan predictReply
}

type predictReply struct {
	label   string
	cleaned string
	err     error
}

// runEvent carries a pipeline event tagged with its run generation so the
// host can fence out messages from superseded runs.
type runEvent struct {
	gen int
	ev  Event
}

type runResult struct {
	gen     int
	outcome TextOutcome
	err     error
}

// NewHost creates a host around the given pipeline. Call Start before
// submitting requests.
func NewHost(logger *slog.Logger, pipeline Runner) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		logger:    logger,
		pipeline:  pipeline,
		trainCh:   make(chan trainRequest),
		predictCh: make(chan predictRequest),
		events:    make(chan Event, 256),
		stopped:   make(chan struct{}),
	}
}

// Start launches the host loop. It exits when ctx is cancelled, aborting
// any in-flight run.
func (h *Host) Start(ctx context.Context) {
	go h.loop(ctx)
}

// Events exposes the ordered host-to-caller message stream. Events for a
// run arrive in order with done/error always last; the channel is closed
// on shutdown.
func (h *Host) Events() <-chan Event {
	return h.events
}

// Train submits a training request over a snapshot of the records and
// returns the new run ID. Any in-flight run is abandoned first.
func (h *Host) Train(ctx context.Context, records []models.Record) (string, error) {
	snapshot := make([]models.Record, len(records))
	copy(snapshot, records)
	req := trainRequest{records: snapshot, runID: uuid.NewString()}
	select {
	case h.trainCh <- req:
		return req.runID, nil
	case <-h.stopped:
		return "", ErrHostStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Predict asks the host to classify the encoded input. It fails
// immediately with predictor.ErrNotTrained when no run has completed;
// requests are never queued behind training.
func (h *Host) Predict(ctx context.Context, text string) (label, cleaned string, err error) {
	req := predictRequest{text: text, reply: make(chan predictReply, 1)}
	select {
	case h.predictCh <- req:
	case <-h.stopped:
		return "", "", ErrHostStopped
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
	select {
	case rep := <-req.reply:
		return rep.label, rep.cleaned, rep.err
	case <-h.stopped:
		return "", "", ErrHostStopped
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

func (h *Host) loop(ctx context.Context) {
	defer close(h.stopped)
	defer close(h.events)

	var (
		gen     int
		cancel  context.CancelFunc
		model   predictor.TextModel
		runID   string
		// modelRunID names the completed run that produced the serving
		// model; runID may already point at a newer, unfinished run.
		modelRunID string
		eventCh    = make(chan runEvent, 64)
		doneCh     = make(chan runResult, 1)
	)
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-h.trainCh:
			if cancel != nil {
				// Abandon the previous run. Its remaining events carry a
				// stale generation and are dropped below.
				cancel()
			}
			gen++
			runID = req.runID
			runCtx, runCancel := context.WithCancel(ctx)
			cancel = runCancel
			h.startRun(runCtx, gen, req, eventCh, doneCh)

		case re := <-eventCh:
			if re.gen != gen {
				continue
			}
			re.ev.RunID = runID
			h.emit(re.ev)

		case res := <-doneCh:
			if res.gen != gen {
				continue
			}
			// The run goroutine finished emitting before posting its
			// result, so flushing eventCh here keeps done/error last.
			h.flushEvents(eventCh, gen, runID)
			if cancel != nil {
				cancel()
				cancel = nil
			}
			if res.err != nil {
				h.logger.Error("text training failed", slog.Any("error", res.err))
				h.emit(Event{Type: EventError, RunID: runID, Message: res.err.Error()})
				continue
			}
			model = res.outcome.Model
			modelRunID = runID
			metrics := res.outcome.Metrics
			h.emit(Event{Type: EventDone, RunID: runID, Metrics: &metrics})

		case req := <-h.predictCh:
			req.reply <- h.predict(model, modelRunID, req.text)
		}
	}
}

// flushEvents forwards buffered events for the current generation.
func (h *Host) flushEvents(eventCh <-chan runEvent, gen int, runID string) {
	for {
		select {
		case re := <-eventCh:
			if re.gen != gen {
				continue
			}
			re.ev.RunID = runID
			h.emit(re.ev)
		default:
			return
		}
	}
}

// startRun executes the pipeline in its own goroutine so the loop stays
// responsive to superseding train and predict requests.
func (h *Host) startRun(ctx context.Context, gen int, req trainRequest, eventCh chan<- runEvent, doneCh chan<- runResult) {
	go func() {
		emit := func(ev Event) {
			select {
			case eventCh <- runEvent{gen: gen, ev: ev}:
			case <-ctx.Done():
			}
		}
		outcome, err := h.pipeline.Run(ctx, req.records, emit)
		select {
		case doneCh <- runResult{gen: gen, outcome: outcome, err: err}:
		case <-ctx.Done():
			// Superseded mid-flight; the result is discarded with no
			// partial delivery.
		}
	}()
}

func (h *Host) predict(model predictor.TextModel, runID, text string) predictReply {
	if model == nil {
		return predictReply{err: predictor.ErrNotTrained}
	}
	cleaned := features.CleanText(text)
	label, err := model.Run(cleaned)
	if err != nil {
		return predictReply{err: err}
	}
	h.emit(Event{Type: EventPrediction, RunID: runID, Label: label, CleanedText: cleaned})
	return predictReply{label: label, cleaned: cleaned}
}

// emit delivers an event without blocking the loop. A full subscriber
// buffer drops the oldest pending event first.
func (h *Host) emit(ev Event) {
	for {
		select {
		case h.events <- ev:
			return
		default:
		}
		select {
		case dropped := <-h.events:
			h.logger.Warn("event buffer full, dropping oldest", slog.String("type", string(dropped.Type)))
		default:
		}
	}
}
