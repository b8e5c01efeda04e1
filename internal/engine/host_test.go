package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clinicstack/noshow-engine/internal/models"
	"github.com/clinicstack/noshow-engine/internal/predictor"
)

type fakeTextModel struct {
	label string
}

func (m fakeTextModel) Train(ctx context.Context, samples []models.TextSample, opts predictor.Options) (predictor.Result, error) {
	return predictor.Result{}, nil
}

func (m fakeTextModel) Run(text string) (string, error) { return m.label, nil }

// scriptRunner replays a per-call behaviour so host scheduling can be
// tested without a real pipeline.
type scriptRunner struct {
	mu    sync.Mutex
	calls int
	run   func(call int, ctx context.Context, emit func(Event)) (TextOutcome, error)
}

func (s *scriptRunner) Run(ctx context.Context, records []models.Record, emit func(Event)) (TextOutcome, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.run(call, ctx, emit)
}

func successRunner(label string) *scriptRunner {
	return &scriptRunner{run: func(call int, ctx context.Context, emit func(Event)) (TextOutcome, error) {
		emit(Event{Type: EventLog, Message: "training"})
		return TextOutcome{
			Model:   fakeTextModel{label: label},
			Result:  predictor.Result{Iterations: 1},
			Metrics: models.TextMetrics{TestAccuracy: "90.0"},
		}, nil
	}}
}

func startHost(t *testing.T, runner Runner) (*Host, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	host := NewHost(nil, runner)
	host.Start(ctx)
	return host, cancel
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatalf("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func collectUntilTerminal(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var collected []Event
	for {
		ev := waitEvent(t, events)
		collected = append(collected, ev)
		if ev.Type == EventDone || ev.Type == EventError {
			return collected
		}
	}
}

func TestHostPredictBeforeTrain(t *testing.T) {
	host, cancel := startHost(t, successRunner("no"))
	defer cancel()

	_, _, err := host.Predict(context.Background(), "male age30")
	if !errors.Is(err, predictor.ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}

func TestHostTrainDeliversDoneLast(t *testing.T) {
	host, cancel := startHost(t, successRunner("no"))
	defer cancel()

	runID, err := host.Train(context.Background(), []models.Record{{Age: 30}})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	events := collectUntilTerminal(t, host.Events())
	last := events[len(events)-1]
	if last.Type != EventDone {
		t.Fatalf("terminal event = %q, want %q", last.Type, EventDone)
	}
	if last.RunID != runID {
		t.Fatalf("done run id = %q, want %q", last.RunID, runID)
	}
	if last.Metrics == nil || last.Metrics.TestAccuracy != "90.0" {
		t.Fatalf("done event missing metrics: %+v", last.Metrics)
	}
	for _, ev := range events {
		if ev.RunID != runID {
			t.Fatalf("event %q carries run id %q, want %q", ev.Type, ev.RunID, runID)
		}
	}
}

func TestHostTrainFailureDeliversError(t *testing.T) {
	runner := &scriptRunner{run: func(call int, ctx context.Context, emit func(Event)) (TextOutcome, error) {
		emit(Event{Type: EventLog, Message: "starting"})
		return TextOutcome{}, errors.New("bad split")
	}}
	host, cancel := startHost(t, runner)
	defer cancel()

	runID, err := host.Train(context.Background(), []models.Record{{Age: 30}})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	events := collectUntilTerminal(t, host.Events())
	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("terminal event = %q, want %q", last.Type, EventError)
	}
	if last.RunID != runID || last.Message != "bad split" {
		t.Fatalf("unexpected error event: %+v", last)
	}
}

func TestHostSecondTrainAbandonsFirst(t *testing.T) {
	firstStarted := make(chan struct{})
	firstReleased := make(chan struct{})
	runner := &scriptRunner{run: func(call int, ctx context.Context, emit func(Event)) (TextOutcome, error) {
		if call == 1 {
			emit(Event{Type: EventLog, Message: "first"})
			close(firstStarted)
			<-ctx.Done()
			// An abandoned run keeps emitting; nothing may get through.
			emit(Event{Type: EventLog, Message: "first after abandon"})
			close(firstReleased)
			return TextOutcome{}, ctx.Err()
		}
		emit(Event{Type: EventLog, Message: "second"})
		return TextOutcome{
			Model:   fakeTextModel{label: "no"},
			Metrics: models.TextMetrics{TestAccuracy: "80.0"},
		}, nil
	}}
	host, cancel := startHost(t, runner)
	defer cancel()

	firstID, err := host.Train(context.Background(), []models.Record{{Age: 30}})
	if err != nil {
		t.Fatalf("first train failed: %v", err)
	}
	<-firstStarted

	secondID, err := host.Train(context.Background(), []models.Record{{Age: 40}})
	if err != nil {
		t.Fatalf("second train failed: %v", err)
	}
	<-firstReleased

	events := collectUntilTerminal(t, host.Events())
	last := events[len(events)-1]
	if last.Type != EventDone || last.RunID != secondID {
		t.Fatalf("terminal event %+v, want done for run %q", last, secondID)
	}

	sawSecond := false
	for _, ev := range events {
		if ev.RunID == secondID {
			sawSecond = true
		}
		if sawSecond && ev.RunID == firstID {
			t.Fatalf("run %q event delivered after abandonment: %+v", firstID, ev)
		}
		if ev.Message == "first after abandon" {
			t.Fatalf("abandoned run leaked an event: %+v", ev)
		}
	}
	if !sawSecond {
		t.Fatalf("expected events for run %q", secondID)
	}
}

func TestHostPredictAfterTrain(t *testing.T) {
	host, cancel := startHost(t, successRunner("no"))
	defer cancel()

	runID, err := host.Train(context.Background(), []models.Record{{Age: 30}})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	collectUntilTerminal(t, host.Events())

	label, cleaned, err := host.Predict(context.Background(), "Male, Age30!")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if label != "no" {
		t.Fatalf("label = %q, want no", label)
	}
	if cleaned != "male age30" {
		t.Fatalf("cleaned = %q, want %q", cleaned, "male age30")
	}

	ev := waitEvent(t, host.Events())
	if ev.Type != EventPrediction || ev.Label != "no" || ev.CleanedText != "male age30" || ev.RunID != runID {
		t.Fatalf("unexpected prediction event: %+v", ev)
	}
}

func TestHostPredictionTaggedWithServingRun(t *testing.T) {
	secondStarted := make(chan struct{})
	runner := &scriptRunner{run: func(call int, ctx context.Context, emit func(Event)) (TextOutcome, error) {
		if call == 1 {
			return TextOutcome{
				Model:   fakeTextModel{label: "no"},
				Metrics: models.TextMetrics{TestAccuracy: "85.0"},
			}, nil
		}
		close(secondStarted)
		<-ctx.Done()
		return TextOutcome{}, ctx.Err()
	}}
	host, cancel := startHost(t, runner)
	defer cancel()

	firstID, err := host.Train(context.Background(), []models.Record{{Age: 30}})
	if err != nil {
		t.Fatalf("first train failed: %v", err)
	}
	collectUntilTerminal(t, host.Events())

	// A second run is now in flight; the serving model still came from
	// the first one.
	if _, err := host.Train(context.Background(), []models.Record{{Age: 40}}); err != nil {
		t.Fatalf("second train failed: %v", err)
	}
	<-secondStarted

	label, _, err := host.Predict(context.Background(), "male age30")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if label != "no" {
		t.Fatalf("label = %q, want no", label)
	}

	ev := waitEvent(t, host.Events())
	if ev.Type != EventPrediction {
		t.Fatalf("event type = %q, want %q", ev.Type, EventPrediction)
	}
	if ev.RunID != firstID {
		t.Fatalf("prediction run id = %q, want serving run %q", ev.RunID, firstID)
	}
}

func TestHostStopped(t *testing.T) {
	host, cancel := startHost(t, successRunner("no"))
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-host.Events():
			if !ok {
				// Channel closed; the host is down.
				if _, err := host.Train(context.Background(), nil); !errors.Is(err, ErrHostStopped) {
					t.Fatalf("expected ErrHostStopped, got %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatalf("host did not stop")
		}
	}
}
