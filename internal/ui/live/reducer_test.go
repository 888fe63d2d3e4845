package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"docwatch/internal/run"
	"docwatch/internal/stream"
	"docwatch/internal/testutil"
)

const donePayload = `{"extract":{"raw_text":"Прошу отпуск","employee":{"full_name":"Иванов Иван"}},"issues":[{"severity":"warn","code":"late","field":"request_date","message":"поздно"},{"severity":"error","code":"no_sig","message":"нет подписи"}],"decision":{"status":"error","needs_rewrite":true,"summary":"Нужны правки"}}`

// recordSnapshots drives a run and collects every published snapshot.
func recordSnapshots(t *testing.T, finish func(h *run.Handle) run.State) []run.State {
	t.Helper()
	clock := testutil.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	controller := run.NewController(run.Options{Now: clock.Now})
	var snapshots []run.State
	controller.Subscribe(run.ObserverFunc(func(state run.State) {
		snapshots = append(snapshots, state)
	}))
	handle := controller.Start(context.Background(), "leave.pdf")
	clock.Advance(100 * time.Millisecond)
	handle.Accepted("req-7")
	clock.Advance(100 * time.Millisecond)
	handle.Step("Файл загружен: name=leave.pdf")
	clock.Advance(100 * time.Millisecond)
	handle.Step("Шаг vision: отправка PNG")
	clock.Advance(time.Second)
	finish(handle)
	return snapshots
}

// reduceAll folds snapshots into a UI state.
func reduceAll(snapshots []run.State) State {
	state := State{}
	for _, snapshot := range snapshots {
		state = Reduce(state, snapshot)
	}
	return state
}

// TestReduceTracksProgress verifies logs, steps and events follow the run.
func TestReduceTracksProgress(t *testing.T) {
	snapshots := recordSnapshots(t, func(h *run.Handle) run.State {
		return h.Finish(&stream.Terminal{Source: stream.SourceResult, OK: true, Payload: json.RawMessage(donePayload)}, nil)
	})
	state := State{}
	for i, snapshot := range snapshots[:len(snapshots)-1] {
		state = Reduce(state, snapshot)
		if i == 1 && state.LastEvent != "accepted, request req-7" {
			t.Fatalf("expected accepted event, got %q", state.LastEvent)
		}
	}
	if state.Phase != run.PhaseProcessing || len(state.Logs) != 2 || state.NewLogs != 1 {
		t.Fatalf("unexpected processing state %+v", state)
	}
	if state.Steps[1].Status != run.StepActive || state.Steps[0].Status != run.StepDone {
		t.Fatalf("unexpected steps %+v", state.Steps)
	}
	if state.LastEvent != "Шаг vision: отправка PNG" {
		t.Fatalf("expected last log as event, got %q", state.LastEvent)
	}

	state = Reduce(state, snapshots[len(snapshots)-1])
	if state.Phase != run.PhaseDone || state.Decision == nil || !state.Decision.NeedsRewrite {
		t.Fatalf("unexpected done state %+v", state)
	}
	if len(state.Issues) != 2 || state.Progress != 1 || state.LastEvent != "finished" {
		t.Fatalf("unexpected result projection %+v", state)
	}
}

// TestReduceResetsLogCountOnNewRun verifies a new generation starts fresh.
func TestReduceResetsLogCountOnNewRun(t *testing.T) {
	prev := State{Generation: 1, Logs: []string{"a", "b", "c"}}
	next := Reduce(prev, run.State{Generation: 2, Phase: run.PhaseProcessing, Logs: []string{"x"}})
	if next.NewLogs != 1 {
		t.Fatalf("expected one new log, got %d", next.NewLogs)
	}
}

// TestReduceError verifies the error card source.
func TestReduceError(t *testing.T) {
	state := reduceAll(recordSnapshots(t, func(h *run.Handle) run.State {
		return h.Finish(nil, stream.ErrNoFinalResult)
	}))
	if state.Phase != run.PhaseError || state.Error == nil || state.Error.Kind != run.ErrorNoResult {
		t.Fatalf("unexpected error state %+v", state.Error)
	}
	if state.Decision != nil {
		t.Fatalf("expected no decision for a failed run")
	}
	if state.LastEvent != "failed: "+state.Error.Title {
		t.Fatalf("unexpected event %q", state.LastEvent)
	}
}
