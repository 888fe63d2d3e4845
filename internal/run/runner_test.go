package run

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docwatch/internal/client"
	"docwatch/internal/mockserver"
	"docwatch/internal/testutil"
)

// startMock serves the mock back end for one scenario.
func startMock(t *testing.T, scenario mockserver.Scenario, delay time.Duration) *httptest.Server {
	t.Helper()
	handler, err := mockserver.NewHandler(mockserver.Config{Scenario: scenario, StepDelay: delay})
	if err != nil {
		t.Fatalf("mock handler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// newRunner wires a controller and client against baseURL.
func newRunner(t *testing.T, baseURL string, timeout time.Duration) (*Runner, *recordingSink) {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	sink := &recordingSink{}
	return &Runner{Controller: NewController(Options{Sink: sink}), Client: c, Timeout: timeout}, sink
}

var testDocument = client.Document{Name: "leave.pdf", Data: []byte("%PDF-1.4 test")}

// TestRunnerScenarios drives every mock scenario end to end.
func TestRunnerScenarios(t *testing.T) {
	cases := []struct {
		scenario mockserver.Scenario
		phase    Phase
		kind     ErrorKind
		title    string
		fallback bool
	}{
		{scenario: mockserver.ScenarioOK, phase: PhaseDone},
		{scenario: mockserver.ScenarioJSON, phase: PhaseDone},
		{scenario: mockserver.ScenarioFallback, phase: PhaseDone, fallback: true},
		{scenario: mockserver.ScenarioError, phase: PhaseError, kind: ErrorDomain, title: "Сервис временно недоступен"},
		{scenario: mockserver.ScenarioTimeout, phase: PhaseError, kind: ErrorDomain, title: "Время ожидания истекло"},
		{scenario: mockserver.ScenarioNoResult, phase: PhaseError, kind: ErrorNoResult},
		{scenario: mockserver.ScenarioEmpty, phase: PhaseError, kind: ErrorNoResult},
		{scenario: mockserver.ScenarioRateLimited, phase: PhaseError, kind: ErrorDomain, title: "Слишком много запросов"},
	}
	for _, tc := range cases {
		t.Run(string(tc.scenario), func(t *testing.T) {
			server := startMock(t, tc.scenario, 0)
			runner, sink := newRunner(t, server.URL, 0)
			state := runner.Run(testutil.Context(t, 0), testDocument)
			if state.Phase != tc.phase {
				t.Fatalf("expected %s, got %s (%+v)", tc.phase, state.Phase, state.Error)
			}
			if state.RequestID == "" {
				t.Fatalf("expected a request id")
			}
			if state.FallbackUsed != tc.fallback {
				t.Fatalf("expected fallback=%v", tc.fallback)
			}
			if tc.phase == PhaseDone {
				if len(sink.summaries) != 1 || sink.summaries[0].RequestID != state.RequestID {
					t.Fatalf("expected a summary for the run, got %+v", sink.summaries)
				}
				return
			}
			if state.Error == nil || state.Error.Kind != tc.kind {
				t.Fatalf("expected %s error, got %+v", tc.kind, state.Error)
			}
			if tc.title != "" && state.Error.Title != tc.title {
				t.Fatalf("expected title %q, got %q", tc.title, state.Error.Title)
			}
			if state.Error.RequestID != state.RequestID {
				t.Fatalf("expected the error to carry the request id")
			}
		})
	}
}

// TestRunnerStepsReachDone verifies the ok script drives the stepper.
func TestRunnerStepsReachDone(t *testing.T) {
	server := startMock(t, mockserver.ScenarioOK, 0)
	runner, _ := newRunner(t, server.URL, 0)
	var sawCheck bool
	runner.Controller.Subscribe(ObserverFunc(func(state State) {
		if step, ok := state.ActiveStep(); ok && step.Key == StepCheck {
			sawCheck = true
		}
	}))
	state := runner.Run(testutil.Context(t, 0), testDocument)
	if !sawCheck {
		t.Fatalf("expected the check step to become active during the stream")
	}
	if len(state.Logs) == 0 || !strings.HasPrefix(state.Logs[0], "Файл загружен") {
		t.Fatalf("unexpected logs %q", state.Logs)
	}
	if state.Progress() != 1 {
		t.Fatalf("expected full progress, got %v", state.Progress())
	}
}

// TestRunnerCancel verifies a user cancel mid-stream.
func TestRunnerCancel(t *testing.T) {
	server := startMock(t, mockserver.ScenarioSlow, 50*time.Millisecond)
	runner, sink := newRunner(t, server.URL, 0)
	runner.Controller.Subscribe(ObserverFunc(func(state State) {
		if len(state.Logs) == 1 {
			go runner.Controller.Cancel()
		}
	}))
	state := runner.Run(testutil.Context(t, 0), testDocument)
	if state.Phase != PhaseCancelled || state.Error != nil {
		t.Fatalf("expected cancelled, got %s %+v", state.Phase, state.Error)
	}
	if len(sink.summaries) != 0 {
		t.Fatalf("expected no summary for a cancelled run")
	}
}

// TestRunnerTimeout verifies the deadline surfaces as a transport error.
func TestRunnerTimeout(t *testing.T) {
	server := startMock(t, mockserver.ScenarioSlow, time.Second)
	runner, _ := newRunner(t, server.URL, 100*time.Millisecond)
	state := runner.Run(testutil.Context(t, 0), testDocument)
	if state.Phase != PhaseError || state.Error.Kind != ErrorTransport {
		t.Fatalf("expected transport error, got %s %+v", state.Phase, state.Error)
	}
	if state.Error.Message != "request took longer than 100ms" {
		t.Fatalf("unexpected message %q", state.Error.Message)
	}
}

// TestRunnerRejectedUpload verifies a 400 JSON answer is a domain error.
func TestRunnerRejectedUpload(t *testing.T) {
	server := startMock(t, mockserver.ScenarioOK, 0)
	runner, _ := newRunner(t, server.URL, 0)
	state := runner.Run(testutil.Context(t, 0), client.Document{Name: "notes.txt", Data: []byte("x")})
	if state.Phase != PhaseError || state.Error.Kind != ErrorDomain || state.Error.Status != http.StatusBadRequest {
		t.Fatalf("expected a 400 domain error, got %+v", state.Error)
	}
	if state.Error.Message != "Пожалуйста, загрузите PDF файл." {
		t.Fatalf("unexpected message %q", state.Error.Message)
	}
}

// TestRunnerTransportFailure verifies an unreachable server.
func TestRunnerTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	runner, _ := newRunner(t, url, 0)
	state := runner.Run(testutil.Context(t, 0), testDocument)
	if state.Phase != PhaseError || state.Error.Kind != ErrorTransport {
		t.Fatalf("expected transport error, got %s %+v", state.Phase, state.Error)
	}
}
