package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docwatch/internal/stream"
)

var (
	// ErrUserCancelled is the cancellation cause of Controller.Cancel.
	ErrUserCancelled = errors.New("cancelled by user")
	// ErrSuperseded is the cancellation cause of a run replaced by Start.
	ErrSuperseded = errors.New("superseded by a newer run")
	// ErrNotDone rejects result actions while no successful result exists.
	ErrNotDone = errors.New("run has no successful result")
)

// TimeoutError is the cancellation cause of a run that exceeded its deadline.
type TimeoutError struct {
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request took longer than %s", e.After)
}

// Observer receives a snapshot after every state change.
// Observers run on the mutating goroutine, in mutation order, and must not
// call back into the controller.
type Observer interface {
	OnState(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

// OnState calls f.
func (f ObserverFunc) OnState(state State) {
	f(state)
}

// SummarySink receives the sanitized summary of every successful run.
type SummarySink interface {
	RecordSummary(ctx context.Context, summary Summary) error
}

// Options configures a Controller.
type Options struct {
	Logger *slog.Logger
	// Now overrides the clock.
	Now func() time.Time
	// Validate is the validity check for successful payloads.
	Validate func(*Result) error
	// Sink receives summaries of successful runs. Failures are only logged.
	Sink SummarySink
	// SinkTimeout bounds a single sink call.
	SinkTimeout time.Duration
}

// Controller owns the run state. Every transition and its mutation happen
// under one lock, and callers only ever see snapshots.
type Controller struct {
	mu         sync.Mutex
	notifyMu   sync.Mutex
	opts       Options
	logger     *slog.Logger
	state      State
	generation uint64
	cancel     context.CancelCauseFunc
	observers  []Observer
}

// NewController builds an idle controller.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Validate == nil {
		opts.Validate = ValidateResult
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = 5 * time.Second
	}
	return &Controller{
		opts:   opts,
		logger: logger.With("component", "run"),
		state:  initialState(),
	}
}

// Subscribe registers an observer for future state changes.
func (c *Controller) Subscribe(observer Observer) {
	if observer == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Start resets the state for a new submission and returns the handle its
// transport callbacks must go through. Any run still in flight is
// cancelled and can no longer mutate the state.
func (c *Controller) Start(parent context.Context, fileName string) *Handle {
	ctx, cancel := context.WithCancelCause(parent)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel(ErrSuperseded)
	}
	c.generation++
	now := c.opts.Now()
	c.state = State{
		Generation:    c.generation,
		Phase:         PhaseUploading,
		FileName:      fileName,
		Steps:         newSteps(now),
		StartedAt:     now,
		View:          ViewIssues,
		SelectedIssue: -1,
	}
	c.cancel = cancel
	handle := &Handle{c: c, generation: c.generation, ctx: ctx}
	c.logger.Info("run started", "generation", c.generation, "file", fileName)
	c.publishLocked()
	return handle
}

// Cancel requests cancellation of the current run. It reports whether a
// run was in flight.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil || c.state.Phase.Terminal() || c.state.Phase == PhaseIdle {
		return false
	}
	c.logger.Info("run cancellation requested", "generation", c.generation)
	c.cancel(ErrUserCancelled)
	return true
}

// SetView switches the result tab.
func (c *Controller) SetView(view View) (State, error) {
	if _, err := ParseView(string(view)); err != nil {
		return c.Snapshot(), err
	}
	c.mu.Lock()
	if c.state.View == view {
		state := c.state.Clone()
		c.mu.Unlock()
		return state, nil
	}
	c.state.View = view
	return c.publishLocked(), nil
}

// SelectIssue highlights an issue by index; -1 clears the selection.
func (c *Controller) SelectIssue(index int) (State, error) {
	c.mu.Lock()
	issues := c.state.Issues()
	if index < -1 || index >= len(issues) {
		state := c.state.Clone()
		c.mu.Unlock()
		return state, fmt.Errorf("issue index %d out of range (0..%d)", index, len(issues)-1)
	}
	c.state.SelectedIssue = index
	return c.publishLocked(), nil
}

// ApplyFieldEdit sets a dot-separated path in the editable copy of the
// extract. Only a finished successful run can be edited.
func (c *Controller) ApplyFieldEdit(path string, value any) (State, error) {
	c.mu.Lock()
	if c.state.Phase != PhaseDone || c.state.EditableExtract == nil {
		state := c.state.Clone()
		c.mu.Unlock()
		return state, ErrNotDone
	}
	if err := setPath(c.state.EditableExtract, path, value); err != nil {
		state := c.state.Clone()
		c.mu.Unlock()
		return state, err
	}
	return c.publishLocked(), nil
}

// publishLocked snapshots the state, releases c.mu and notifies observers
// in mutation order. The caller must hold c.mu.
func (c *Controller) publishLocked() State {
	state := c.state.Clone()
	observers := append([]Observer(nil), c.observers...)
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, observer := range observers {
		observer.OnState(state.Clone())
	}
	return state
}

// Handle scopes transport callbacks to one run. Calls through a handle of
// a superseded run are ignored.
type Handle struct {
	c          *Controller
	generation uint64
	ctx        context.Context
}

// Context is cancelled when the run is cancelled or superseded.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Generation identifies the run.
func (h *Handle) Generation() uint64 {
	return h.generation
}

// Accepted moves the run from uploading to processing once the transport
// accepted the request and the body has begun.
func (h *Handle) Accepted(requestID string) (State, bool) {
	c := h.c
	c.mu.Lock()
	if !h.currentLocked() || c.state.Phase != PhaseUploading {
		state := c.state.Clone()
		c.mu.Unlock()
		return state, false
	}
	c.state.Phase = PhaseProcessing
	c.state.AcceptedAt = c.opts.Now()
	if requestID != "" {
		c.state.RequestID = requestID
	}
	c.logger.Debug("run accepted", "generation", h.generation, "request_id", requestID)
	return c.publishLocked(), true
}

// Step records a progress message and infers step status from it.
func (h *Handle) Step(message string) (State, bool) {
	c := h.c
	c.mu.Lock()
	if !h.currentLocked() || c.state.Phase.Terminal() {
		state := c.state.Clone()
		c.mu.Unlock()
		return state, false
	}
	now := c.opts.Now()
	if c.state.Phase == PhaseUploading {
		c.state.Phase = PhaseProcessing
		c.state.AcceptedAt = now
	}
	c.state.Logs = append(c.state.Logs, message)
	if containsFold(message, fallbackMarker) {
		c.state.FallbackUsed = true
	}
	if inf, ok := InferStep(message); ok {
		applyInference(c.state.Steps, inf, now)
	}
	return c.publishLocked(), true
}

// Finish resolves the run from the consumer outcome: a terminal payload or
// the error that ended the stream.
func (h *Handle) Finish(terminal *stream.Terminal, err error) State {
	c := h.c
	c.mu.Lock()
	if !h.currentLocked() || c.state.Phase.Terminal() {
		state := c.state.Clone()
		c.mu.Unlock()
		c.logger.Debug("ignoring finish of stale run", "generation", h.generation)
		return state
	}
	c.state.FinishedAt = c.opts.Now()
	if c.cancel != nil {
		defer c.cancel(nil)
	}

	var summary *Summary
	switch {
	case errors.Is(context.Cause(h.ctx), ErrUserCancelled):
		c.resolveCancelled()
	case err != nil:
		c.resolveError(err)
	case terminal == nil:
		c.resolveError(stream.ErrNoFinalResult)
	default:
		summary = c.resolveTerminal(terminal)
	}

	c.logger.Info("run finished",
		"generation", h.generation,
		"phase", c.state.Phase,
		"request_id", c.state.RequestID,
		"duration", c.state.Duration(c.state.FinishedAt),
	)
	state := c.publishLocked()
	if summary != nil {
		c.emitSummary(*summary)
	}
	return state
}

// currentLocked reports whether the handle belongs to the latest run.
func (h *Handle) currentLocked() bool {
	return h.generation == h.c.generation
}

// resolveCancelled moves to the cancelled phase.
func (c *Controller) resolveCancelled() {
	c.state.Phase = PhaseCancelled
	c.state.Error = nil
}

// resolveError maps a consumer or transport error onto the state.
func (c *Controller) resolveError(err error) {
	var timeout *TimeoutError
	runErr := &RunError{RequestID: c.state.RequestID, Retryable: true}
	switch {
	case errors.As(err, &timeout):
		runErr.Kind = ErrorTransport
		runErr.Title = titleTimeout
		runErr.Message = timeout.Error()
	case errors.Is(err, context.DeadlineExceeded):
		runErr.Kind = ErrorTransport
		runErr.Title = titleTimeout
		runErr.Message = "request timed out"
	case errors.Is(err, stream.ErrCancelled), errors.Is(err, context.Canceled):
		c.resolveCancelled()
		return
	case errors.Is(err, stream.ErrEmptyResponse), errors.Is(err, stream.ErrNoFinalResult):
		runErr.Kind = ErrorNoResult
		runErr.Title = titleNoResult
		runErr.Message = "no final result"
	default:
		runErr.Kind = ErrorTransport
		runErr.Title = titleRequest
		runErr.Message = "request failed: " + err.Error()
		var statusErr interface{ HTTPStatus() int }
		if errors.As(err, &statusErr) {
			runErr.Status = statusErr.HTTPStatus()
			runErr.Title = ErrorTitle(runErr.Status, nil)
		}
	}
	c.state.Phase = PhaseError
	c.state.Error = runErr
	c.logger.Warn("run failed", "kind", runErr.Kind, "error", err)
}

// resolveTerminal applies a terminal payload and returns the summary of a
// successful run.
func (c *Controller) resolveTerminal(terminal *stream.Terminal) *Summary {
	c.state.Payload = terminal.Payload
	result, decodeErr := DecodeResult(terminal.Payload)
	if decodeErr == nil {
		c.state.Result = result
		if c.state.RequestID == "" && result.Trace != nil {
			c.state.RequestID = result.Trace.RequestID
		}
	}

	if !terminal.OK {
		status := parseStatus(terminal.StatusHint)
		if status == 0 {
			status = result.StatusCode()
		}
		c.state.Phase = PhaseError
		c.state.Error = &RunError{
			Kind:      ErrorDomain,
			Title:     ErrorTitle(status, result.IssueCodes()),
			Message:   result.FailureText(),
			Status:    status,
			RequestID: c.state.RequestID,
			Retryable: true,
			Payload:   terminal.Payload,
		}
		c.logger.Warn("run failed", "kind", ErrorDomain, "status", status, "message", c.state.Error.Message)
		return nil
	}

	validErr := decodeErr
	if validErr == nil {
		validErr = c.opts.Validate(result)
	}
	if validErr != nil {
		c.state.Phase = PhaseError
		c.state.Error = &RunError{
			Kind:      ErrorInvalidResult,
			Title:     titleDefault,
			Message:   "invalid result: " + validErr.Error(),
			RequestID: c.state.RequestID,
			Retryable: true,
			Payload:   terminal.Payload,
		}
		c.logger.Warn("run failed", "kind", ErrorInvalidResult, "error", validErr)
		return nil
	}

	c.state.Phase = PhaseDone
	c.state.Error = nil
	completeSteps(c.state.Steps)
	if result.Extract != nil {
		c.state.EditableExtract = deepCopyMap(result.Extract)
	}
	summary := BuildSummary(c.state)
	return &summary
}

// emitSummary hands a summary to the sink outside the state lock.
func (c *Controller) emitSummary(summary Summary) {
	if c.opts.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SinkTimeout)
	defer cancel()
	if err := c.opts.Sink.RecordSummary(ctx, summary); err != nil {
		c.logger.Warn("summary sink failed", "request_id", summary.RequestID, "error", err)
	}
}
