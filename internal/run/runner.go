package run

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docwatch/internal/client"
)

// Submitter uploads a document and consumes the response.
type Submitter interface {
	Submit(ctx context.Context, doc client.Document, hooks client.Hooks) (*client.Response, error)
}

// Runner drives one submission through the controller.
type Runner struct {
	Controller *Controller
	Client     Submitter
	// Timeout aborts a run that takes longer; zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run submits doc and returns the final snapshot. Every failure resolves
// to a terminal state; Run itself never fails.
func (r *Runner) Run(ctx context.Context, doc client.Document) State {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handle := r.Controller.Start(ctx, doc.Name)
	runCtx := handle.Context()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeoutCause(runCtx, r.Timeout, &TimeoutError{After: r.Timeout})
		defer cancel()
	}

	resp, err := r.Client.Submit(runCtx, doc, client.Hooks{
		OnAccepted: func(accepted client.Accepted) {
			handle.Accepted(accepted.RequestID)
		},
		OnStep: func(message string) {
			handle.Step(message)
		},
	})
	if err != nil {
		err = timeoutCause(runCtx, err)
		logger.Debug("submission failed", "file", doc.Name, "error", err)
		return handle.Finish(nil, err)
	}
	return handle.Finish(resp.Terminal, nil)
}

// timeoutCause attaches the deadline cause to errors that only carry
// context.DeadlineExceeded.
func timeoutCause(ctx context.Context, err error) error {
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	if cause := context.Cause(ctx); errors.As(cause, &timeout) {
		return errors.Join(err, cause)
	}
	return err
}
