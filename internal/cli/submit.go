package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"docwatch/internal/client"
	"docwatch/internal/config"
	"docwatch/internal/history"
	"docwatch/internal/run"
	"docwatch/internal/ui/live"
	"docwatch/internal/ui/plain"
)

// liveUI is the part of the live renderer the submit command drives.
type liveUI interface {
	run.Observer
	Close()
	Wait() error
}

var (
	// startLiveUI launches the terminal UI; tests replace it.
	startLiveUI = func(stdout io.Writer, opts live.Options) liveUI {
		return live.Start(stdout, opts)
	}
	// notifyInterrupt wires process signals into a context; tests replace it.
	notifyInterrupt = func(parent context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	}
)

// runSubmit builds the handler for the submit command.
func runSubmit(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: search for .docwatch/config.yml)")
		uiMode := flags.String("ui", "", "UI mode: auto|live|plain (default: from config)")
		outPath := flags.String("out", "", "Write the result payload (or the diagnostic report on failure) to a JSON file")
		wait := flags.Bool("wait", false, "Wait for the service health check before uploading")
		noHistory := flags.Bool("no-history", false, "Do not record the run in the local history")
		verbose := flags.Bool("verbose", false, "Log debug output to stderr")
		var edits []fieldEdit
		flags.Func("set", "Edit an extract field before --out, as path=value (repeatable; JSON values allowed)", func(raw string) error {
			edit, err := parseFieldEdit(raw)
			if err != nil {
				return err
			}
			edits = append(edits, edit)
			return nil
		})
		if code, ok := parseCommandFlags(cmd, flags, args, 1, stdout, stderr); !ok {
			return code
		}

		cfg, err := resolveConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Submit failed: %v\n", err)
			return ExitError
		}
		mode := cfg.UI.Mode
		if *uiMode != "" {
			mode = *uiMode
		}
		decision, err := resolveUIMode(mode, *verbose, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}

		logger, closeLog, err := commandLogger(cfg, stderr, *verbose, decision.useLive)
		if err != nil {
			fmt.Fprintf(stderr, "Submit failed: %v\n", err)
			return ExitError
		}
		defer func() { _ = closeLog() }()

		doc, err := client.LoadDocument(flags.Arg(0), client.MaxBytes(cfg.Upload.MaxMB))
		if err != nil {
			fmt.Fprintf(stderr, "Submit failed: %v\n", err)
			return ExitError
		}
		svc, err := newServiceClient(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Submit failed: %v\n", err)
			return ExitError
		}

		signalCtx, stop := notifyInterrupt(context.Background())
		defer stop()

		if *wait {
			if _, err := svc.Health(signalCtx); err != nil {
				fmt.Fprintf(stderr, "Service not ready: %v\n", err)
				return ExitError
			}
		}

		opts := run.Options{Logger: logger}
		if !*noHistory && cfg.HistoryEnabled() {
			store, err := history.Open(signalCtx, cfg.History.Path, logger)
			if err != nil {
				logger.Warn("history unavailable", "path", cfg.History.Path, "error", err)
			} else {
				defer func() { _ = store.Close() }()
				opts.Sink = store
			}
		}

		controller := run.NewController(opts)
		runner := &run.Runner{
			Controller: controller,
			Client:     svc,
			Timeout:    cfg.Server.Timeout,
			Logger:     logger,
		}

		var ui liveUI
		if decision.useLive {
			ui = startLiveUI(stdout, live.Options{
				NoColor:  decision.noColor,
				KeepOpen: true,
				OnCancel: func() { controller.Cancel() },
				OnView: func(view run.View) {
					if _, err := controller.SetView(view); err != nil {
						logger.Debug("view change rejected", "view", view, "error", err)
					}
				},
				OnSelectIssue: func(index int) { _, _ = controller.SelectIssue(index) },
			})
			controller.Subscribe(ui)
		} else {
			controller.Subscribe(plain.New(stdout))
		}

		var final run.State
		group, groupCtx := errgroup.WithContext(context.Background())
		group.Go(func() error {
			if ui != nil {
				defer ui.Close()
			}
			final = runner.Run(context.Background(), doc)
			return nil
		})
		if ui != nil {
			group.Go(func() error {
				err := ui.Wait()
				// Leaving the UI early abandons the run.
				controller.Cancel()
				return err
			})
		}
		go func() {
			select {
			case <-signalCtx.Done():
				if controller.Cancel() {
					logger.Info("cancel requested by signal")
				}
			case <-groupCtx.Done():
			}
		}()
		if err := group.Wait(); err != nil {
			fmt.Fprintf(stderr, "Live UI failed: %v\n", err)
		}

		if ui != nil {
			plain.Summary(stdout, final)
		}
		if final.Phase == run.PhaseDone {
			for _, edit := range edits {
				state, err := controller.ApplyFieldEdit(edit.path, edit.value)
				if err != nil {
					fmt.Fprintf(stderr, "Edit %s failed: %v\n", edit.path, err)
					return ExitError
				}
				final = state
			}
		}
		if *outPath != "" {
			if err := writeOutcome(*outPath, final); err != nil {
				fmt.Fprintf(stderr, "Submit failed: %v\n", err)
				return ExitError
			}
			fmt.Fprintf(stdout, "Wrote %s\n", *outPath)
		}
		return exitCodeForPhase(final.Phase)
	}
}

// newServiceClient builds the extraction service client from config.
func newServiceClient(cfg config.Config, logger *slog.Logger) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL:         cfg.Server.BaseURL,
		StreamPath:      cfg.Server.StreamPath,
		RequestIDHeader: cfg.Server.RequestIDHeader,
		HealthRetries:   cfg.Server.HealthRetries,
		Logger:          logger,
	})
}

// fieldEdit is one --set assignment.
type fieldEdit struct {
	path  string
	value any
}

// parseFieldEdit splits path=value. A value that parses as JSON keeps its
// type; anything else is a string.
func parseFieldEdit(raw string) (fieldEdit, error) {
	path, text, ok := strings.Cut(raw, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return fieldEdit{}, fmt.Errorf("expected path=value, got %q", raw)
	}
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		value = text
	}
	return fieldEdit{path: path, value: value}, nil
}

// outcomePayload returns the payload with its extract replaced by the edited
// copy, when there is one.
func outcomePayload(state run.State) (json.RawMessage, error) {
	if state.EditableExtract == nil {
		return state.Payload, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(state.Payload, &fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	extract, err := json.Marshal(state.EditableExtract)
	if err != nil {
		return nil, fmt.Errorf("encode extract: %w", err)
	}
	fields["extract"] = extract
	return json.Marshal(fields)
}

// writeOutcome stores the result payload of a successful run, including any
// field edits, or the diagnostic report of any other outcome.
func writeOutcome(path string, state run.State) error {
	var data []byte
	if state.Phase == run.PhaseDone && len(state.Payload) > 0 {
		payload, err := outcomePayload(state)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, payload, "", "  "); err != nil {
			return fmt.Errorf("format payload: %w", err)
		}
		data = buf.Bytes()
	} else {
		encoded, err := json.MarshalIndent(state.DiagnosticReport(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		data = encoded
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// exitCodeForPhase maps a terminal phase to the process exit code.
func exitCodeForPhase(phase run.Phase) int {
	switch phase {
	case run.PhaseDone:
		return ExitOK
	case run.PhaseCancelled:
		return ExitCancelled
	default:
		return ExitError
	}
}
