package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"docwatch/internal/config"
	"docwatch/internal/mockserver"
)

// serveMock runs the fake back end; tests replace it.
var serveMock = mockserver.Serve

// runMockServer builds the handler for the mock-server command.
func runMockServer(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		addr := flags.String("addr", "127.0.0.1:8000", "Listen address")
		scenarioName := flags.String("scenario", "ok", "Default scenario")
		stepDelay := flags.Duration("step-delay", 300*time.Millisecond, "Delay between records of the slow scenario")
		maxMB := flags.Int("max-mb", config.DefaultMaxUploadMB, "Upload limit in megabytes")
		if code, ok := parseCommandFlags(cmd, flags, args, 0, stdout, stderr); !ok {
			return code
		}
		scenario, err := mockserver.ParseScenario(*scenarioName)
		if err != nil {
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		logger, closeLog, err := commandLogger(config.Default(), stderr, false, false)
		if err != nil {
			fmt.Fprintf(stderr, "Mock server failed: %v\n", err)
			return ExitError
		}
		defer func() { _ = closeLog() }()

		ctx, stop := notifyInterrupt(context.Background())
		defer stop()
		err = serveMock(ctx, mockserver.Config{
			Addr:        *addr,
			Scenario:    scenario,
			MaxUploadMB: *maxMB,
			StepDelay:   *stepDelay,
			Logger:      logger,
			OnListen: func(bound string) {
				fmt.Fprintf(stdout, "Mock server listening on http://%s (scenario %s)\n", bound, scenario)
			},
		})
		if err != nil {
			fmt.Fprintf(stderr, "Mock server failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
