package cli

import (
	"flag"
	"fmt"
	"io"

	"docwatch/internal/stream"
)

// selfChecks runs the extractor fixtures; tests replace it.
var selfChecks = stream.RunSelfChecks

// runSelfCheck builds the handler for the selfcheck command.
func runSelfCheck(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		if code, ok := parseCommandFlags(cmd, flags, args, 0, stdout, stderr); !ok {
			return code
		}

		failed := 0
		for _, result := range selfChecks() {
			status := "ok"
			if !result.Passed {
				status = "FAIL"
				failed++
			}
			fmt.Fprintf(stdout, "%-4s %s\n", status, result.Name)
			if !result.Passed {
				fmt.Fprintf(stdout, "     got: %q\n", result.Value)
			}
		}
		if failed > 0 {
			fmt.Fprintf(stderr, "%d self-check(s) failed\n", failed)
			return ExitError
		}
		return ExitOK
	}
}
